package quote

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrNotConnected      = errors.New("connect a wallet to swap")
	ErrAmountRequired    = errors.New("enter an amount")
	ErrRecipientRequired = errors.New("enter a recipient address")

	// ErrExecutionUnavailable is returned by a valid Submit: swaps are not executed
	ErrExecutionUnavailable = errors.New("swap execution is coming soon")
)

// Default pair
const (
	DefaultFromAsset = "ETH"
	DefaultToAsset   = "USDT"
)

// ChainResolver names the native token of a chain
type ChainResolver interface {
	NativeSymbol(chain string) (string, bool)
}

// Side is one leg of a swap
type Side struct {
	Asset string `json:"asset"`
	Chain string `json:"chain"`
}

// Privacy holds the routing preferences shown next to the form. They are
// carried with the intent and have no effect on the quote.
type Privacy struct {
	UseRelayer       bool `json:"use_relayer"`
	EnableStealth    bool `json:"enable_stealth"`
	UseMixer         bool `json:"use_mixer"`
	HideFromExplorer bool `json:"hide_from_explorer"`
}

// DefaultPrivacy matches the initial toggles of the swap page
func DefaultPrivacy() Privacy {
	return Privacy{UseRelayer: true, HideFromExplorer: true}
}

// Details are the auxiliary figures shown under a quote
type Details struct {
	Rate            string `json:"rate"`
	EstimatedFee    string `json:"estimated_fee"`
	Slippage        string `json:"slippage"`
	MinimumReceived string `json:"minimum_received"`
}

// Intent is what a submit would execute
type Intent struct {
	From       Side    `json:"from"`
	To         Side    `json:"to"`
	Amount     string  `json:"amount"`
	DestAmount string  `json:"dest_amount"`
	Slippage   string  `json:"slippage"`
	Recipient  string  `json:"recipient,omitempty"`
	Privacy    Privacy `json:"privacy"`
}

// Form is the editable swap intent. It keeps the displayed amount texts and
// recomputes the destination amount when an input it depends on changes.
// A Form is not safe for concurrent use.
type Form struct {
	chains ChainResolver
	prices PriceSource

	from       Side
	to         Side
	amountText string
	destText   string
	slippage   decimal.Decimal

	sendElsewhere bool
	recipient     string
	privacy       Privacy
}

// NewForm creates a form with the default pair on the default chain
func NewForm(chains ChainResolver, prices PriceSource, defaultChain string) *Form {
	return &Form{
		chains:   chains,
		prices:   prices,
		from:     Side{Asset: DefaultFromAsset, Chain: defaultChain},
		to:       Side{Asset: DefaultToAsset, Chain: defaultChain},
		slippage: DefaultSlippage,
		privacy:  DefaultPrivacy(),
	}
}

func (f *Form) recompute() {
	res := Compute(Request{
		From:     f.from.Asset,
		To:       f.to.Asset,
		Amount:   f.amountText,
		Slippage: f.slippage,
	}, f.prices)
	f.destText = res.DestText()
}

// SetFromAsset selects the source asset
func (f *Form) SetFromAsset(symbol string) {
	f.from.Asset = strings.ToUpper(strings.TrimSpace(symbol))
	f.recompute()
}

// SetToAsset selects the destination asset
func (f *Form) SetToAsset(symbol string) {
	f.to.Asset = strings.ToUpper(strings.TrimSpace(symbol))
	f.recompute()
}

// SetAmount replaces the input amount text
func (f *Form) SetAmount(text string) {
	f.amountText = text
	f.recompute()
}

// SetPrices swaps in a new price snapshot
func (f *Form) SetPrices(prices PriceSource) {
	f.prices = prices
	f.recompute()
}

// SetSlippage parses and clamps the tolerance. Only the minimum received
// depends on it, so the destination amount is left as is.
func (f *Form) SetSlippage(text string) {
	f.slippage = ParseSlippage(text)
}

// SelectFromChain changes the source chain. Moving to a different chain
// also selects that chain's native token.
func (f *Form) SelectFromChain(chain string) {
	f.selectChain(&f.from, chain)
}

// SelectToChain changes the destination chain, see SelectFromChain
func (f *Form) SelectToChain(chain string) {
	f.selectChain(&f.to, chain)
}

func (f *Form) selectChain(side *Side, chain string) {
	if side.Chain == chain {
		return
	}
	side.Chain = chain
	if f.chains == nil {
		return
	}
	if native, ok := f.chains.NativeSymbol(chain); ok {
		side.Asset = native
		f.recompute()
	}
}

// Reverse exchanges the two assets and both amount texts as displayed,
// without recomputing. Each side keeps its chain. Reversing twice restores
// the form.
func (f *Form) Reverse() {
	f.from.Asset, f.to.Asset = f.to.Asset, f.from.Asset
	f.amountText, f.destText = f.destText, f.amountText
}

// SetSendToDifferentWallet toggles delivery to an alternate recipient
func (f *Form) SetSendToDifferentWallet(enabled bool) {
	f.sendElsewhere = enabled
}

// SetRecipient sets the alternate recipient address
func (f *Form) SetRecipient(address string) {
	f.recipient = strings.TrimSpace(address)
}

// SetPrivacy replaces the routing preferences
func (f *Form) SetPrivacy(p Privacy) {
	f.privacy = p
}

func (f *Form) From() Side                { return f.from }
func (f *Form) To() Side                  { return f.to }
func (f *Form) AmountText() string        { return f.amountText }
func (f *Form) DestText() string          { return f.destText }
func (f *Form) Slippage() decimal.Decimal { return f.slippage }
func (f *Form) Recipient() string         { return f.recipient }

// Details derives the auxiliary figures from the displayed amounts
func (f *Form) Details() (Details, bool) {
	input, ok := ParseAmount(f.amountText)
	if !ok {
		return Details{}, false
	}
	dest, ok := ParseAmount(f.destText)
	if !ok {
		return Details{}, false
	}

	d := Details{
		EstimatedFee:    input.Mul(FeeRate).StringFixed(DisplayPlaces),
		Slippage:        f.slippage.String(),
		MinimumReceived: MinimumReceived(dest, f.slippage).StringFixed(DisplayPlaces),
	}
	switch {
	case !input.IsZero():
		d.Rate = dest.DivRound(input, DisplayPlaces).StringFixed(DisplayPlaces)
	case f.prices != nil:
		if rate, ok := PriceRatio(f.from.Asset, f.to.Asset, f.prices); ok {
			d.Rate = rate.StringFixed(DisplayPlaces)
		}
	}
	return d, true
}

// Validate checks that the form could be submitted
func (f *Form) Validate(connected bool) error {
	switch {
	case !connected:
		return ErrNotConnected
	case strings.TrimSpace(f.amountText) == "" || f.destText == "":
		return ErrAmountRequired
	case f.sendElsewhere && f.recipient == "":
		return ErrRecipientRequired
	}
	return nil
}

// Submit validates the form and returns the intent it describes. Execution
// is not available, so a valid form yields ErrExecutionUnavailable.
func (f *Form) Submit(connected bool) (Intent, error) {
	if err := f.Validate(connected); err != nil {
		return Intent{}, err
	}
	intent := Intent{
		From:       f.from,
		To:         f.to,
		Amount:     strings.TrimSpace(f.amountText),
		DestAmount: f.destText,
		Slippage:   f.slippage.String(),
		Privacy:    f.privacy,
	}
	if f.sendElsewhere {
		intent.Recipient = f.recipient
	}
	return intent, ErrExecutionUnavailable
}

// ActionLabel is the text of the submit button for the current state
func (f *Form) ActionLabel(connected bool) string {
	switch err := f.Validate(connected); {
	case errors.Is(err, ErrNotConnected):
		return "Connect Wallet to Swap"
	case errors.Is(err, ErrAmountRequired):
		return "Enter Amount"
	case errors.Is(err, ErrRecipientRequired):
		return "Enter Recipient Address"
	case f.sendElsewhere:
		return "Swap & Send"
	default:
		return "Execute Swap"
	}
}
