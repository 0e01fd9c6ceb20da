// Package quote converts an amount of one asset into another using USD
// reference prices. Nothing here talks to the network.
package quote

import (
	"strings"

	"github.com/shopspring/decimal"
)

// DisplayPlaces is the number of decimals every quote figure is shown with
const DisplayPlaces = 6

// divisionPlaces keeps enough precision before the final display rounding
const divisionPlaces = 18

var (
	// FeeRate is the estimated fee taken from the source amount
	FeeRate = decimal.RequireFromString("0.003")

	MinSlippage     = decimal.RequireFromString("0.1")
	MaxSlippage     = decimal.NewFromInt(49)
	DefaultSlippage = decimal.RequireFromString("0.5")

	hundred = decimal.NewFromInt(100)
)

// PriceSource resolves a USD reference price by symbol
type PriceSource interface {
	Price(symbol string) (decimal.Decimal, bool)
}

// Request is one conversion to compute
type Request struct {
	From     string
	To       string
	Amount   string
	Slippage decimal.Decimal
}

// Result holds the computed figures. When OK is false every figure is
// absent and displays as an empty string.
type Result struct {
	OK              bool
	Input           decimal.Decimal
	DestAmount      decimal.Decimal
	EffectiveRate   decimal.Decimal
	EstimatedFee    decimal.Decimal
	MinimumReceived decimal.Decimal
	Slippage        decimal.Decimal
}

// Compute converts req.Amount of req.From into req.To.
//
// There is no quote when the input is empty, unparsable or negative, or
// when either price is unknown. A zero destination price counts as unknown.
func Compute(req Request, prices PriceSource) Result {
	input, ok := ParseAmount(req.Amount)
	if !ok || prices == nil {
		return Result{}
	}

	fromPrice, toPrice, ok := pairPrices(req.From, req.To, prices)
	if !ok {
		return Result{}
	}

	slippage := ClampSlippage(req.Slippage)
	dest := input.Mul(fromPrice).DivRound(toPrice, DisplayPlaces)

	res := Result{
		OK:           true,
		Input:        input,
		DestAmount:   dest,
		EstimatedFee: input.Mul(FeeRate).Round(DisplayPlaces),
		Slippage:     slippage,
	}
	res.MinimumReceived = MinimumReceived(dest, slippage)

	if input.IsZero() {
		res.EffectiveRate = fromPrice.DivRound(toPrice, DisplayPlaces)
	} else {
		res.EffectiveRate = dest.DivRound(input, DisplayPlaces)
	}
	return res
}

// PriceRatio returns price[from]/price[to]
func PriceRatio(from, to string, prices PriceSource) (decimal.Decimal, bool) {
	fromPrice, toPrice, ok := pairPrices(from, to, prices)
	if !ok {
		return decimal.Decimal{}, false
	}
	return fromPrice.DivRound(toPrice, divisionPlaces), true
}

// pairPrices resolves both prices. The same symbol on both sides yields
// 1/1 so the rate is exactly one.
func pairPrices(from, to string, prices PriceSource) (fromPrice, toPrice decimal.Decimal, ok bool) {
	one := decimal.NewFromInt(1)
	if strings.EqualFold(from, to) {
		if _, ok := prices.Price(from); ok {
			return one, one, true
		}
		return decimal.Decimal{}, decimal.Decimal{}, false
	}

	fromPrice, ok = prices.Price(from)
	if !ok {
		return decimal.Decimal{}, decimal.Decimal{}, false
	}
	toPrice, ok = prices.Price(to)
	if !ok || toPrice.IsZero() {
		return decimal.Decimal{}, decimal.Decimal{}, false
	}
	return fromPrice, toPrice, true
}

// MinimumReceived applies the slippage tolerance (a percentage) to dest
func MinimumReceived(dest, slippage decimal.Decimal) decimal.Decimal {
	factor := decimal.NewFromInt(1).Sub(slippage.Div(hundred))
	return dest.Mul(factor).Round(DisplayPlaces)
}

// ParseAmount parses user-entered amount text. Empty, unparsable and
// negative values are rejected.
func ParseAmount(text string) (decimal.Decimal, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(text)
	if err != nil || d.IsNegative() {
		return decimal.Decimal{}, false
	}
	return d, true
}

// ClampSlippage bounds a slippage percentage to [MinSlippage, MaxSlippage]
func ClampSlippage(s decimal.Decimal) decimal.Decimal {
	if s.LessThan(MinSlippage) {
		return MinSlippage
	}
	if s.GreaterThan(MaxSlippage) {
		return MaxSlippage
	}
	return s
}

// ParseSlippage maps empty or unparsable text to DefaultSlippage and clamps
// everything else.
func ParseSlippage(text string) decimal.Decimal {
	text = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), "%"))
	if text == "" {
		return DefaultSlippage
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		return DefaultSlippage
	}
	return ClampSlippage(d)
}

// Format renders d with DisplayPlaces decimals, or "" when absent
func Format(d decimal.Decimal, ok bool) string {
	if !ok {
		return ""
	}
	return d.StringFixed(DisplayPlaces)
}

// DestText returns the destination amount as displayed
func (r Result) DestText() string { return Format(r.DestAmount, r.OK) }

// RateText returns the effective rate as displayed
func (r Result) RateText() string { return Format(r.EffectiveRate, r.OK) }

// FeeText returns the estimated fee as displayed
func (r Result) FeeText() string { return Format(r.EstimatedFee, r.OK) }

// MinimumText returns the minimum received as displayed
func (r Result) MinimumText() string { return Format(r.MinimumReceived, r.OK) }
