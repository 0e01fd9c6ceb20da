package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/matrixise/nolimit-swap/internal/pricefeed"
	"github.com/matrixise/nolimit-swap/internal/quote"
	"github.com/matrixise/nolimit-swap/internal/storage"
)

type pricesResponse struct {
	Loading   bool                   `json:"loading"`
	FetchedAt *time.Time             `json:"fetched_at"`
	Quotes    []pricefeed.AssetQuote `json:"quotes"`
}

func (s *Server) handlePrices(w http.ResponseWriter, r *http.Request) {
	snap := s.prices.Snapshot()
	resp := pricesResponse{
		Loading: s.prices.Loading(),
		Quotes:  snap.Quotes(),
	}
	if at := snap.FetchedAt(); !at.IsZero() {
		resp.FetchedAt = &at
	}
	if resp.Quotes == nil {
		resp.Quotes = []pricefeed.AssetQuote{}
	}
	writeJSON(w, http.StatusOK, resp)
}

type historyResponse struct {
	Symbol  string                  `json:"symbol"`
	History []storage.PriceSnapshot `json:"history"`
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, "price history requires a database")
		return
	}

	symbol := strings.ToUpper(chi.URLParam(r, "symbol"))
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	rows, err := s.history.History(r.Context(), symbol, limit)
	if err != nil {
		s.logger.Error("Failed to read price history", "symbol", symbol, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read price history")
		return
	}
	if rows == nil {
		rows = []storage.PriceSnapshot{}
	}
	writeJSON(w, http.StatusOK, historyResponse{Symbol: symbol, History: rows})
}

type quoteResponse struct {
	From            string `json:"from"`
	To              string `json:"to"`
	Amount          string `json:"amount"`
	OK              bool   `json:"ok"`
	DestAmount      string `json:"dest_amount"`
	Rate            string `json:"rate"`
	EstimatedFee    string `json:"estimated_fee"`
	MinimumReceived string `json:"minimum_received"`
	Slippage        string `json:"slippage"`
}

// handleQuote prices one conversion. A missing price or an unusable amount
// yields ok=false with empty figures, not an error.
func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from := strings.ToUpper(strings.TrimSpace(q.Get("from")))
	to := strings.ToUpper(strings.TrimSpace(q.Get("to")))
	if from == "" || to == "" {
		writeError(w, http.StatusBadRequest, "from and to are required")
		return
	}

	slippage := quote.ParseSlippage(q.Get("slippage"))
	res := quote.Compute(quote.Request{
		From:     from,
		To:       to,
		Amount:   q.Get("amount"),
		Slippage: slippage,
	}, s.prices.Snapshot())

	writeJSON(w, http.StatusOK, quoteResponse{
		From:            from,
		To:              to,
		Amount:          strings.TrimSpace(q.Get("amount")),
		OK:              res.OK,
		DestAmount:      res.DestText(),
		Rate:            res.RateText(),
		EstimatedFee:    res.FeeText(),
		MinimumReceived: res.MinimumText(),
		Slippage:        slippage.String(),
	})
}

type swapRequest struct {
	FromAsset             string         `json:"from_asset"`
	FromChain             string         `json:"from_chain"`
	ToAsset               string         `json:"to_asset"`
	ToChain               string         `json:"to_chain"`
	Amount                string         `json:"amount"`
	Slippage              string         `json:"slippage"`
	SendToDifferentWallet bool           `json:"send_to_different_wallet"`
	Recipient             string         `json:"recipient"`
	Privacy               *quote.Privacy `json:"privacy"`
}

type swapResponse struct {
	Error   string         `json:"error"`
	Action  string         `json:"action"`
	Intent  quote.Intent   `json:"intent"`
	Details *quote.Details `json:"details,omitempty"`
}

// handleSwap validates a swap intent. A valid intent is answered with 501
// since execution is not available.
func (s *Server) handleSwap(w http.ResponseWriter, r *http.Request) {
	var req swapRequest
	if err := readJSONBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	form := s.buildForm(req)
	connected := s.sessions.IsConnected()

	intent, err := form.Submit(connected)
	if !errors.Is(err, quote.ErrExecutionUnavailable) {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error:  err.Error(),
			Action: form.ActionLabel(connected),
		})
		return
	}

	resp := swapResponse{
		Error:  "Swap execution coming soon",
		Action: form.ActionLabel(connected),
		Intent: intent,
	}
	if d, ok := form.Details(); ok {
		resp.Details = &d
	}
	s.logger.Info("Swap intent validated", "from", intent.From.Asset, "to", intent.To.Asset, "amount", intent.Amount)
	writeJSON(w, http.StatusNotImplemented, resp)
}

func (s *Server) buildForm(req swapRequest) *quote.Form {
	form := quote.NewForm(s.registry, s.prices.Snapshot(), s.registry.Default().Name)
	if req.FromChain != "" {
		form.SelectFromChain(chainName(s, req.FromChain))
	}
	if req.ToChain != "" {
		form.SelectToChain(chainName(s, req.ToChain))
	}
	if req.FromAsset != "" {
		form.SetFromAsset(req.FromAsset)
	}
	if req.ToAsset != "" {
		form.SetToAsset(req.ToAsset)
	}
	form.SetSlippage(req.Slippage)
	form.SetAmount(req.Amount)
	form.SetSendToDifferentWallet(req.SendToDifferentWallet)
	form.SetRecipient(req.Recipient)
	if req.Privacy != nil {
		form.SetPrivacy(*req.Privacy)
	}
	return form
}

// chainName returns the configured spelling of a network name
func chainName(s *Server, name string) string {
	if n, ok := s.registry.ByName(name); ok {
		return n.Name
	}
	return name
}
