package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/matrixise/nolimit-swap/internal/session"
)

type sessionResponse struct {
	Connected       bool                    `json:"connected"`
	Address         *string                 `json:"address"`
	DisplayAddress  string                  `json:"display_address,omitempty"`
	Balance         string                  `json:"balance"`
	SelectedNetwork string                  `json:"selected_network"`
	CurrentNetwork  string                  `json:"current_network"`
	Spaces          []session.WalletSession `json:"spaces"`
	Notices         []session.Notice        `json:"notices,omitempty"`
}

func (s *Server) sessionView() sessionResponse {
	resp := sessionResponse{
		Balance:         s.sessions.ConnectedBalance(),
		SelectedNetwork: s.sessions.SelectedNetwork(),
		CurrentNetwork:  s.sessions.CurrentNetwork().Name,
		Notices:         s.sessions.Notices(),
	}
	if addr, ok := s.sessions.ConnectedAddress(); ok {
		resp.Connected = true
		resp.Address = &addr
		resp.DisplayAddress = session.ShortAddress(addr)
	}
	for _, sp := range session.Spaces {
		if ws, err := s.sessions.Session(sp); err == nil {
			resp.Spaces = append(resp.Spaces, ws)
		}
	}
	return resp
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sessionView())
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	space, err := session.ParseSpace(chi.URLParam(r, "space"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	if err := s.sessions.Connect(r.Context(), space, s.providers[space]); err != nil {
		s.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.sessionView())
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	space, err := session.ParseSpace(chi.URLParam(r, "space"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	if err := s.sessions.Disconnect(r.Context(), space); err != nil {
		s.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.sessionView())
}

type networkRequest struct {
	Network string `json:"network"`
}

func (s *Server) handleSelectNetwork(w http.ResponseWriter, r *http.Request) {
	var req networkRequest
	if err := readJSONBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Network) == "" {
		writeError(w, http.StatusBadRequest, "network is required")
		return
	}

	if err := s.sessions.SelectNetwork(r.Context(), req.Network); err != nil {
		s.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.sessionView())
}

type balancesResponse struct {
	Address  *string           `json:"address"`
	Network  string            `json:"network"`
	Balances map[string]string `json:"balances"`
}

func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	symbols := s.symbols
	if v := r.URL.Query().Get("symbols"); v != "" {
		symbols = nil
		for _, sym := range strings.Split(v, ",") {
			if sym = strings.TrimSpace(sym); sym != "" {
				symbols = append(symbols, strings.ToUpper(sym))
			}
		}
	}

	resp := balancesResponse{
		Network:  s.sessions.CurrentNetwork().Name,
		Balances: make(map[string]string, len(symbols)),
	}
	if addr, ok := s.sessions.ConnectedAddress(); ok {
		resp.Address = &addr
	}
	for _, sym := range symbols {
		resp.Balances[sym] = s.sessions.TokenBalance(sym)
	}
	writeJSON(w, http.StatusOK, resp)
}

func sessionErrorStatus(err error) int {
	switch {
	case errors.Is(err, session.ErrUnknownSpace):
		return http.StatusNotFound
	case errors.Is(err, session.ErrUnknownNetwork):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrBusy), errors.Is(err, session.ErrAlreadyConnected):
		return http.StatusConflict
	case errors.Is(err, session.ErrRejected), errors.Is(err, session.ErrVerificationFailed):
		return http.StatusForbidden
	case errors.Is(err, session.ErrProviderNotInstalled), errors.Is(err, session.ErrUnsupportedProvider):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) writeSessionError(w http.ResponseWriter, err error) {
	writeJSON(w, sessionErrorStatus(err), errorResponse{
		Error:   err.Error(),
		Notices: s.sessions.Notices(),
	})
}
