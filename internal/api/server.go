// Package api exposes prices, quotes and the wallet sessions over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/matrixise/nolimit-swap/internal/networks"
	"github.com/matrixise/nolimit-swap/internal/pricefeed"
	"github.com/matrixise/nolimit-swap/internal/session"
	"github.com/matrixise/nolimit-swap/internal/storage"
)

const maxBodyBytes = 64 << 10

// PriceCache is the read side of the price feed
type PriceCache interface {
	Snapshot() *pricefeed.Snapshot
	Loading() bool
}

// HistoryReader returns persisted quotes, newest first
type HistoryReader interface {
	History(ctx context.Context, symbol string, limit int) ([]storage.PriceSnapshot, error)
}

// Options wires the server to the rest of the application
type Options struct {
	Prices    PriceCache
	Sessions  *session.Manager
	Registry  *networks.Registry
	Providers map[session.Space]session.Provider
	Symbols   []string
	Health    http.Handler
	History   HistoryReader
	Logger    *slog.Logger
}

// Server holds the HTTP handlers
type Server struct {
	prices    PriceCache
	sessions  *session.Manager
	registry  *networks.Registry
	providers map[session.Space]session.Provider
	symbols   []string
	health    http.Handler
	history   HistoryReader
	logger    *slog.Logger
}

// NewServer creates a server from opts
func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Server{
		prices:    opts.Prices,
		sessions:  opts.Sessions,
		registry:  opts.Registry,
		providers: opts.Providers,
		symbols:   opts.Symbols,
		health:    opts.Health,
		history:   opts.History,
		logger:    opts.Logger,
	}
}

// Routes returns the router serving every endpoint
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	if s.health != nil {
		r.Method(http.MethodGet, "/health", s.health)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/prices", s.handlePrices)
		r.Get("/prices/{symbol}/history", s.handleHistory)
		r.Get("/quote", s.handleQuote)
		r.Post("/swap", s.handleSwap)

		r.Get("/session", s.handleSession)
		r.Post("/session/network", s.handleSelectNetwork)
		r.Post("/session/{space}/connect", s.handleConnect)
		r.Post("/session/{space}/disconnect", s.handleDisconnect)
		r.Get("/balances", s.handleBalances)
	})

	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).Round(time.Microsecond),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

type errorResponse struct {
	Error   string           `json:"error"`
	Action  string           `json:"action,omitempty"`
	Notices []session.Notice `json:"notices,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// readJSONBody decodes a bounded JSON body; an empty body leaves out untouched
func readJSONBody(w http.ResponseWriter, r *http.Request, out any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
