// Package health reports the state of the price feed and the optional
// database and RPC dependencies.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// FeedStatus is the part of the price cache the checker reads
type FeedStatus interface {
	Loading() bool
	LastSuccess() time.Time
	LastError() error
}

// Pinger verifies a database connection
type Pinger interface {
	Ping(ctx context.Context) error
}

// RPCHealth reports endpoint health per network
type RPCHealth interface {
	Health() map[string]map[string]bool
}

// Checker performs health checks on application dependencies
type Checker struct {
	feed     FeedStatus
	interval time.Duration
	db       Pinger
	rpc      RPCHealth
	now      func() time.Time
}

// Option configures a Checker
type Option func(*Checker)

// WithDatabase adds the database check
func WithDatabase(db Pinger) Option {
	return func(c *Checker) { c.db = db }
}

// WithRPC adds the RPC endpoints check
func WithRPC(rpc RPCHealth) Option {
	return func(c *Checker) { c.rpc = rpc }
}

// NewChecker creates a checker for a feed refreshed every interval
func NewChecker(feed FeedStatus, interval time.Duration, opts ...Option) *Checker {
	c := &Checker{
		feed:     feed,
		interval: interval,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CheckStatus represents the health status of a component
type CheckStatus string

const (
	StatusOK       CheckStatus = "ok"
	StatusDegraded CheckStatus = "degraded"
	StatusError    CheckStatus = "error"
)

// HealthResponse is the JSON response structure
type HealthResponse struct {
	Status    CheckStatus            `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckDetail `json:"checks"`
	Uptime    string                 `json:"uptime,omitempty"`
}

// CheckDetail contains details about a specific health check
type CheckDetail struct {
	Status  CheckStatus `json:"status"`
	Message string      `json:"message,omitempty"`
}

var startTime = time.Now()

// worse returns the more severe of two statuses
func worse(a, b CheckStatus) CheckStatus {
	rank := map[CheckStatus]int{StatusOK: 0, StatusDegraded: 1, StatusError: 2}
	if rank[b] > rank[a] {
		return b
	}
	return a
}

// Check performs all health checks and returns the aggregated status.
// A stale feed or unhealthy RPC endpoints degrade the service; only an
// unreachable database makes it fail.
func (c *Checker) Check(ctx context.Context) HealthResponse {
	checks := make(map[string]CheckDetail)
	overall := StatusOK

	feed := c.checkFeed()
	checks["price_feed"] = feed
	overall = worse(overall, feed.Status)

	if c.db != nil {
		db := c.checkDatabase(ctx)
		checks["database"] = db
		overall = worse(overall, db.Status)
	}

	if c.rpc != nil {
		rpc := c.checkRPC()
		checks["rpc_endpoints"] = rpc
		overall = worse(overall, rpc.Status)
	}

	return HealthResponse{
		Status:    overall,
		Timestamp: c.now(),
		Checks:    checks,
		Uptime:    c.now().Sub(startTime).Round(time.Second).String(),
	}
}

// checkFeed verifies the price feed refreshes on schedule (2x interval grace)
func (c *Checker) checkFeed() CheckDetail {
	last := c.feed.LastSuccess()
	lastErr := c.feed.LastError()

	if last.IsZero() {
		if lastErr != nil {
			return CheckDetail{
				Status:  StatusDegraded,
				Message: "no successful refresh yet: " + lastErr.Error(),
			}
		}
		return CheckDetail{
			Status:  StatusOK,
			Message: "waiting for first refresh (startup)",
		}
	}

	age := c.now().Sub(last)
	if c.interval > 0 && age > c.interval*2 {
		return CheckDetail{
			Status:  StatusDegraded,
			Message: fmt.Sprintf("no refresh in %s (expected every %s)", age.Round(time.Second), c.interval),
		}
	}

	if lastErr != nil {
		return CheckDetail{
			Status:  StatusDegraded,
			Message: fmt.Sprintf("last refresh failed, serving prices from %s ago", age.Round(time.Second)),
		}
	}

	return CheckDetail{
		Status:  StatusOK,
		Message: fmt.Sprintf("last refreshed %s ago", age.Round(time.Second)),
	}
}

// checkDatabase verifies PostgreSQL connectivity
func (c *Checker) checkDatabase(ctx context.Context) CheckDetail {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := c.db.Ping(ctx); err != nil {
		slog.Error("Health check: database ping failed", "error", err)
		return CheckDetail{
			Status:  StatusError,
			Message: "database unreachable: " + err.Error(),
		}
	}

	return CheckDetail{
		Status:  StatusOK,
		Message: "database connection healthy",
	}
}

// checkRPC counts healthy endpoints across the networks dialed so far
func (c *Checker) checkRPC() CheckDetail {
	healthy, total := 0, 0
	for _, endpoints := range c.rpc.Health() {
		for _, ok := range endpoints {
			total++
			if ok {
				healthy++
			}
		}
	}

	switch {
	case total == 0:
		return CheckDetail{Status: StatusOK, Message: "no RPC clients connected yet"}
	case healthy == total:
		return CheckDetail{Status: StatusOK, Message: "all RPC endpoints healthy"}
	default:
		slog.Warn("Health check: unhealthy RPC endpoints", "healthy", healthy, "total", total)
		return CheckDetail{
			Status:  StatusDegraded,
			Message: fmt.Sprintf("%d/%d RPC endpoints healthy", healthy, total),
		}
	}
}

// Handler returns an http.HandlerFunc for the health endpoint
func (c *Checker) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := c.Check(r.Context())

		// Set status code based on health
		statusCode := http.StatusOK
		if status.Status == StatusError {
			statusCode = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)

		if err := json.NewEncoder(w).Encode(status); err != nil {
			slog.Error("Failed to encode health response", "error", err)
		}
	}
}
