// Package api provides the HTTP server for the carrot wallet.
// It exposes balance, stats and every producer operation as JSON endpoints,
// plus a live event stream over Server-Sent Events.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/studybunny/carrot/internal/app/wallet"
	"github.com/studybunny/carrot/internal/domain"
)

// Server is the carrot HTTP API server.
type Server struct {
	wallet   *wallet.Service
	log      zerolog.Logger
	gatherer prometheus.Gatherer // nil disables /metrics
	limiter  *rate.Limiter       // nil disables rate limiting
	timeout  time.Duration
}

// NewServer creates a new API server.
func NewServer(w *wallet.Service, log zerolog.Logger) *Server {
	return &Server{wallet: w, log: log, timeout: 30 * time.Second}
}

// EnableMetrics serves g on /metrics.
func (s *Server) EnableMetrics(g prometheus.Gatherer) { s.gatherer = g }

// SetRateLimit limits mutating requests to rps with the given burst.
// rps <= 0 disables the limit.
func (s *Server) SetRateLimit(rps float64, burst int) {
	if rps <= 0 {
		s.limiter = nil
		return
	}
	if burst < 1 {
		burst = 1
	}
	s.limiter = rate.NewLimiter(rate.Limit(rps), burst)
}

// SetRequestTimeout bounds non-streaming requests.
func (s *Server) SetRequestTimeout(d time.Duration) {
	if d > 0 {
		s.timeout = d
	}
}

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)

	r.Get("/health", s.handleHealth)

	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		// Live event stream; exempt from the request timeout.
		r.Get("/events", s.handleEvents)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(s.timeout))

			r.Get("/balance", s.handleBalance)
			r.Get("/stats", s.handleStats)
			r.Get("/achievements", s.handleAchievements)
			r.Get("/packages", s.handlePackages)

			r.Group(func(r chi.Router) {
				r.Use(s.rateLimit)
				r.Post("/activity/{kind}", s.handleTrackActivity)
				r.Post("/hydration", s.handleHydration)
				r.Post("/quiz", s.handleQuizResult)
				r.Post("/earn", s.handleEarn)
				r.Post("/spend", s.handleSpend)
				r.Post("/purchases/confirm", s.handlePurchase)
				r.Post("/achievements/check", s.handleCheckAchievements)
				r.Post("/reset", s.handleReset)
			})
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	if !s.wallet.StoreHealthy() {
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status": status,
		"store":  s.wallet.BreakerState(),
	})
}

// ─── Responses ──────────────────────────────────────────────────────────────

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeErrorType(w, status, msg, "error")
}

func writeErrorType(w http.ResponseWriter, status int, msg, typ string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": msg,
			"type":    typ,
		},
	})
}

// writeDomainError maps wallet errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInsufficientFunds):
		writeErrorType(w, http.StatusPaymentRequired, err.Error(), "insufficient_funds")
	case errors.Is(err, domain.ErrUnknownPackage):
		writeErrorType(w, http.StatusNotFound, err.Error(), "not_found")
	case errors.Is(err, domain.ErrDuplicatePurchase):
		writeErrorType(w, http.StatusConflict, err.Error(), "conflict")
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrUnknownActivity),
		errors.Is(err, domain.ErrMissingReference):
		writeErrorType(w, http.StatusBadRequest, err.Error(), "invalid_request")
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeErrorType(w, http.StatusBadRequest, "invalid JSON body: "+err.Error(), "invalid_request")
		return false
	}
	return true
}

// ─── Middleware ─────────────────────────────────────────────────────────────

// rateLimit rejects requests beyond the configured rate with 429.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			writeErrorType(w, http.StatusTooManyRequests, "rate limit exceeded", "rate_limited")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// corsMiddleware adds CORS headers for the local study dashboard.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
