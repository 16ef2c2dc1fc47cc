// Package api provides the HTTP server for the reminisce service.
// JSON request/response bodies; binary image/audio payloads travel as
// base64 text fields inside JSON.
package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/reminisce-ai/reminisce/internal/domain"
	"github.com/reminisce-ai/reminisce/internal/gateway"
)

// Version is the service version reported by /api/version.
const Version = "0.1.0"

// Server is the reminisce HTTP API server.
type Server struct {
	identity       domain.Identity
	ledger         domain.LedgerStore
	gateway        *gateway.Gateway
	log            zerolog.Logger
	metricsEnabled bool
}

// NewServer creates a new API server.
func NewServer(identity domain.Identity, ledger domain.LedgerStore, gw *gateway.Gateway, log zerolog.Logger) *Server {
	return &Server{identity: identity, ledger: ledger, gateway: gw, log: log}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	// The soundscape path chains two provider calls; give requests room.
	r.Use(middleware.Timeout(5 * time.Minute))
	r.Use(corsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "ok",
		})
	})

	r.Get("/api/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"version": Version,
		})
	})

	// Account endpoints
	r.Post("/register", s.handleRegister)
	r.Post("/token", s.handleToken)
	r.Get("/users/me", s.handleMe)
	r.Post("/buy_credits", s.handleBuyCredits)

	// Generation endpoints — one per kind, all credit-gated.
	r.Post("/generate_artistic_image", s.handleGenerate(domain.KindRestyleImage))
	r.Post("/generate_story", s.handleGenerate(domain.KindStory))
	r.Post("/generate_soundscape", s.handleGenerate(domain.KindSoundscape))

	// Prometheus metrics endpoint
	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// bearerToken extracts the bearer credential from the Authorization header.
// Returns "" when absent or not a bearer scheme.
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return strings.TrimSpace(h[len(prefix):])
	}
	return ""
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error body: a non-2xx status with a detail
// string the front end surfaces directly.
func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{
		"detail": detail,
	})
}

// corsMiddleware adds CORS headers for the browser front end.
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
