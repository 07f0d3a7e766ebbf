package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/olegrjumin/urlrisk/internal/logging"
	"github.com/olegrjumin/urlrisk/internal/metrics"
)

// ServiceName is reported by /health
const ServiceName = "urlrisk-api"

// maxBodyBytes caps every request body
const maxBodyBytes = 64 << 10

// Options configures the HTTP surface
type Options struct {
	PingMessage    string
	RateLimitRPS   float64 // 0 disables rate limiting
	RateLimitBurst int
	Metrics        *metrics.Recorder
}

// NewRouter builds the chi router with middleware and all routes registered
func NewRouter(logger *logging.Logger, svc Scanner, opts Options) http.Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	if opts.PingMessage == "" {
		opts.PingMessage = "URL risk API is running"
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestIDHeader)
	r.Use(loggingMiddleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Get("/health", healthHandler)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		if opts.RateLimitRPS > 0 {
			r.Use(rateLimitMiddleware(opts.RateLimitRPS, opts.RateLimitBurst))
		}
		r.Get("/ping", pingHandler(opts.PingMessage))
		r.Route("/scanner", func(r chi.Router) {
			r.Post("/scan-url", scanHandler(svc))
			r.Post("/quick-check", quickCheckHandler(svc))
			r.Post("/analyze-message", analyzeMessageHandler())
		})
	})

	return r
}

// NewServer creates and configures a new HTTP server
func NewServer(addr string, logger *logging.Logger, svc Scanner, opts Options) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           NewRouter(logger, svc, opts),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// healthHandler handles GET requests to /health
func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": ServiceName,
	})
}

// writeJSON sets the Content-Type header and encodes data as JSON.
// Encoding errors are ignored; the status line is already on the wire.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
