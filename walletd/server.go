// Package walletd serves the mock wallet HTTP API backing the web front-end
// prototype: send, withdraw, deposit, and airtime as stub flows with random
// identifiers, fixed delays, and a fixed conversion rate. Nothing here
// touches real money; the bot does not depend on this server.
package walletd

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Options tune the stub behaviour. Zero delays are valid and used in tests.
type Options struct {
	WithdrawDelay time.Duration
	AirtimeDelay  time.Duration
}

// DefaultOptions mirror the processing delays of the original prototype.
func DefaultOptions() Options {
	return Options{
		WithdrawDelay: 2 * time.Second,
		AirtimeDelay:  1500 * time.Millisecond,
	}
}

// Server carries handler state and metrics.
type Server struct {
	opts     Options
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewServer constructs the handler set with its own metrics registry.
func NewServer(opts Options) *Server {
	reg := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "walletd_requests_total",
		Help: "Mock wallet API requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "walletd_request_duration_seconds",
		Help:    "Mock wallet API request duration by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	reg.MustRegister(requests, duration)

	return &Server{opts: opts, registry: reg, requests: requests, duration: duration}
}

// Router registers all API endpoints.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	r.Post("/api/deposit", s.instrument("deposit", s.handleDeposit))
	r.Post("/api/withdraw", s.instrument("withdraw", s.handleWithdraw))
	r.Post("/api/airtime", s.instrument("airtime", s.handleAirtime))

	return r
}

// HTTPServer wraps the router in an http.Server with conservative timeouts.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) instrument(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next(rec, r)
		s.requests.WithLabelValues(route, fmt.Sprintf("%d", rec.code)).Inc()
		s.duration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}
