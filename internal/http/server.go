// Package http exposes the resolution pipeline over a small JSON API with
// health checks and Prometheus metrics.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"cadenza/internal/core"
	"cadenza/pkg/resolve"
)

// Resolver is the slice of the pipeline the API needs.
type Resolver interface {
	Resolve(ctx context.Context, reference string, ov resolve.Overrides) (resolve.CanonicalResult, error)
}

type Server struct {
	config  *core.ServerConfig
	logger  *zap.Logger
	server  *http.Server
	limiter *RateLimiter
	metrics *Metrics
}

type Metrics struct {
	ResolutionsTotal   *prometheus.CounterVec
	ResolutionDuration prometheus.Histogram
	RateLimitedTotal   prometheus.Counter
	ResolutionsActive  prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *Metrics {
	metrics := &Metrics{
		ResolutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cadenza_resolutions_total",
				Help: "Total number of resolution requests by outcome",
			},
			[]string{"outcome"},
		),
		ResolutionDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name: "cadenza_resolution_duration_seconds",
				Help: "Time spent resolving a reference end to end",
				// Resolutions download full audio streams, so the default
				// buckets top out far too early.
				Buckets: []float64{.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
		),
		RateLimitedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cadenza_rate_limited_total",
				Help: "Total number of requests rejected by the rate limiter",
			},
		),
		ResolutionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "cadenza_resolutions_active",
				Help: "Number of resolutions currently running",
			},
		),
	}

	reg.MustRegister(
		metrics.ResolutionsTotal,
		metrics.ResolutionDuration,
		metrics.RateLimitedTotal,
		metrics.ResolutionsActive,
	)

	return metrics
}

func NewServer(config *core.ServerConfig, resolver Resolver, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	registry := prometheus.NewRegistry()
	metrics := newMetrics(registry)
	limiter := NewRateLimiter(config.RequestsPerMin)

	mux := setupRoutes(resolver, limiter, metrics, registry, logger)

	return &Server{
		config:  config,
		logger:  logger,
		server:  createHTTPServer(config, mux),
		limiter: limiter,
		metrics: metrics,
	}
}

func createHTTPServer(config *core.ServerConfig, mux *http.ServeMux) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      mux,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}
}

func setupRoutes(resolver Resolver, limiter *RateLimiter, metrics *Metrics, gatherer prometheus.Gatherer, logger *zap.Logger) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"status":"ok","service":"cadenza"}`)); err != nil {
			logger.Debug("Health response write failed", zap.Error(err))
		}
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"status":"ready","service":"cadenza"}`)); err != nil {
			logger.Debug("Ready response write failed", zap.Error(err))
		}
	})

	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/api/resolve", resolveHandler(resolver, limiter, metrics, logger))
	mux.HandleFunc("/", homeHandler(logger))

	return mux
}

func homeHandler(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`<!DOCTYPE html>
<html>
<head>
    <title>Cadenza</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 40px; }
        .endpoint { margin: 10px 0; }
        .endpoint a { text-decoration: none; color: #0066cc; }
    </style>
</head>
<body>
    <h1>Cadenza</h1>
    <p>Track reference resolution service.</p>

    <h2>Endpoints</h2>
    <div class="endpoint">POST /api/resolve - resolve a track reference</div>
    <div class="endpoint"><a href="/metrics">/metrics</a> - Prometheus metrics</div>
    <div class="endpoint"><a href="/healthz">/healthz</a> - health check</div>
    <div class="endpoint"><a href="/readyz">/readyz</a> - readiness check</div>
</body>
</html>`)); err != nil {
			logger.Debug("Home response write failed", zap.Error(err))
		}
	}
}

// resolveRequest is the /api/resolve body. Title and artists are optional
// overrides applied on top of derived metadata.
type resolveRequest struct {
	Reference string   `json:"reference"`
	Title     string   `json:"title,omitempty"`
	Artists   []string `json:"artists,omitempty"`
}

func resolveHandler(resolver Resolver, limiter *RateLimiter, metrics *Metrics, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "only POST is supported")
			return
		}
		if limiter != nil && !limiter.Allow(clientKey(r)) {
			metrics.RateLimitedTotal.Inc()
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		var req resolveRequest
		body := http.MaxBytesReader(w, r.Body, 1<<20)
		if err := json.NewDecoder(body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		metrics.ResolutionsActive.Inc()
		defer metrics.ResolutionsActive.Dec()

		start := time.Now()
		result, err := resolver.Resolve(r.Context(), req.Reference, resolve.Overrides{
			Title:   req.Title,
			Artists: req.Artists,
		})
		duration := time.Since(start)
		metrics.ResolutionDuration.Observe(duration.Seconds())

		if err != nil {
			outcome, status := classifyError(err)
			metrics.ResolutionsTotal.WithLabelValues(outcome).Inc()
			logger.Warn("Resolution failed",
				zap.String("reference", req.Reference),
				zap.String("outcome", outcome),
				zap.Duration("duration", duration),
				zap.Error(err))
			writeError(w, status, err.Error())
			return
		}

		metrics.ResolutionsTotal.WithLabelValues("ok").Inc()
		logger.Info("Resolution complete",
			zap.String("reference", req.Reference),
			zap.String("path", result.Path),
			zap.Duration("duration", duration))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(result); err != nil {
			logger.Debug("Result response write failed", zap.Error(err))
		}
	}
}

// classifyError maps pipeline error kinds onto an outcome label and an HTTP
// status: caller mistakes are 4xx, upstream failures 502.
func classifyError(err error) (string, int) {
	switch {
	case errors.Is(err, resolve.ErrInvalidReference):
		return "invalid_reference", http.StatusBadRequest
	case errors.Is(err, resolve.ErrSearchNoResults):
		return "not_found", http.StatusNotFound
	case errors.Is(err, resolve.ErrExtractionFailed):
		return "extraction_failed", http.StatusBadGateway
	default:
		return "upstream_error", http.StatusBadGateway
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.server.Addr))

	go func() {
		<-ctx.Done()
		s.logger.Info("Shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Failed to shutdown HTTP server gracefully", zap.Error(err))
		}
		s.limiter.Stop()
	}()

	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("http server failed: %w", err)
	}

	return nil
}
