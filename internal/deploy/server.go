package deploy

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/systmms/authstack/internal/logging"
)

// MetricsServer exposes deploy progress over HTTP while a run is in
// flight: Prometheus metrics on /metrics and the current step on /health.
type MetricsServer struct {
	port    int
	metrics *Metrics
	log     *logging.Logger
	server  *http.Server
}

// NewMetricsServer creates a metrics server. A port of zero or below
// disables it; Start becomes a no-op.
func NewMetricsServer(port int, metrics *Metrics, log *logging.Logger) *MetricsServer {
	return &MetricsServer{
		port:    port,
		metrics: metrics,
		log:     log,
	}
}

// Start registers the collectors and begins serving in the background.
func (s *MetricsServer) Start() error {
	if s.port <= 0 {
		return nil
	}

	InitMetrics()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", s.handleHealth)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			// Metrics are non-critical; a dead server must not abort a deploy.
			s.log.Warn("Metrics server error: %v", err)
		}
	}()

	s.log.Debug("metrics server listening on :%d", s.port)
	return nil
}

func (s *MetricsServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":       "ok",
		"current_step": s.metrics.CurrentStep(),
	})
}

// Stop gracefully shuts down the server.
func (s *MetricsServer) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
