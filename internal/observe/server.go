package observe

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsServer serves the Prometheus /metrics scrape endpoint. The pipeline
// is a batch process, so the server is optional: it is only started when a
// scrape address is configured, typically for long-running batch hosts where
// a Prometheus agent collects run statistics.
type MetricsServer struct {
	server *http.Server
	logger *slog.Logger
}

// NewMetricsServer returns a [MetricsServer] listening on addr once started.
func NewMetricsServer(addr string, logger *slog.Logger) *MetricsServer {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	return &MetricsServer{
		server: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Start begins serving in a background goroutine. Serve errors other than
// graceful shutdown are logged, not returned; a broken scrape endpoint must
// never fail a transcript run.
func (s *MetricsServer) Start() {
	s.logger.Info("starting metrics endpoint", "addr", s.server.Addr)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metrics endpoint failed", "error", err)
		}
	}()
}

// Stop gracefully shuts the endpoint down.
func (s *MetricsServer) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
