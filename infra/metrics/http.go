package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kilianp07/actsched/infra/logger"
)

// StartPromServer starts an HTTP server exposing Prometheus metrics of the
// default gatherer on the given address. The server runs until the provided
// context is canceled.
func StartPromServer(ctx context.Context, addr string) error {
	return ServeMetrics(ctx, addr, prometheus.DefaultGatherer)
}

// ServeMetrics serves g on addr under /metrics with a dedicated ServeMux.
func ServeMetrics(ctx context.Context, addr string, g prometheus.Gatherer) error {
	log := logger.New("metrics-http")
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Errorf("prom server shutdown: %v", err)
		}
		cancel()
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
