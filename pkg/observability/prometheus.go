package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const (
	metricsPath       = "/metrics"
	readHeaderTimeout = 5 * time.Second
)

// newPrometheusReader returns a metric reader backed by a private registry
// and the handler that serves it.
func newPrometheusReader() (sdkmetric.Reader, http.Handler, error) {
	registry := prometheus.NewRegistry()

	exporter, err := promexporter.New(promexporter.WithRegisterer(registry))
	if err != nil {
		return nil, nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	return exporter, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), nil
}

// MetricsServer serves a scrape handler on /metrics.
type MetricsServer struct {
	server   *http.Server
	listener net.Listener
	done     chan struct{}
}

// StartMetricsServer listens on addr and serves handler in the background.
func StartMetricsServer(addr string, handler http.Handler, logger *slog.Logger) (*MetricsServer, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle(metricsPath, handler)

	ms := &MetricsServer{
		server:   &http.Server{Handler: mux, ReadHeaderTimeout: readHeaderTimeout},
		listener: listener,
		done:     make(chan struct{}),
	}

	go func() {
		defer close(ms.done)

		serveErr := ms.server.Serve(listener)
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) && logger != nil {
			logger.Error("metrics server stopped", "error", serveErr)
		}
	}()

	return ms, nil
}

// Addr returns the address the server listens on.
func (ms *MetricsServer) Addr() string {
	return ms.listener.Addr().String()
}

// Shutdown stops the server and waits for it to exit.
func (ms *MetricsServer) Shutdown(ctx context.Context) error {
	err := ms.server.Shutdown(ctx)
	<-ms.done

	if err != nil {
		return fmt.Errorf("shutdown metrics server: %w", err)
	}

	return nil
}
