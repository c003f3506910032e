// internal/metrics/metrics.go - Prometheus instrumentation of a run
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Provider owns a private registry and the run collectors
type Provider struct {
	reg           *prometheus.Registry
	tiles         *prometheus.CounterVec
	features      *prometheus.CounterVec
	fetchDuration prometheus.Histogram
	tileDuration  prometheus.Histogram
}

// New creates a provider with Go and process collectors registered
func New() *Provider {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	p := &Provider{
		reg: reg,
		tiles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wfs_dump_tiles_total",
			Help: "Tiles processed, by outcome (loaded, empty or a failure code).",
		}, []string{"outcome"}),
		features: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wfs_dump_features_total",
			Help: "Features seen, by result (loaded, skipped, rejected).",
		}, []string{"result"}),
		fetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "wfs_dump_fetch_duration_seconds",
			Help:    "Duration of GetFeature requests.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		tileDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "wfs_dump_tile_duration_seconds",
			Help:    "End to end duration of one tile.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 14),
		}),
	}
	reg.MustRegister(p.tiles, p.features, p.fetchDuration, p.tileDuration)

	return p
}

// ObserveTile records the outcome of one tile
func (p *Provider) ObserveTile(outcome string, duration time.Duration) {
	p.tiles.WithLabelValues(outcome).Inc()
	p.tileDuration.Observe(duration.Seconds())
}

// ObserveFetch records the duration of one GetFeature request
func (p *Provider) ObserveFetch(duration time.Duration) {
	p.fetchDuration.Observe(duration.Seconds())
}

// AddFeatures adds n features with the given result
func (p *Provider) AddFeatures(result string, n int) {
	if n <= 0 {
		return
	}
	p.features.WithLabelValues(result).Add(float64(n))
}

// Handler returns the exposition handler of the private registry
func (p *Provider) Handler() http.Handler {
	return promhttp.HandlerFor(p.reg, promhttp.HandlerOpts{})
}

// Serve exposes the metrics on addr until ctx is done
func (p *Provider) Serve(ctx context.Context, addr, path string) error {
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, p.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
