// Package metrics exposes harvest counters in Prometheus form.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	Registry *prometheus.Registry

	fetches    *prometheus.CounterVec
	retries    *prometheus.CounterVec
	recoveries prometheus.Counter
	chapters   *prometheus.CounterVec
}

// New registers the counters on a private registry so that tests and
// repeated sessions never collide with the default one.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		fetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bookharvest_fetch_total",
				Help: "Page fetches by operation site and outcome",
			},
			[]string{"site", "outcome"},
		),
		retries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bookharvest_retries_total",
				Help: "Failed attempts that were followed by a retry",
			},
			[]string{"site"},
		),
		recoveries: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "bookharvest_recoveries_total",
				Help: "Auto-recovery cycles started",
			},
		),
		chapters: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bookharvest_chapters_total",
				Help: "Chapters harvested by session mode",
			},
			[]string{"mode"},
		),
	}

	m.Registry.MustRegister(m.fetches, m.retries, m.recoveries, m.chapters)
	return m
}

// Fetched records one fetch. outcome is "ok" or a failure kind.
func (m *Metrics) Fetched(site, outcome string) {
	m.fetches.WithLabelValues(site, outcome).Inc()
}

func (m *Metrics) Retried(site string) {
	m.retries.WithLabelValues(site).Inc()
}

func (m *Metrics) Recovered() {
	m.recoveries.Inc()
}

func (m *Metrics) ChapterAdded(mode string) {
	m.chapters.WithLabelValues(mode).Inc()
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
