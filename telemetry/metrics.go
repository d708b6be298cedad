package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pthm-cable/morphogen/sim"
)

// Metrics exports run progress to Prometheus. It satisfies sim.Observer.
type Metrics struct {
	registry       *prometheus.Registry
	runID          string
	evaluations    prometheus.Counter
	failures       prometheus.Counter
	generation     prometheus.Gauge
	bestFitness    *prometheus.GaugeVec
	episodeSeconds prometheus.Histogram
}

var _ sim.Observer = (*Metrics)(nil)

// NewMetrics registers the run's collectors on a private registry.
func NewMetrics(runID string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runID:    runID,
		evaluations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "morphogen_evaluations_total",
			Help: "Fitness episodes run.",
		}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "morphogen_episode_failures_total",
			Help: "Episodes that ended in a recovered failure.",
		}),
		generation: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "morphogen_generation",
			Help: "Last completed generation.",
		}),
		bestFitness: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "morphogen_best_fitness",
			Help: "Best fitness in the last completed generation.",
		}, []string{"run_id"}),
		episodeSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "morphogen_episode_seconds",
			Help:    "Wall time of one fitness episode.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
	}
	m.registry.MustRegister(m.evaluations, m.failures, m.generation, m.bestFitness, m.episodeSeconds)
	return m
}

// ObserveEpisode implements sim.Observer.
func (m *Metrics) ObserveEpisode(o sim.Outcome, elapsed time.Duration) {
	m.evaluations.Inc()
	if o.Failed() {
		m.failures.Inc()
	}
	m.episodeSeconds.Observe(elapsed.Seconds())
}

// ObserveGeneration records a completed generation.
func (m *Metrics) ObserveGeneration(s GenerationStats) {
	m.generation.Set(float64(s.Generation))
	m.bestFitness.With(prometheus.Labels{"run_id": m.runID}).Set(s.BestFitness)
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler returns the /metrics handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("metrics listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}
