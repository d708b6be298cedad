package telemetry

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pthm-cable/morphogen/sim"
)

func gathered(t *testing.T, m *Metrics) map[string]float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatal(err)
	}
	out := make(map[string]float64)
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			switch {
			case metric.GetCounter() != nil:
				out[mf.GetName()] = metric.GetCounter().GetValue()
			case metric.GetGauge() != nil:
				out[mf.GetName()] = metric.GetGauge().GetValue()
			case metric.GetHistogram() != nil:
				out[mf.GetName()] = float64(metric.GetHistogram().GetSampleCount())
			}
		}
	}
	return out
}

func TestMetricsObserve(t *testing.T) {
	m := NewMetrics("run-1")

	m.ObserveEpisode(sim.Outcome{Frames: 10}, 2*time.Millisecond)
	m.ObserveEpisode(sim.Outcome{Frames: 3, Failure: sim.ErrEpisode}, time.Millisecond)
	m.ObserveEpisode(sim.Outcome{Frames: 10, Failure: errors.Join(sim.ErrEpisode)}, time.Millisecond)
	m.ObserveGeneration(GenerationStats{Generation: 4, BestFitness: 12.5})

	got := gathered(t, m)
	want := map[string]float64{
		"morphogen_evaluations_total":      3,
		"morphogen_episode_failures_total": 2,
		"morphogen_episode_seconds":        3,
		"morphogen_generation":             4,
		"morphogen_best_fitness":           12.5,
	}
	for name, v := range want {
		if got[name] != v {
			t.Errorf("%s = %v, want %v", name, got[name], v)
		}
	}
}

func TestMetricsHandler(t *testing.T) {
	m := NewMetrics("run-2")
	m.ObserveGeneration(GenerationStats{Generation: 1, BestFitness: 3})

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `morphogen_best_fitness{run_id="run-2"} 3`) {
		t.Errorf("exposition missing best fitness:\n%s", body)
	}
}
