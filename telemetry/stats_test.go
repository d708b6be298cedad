package telemetry

import (
	"log/slog"
	"math"
	"testing"
)

func TestComputeGenerationStats(t *testing.T) {
	fits := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	dists := []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	expanded := []int{3, 5, 7, 3, 5, 7, 3, 5, 7, 5}
	flat := []int{2, 3, 4, 2, 3, 4, 2, 3, 4, 3}

	s := ComputeGenerationStats(4, fits, dists, expanded, flat)

	if s.Generation != 4 || s.Population != 10 {
		t.Errorf("header = %d/%d", s.Generation, s.Population)
	}
	if s.BestFitness != 10 || s.MeanFitness != 5.5 {
		t.Errorf("best %v mean %v", s.BestFitness, s.MeanFitness)
	}
	if math.Abs(s.StdFitness-3.0277) > 1e-3 {
		t.Errorf("std = %v", s.StdFitness)
	}
	if !(s.FitnessP10 <= s.FitnessP50 && s.FitnessP50 <= s.FitnessP90) {
		t.Errorf("quantiles out of order: %v %v %v", s.FitnessP10, s.FitnessP50, s.FitnessP90)
	}
	if s.FitnessP10 < 1 || s.FitnessP90 > 10 {
		t.Errorf("quantiles outside data range: %v %v", s.FitnessP10, s.FitnessP90)
	}
	if s.MaxDistance != 9 || s.MeanDistance != 4.5 {
		t.Errorf("distance max %v mean %v", s.MaxDistance, s.MeanDistance)
	}
	if s.MaxExpanded != 7 || s.MeanExpanded != 5 || s.MeanFlat != 3 {
		t.Errorf("body size %v %v %v", s.MaxExpanded, s.MeanExpanded, s.MeanFlat)
	}
	if s.Stalled != 1 {
		t.Errorf("stalled = %d, want 1", s.Stalled)
	}
}

func TestComputeGenerationStatsSmall(t *testing.T) {
	empty := ComputeGenerationStats(0, nil, nil, nil, nil)
	if empty.Population != 0 || empty.BestFitness != 0 {
		t.Errorf("empty stats = %+v", empty)
	}

	one := ComputeGenerationStats(1, []float64{2}, []float64{3}, []int{1}, []int{1})
	if one.StdFitness != 0 || one.MeanFitness != 2 || one.FitnessP50 != 2 {
		t.Errorf("single stats = %+v", one)
	}
}

func TestGenerationStatsLogValue(t *testing.T) {
	v := ComputeGenerationStats(2, []float64{1, 2}, []float64{1, 2}, []int{1, 2}, []int{1, 1}).LogValue()
	if v.Kind() != slog.KindGroup {
		t.Fatalf("kind = %v", v.Kind())
	}
	found := false
	for _, a := range v.Group() {
		if a.Key == "best_fitness" && a.Value.Float64() == 2 {
			found = true
		}
	}
	if !found {
		t.Error("best_fitness missing from log group")
	}
}
