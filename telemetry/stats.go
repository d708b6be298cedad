package telemetry

import (
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// GenerationStats summarizes one evaluated generation.
type GenerationStats struct {
	Generation int `csv:"generation"`
	Population int `csv:"population"`

	// Fitness distribution
	BestFitness float64 `csv:"best_fitness"`
	MeanFitness float64 `csv:"mean_fitness"`
	StdFitness  float64 `csv:"std_fitness"`
	FitnessP10  float64 `csv:"fitness_p10"`
	FitnessP50  float64 `csv:"fitness_p50"`
	FitnessP90  float64 `csv:"fitness_p90"`

	// Displacement
	MeanDistance float64 `csv:"mean_distance"`
	MaxDistance  float64 `csv:"max_distance"`

	// Body size
	MeanExpanded float64 `csv:"mean_expanded_links"`
	MaxExpanded  int     `csv:"max_expanded_links"`
	MeanFlat     float64 `csv:"mean_flat_links"`

	// Individuals that ended where they started, including failed episodes
	Stalled int `csv:"stalled"`
}

// quantiles returns the empirical p10, p50 and p90 of values.
func quantiles(values []float64) (p10, p50, p90 float64) {
	if len(values) == 0 {
		return 0, 0, 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return stat.Quantile(0.1, stat.Empirical, sorted, nil),
		stat.Quantile(0.5, stat.Empirical, sorted, nil),
		stat.Quantile(0.9, stat.Empirical, sorted, nil)
}

// meanStd returns the mean and sample standard deviation, with a zero
// deviation for fewer than two values.
func meanStd(values []float64) (float64, float64) {
	switch len(values) {
	case 0:
		return 0, 0
	case 1:
		return values[0], 0
	}
	return stat.MeanStdDev(values, nil)
}

func toFloats(vs []int) []float64 {
	out := make([]float64, len(vs))
	for i, v := range vs {
		out[i] = float64(v)
	}
	return out
}

// ComputeGenerationStats aggregates per-individual values, all given in
// population order.
func ComputeGenerationStats(generation int, fits, dists []float64, expanded, flat []int) GenerationStats {
	s := GenerationStats{Generation: generation, Population: len(fits)}
	if len(fits) > 0 {
		s.BestFitness = floats.Max(fits)
		s.MeanFitness, s.StdFitness = meanStd(fits)
		s.FitnessP10, s.FitnessP50, s.FitnessP90 = quantiles(fits)
	}
	if len(dists) > 0 {
		s.MeanDistance = stat.Mean(dists, nil)
		s.MaxDistance = floats.Max(dists)
	}
	if len(expanded) > 0 {
		ef := toFloats(expanded)
		s.MeanExpanded = stat.Mean(ef, nil)
		s.MaxExpanded = int(floats.Max(ef))
	}
	if len(flat) > 0 {
		s.MeanFlat = stat.Mean(toFloats(flat), nil)
	}
	for _, d := range dists {
		if d == 0 || math.IsNaN(d) {
			s.Stalled++
		}
	}
	return s
}

// LogValue implements slog.LogValuer for structured logging.
func (s GenerationStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("generation", s.Generation),
		slog.Int("population", s.Population),
		slog.Float64("best_fitness", s.BestFitness),
		slog.Float64("mean_fitness", s.MeanFitness),
		slog.Float64("std_fitness", s.StdFitness),
		slog.Float64("fitness_p50", s.FitnessP50),
		slog.Float64("mean_distance", s.MeanDistance),
		slog.Float64("max_distance", s.MaxDistance),
		slog.Float64("mean_expanded_links", s.MeanExpanded),
		slog.Int("max_expanded_links", s.MaxExpanded),
		slog.Int("stalled", s.Stalled),
	)
}
