package main

import (
	"context"
	"io"
	"log/slog"
	"math"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/morphogen/config"
	"github.com/pthm-cable/morphogen/experiment"
	"github.com/pthm-cable/morphogen/telemetry"
)

// FitnessEvaluator runs short evolutions and scores parameter vectors.
type FitnessEvaluator struct {
	params      *ParamVector
	baseConfig  *config.Config
	seeds       []uint64
	generations int

	mu             sync.Mutex
	bestFitness    float64
	bestHallOfFame *telemetry.HallOfFame
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, generations int, seeds []uint64, baseCfg *config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:      params,
		baseConfig:  baseCfg,
		seeds:       seeds,
		generations: generations,
		bestFitness: math.Inf(1),
	}
}

// BestHallOfFame returns the hall of fame from the best evaluation.
func (fe *FitnessEvaluator) BestHallOfFame() *telemetry.HallOfFame {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.bestHallOfFame
}

type seedResult struct {
	fitness    float64
	hallOfFame *telemetry.HallOfFame
}

// Evaluate returns the negated mean best fitness over all seeds (lower is
// better). A seed whose run fails scores zero.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	results := make([]seedResult, len(fe.seeds))
	var wg sync.WaitGroup
	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s uint64) {
			defer wg.Done()
			results[idx] = fe.runEvolution(x, s)
		}(i, seed)
	}
	wg.Wait()

	scores := make([]float64, len(results))
	best := 0
	for i, r := range results {
		scores[i] = r.fitness
		if r.fitness < results[best].fitness {
			best = i
		}
	}
	avg := stat.Mean(scores, nil)

	fe.mu.Lock()
	if avg < fe.bestFitness {
		fe.bestFitness = avg
		fe.bestHallOfFame = results[best].hallOfFame
	}
	fe.mu.Unlock()

	return avg
}

// runEvolution runs one quiet evolution with x applied.
func (fe *FitnessEvaluator) runEvolution(x []float64, seed uint64) seedResult {
	cfg := fe.copyConfig()
	fe.params.ApplyToConfig(cfg, x)
	cfg.Evolution.Seed = seed
	cfg.Evolution.Generations = fe.generations
	cfg.Output.Dir = ""
	cfg.Derived.Workers = max(1, cfg.Derived.Workers/len(fe.seeds))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	e, err := experiment.New(context.Background(), experiment.Options{Config: cfg, Logger: logger})
	if err != nil {
		slog.Warn("tune run failed to start", "seed", seed, "error", err)
		return seedResult{}
	}
	defer e.Close()

	if err := e.Run(context.Background()); err != nil {
		slog.Warn("tune run failed", "seed", seed, "error", err)
		return seedResult{}
	}
	return seedResult{fitness: -e.HallOfFame().TopFitness(), hallOfFame: e.HallOfFame()}
}

// copyConfig returns an independent copy of the base config. The trait spec
// is immutable and stays shared.
func (fe *FitnessEvaluator) copyConfig() *config.Config {
	cfg := *fe.baseConfig
	return &cfg
}
