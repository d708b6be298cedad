// Package main tunes breeding parameters with CMA-ES: every candidate
// vector is scored by the best fitness reached in short evolutions.
package main

import (
	"flag"
	"log/slog"
	"os"

	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/morphogen/config"
)

func main() {
	configPath := flag.String("config", "", "Base config YAML file (empty = use defaults)")
	generations := flag.Int("generations", 5, "Generations per evaluation")
	seeds := flag.Int("seeds", 3, "Number of seeds per evaluation")
	maxEvals := flag.Int("max-evals", 100, "Maximum number of evaluations")
	population := flag.Int("population", 0, "CMA-ES population size (0 = auto)")
	outputDir := flag.String("output", "", "Output directory for results")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if err := run(*configPath, *outputDir, *generations, *seeds, *maxEvals, *population); err != nil {
		logger.Error("tuning failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath, outputDir string, generations, seeds, maxEvals, population int) error {
	if outputDir == "" {
		return errOutputRequired
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}
	baseCfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	params := NewParamVector()
	evaluator := NewFitnessEvaluator(params, generations, evalSeeds(seeds), baseCfg)

	tlog, err := createTuneLog(outputDir, params)
	if err != nil {
		return err
	}
	defer tlog.Close()

	t := newTuner(params, evaluator.Evaluate, tlog, maxEvals)

	// Start the search from the operators in the base config.
	initX := params.Normalize(params.FromConfig(baseCfg))
	problem := optimize.Problem{Func: t.objective}
	settings := &optimize.Settings{FuncEvaluations: maxEvals}
	method := &optimize.CmaEsChol{
		InitStepSize: 0.3,
		Population:   cmaPopulation(population, params.Dim()),
	}

	slog.Info("tuning",
		"parameters", params.Dim(),
		"population", method.Population,
		"max_evals", maxEvals,
		"seeds", seeds,
		"generations", generations,
	)

	result, err := optimize.Minimize(problem, initX, settings, method)
	if err != nil {
		// Hitting the evaluation budget ends the run with an error.
		slog.Warn("optimization ended", "error", err)
	}
	best := t.best
	if best.values == nil && result != nil {
		best = trial{score: result.F, values: params.Clamp(params.Denormalize(result.X))}
	}
	t.summarize(best)

	return saveResults(outputDir, baseCfg, params, best.values, evaluator.BestHallOfFame())
}

// evalSeeds returns n fixed, well-separated seeds so every candidate is
// scored on the same runs.
func evalSeeds(n int) []uint64 {
	out := make([]uint64, n)
	for i := range out {
		out[i] = uint64(i*1000 + 42)
	}
	return out
}

// cmaPopulation returns n, or 4 + 3*dim/2 when n is zero.
func cmaPopulation(n, dim int) int {
	if n > 0 {
		return n
	}
	return 4 + 3*dim/2
}
