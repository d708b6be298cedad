// Package experiment runs an evolution: it owns the population, the
// evaluation pool and every sink that generation results are written to.
package experiment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/morphogen/config"
	"github.com/pthm-cable/morphogen/creature"
	"github.com/pthm-cable/morphogen/engine"
	"github.com/pthm-cable/morphogen/population"
	"github.com/pthm-cable/morphogen/sim"
	"github.com/pthm-cable/morphogen/storage"
	"github.com/pthm-cable/morphogen/telemetry"
)

// Options holds the collaborators of an experiment. Only Config is required.
type Options struct {
	Config *config.Config
	RunID  string // Empty generates a new UUID

	Factory sim.EngineFactory  // Nil selects the engine named in Config
	Store   storage.Store      // Nil disables the run ledger
	Metrics *telemetry.Metrics // Nil disables Prometheus export
	Logger  *slog.Logger

	// Chromosomes sampled from this hall replace the initial random
	// individuals, up to half the population. Ignored when resuming.
	SeedHall *telemetry.HallOfFame

	// Called after every generation is reported.
	StatsCallback func(telemetry.GenerationStats)
}

// Experiment holds the complete run state.
type Experiment struct {
	cfg    *config.Config
	runID  string
	rng    *rand.Rand
	logger *slog.Logger

	pop  *population.Population
	pool *sim.Pool

	output  *telemetry.OutputManager
	perf    *telemetry.PerfCollector
	hof     *telemetry.HallOfFame
	store   storage.Store
	metrics *telemetry.Metrics

	statsCallback func(telemetry.GenerationStats)

	// Generation numbering continues from a resumed run.
	generation int
	lastStats  telemetry.GenerationStats
}

// NewEngineFactory returns the factory for the engine named in cfg.
func NewEngineFactory(cfg *config.Config) (sim.EngineFactory, error) {
	switch cfg.Simulation.Engine {
	case "kinematic":
		return engine.Factory(cfg.Engine), nil
	default:
		return nil, fmt.Errorf("unknown engine %q", cfg.Simulation.Engine)
	}
}

// New builds an experiment. When the output directory already holds
// generation snapshots, the latest one is loaded and numbering continues
// from it.
func New(ctx context.Context, opts Options) (*Experiment, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, errors.New("experiment needs a config")
	}

	e := &Experiment{
		cfg:           cfg,
		runID:         opts.RunID,
		logger:        opts.Logger,
		perf:          telemetry.NewPerfCollector(10),
		hof:           telemetry.NewHallOfFame(max(cfg.Output.Fittest, 1)),
		store:         opts.Store,
		metrics:       opts.Metrics,
		statsCallback: opts.StatsCallback,
	}
	if e.runID == "" {
		e.runID = uuid.NewString()
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.store == nil {
		e.store, _ = storage.NewStore("none", "")
	}

	seed := cfg.Evolution.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	e.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	if err := e.initPopulation(opts.SeedHall); err != nil {
		return nil, err
	}

	factory := opts.Factory
	if factory == nil {
		var err error
		if factory, err = NewEngineFactory(cfg); err != nil {
			return nil, err
		}
	}
	poolOpts := []sim.Option{sim.WithLogger(e.logger)}
	if e.metrics != nil {
		poolOpts = append(poolOpts, sim.WithObserver(e.metrics))
	}
	pool, err := sim.NewPool(cfg.Derived.Workers, factory, cfg.Simulation.Episode, poolOpts...)
	if err != nil {
		return nil, err
	}
	e.pool = pool

	if err := e.openSinks(ctx); err != nil {
		e.Close()
		return nil, err
	}

	e.logger.Info("experiment ready",
		"run_id", e.runID,
		"seed", seed,
		"start_generation", e.generation,
		"population", e.pop.Size,
		"workers", pool.Workers(),
	)
	return e, nil
}

func (e *Experiment) initPopulation(seedHall *telemetry.HallOfFame) error {
	cfg := e.cfg
	spec := cfg.Derived.Spec
	ev := cfg.Evolution

	if cfg.Output.Dir != "" {
		dir, n, err := population.LatestGenerationDir(cfg.Output.Dir, cfg.Output.Identifier)
		switch {
		case err == nil:
			e.pop = population.NewRandom(e.rng, spec, ev.PopulationSize, ev.GeneCount)
			if err := e.pop.LoadCSV(dir, cfg.Output.Identifier); err != nil {
				return fmt.Errorf("resuming from %s: %w", dir, err)
			}
			e.generation = n
			e.logger.Info("resuming", "dir", dir, "generation", n, "individuals", e.pop.Size)
			return nil
		case !errors.Is(err, population.ErrNoGenerations):
			return err
		}
	}

	if ev.RandomLength {
		pop, err := population.NewRandomLength(e.rng, spec, ev.PopulationSize, ev.GeneCount)
		if err != nil {
			return err
		}
		e.pop = pop
	} else {
		e.pop = population.NewRandom(e.rng, spec, ev.PopulationSize, ev.GeneCount)
	}

	if seedHall == nil || seedHall.Size() == 0 {
		return nil
	}
	seeded := 0
	for i := 0; i < e.pop.Size/2; i++ {
		ind, err := creature.New(spec, seedHall.Sample(e.rng))
		if err != nil {
			return fmt.Errorf("seeding from hall of fame: %w", err)
		}
		e.pop.Individuals[i] = ind
		seeded++
	}
	e.logger.Info("seeded from hall of fame", "individuals", seeded)
	return nil
}

func (e *Experiment) openSinks(ctx context.Context) error {
	if err := e.store.Init(ctx); err != nil {
		return fmt.Errorf("initializing run ledger: %w", err)
	}
	cfgYAML, err := yaml.Marshal(e.cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	run := storage.Run{
		ID:         e.runID,
		Identifier: e.cfg.Output.Identifier,
		StartedAt:  time.Now(),
		Config:     string(cfgYAML),
	}
	if err := e.store.SaveRun(ctx, run); err != nil {
		return fmt.Errorf("saving run: %w", err)
	}

	if e.cfg.Output.Dir == "" {
		return nil
	}
	om, err := telemetry.NewOutputManager(e.RunDir())
	if err != nil {
		return err
	}
	e.output = om
	return om.WriteConfig(e.cfg)
}

// RunID returns the run identifier.
func (e *Experiment) RunID() string { return e.runID }

// RunDir returns the directory holding this run's logs, or "" when output
// is disabled.
func (e *Experiment) RunDir() string {
	if e.cfg.Output.Dir == "" {
		return ""
	}
	return filepath.Join(e.cfg.Output.Dir, "runs", e.runID)
}

// Generation returns the number of the last completed generation.
func (e *Experiment) Generation() int { return e.generation }

// Population returns the current population.
func (e *Experiment) Population() *population.Population { return e.pop }

// HallOfFame returns the champions seen so far.
func (e *Experiment) HallOfFame() *telemetry.HallOfFame { return e.hof }

// LastStats returns the summary of the last completed generation.
func (e *Experiment) LastStats() telemetry.GenerationStats { return e.lastStats }

// Close releases the engines and closes every sink.
func (e *Experiment) Close() error {
	var errs []error
	if e.pool != nil {
		errs = append(errs, e.pool.Close())
	}
	if e.output != nil {
		errs = append(errs, e.output.WriteHallOfFame(e.hof), e.output.Close())
	}
	if e.store != nil {
		errs = append(errs, e.store.Close())
	}
	return errors.Join(errs...)
}
