package experiment

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pthm-cable/morphogen/population"
	"github.com/pthm-cable/morphogen/telemetry"
)

// Step runs one generation: evaluate the current population, report on it,
// breed the next one and persist it.
func (e *Experiment) Step(ctx context.Context) (telemetry.GenerationStats, error) {
	gen := e.generation + 1
	e.perf.StartGeneration()

	e.perf.StartPhase(telemetry.PhaseEvaluate)
	if err := e.pop.Evaluate(ctx, e.pool); err != nil {
		return telemetry.GenerationStats{}, fmt.Errorf("generation %d: evaluating: %w", gen, err)
	}

	e.perf.StartPhase(telemetry.PhaseReport)
	stats, err := e.report(ctx, gen)
	if err != nil {
		return telemetry.GenerationStats{}, fmt.Errorf("generation %d: %w", gen, err)
	}

	e.perf.StartPhase(telemetry.PhaseBreed)
	ev := e.cfg.Evolution
	if err := e.pop.AdvanceGeneration(ev.Elites, ev.RandomInjections, ev.Operators); err != nil {
		return telemetry.GenerationStats{}, fmt.Errorf("generation %d: %w", gen, err)
	}

	e.perf.StartPhase(telemetry.PhasePersist)
	if err := e.persist(gen); err != nil {
		return telemetry.GenerationStats{}, fmt.Errorf("generation %d: %w", gen, err)
	}
	e.perf.EndGeneration(e.pop.Size)

	perfStats := e.perf.Stats()
	if err := e.output.WritePerf(perfStats, gen); err != nil {
		e.logger.Error("failed to write perf", "error", err)
	}
	e.logger.Debug("perf", "generation", gen, "stats", perfStats)

	e.generation = gen
	e.lastStats = stats
	return stats, nil
}

// Run steps through the configured number of generations or until ctx is
// cancelled, then exports the champions.
func (e *Experiment) Run(ctx context.Context) error {
	for range e.cfg.Evolution.Generations {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := e.Step(ctx); err != nil {
			return err
		}
	}
	return e.ExportChampions()
}

// persist writes the freshly bred population to its generation snapshot
// directory every SaveInterval generations.
func (e *Experiment) persist(gen int) error {
	out := e.cfg.Output
	if out.Dir == "" || gen%out.SaveInterval != 0 {
		return nil
	}
	dir := population.GenerationDir(out.Dir, out.Identifier, gen)
	if err := e.pop.SaveCSV(dir, out.Identifier); err != nil {
		return fmt.Errorf("saving population: %w", err)
	}
	return nil
}

// ExportChampions writes the hall of fame chromosomes, fittest first, to
// <run dir>/champions, plus the best robot description when enabled.
func (e *Experiment) ExportChampions() error {
	if e.RunDir() == "" || e.hof.Size() == 0 {
		return nil
	}
	dir := filepath.Join(e.RunDir(), "champions")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	id := e.cfg.Output.Identifier
	entries := e.hof.Entries()
	for i, entry := range entries {
		if err := population.WriteChromosome(filepath.Join(dir, population.ChromosomeFile(id, i)), entry.Chromosome); err != nil {
			return err
		}
	}

	if !e.cfg.Output.WriteURDF {
		return nil
	}
	best, err := e.championIndividual(entries[0])
	if err != nil {
		return err
	}
	doc, err := best.URDF(e.cfg.Simulation.RobotName)
	if err != nil {
		// Champions with an out-of-range category have no description.
		e.logger.Warn("champion has no robot description", "id", entries[0].ID, "error", err)
		return nil
	}
	if err := os.WriteFile(filepath.Join(dir, "fittest.urdf"), doc, 0644); err != nil {
		return fmt.Errorf("writing champion: %w", err)
	}
	return nil
}
