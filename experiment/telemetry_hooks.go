package experiment

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/pthm-cable/morphogen/creature"
	"github.com/pthm-cable/morphogen/storage"
	"github.com/pthm-cable/morphogen/telemetry"
)

// report summarizes the evaluated population and fans the result out to
// the logs, the hall of fame, the run ledger and the metrics.
func (e *Experiment) report(ctx context.Context, gen int) (telemetry.GenerationStats, error) {
	r, err := e.pop.Report(gen)
	if err != nil {
		return telemetry.GenerationStats{}, fmt.Errorf("building report: %w", err)
	}
	stats := telemetry.ComputeGenerationStats(gen, r.Fitness, r.Distances, r.ExpandedLinks, r.FlatLinks)

	if e.cfg.Output.Reports && e.RunDir() != "" {
		if err := r.Write(filepath.Join(e.RunDir(), "reports")); err != nil {
			return stats, err
		}
	}
	if err := e.output.WriteGeneration(stats); err != nil {
		e.logger.Error("failed to write generation stats", "error", err)
	}

	for i, ind := range e.pop.Individuals {
		e.hof.Consider(gen, ind, r.Fitness[i])
	}

	if err := e.store.SaveGeneration(ctx, storage.NewGenerationRecord(e.runID, stats)); err != nil {
		return stats, fmt.Errorf("saving generation: %w", err)
	}
	if best := e.pop.Fittest(1); len(best) == 1 {
		champ := storage.Champion{
			RunID:        e.runID,
			Generation:   gen,
			IndividualID: best[0].ID.String(),
			Fitness:      stats.BestFitness,
			Distance:     best[0].Displacement(),
			Chromosome:   best[0].Chromosome(),
		}
		if err := e.store.SaveChampion(ctx, champ); err != nil {
			return stats, fmt.Errorf("saving champion: %w", err)
		}
	}

	if e.metrics != nil {
		e.metrics.ObserveGeneration(stats)
	}
	if e.statsCallback != nil {
		e.statsCallback(stats)
	}
	e.logger.Info("generation", "stats", stats)
	return stats, nil
}

func (e *Experiment) championIndividual(entry telemetry.HallEntry) (*creature.Individual, error) {
	ind, err := creature.New(e.cfg.Derived.Spec, entry.Chromosome.Clone())
	if err != nil {
		return nil, fmt.Errorf("rebuilding champion %s: %w", entry.ID, err)
	}
	return ind, nil
}
