// Package storage keeps a ledger of evolution runs: one row per run, one per
// evaluated generation and one per champion chromosome.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pthm-cable/morphogen/genome"
	"github.com/pthm-cable/morphogen/telemetry"
)

// Run describes one evolve invocation.
type Run struct {
	ID         string
	Identifier string
	StartedAt  time.Time
	Config     string // Effective configuration as YAML
}

// GenerationRecord is the stored summary of one generation.
type GenerationRecord struct {
	RunID        string  `db:"run_id"`
	Generation   int     `db:"generation"`
	Population   int     `db:"population"`
	BestFitness  float64 `db:"best_fitness"`
	MeanFitness  float64 `db:"mean_fitness"`
	StdFitness   float64 `db:"std_fitness"`
	MeanDistance float64 `db:"mean_distance"`
	MaxDistance  float64 `db:"max_distance"`
	MeanExpanded float64 `db:"mean_expanded_links"`
	Stalled      int     `db:"stalled"`
}

// NewGenerationRecord copies the persisted fields out of s.
func NewGenerationRecord(runID string, s telemetry.GenerationStats) GenerationRecord {
	return GenerationRecord{
		RunID:        runID,
		Generation:   s.Generation,
		Population:   s.Population,
		BestFitness:  s.BestFitness,
		MeanFitness:  s.MeanFitness,
		StdFitness:   s.StdFitness,
		MeanDistance: s.MeanDistance,
		MaxDistance:  s.MaxDistance,
		MeanExpanded: s.MeanExpanded,
		Stalled:      s.Stalled,
	}
}

// Champion is the best individual of one generation.
type Champion struct {
	RunID        string            `db:"run_id"`
	Generation   int               `db:"generation"`
	IndividualID string            `db:"individual_id"`
	Fitness      float64           `db:"fitness"`
	Distance     float64           `db:"distance"`
	Chromosome   genome.Chromosome `db:"-"`
}

// Store persists the run ledger.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run Run) error
	SaveGeneration(ctx context.Context, rec GenerationRecord) error
	SaveChampion(ctx context.Context, c Champion) error
	ListGenerations(ctx context.Context, runID string) ([]GenerationRecord, error)
	ListChampions(ctx context.Context, runID string) ([]Champion, error)
	Close() error
}

// NewStore returns the backend named by kind.
func NewStore(kind, sqlitePath string) (Store, error) {
	switch kind {
	case "", "none":
		return nopStore{}, nil
	case "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return NewSQLiteStore(sqlitePath), nil
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", kind)
	}
}

func encodeChromosome(c genome.Chromosome) (string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encoding chromosome: %w", err)
	}
	return string(data), nil
}

func decodeChromosome(s string) (genome.Chromosome, error) {
	var c genome.Chromosome
	if err := json.Unmarshal([]byte(s), &c); err != nil {
		return nil, fmt.Errorf("decoding chromosome: %w", err)
	}
	return c, nil
}

// nopStore discards everything.
type nopStore struct{}

func (nopStore) Init(context.Context) error { return nil }

func (nopStore) SaveRun(context.Context, Run) error { return nil }

func (nopStore) SaveGeneration(context.Context, GenerationRecord) error { return nil }

func (nopStore) SaveChampion(context.Context, Champion) error { return nil }

func (nopStore) ListGenerations(context.Context, string) ([]GenerationRecord, error) {
	return nil, nil
}

func (nopStore) ListChampions(context.Context, string) ([]Champion, error) { return nil, nil }

func (nopStore) Close() error { return nil }
