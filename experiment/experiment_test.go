package experiment

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/pthm-cable/morphogen/config"
	"github.com/pthm-cable/morphogen/population"
	"github.com/pthm-cable/morphogen/storage"
	"github.com/pthm-cable/morphogen/telemetry"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Evolution.PopulationSize = 6
	cfg.Evolution.GeneCount = 3
	cfg.Evolution.Elites = 2
	cfg.Evolution.RandomInjections = 1
	cfg.Evolution.Generations = 2
	cfg.Evolution.Seed = 7
	cfg.Simulation.Frames = 48
	cfg.Simulation.ControlInterval = 12
	cfg.Derived.Workers = 2
	cfg.Output.Dir = t.TempDir()
	cfg.Output.Fittest = 2
	return cfg
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func countFiles(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	return len(entries)
}

func TestRun(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	store := storage.NewMemoryStore()
	var seen []int

	e, err := New(ctx, Options{
		Config:        cfg,
		RunID:         "run-a",
		Store:         store,
		Metrics:       telemetry.NewMetrics("run-a"),
		Logger:        quietLogger(),
		StatsCallback: func(s telemetry.GenerationStats) { seen = append(seen, s.Generation) },
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := e.Run(ctx); err != nil {
		t.Fatal(err)
	}

	if e.Generation() != 2 {
		t.Errorf("generation = %d, want 2", e.Generation())
	}
	if len(seen) != 2 || seen[0] != 1 || seen[1] != 2 {
		t.Errorf("stats callback saw %v", seen)
	}
	if e.LastStats().Population != 6 {
		t.Errorf("last stats population = %d", e.LastStats().Population)
	}

	for g := 1; g <= 2; g++ {
		dir := population.GenerationDir(cfg.Output.Dir, cfg.Output.Identifier, g)
		if n := countFiles(t, dir); n != 6 {
			t.Errorf("%s holds %d files, want 6", dir, n)
		}
	}

	runDir := filepath.Join(cfg.Output.Dir, "runs", "run-a")
	for _, name := range []string{"generations.csv", "perf.csv", "config.yaml", "reports", "champions/fittest.urdf"} {
		if _, err := os.Stat(filepath.Join(runDir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}

	gens, err := store.ListGenerations(ctx, "run-a")
	if err != nil {
		t.Fatal(err)
	}
	if len(gens) != 2 {
		t.Errorf("ledger holds %d generations, want 2", len(gens))
	}
	champs, _ := store.ListChampions(ctx, "run-a")
	if len(champs) != 2 {
		t.Errorf("ledger holds %d champions, want 2", len(champs))
	}

	if err := e.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(runDir, "hall_of_fame.json")); err != nil {
		t.Errorf("hall of fame not written: %v", err)
	}
}

func TestResume(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	first, err := New(ctx, Options{Config: cfg, Logger: quietLogger()})
	if err != nil {
		t.Fatal(err)
	}
	if err := first.Run(ctx); err != nil {
		t.Fatal(err)
	}
	first.Close()

	cfg.Evolution.Generations = 1
	second, err := New(ctx, Options{Config: cfg, Logger: quietLogger()})
	if err != nil {
		t.Fatal(err)
	}
	defer second.Close()

	if second.Generation() != 2 {
		t.Fatalf("resumed at generation %d, want 2", second.Generation())
	}
	if err := second.Run(ctx); err != nil {
		t.Fatal(err)
	}
	if second.Generation() != 3 {
		t.Errorf("generation = %d, want 3", second.Generation())
	}
	if _, n, err := population.LatestGenerationDir(cfg.Output.Dir, cfg.Output.Identifier); err != nil || n != 3 {
		t.Errorf("latest snapshot = %d, %v", n, err)
	}
}

func TestSeedHall(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.Output.Dir = ""

	donor, err := New(ctx, Options{Config: cfg, Logger: quietLogger()})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := donor.Step(ctx); err != nil {
		t.Fatal(err)
	}
	donor.Close()
	hall := donor.HallOfFame()

	seeded, err := New(ctx, Options{Config: cfg, Logger: quietLogger(), SeedHall: hall})
	if err != nil {
		t.Fatal(err)
	}
	defer seeded.Close()

	inds := seeded.Population().Individuals
	for i := 0; i < len(inds)/2; i++ {
		found := false
		for _, entry := range hall.Entries() {
			if entry.Chromosome.Equal(inds[i].Chromosome()) {
				found = true
			}
		}
		if !found {
			t.Errorf("individual %d was not drawn from the hall", i)
		}
	}
}

func TestRunCancelled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Output.Dir = ""

	e, err := New(context.Background(), Options{Config: cfg, Logger: quietLogger()})
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := e.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if e.Generation() != 0 {
		t.Errorf("generation advanced to %d", e.Generation())
	}
}

func TestNewEngineFactory(t *testing.T) {
	cfg := config.Default()
	if _, err := NewEngineFactory(cfg); err != nil {
		t.Fatal(err)
	}
	cfg.Simulation.Engine = "bullet"
	if _, err := NewEngineFactory(cfg); err == nil {
		t.Error("expected error for unknown engine")
	}
}
