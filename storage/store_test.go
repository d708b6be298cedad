package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/pthm-cable/morphogen/genome"
	"github.com/pthm-cable/morphogen/telemetry"
)

func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	defer store.Close()

	run := Run{ID: "run-1", Identifier: "dna", StartedAt: time.Unix(1700000000, 0), Config: "seed: 1\n"}
	if err := store.SaveRun(ctx, run); err != nil {
		t.Fatalf("save run: %v", err)
	}

	for _, g := range []int{2, 0, 1} {
		stats := telemetry.GenerationStats{Generation: g, Population: 4, BestFitness: float64(10 + g)}
		if err := store.SaveGeneration(ctx, NewGenerationRecord("run-1", stats)); err != nil {
			t.Fatalf("save generation %d: %v", g, err)
		}
	}
	// Re-saving a generation replaces it.
	if err := store.SaveGeneration(ctx, GenerationRecord{RunID: "run-1", Generation: 1, Population: 4, BestFitness: 99}); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveGeneration(ctx, GenerationRecord{RunID: "other", Generation: 0}); err != nil {
		t.Fatal(err)
	}

	gens, err := store.ListGenerations(ctx, "run-1")
	if err != nil {
		t.Fatalf("list generations: %v", err)
	}
	if len(gens) != 3 {
		t.Fatalf("got %d generations, want 3", len(gens))
	}
	wantBest := []float64{10, 99, 12}
	for i, g := range gens {
		if g.Generation != i || g.BestFitness != wantBest[i] {
			t.Errorf("generation %d: %+v", i, g)
		}
	}

	champ := Champion{
		RunID:        "run-1",
		Generation:   2,
		IndividualID: "abc",
		Fitness:      12,
		Distance:     3.5,
		Chromosome:   genome.Chromosome{{0.1, 0.2}, {0.3, 0.4}},
	}
	if err := store.SaveChampion(ctx, champ); err != nil {
		t.Fatalf("save champion: %v", err)
	}
	champs, err := store.ListChampions(ctx, "run-1")
	if err != nil {
		t.Fatalf("list champions: %v", err)
	}
	if len(champs) != 1 {
		t.Fatalf("got %d champions, want 1", len(champs))
	}
	got := champs[0]
	if got.IndividualID != "abc" || got.Fitness != 12 || got.Distance != 3.5 {
		t.Errorf("unexpected champion %+v", got)
	}
	if !got.Chromosome.Equal(champ.Chromosome) {
		t.Errorf("chromosome = %v, want %v", got.Chromosome, champ.Chromosome)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestSQLiteStore(t *testing.T) {
	exerciseStore(t, NewSQLiteStore(filepath.Join(t.TempDir(), "ledger.db")))
}

func TestSQLiteStoreGetRun(t *testing.T) {
	ctx := context.Background()
	store := NewSQLiteStore(filepath.Join(t.TempDir(), "ledger.db"))
	if err := store.Init(ctx); err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	if _, ok, err := store.GetRun(ctx, "missing"); err != nil || ok {
		t.Fatalf("missing run: ok=%v err=%v", ok, err)
	}
	started := time.Unix(1700000123, 0)
	if err := store.SaveRun(ctx, Run{ID: "r", Identifier: "dna", StartedAt: started, Config: "x"}); err != nil {
		t.Fatal(err)
	}
	run, ok, err := store.GetRun(ctx, "r")
	if err != nil || !ok {
		t.Fatalf("get run: ok=%v err=%v", ok, err)
	}
	if !run.StartedAt.Equal(started) || run.Config != "x" {
		t.Errorf("unexpected run %+v", run)
	}
}

func TestStoreRequiresInit(t *testing.T) {
	ctx := context.Background()
	for name, store := range map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": NewSQLiteStore(filepath.Join(t.TempDir(), "x.db")),
	} {
		t.Run(name, func(t *testing.T) {
			if err := store.SaveRun(ctx, Run{ID: "r"}); err == nil {
				t.Error("expected error before Init")
			}
		})
	}
}

func TestNewStore(t *testing.T) {
	tests := []struct {
		kind string
		ok   bool
	}{
		{"", true},
		{"none", true},
		{"memory", true},
		{"sqlite", true},
		{"postgres", false},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			s, err := NewStore(tt.kind, filepath.Join(t.TempDir(), "x.db"))
			if (err == nil) != tt.ok {
				t.Fatalf("err = %v", err)
			}
			if s != nil {
				s.Close()
			}
		})
	}

	s, _ := NewStore("none", "")
	if err := s.Init(context.Background()); err != nil {
		t.Fatal(err)
	}
	gens, err := s.ListGenerations(context.Background(), "r")
	if err != nil || len(gens) != 0 {
		t.Errorf("nop store returned %v, %v", gens, err)
	}
}
