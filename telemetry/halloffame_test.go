package telemetry

import (
	"math/rand/v2"
	"path/filepath"
	"testing"

	"github.com/pthm-cable/morphogen/creature"
	"github.com/pthm-cable/morphogen/traits"
)

func newIndividual(t *testing.T, rng *rand.Rand) *creature.Individual {
	t.Helper()
	return creature.NewRandom(rng, traits.Default(), 2)
}

func TestHallOfFameOrderAndCapacity(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	hof := NewHallOfFame(3)

	for _, f := range []float64{5, 1, 9, 3, 7} {
		hof.Consider(0, newIndividual(t, rng), f)
	}

	entries := hof.Entries()
	if len(entries) != 3 {
		t.Fatalf("size = %d, want 3", len(entries))
	}
	want := []float64{9, 7, 5}
	for i, e := range entries {
		if e.Fitness != want[i] {
			t.Errorf("entry %d fitness = %v, want %v", i, e.Fitness, want[i])
		}
	}
	if hof.TopFitness() != 9 {
		t.Errorf("top = %v", hof.TopFitness())
	}

	if hof.Consider(1, newIndividual(t, rng), 2) {
		t.Error("low fitness admitted to a full hall")
	}
}

func TestHallOfFameDeduplicatesElites(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	hof := NewHallOfFame(5)
	elite := newIndividual(t, rng)

	if !hof.Consider(0, elite, 4) {
		t.Fatal("first entry rejected")
	}
	if hof.Consider(1, elite, 4) {
		t.Error("same individual at equal fitness should not change the hall")
	}
	if !hof.Consider(2, elite, 6) {
		t.Error("improved fitness should replace the entry")
	}
	if hof.Size() != 1 {
		t.Errorf("size = %d, want 1", hof.Size())
	}
	if e := hof.Entries()[0]; e.Generation != 2 || e.Fitness != 6 {
		t.Errorf("entry = gen %d fitness %v", e.Generation, e.Fitness)
	}
}

func TestHallOfFameSample(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 6))
	hof := NewHallOfFame(4)
	if hof.Sample(rng) != nil {
		t.Error("empty hall should sample nil")
	}

	ind := newIndividual(t, rng)
	hof.Consider(0, ind, 1)
	got := hof.Sample(rng)
	if !got.Equal(ind.Chromosome()) {
		t.Error("sample does not match the only entry")
	}
	got[0][0] = -1
	if hof.Entries()[0].Chromosome[0][0] == -1 {
		t.Error("sample shares memory with the hall")
	}
}

func TestHallOfFameFileRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 8))
	dir := t.TempDir()
	om, err := NewOutputManager(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer om.Close()

	hof := NewHallOfFame(4)
	for _, f := range []float64{2, 8, 4} {
		hof.Consider(3, newIndividual(t, rng), f)
	}
	if err := om.WriteHallOfFame(hof); err != nil {
		t.Fatal(err)
	}

	loaded, err := LoadHallOfFameFromFile(filepath.Join(dir, "hall_of_fame.json"))
	if err != nil {
		t.Fatal(err)
	}
	a, b := hof.Entries(), loaded.Entries()
	if len(a) != len(b) {
		t.Fatalf("loaded %d entries, want %d", len(b), len(a))
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].Fitness != b[i].Fitness || !a[i].Chromosome.Equal(b[i].Chromosome) {
			t.Errorf("entry %d differs after reload", i)
		}
	}
}
