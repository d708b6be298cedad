package creature

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/pthm-cable/morphogen/genome"
	"github.com/pthm-cable/morphogen/traits"
)

func newRNG(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, 1))
}

func TestNewRandom(t *testing.T) {
	spec := traits.Default()
	ind := NewRandom(newRNG(1), spec, 4)

	if ind.Chromosome().Len() != 4 || ind.Chromosome().Width() != spec.Len() {
		t.Fatalf("unexpected chromosome shape %dx%d", ind.Chromosome().Len(), ind.Chromosome().Width())
	}
	flat, err := ind.FlatSegments()
	if err != nil {
		t.Fatal(err)
	}
	if len(flat) != 4 {
		t.Errorf("got %d flat segments", len(flat))
	}

	exp, err := ind.ExpandedSegments()
	if err != nil {
		t.Fatal(err)
	}
	bank, err := ind.Controllers()
	if err != nil {
		t.Fatal(err)
	}
	if len(bank) != len(exp)-1 {
		t.Errorf("got %d controllers for %d segments", len(bank), len(exp))
	}
}

func TestNewRejectsWrongWidth(t *testing.T) {
	spec := traits.Default()
	c := genome.RandomChromosome(newRNG(2), 3, spec.Len()-1)
	if _, err := New(spec, c); !errors.Is(err, ErrShape) {
		t.Errorf("expected ErrShape, got %v", err)
	}
	if _, err := New(spec, nil); !errors.Is(err, ErrShape) {
		t.Errorf("expected ErrShape for empty chromosome, got %v", err)
	}
}

func TestUpdateDNA(t *testing.T) {
	spec := traits.Default()
	rng := newRNG(3)
	ind := NewRandom(rng, spec, 2)

	before, _ := ind.ExpandedSegments()
	ind.SetStart([3]float64{1, 2, 3})
	ind.SetLast([3]float64{4, 5, 6})

	next := genome.RandomChromosome(rng, 6, spec.Len())
	if err := ind.UpdateDNA(next); err != nil {
		t.Fatal(err)
	}
	if ind.Start() != [3]float64{} || ind.Last() != [3]float64{} {
		t.Errorf("positions not reset: %v %v", ind.Start(), ind.Last())
	}

	flat, _ := ind.FlatSegments()
	if len(flat) != 6 {
		t.Errorf("flat cache not invalidated: %d segments", len(flat))
	}
	after, _ := ind.ExpandedSegments()
	if len(after) == len(before) && after[len(after)-1].Name == before[len(before)-1].Name {
		t.Errorf("expanded cache not invalidated")
	}

	bad := genome.RandomChromosome(rng, 2, spec.Len()+1)
	if err := ind.UpdateDNA(bad); !errors.Is(err, ErrShape) {
		t.Errorf("expected ErrShape, got %v", err)
	}
	if ind.Chromosome().Len() != 6 {
		t.Errorf("rejected chromosome replaced the old one")
	}
}

func TestExpandedRootRepeat(t *testing.T) {
	ind := NewRandom(newRNG(4), traits.Default(), 3)
	segs, _ := ind.ExpandedSegments()
	segs[0].Repeat = 7
	again, _ := ind.ExpandedSegments()
	if again[0].Repeat != 1 {
		t.Errorf("root repeat = %d, want 1", again[0].Repeat)
	}
}

func TestDisplacement(t *testing.T) {
	ind := NewRandom(newRNG(5), traits.Default(), 2)
	if ind.Displacement() != 0 {
		t.Errorf("fresh individual displacement = %v", ind.Displacement())
	}
	ind.SetStart([3]float64{1, 1, 1})
	ind.SetLast([3]float64{4, 5, 1})
	if math.Abs(ind.Displacement()-5) > 1e-12 {
		t.Errorf("displacement = %v, want 5", ind.Displacement())
	}
}

func TestClone(t *testing.T) {
	ind := NewRandom(newRNG(6), traits.Default(), 3)
	ind.SetLast([3]float64{1, 0, 0})
	c := ind.Clone()

	if c.ID != ind.ID {
		t.Errorf("clone has different ID")
	}
	if !c.Chromosome().Equal(ind.Chromosome()) {
		t.Errorf("clone chromosome differs")
	}
	c.Chromosome()[0][0] = -1
	if ind.Chromosome()[0][0] == -1 {
		t.Errorf("clone shares chromosome storage")
	}
	if c.Last() != ind.Last() {
		t.Errorf("clone lost last position")
	}
}

func TestDocument(t *testing.T) {
	ind := NewRandom(newRNG(7), traits.Default(), 5)
	exp, _ := ind.ExpandedSegments()
	doc, err := ind.Document("robot")
	if err != nil {
		t.Fatal(err)
	}
	if doc.Len() != 2*len(exp)-1 {
		t.Errorf("document has %d children, want %d", doc.Len(), 2*len(exp)-1)
	}
	if _, err := ind.URDF("robot"); err != nil {
		t.Fatal(err)
	}
}
