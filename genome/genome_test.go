package genome

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/pthm-cable/morphogen/traits"
)

func TestRandomChromosome(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	c := RandomChromosome(rng, 7, 18)

	if c.Len() != 7 {
		t.Errorf("expected 7 genes, got %d", c.Len())
	}
	if c.Width() != 18 {
		t.Errorf("expected width 18, got %d", c.Width())
	}
	for _, v := range c.Flatten() {
		if v < 0 || v >= 1 {
			t.Fatalf("value %v outside [0,1)", v)
		}
	}
	if err := c.Validate(18); err != nil {
		t.Errorf("unexpected validation error: %v", err)
	}
}

func TestCloneIsDeep(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	c := RandomChromosome(rng, 3, 4)
	cp := c.Clone()

	if !c.Equal(cp) {
		t.Fatal("clone should be equal to original")
	}
	cp[0][0] = 42
	if c[0][0] == 42 {
		t.Error("clone shares backing array with original")
	}
	if c.Equal(cp) {
		t.Error("modified clone should differ")
	}
}

func TestValidate(t *testing.T) {
	ragged := Chromosome{{0.1, 0.2}, {0.3}}
	if err := ragged.Validate(2); !errors.Is(err, ErrShape) {
		t.Errorf("expected ErrShape for ragged chromosome, got %v", err)
	}

	nan := Chromosome{{0.1, math.NaN()}}
	if err := nan.Validate(2); !errors.Is(err, ErrShape) {
		t.Errorf("expected ErrShape for NaN, got %v", err)
	}
}

func TestDecodeAll(t *testing.T) {
	spec := traits.Default()
	rng := rand.New(rand.NewPCG(5, 6))
	c := RandomChromosome(rng, 5, spec.Len())

	values, err := DecodeAll(c, spec)
	if err != nil {
		t.Fatal(err)
	}
	if len(values) != 5 {
		t.Fatalf("expected 5 decoded genes, got %d", len(values))
	}
	for i, v := range values {
		want, _ := spec.Decode(c[i])
		if v.Float(traits.LinkLength1) != want.Float(traits.LinkLength1) {
			t.Errorf("gene %d decoded out of order", i)
		}
	}

	short := Chromosome{{0.5}}
	if _, err := DecodeAll(short, spec); !errors.Is(err, traits.ErrGeneWidth) {
		t.Errorf("expected ErrGeneWidth, got %v", err)
	}
}
