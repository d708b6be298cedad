// Package genome holds the raw genetic encoding: genes of floats in [0,1] and
// chromosomes built from them, one gene per flat body segment.
package genome

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/pthm-cable/morphogen/traits"
)

// ErrShape is returned for ragged chromosomes or non-finite gene values.
var ErrShape = errors.New("malformed chromosome")

// Gene is one segment's trait vector.
type Gene []float64

// Chromosome is an ordered list of equal-width genes.
type Chromosome []Gene

// RandomGene returns length values drawn uniformly from [0,1).
func RandomGene(rng *rand.Rand, length int) Gene {
	g := make(Gene, length)
	for i := range g {
		g[i] = rng.Float64()
	}
	return g
}

// RandomChromosome returns numSegments independent random genes.
func RandomChromosome(rng *rand.Rand, numSegments, geneLength int) Chromosome {
	c := make(Chromosome, numSegments)
	for i := range c {
		c[i] = RandomGene(rng, geneLength)
	}
	return c
}

// Clone returns a deep copy.
func (g Gene) Clone() Gene {
	out := make(Gene, len(g))
	copy(out, g)
	return out
}

// Len returns the number of genes (flat segments).
func (c Chromosome) Len() int {
	return len(c)
}

// Width returns the gene width, or 0 for an empty chromosome.
func (c Chromosome) Width() int {
	if len(c) == 0 {
		return 0
	}
	return len(c[0])
}

// Clone returns a deep copy sharing no backing arrays with c.
func (c Chromosome) Clone() Chromosome {
	if c == nil {
		return nil
	}
	out := make(Chromosome, len(c))
	for i, g := range c {
		out[i] = g.Clone()
	}
	return out
}

// Equal reports element-wise equality.
func (c Chromosome) Equal(other Chromosome) bool {
	if len(c) != len(other) {
		return false
	}
	for i := range c {
		if len(c[i]) != len(other[i]) {
			return false
		}
		for j := range c[i] {
			if c[i][j] != other[i][j] {
				return false
			}
		}
	}
	return true
}

// Validate checks that every gene has the given width and holds finite values.
func (c Chromosome) Validate(width int) error {
	for i, g := range c {
		if len(g) != width {
			return fmt.Errorf("%w: gene %d has width %d, want %d", ErrShape, i, len(g), width)
		}
		for j, v := range g {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: gene %d slot %d is not finite", ErrShape, i, j)
			}
		}
	}
	return nil
}

// Flatten returns all gene values in row-major order.
func (c Chromosome) Flatten() []float64 {
	out := make([]float64, 0, len(c)*c.Width())
	for _, g := range c {
		out = append(out, g...)
	}
	return out
}

// DecodeAll decodes every gene with spec, preserving order.
func DecodeAll(c Chromosome, spec *traits.Spec) ([]traits.Values, error) {
	out := make([]traits.Values, len(c))
	for i, g := range c {
		v, err := spec.Decode(g)
		if err != nil {
			return nil, fmt.Errorf("decoding gene %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}
