package evolution

import (
	"fmt"
	"math/rand/v2"

	"github.com/pthm-cable/morphogen/genome"
)

// Crossover splices a prefix of a onto a suffix of b. The cut in a falls in
// [1, len(a)] so at least one gene of a survives; the cut in b falls in
// [0, len(b)). The child is truncated to
// min(maxLength, floor(max(len(a), len(b)) * maxGrowth)) but never below one
// gene.
func Crossover(rng *rand.Rand, a, b genome.Chromosome, maxLength int, maxGrowth float64) (genome.Chromosome, error) {
	if len(a) == 0 || len(b) == 0 {
		return nil, fmt.Errorf("crossover: %w", ErrEmptyChromosome)
	}
	c1 := 1 + rng.IntN(len(a))
	c2 := rng.IntN(len(b))

	child := make(genome.Chromosome, 0, c1+len(b)-c2)
	for _, g := range a[:c1] {
		child = append(child, g.Clone())
	}
	for _, g := range b[c2:] {
		child = append(child, g.Clone())
	}

	limit := max(1, min(maxLength, int(float64(max(len(a), len(b)))*maxGrowth)))
	if len(child) > limit {
		child = child[:limit]
	}
	return child, nil
}

// PointMutate returns a copy of c where each scalar is perturbed with
// probability rate. All perturbed scalars share one signed offset of
// magnitude U(0,1)*amount, and results are clamped to [0,1].
func PointMutate(rng *rand.Rand, c genome.Chromosome, rate, amount float64) genome.Chromosome {
	out := c.Clone()
	delta := rng.Float64() * amount
	if rng.IntN(2) == 0 {
		delta = -delta
	}
	for _, g := range out {
		for j := range g {
			if rng.Float64() < rate {
				g[j] = min(1, max(0, g[j]+delta))
			}
		}
	}
	return out
}

// ShrinkMutate drops each gene with probability rate. A result shorter than
// minLength is discarded: the original is returned, truncated to minLength
// when it is longer than that.
func ShrinkMutate(rng *rand.Rand, c genome.Chromosome, minLength int, rate float64) genome.Chromosome {
	out := make(genome.Chromosome, 0, len(c))
	for _, g := range c {
		if rng.Float64() < rate {
			continue
		}
		out = append(out, g.Clone())
	}
	if len(out) >= minLength {
		return out
	}
	if len(c) > minLength {
		return c[:minLength].Clone()
	}
	return c.Clone()
}

// GrowMutate appends a copy of each gene with probability rate, in order,
// then truncates to maxLength.
func GrowMutate(rng *rand.Rand, c genome.Chromosome, maxLength int, rate float64) genome.Chromosome {
	out := c.Clone()
	for _, g := range c {
		if rng.Float64() < rate {
			out = append(out, g.Clone())
		}
	}
	if len(out) > maxLength {
		out = out[:maxLength]
	}
	return out
}
