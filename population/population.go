// Package population manages a generation of individuals: evaluation through
// an injected evaluator, elitist generational replacement, and the on-disk
// chromosome and report formats.
package population

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"

	"github.com/pthm-cable/morphogen/creature"
	"github.com/pthm-cable/morphogen/evolution"
	"github.com/pthm-cable/morphogen/traits"
)

var (
	// ErrSizeInvariant is returned when an assembled generation has the wrong size.
	ErrSizeInvariant = errors.New("generation size does not match population size")
	// ErrEmpty is returned when a population would be replaced by nothing.
	ErrEmpty = errors.New("empty population")
)

// Evaluator runs fitness episodes and returns evaluated individuals in
// submission order.
type Evaluator interface {
	Evaluate(ctx context.Context, inds []*creature.Individual) ([]*creature.Individual, error)
}

// Population is one generation of individuals.
type Population struct {
	Size        int
	GeneCount   int
	Individuals []*creature.Individual

	spec *traits.Spec
	rng  *rand.Rand
}

// NewRandom creates size individuals with geneCount random genes each.
func NewRandom(rng *rand.Rand, spec *traits.Spec, size, geneCount int) *Population {
	p := &Population{Size: size, GeneCount: geneCount, spec: spec, rng: rng}
	p.Individuals = make([]*creature.Individual, size)
	for i := range p.Individuals {
		p.Individuals[i] = creature.NewRandom(rng, spec, geneCount)
	}
	return p
}

// NewRandomLength creates size individuals whose lengths are drawn uniformly
// from [2, geneCount). geneCount must be at least 3.
func NewRandomLength(rng *rand.Rand, spec *traits.Spec, size, geneCount int) (*Population, error) {
	if geneCount < 3 {
		return nil, fmt.Errorf("random length population needs gene count >= 3, got %d", geneCount)
	}
	p := &Population{Size: size, GeneCount: geneCount, spec: spec, rng: rng}
	p.Individuals = make([]*creature.Individual, size)
	for i := range p.Individuals {
		p.Individuals[i] = creature.NewRandom(rng, spec, 2+rng.IntN(geneCount-2))
	}
	return p, nil
}

// Spec returns the trait spec shared by every individual.
func (p *Population) Spec() *traits.Spec { return p.spec }

// Reset replaces the individuals and resizes the population to match.
func (p *Population) Reset(inds []*creature.Individual) error {
	if len(inds) == 0 {
		return ErrEmpty
	}
	p.Individuals = inds
	p.Size = len(inds)
	return nil
}

// Evaluate runs every individual through e and substitutes the evaluated
// copies back in place.
func (p *Population) Evaluate(ctx context.Context, e Evaluator) error {
	evaluated, err := e.Evaluate(ctx, p.Individuals)
	if err != nil {
		return err
	}
	if len(evaluated) != len(p.Individuals) {
		return fmt.Errorf("evaluator returned %d individuals for %d", len(evaluated), len(p.Individuals))
	}
	return p.Reset(evaluated)
}

// Fitness scores every individual in order.
func (p *Population) Fitness() []float64 {
	return evolution.FitnessAll(p.Individuals)
}

// SelectParents draws two distinct individuals weighted by fitness.
func (p *Population) SelectParents() (*creature.Individual, *creature.Individual, error) {
	return p.selectFrom(p.Fitness())
}

func (p *Population) selectFrom(fits []float64) (*creature.Individual, *creature.Individual, error) {
	i, j, err := evolution.SelectParentPair(p.rng, fits)
	if err != nil {
		return nil, nil, err
	}
	return p.Individuals[i], p.Individuals[j], nil
}

// rank returns individual indices ordered by descending fitness. Ties keep
// population order.
func rank(fits []float64) []int {
	idx := make([]int, len(fits))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return fits[idx[a]] > fits[idx[b]]
	})
	return idx
}

// Fittest returns up to n individuals, fittest first.
func (p *Population) Fittest(n int) []*creature.Individual {
	order := rank(p.Fitness())
	n = min(max(n, 0), len(order))
	out := make([]*creature.Individual, n)
	for i := range out {
		out[i] = p.Individuals[order[i]]
	}
	return out
}

// clampCounts bounds elites and random injections to the population size.
// When together they exceed it, the population is split evenly between them.
func clampCounts(size, elites, random int) (int, int) {
	elites = min(max(elites, 0), size)
	random = min(max(random, 0), size)
	if elites+random > size {
		elites = size / 2
		random = size - elites
	}
	return elites, random
}

// AdvanceGeneration builds the next generation: the fittest numElites
// individuals carried over as-is, offspring of fitness-weighted parent pairs,
// then numRandom fresh individuals of GeneCount genes.
func (p *Population) AdvanceGeneration(numElites, numRandom int, params evolution.Params) error {
	numElites, numRandom = clampCounts(p.Size, numElites, numRandom)
	fits := p.Fitness()

	next := make([]*creature.Individual, 0, p.Size)
	for _, i := range rank(fits)[:min(numElites, len(fits))] {
		next = append(next, p.Individuals[i])
	}

	for range p.Size - numElites - numRandom {
		a, b, err := p.selectFrom(fits)
		if err != nil {
			return fmt.Errorf("selecting parents: %w", err)
		}
		dna, err := evolution.GenerateChild(p.rng, a.Chromosome(), b.Chromosome(), params)
		if err != nil {
			return fmt.Errorf("breeding: %w", err)
		}
		child, err := creature.New(p.spec, dna)
		if err != nil {
			return fmt.Errorf("breeding: %w", err)
		}
		next = append(next, child)
	}

	for range numRandom {
		next = append(next, creature.NewRandom(p.rng, p.spec, p.GeneCount))
	}

	if len(next) != p.Size {
		return fmt.Errorf("%w: assembled %d, want %d", ErrSizeInvariant, len(next), p.Size)
	}
	return p.Reset(next)
}
