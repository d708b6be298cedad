// Package evolution implements fitness scoring, parent selection and the
// genetic operators that produce offspring chromosomes.
package evolution

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/pthm-cable/morphogen/genome"
)

var (
	// ErrEmptyPopulation is returned when fewer than two candidates are available.
	ErrEmptyPopulation = errors.New("not enough individuals to select parents")
	// ErrEmptyChromosome is returned when an operator receives a chromosome with no genes.
	ErrEmptyChromosome = errors.New("empty chromosome")
)

// Params holds the limits and rates applied when breeding a child.
type Params struct {
	MinLength   int     `yaml:"min_length"`
	MaxLength   int     `yaml:"max_length"`
	MaxGrowth   float64 `yaml:"max_growth_rate"`
	PointRate   float64 `yaml:"point_mutation_rate"`
	PointAmount float64 `yaml:"point_mutation_amount"`
	ShrinkRate  float64 `yaml:"shrink_mutation_rate"`
	GrowRate    float64 `yaml:"grow_mutation_rate"`
}

// DefaultParams returns the standard breeding parameters.
func DefaultParams() Params {
	return Params{
		MinLength:   2,
		MaxLength:   15,
		MaxGrowth:   1.2,
		PointRate:   0.05,
		PointAmount: 0.05,
		ShrinkRate:  0.05,
		GrowRate:    0.05,
	}
}

// Validate rejects negative rates, inverted length limits and a growth
// factor that would let crossover shrink the longer parent.
func (p Params) Validate() error {
	if p.MinLength < 1 {
		return fmt.Errorf("min_length must be at least 1, got %d", p.MinLength)
	}
	if p.MaxLength < p.MinLength {
		return fmt.Errorf("max_length %d below min_length %d", p.MaxLength, p.MinLength)
	}
	if p.MaxGrowth < 1 {
		return fmt.Errorf("max_growth_rate must be at least 1, got %v", p.MaxGrowth)
	}
	for name, r := range map[string]float64{
		"point_mutation_rate":   p.PointRate,
		"point_mutation_amount": p.PointAmount,
		"shrink_mutation_rate":  p.ShrinkRate,
		"grow_mutation_rate":    p.GrowRate,
	} {
		if r < 0 {
			return fmt.Errorf("%s must be non-negative, got %v", name, r)
		}
	}
	return nil
}

// GenerateChild breeds a child chromosome: crossover, then point, shrink and
// grow mutation, in that order. Parents are not modified.
func GenerateChild(rng *rand.Rand, a, b genome.Chromosome, p Params) (genome.Chromosome, error) {
	child, err := Crossover(rng, a, b, p.MaxLength, p.MaxGrowth)
	if err != nil {
		return nil, err
	}
	child = PointMutate(rng, child, p.PointRate, p.PointAmount)
	child = ShrinkMutate(rng, child, p.MinLength, p.ShrinkRate)
	child = GrowMutate(rng, child, p.MaxLength, p.GrowRate)
	return child, nil
}
