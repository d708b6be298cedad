package evolution

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/sampleuv"
)

// SelectParentPair draws two distinct indices without replacement, weighted
// by fitness. NaN and negative fitnesses weigh nothing; if every weight is
// zero the draw is uniform. When the first draw exhausts all positive weight
// the second index is uniform over the remaining candidates.
func SelectParentPair(rng *rand.Rand, fits []float64) (int, int, error) {
	n := len(fits)
	if n < 2 {
		return 0, 0, fmt.Errorf("%w: have %d", ErrEmptyPopulation, n)
	}

	weights := make([]float64, n)
	ceiling := math.MaxFloat64 / float64(n)
	total := 0.0
	for i, f := range fits {
		if math.IsNaN(f) || f <= 0 {
			continue
		}
		weights[i] = math.Min(f, ceiling)
		total += weights[i]
	}
	if total == 0 {
		for i := range weights {
			weights[i] = 1
		}
	}

	w := sampleuv.NewWeighted(weights, rng)
	i, ok := w.Take()
	if !ok {
		return 0, 0, fmt.Errorf("%w: no selectable candidate", ErrEmptyPopulation)
	}
	j, ok := w.Take()
	if !ok {
		j = rng.IntN(n - 1)
		if j >= i {
			j++
		}
	}
	return i, j, nil
}
