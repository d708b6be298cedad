package evolution

import (
	"math"

	"github.com/pthm-cable/morphogen/creature"
)

// Fitness scores an evaluated individual. Displacement is rewarded by forward
// x progress and penalized by body size:
//
//	max(0, d * (1 + last.x - start.x/100) / (1 + floor(n/2)))
//
// where n is the expanded segment count. The division binds to start.x only.
// NaN scores become 0 and +Inf becomes MaxFloat64.
func Fitness(ind *creature.Individual) float64 {
	segs, err := ind.ExpandedSegments()
	if err != nil {
		return 0
	}
	start, last := ind.Start(), ind.Last()

	reward := 1 + last[0] - start[0]/100
	penalty := 1 + float64(len(segs)/2)
	fit := ind.Displacement() * reward / penalty

	switch {
	case math.IsNaN(fit), fit < 0:
		return 0
	case math.IsInf(fit, 1):
		return math.MaxFloat64
	}
	return fit
}

// FitnessAll scores every individual, preserving order.
func FitnessAll(inds []*creature.Individual) []float64 {
	out := make([]float64, len(inds))
	for i, ind := range inds {
		out[i] = Fitness(ind)
	}
	return out
}
