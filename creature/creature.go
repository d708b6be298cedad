// Package creature binds a chromosome to the structures derived from it: the
// flat and expanded body plans, the controller bank and the robot description.
package creature

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats"

	"github.com/pthm-cable/morphogen/genome"
	"github.com/pthm-cable/morphogen/morphology"
	"github.com/pthm-cable/morphogen/motor"
	"github.com/pthm-cable/morphogen/traits"
	"github.com/pthm-cable/morphogen/urdf"
)

// ErrShape is returned when a chromosome does not fit the trait spec.
var ErrShape = errors.New("chromosome does not match trait spec")

// Individual is one candidate creature. Derived structures are computed on
// first use and discarded whenever the chromosome is replaced.
type Individual struct {
	ID uuid.UUID

	spec  *traits.Spec
	dna   genome.Chromosome
	start [3]float64
	last  [3]float64

	flat        cached[[]morphology.FlatSegment]
	expanded    cached[[]morphology.ExpandedSegment]
	controllers cached[motor.Bank]
}

// New wraps a chromosome. The chromosome is owned by the individual afterwards.
func New(spec *traits.Spec, c genome.Chromosome) (*Individual, error) {
	if err := checkShape(spec, c); err != nil {
		return nil, err
	}
	return &Individual{ID: uuid.New(), spec: spec, dna: c}, nil
}

// NewRandom creates an individual with geneCount random genes.
func NewRandom(rng *rand.Rand, spec *traits.Spec, geneCount int) *Individual {
	return &Individual{
		ID:   uuid.New(),
		spec: spec,
		dna:  genome.RandomChromosome(rng, geneCount, spec.Len()),
	}
}

func checkShape(spec *traits.Spec, c genome.Chromosome) error {
	if len(c) == 0 {
		return fmt.Errorf("%w: empty chromosome", ErrShape)
	}
	if c.Width() != spec.Len() {
		return fmt.Errorf("%w: gene width %d, spec has %d traits", ErrShape, c.Width(), spec.Len())
	}
	if err := c.Validate(spec.Len()); err != nil {
		return fmt.Errorf("%w: %w", ErrShape, err)
	}
	return nil
}

// Spec returns the trait spec used to decode the chromosome.
func (ind *Individual) Spec() *traits.Spec { return ind.spec }

// Chromosome returns the chromosome. Callers must not modify it; use
// UpdateDNA to replace it.
func (ind *Individual) Chromosome() genome.Chromosome { return ind.dna }

// UpdateDNA replaces the chromosome, resets both positions to the origin and
// rebuilds the derived structures.
func (ind *Individual) UpdateDNA(c genome.Chromosome) error {
	if err := checkShape(ind.spec, c); err != nil {
		return err
	}
	ind.dna = c
	ind.start, ind.last = [3]float64{}, [3]float64{}
	ind.flat.reset()
	ind.expanded.reset()
	ind.controllers.reset()

	_, err := ind.Controllers()
	return err
}

// FlatSegments returns one segment per gene.
func (ind *Individual) FlatSegments() ([]morphology.FlatSegment, error) {
	return ind.flat.get(func() ([]morphology.FlatSegment, error) {
		values, err := genome.DecodeAll(ind.dna, ind.spec)
		if err != nil {
			return nil, err
		}
		return morphology.Flatten(values), nil
	})
}

// ExpandedSegments returns the expanded body tree in pre-order. The root's
// repeat count is forced to 1 on every call.
func (ind *Individual) ExpandedSegments() ([]morphology.ExpandedSegment, error) {
	segs, err := ind.expanded.get(func() ([]morphology.ExpandedSegment, error) {
		flat, err := ind.FlatSegments()
		if err != nil {
			return nil, err
		}
		return morphology.Expand(flat)
	})
	if err != nil {
		return nil, err
	}
	segs[0].Repeat = 1
	return segs, nil
}

// Controllers returns one controller per joint, that is per expanded segment
// after the root. Controllers are stateful and shared across calls.
func (ind *Individual) Controllers() (motor.Bank, error) {
	return ind.controllers.get(func() (motor.Bank, error) {
		segs, err := ind.ExpandedSegments()
		if err != nil {
			return nil, err
		}
		bank := make(motor.Bank, 0, len(segs)-1)
		for _, seg := range segs[1:] {
			c, err := motor.NewController(
				seg.Traits.Int(traits.ControlWaveform),
				seg.Traits.Float(traits.ControlAmp),
				seg.Traits.Float(traits.ControlFreq),
			)
			if err != nil {
				return nil, fmt.Errorf("segment %s: %w", seg.Name, err)
			}
			bank = append(bank, c)
		}
		return bank, nil
	})
}

// Document builds the robot description.
func (ind *Individual) Document(name string) (*urdf.Robot, error) {
	segs, err := ind.ExpandedSegments()
	if err != nil {
		return nil, err
	}
	return urdf.BuildDocument(name, segs)
}

// URDF renders the robot description.
func (ind *Individual) URDF(name string) ([]byte, error) {
	doc, err := ind.Document(name)
	if err != nil {
		return nil, err
	}
	return doc.Marshal()
}

func (ind *Individual) SetStart(p [3]float64) { ind.start = p }
func (ind *Individual) SetLast(p [3]float64)  { ind.last = p }
func (ind *Individual) Start() [3]float64     { return ind.start }
func (ind *Individual) Last() [3]float64      { return ind.last }

// Displacement returns the Euclidean distance from start to last position.
func (ind *Individual) Displacement() float64 {
	return floats.Distance(ind.last[:], ind.start[:], 2)
}

// Clone returns a deep copy with the same ID and fresh caches.
func (ind *Individual) Clone() *Individual {
	return &Individual{
		ID:    ind.ID,
		spec:  ind.spec,
		dna:   ind.dna.Clone(),
		start: ind.start,
		last:  ind.last,
	}
}

func (ind *Individual) String() string {
	return fmt.Sprintf("Individual(%s, %d genes)", ind.ID.String()[:8], ind.dna.Len())
}
