package main

import (
	"github.com/pthm-cable/morphogen/config"
)

// ParamSpec defines a single tunable parameter.
type ParamSpec struct {
	Name    string  // Name used in logs
	Path    string  // Config path
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64
}

// ParamVector holds the set of tunable breeding parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector returns the breeding parameters searched by the tuner.
// Length limits stay fixed since they bound the cost of an evaluation.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			{Name: "point_rate", Path: "evolution.operators.point_mutation_rate", Min: 0, Max: 0.5, Default: 0.05},
			{Name: "point_amount", Path: "evolution.operators.point_mutation_amount", Min: 0, Max: 0.5, Default: 0.05},
			{Name: "shrink_rate", Path: "evolution.operators.shrink_mutation_rate", Min: 0, Max: 0.5, Default: 0.05},
			{Name: "grow_rate", Path: "evolution.operators.grow_mutation_rate", Min: 0, Max: 0.5, Default: 0.05},
			{Name: "max_growth", Path: "evolution.operators.max_growth_rate", Min: 1, Max: 2, Default: 1.2},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// FromConfig reads the current parameter values out of cfg.
func (pv *ParamVector) FromConfig(cfg *config.Config) []float64 {
	op := cfg.Evolution.Operators
	return []float64{op.PointRate, op.PointAmount, op.ShrinkRate, op.GrowRate, op.MaxGrowth}
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		clamped[i] = min(max(v[i], spec.Min), spec.Max)
	}
	return clamped
}

// ApplyToConfig writes clamped values into cfg. Order follows Specs.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	c := pv.Clamp(values)
	op := &cfg.Evolution.Operators
	op.PointRate = c[0]
	op.PointAmount = c[1]
	op.ShrinkRate = c[2]
	op.GrowRate = c[3]
	op.MaxGrowth = c[4]
}
