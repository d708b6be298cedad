package main

import (
	"math"
	"testing"

	"github.com/pthm-cable/morphogen/config"
)

func TestParamVectorRoundTrip(t *testing.T) {
	pv := NewParamVector()
	raw := pv.DefaultVector()
	back := pv.Denormalize(pv.Normalize(raw))
	for i := range raw {
		if math.Abs(raw[i]-back[i]) > 1e-12 {
			t.Errorf("%s: %v -> %v", pv.Specs[i].Name, raw[i], back[i])
		}
	}
}

func TestParamVectorApply(t *testing.T) {
	pv := NewParamVector()
	cfg := config.Default()

	pv.ApplyToConfig(cfg, []float64{0.1, 0.2, 0.3, 9, 0.5})
	op := cfg.Evolution.Operators
	if op.PointRate != 0.1 || op.PointAmount != 0.2 || op.ShrinkRate != 0.3 {
		t.Errorf("unexpected operators %+v", op)
	}
	if op.GrowRate != 0.5 {
		t.Errorf("grow rate not clamped: %v", op.GrowRate)
	}
	if op.MaxGrowth != 1 {
		t.Errorf("max growth not clamped: %v", op.MaxGrowth)
	}

	got := pv.FromConfig(cfg)
	if got[3] != 0.5 || got[4] != 1 {
		t.Errorf("FromConfig = %v", got)
	}
}
