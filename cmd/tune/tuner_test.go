package main

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/pthm-cable/morphogen/config"
	"github.com/pthm-cable/morphogen/telemetry"
)

func TestTunerObjective(t *testing.T) {
	dir := t.TempDir()
	pv := NewParamVector()
	tlog, err := createTuneLog(dir, pv)
	if err != nil {
		t.Fatal(err)
	}

	// Score favours a high grow rate.
	var scored [][]float64
	score := func(v []float64) float64 {
		scored = append(scored, v)
		return -v[3]
	}
	tu := newTuner(pv, score, tlog, 3)

	low := pv.Normalize([]float64{0.1, 0.1, 0.1, 0.1, 1.5})
	high := pv.Normalize([]float64{0.1, 0.1, 0.1, 0.4, 1.5})
	out := pv.Normalize([]float64{0.1, 0.1, 0.1, 0.3, 5})

	tu.objective(low)
	tu.objective(high)
	tu.objective(out)
	if err := tlog.Close(); err != nil {
		t.Fatal(err)
	}

	if tu.evals != 3 {
		t.Errorf("evals = %d, want 3", tu.evals)
	}
	if got := tu.best.values[3]; got < 0.4-1e-9 || got > 0.4+1e-9 {
		t.Errorf("best grow rate = %v, want 0.4", got)
	}
	if got := scored[2][4]; got != 2 {
		t.Errorf("max growth scored unclamped: %v", got)
	}

	f, err := os.Open(filepath.Join(dir, "tune_log.csv"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 4 {
		t.Fatalf("log has %d rows, want header plus 3", len(rows))
	}
	if rows[0][0] != "eval" || rows[0][1] != "score" || rows[0][2] != "point_rate" || len(rows[0]) != 2+pv.Dim() {
		t.Errorf("unexpected header %v", rows[0])
	}
	if rows[3][0] != "3" || rows[3][6] != "2.000000" {
		t.Errorf("unexpected last row %v", rows[3])
	}
}

func TestSaveResults(t *testing.T) {
	dir := t.TempDir()
	pv := NewParamVector()
	base := config.Default()

	best := []float64{0.2, 0.1, 0.05, 0.3, 1.5}
	if err := saveResults(dir, base, pv, best, telemetry.NewHallOfFame(3)); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.Load(filepath.Join(dir, "best_config.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	op := cfg.Evolution.Operators
	if op.PointRate != 0.2 || op.GrowRate != 0.3 || op.MaxGrowth != 1.5 {
		t.Errorf("best values not applied: %+v", op)
	}
	if base.Evolution.Operators.PointRate == 0.2 {
		t.Error("base config was modified")
	}
	if _, err := telemetry.LoadHallOfFameFromFile(filepath.Join(dir, "hall_of_fame.json")); err != nil {
		t.Errorf("hall of fame not readable: %v", err)
	}
}

func TestSaveResultsWithoutHallOfFame(t *testing.T) {
	dir := t.TempDir()
	if err := saveResults(dir, config.Default(), NewParamVector(), nil, nil); err != nil {
		t.Fatal(err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("expected no files, got %d", len(entries))
	}
}

func TestCmaPopulation(t *testing.T) {
	if got := cmaPopulation(0, 5); got != 11 {
		t.Errorf("auto population = %d, want 11", got)
	}
	if got := cmaPopulation(8, 5); got != 8 {
		t.Errorf("explicit population = %d, want 8", got)
	}
}
