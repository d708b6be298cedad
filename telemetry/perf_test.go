package telemetry

import (
	"testing"
	"time"
)

func TestPerfCollector_BasicTiming(t *testing.T) {
	pc := NewPerfCollector(10)

	for i := 0; i < 3; i++ {
		pc.StartGeneration()
		pc.StartPhase(PhaseEvaluate)
		time.Sleep(200 * time.Microsecond)
		pc.StartPhase(PhaseBreed)
		time.Sleep(100 * time.Microsecond)
		pc.EndGeneration(10)
	}

	stats := pc.Stats()
	if stats.AvgGeneration <= 0 {
		t.Error("expected positive average generation duration")
	}
	if _, ok := stats.PhaseAvg[PhaseEvaluate]; !ok {
		t.Error("expected evaluate phase to be tracked")
	}
	if _, ok := stats.PhaseAvg[PhaseBreed]; !ok {
		t.Error("expected breed phase to be tracked")
	}
	if stats.EvaluationsPerSecond <= 0 {
		t.Error("expected positive evaluation throughput")
	}
}

func TestPerfCollector_RollingWindow(t *testing.T) {
	pc := NewPerfCollector(2)

	for i := 0; i < 5; i++ {
		pc.StartGeneration()
		pc.StartPhase(PhaseEvaluate)
		pc.EndGeneration(1)
	}

	if pc.sampleCount != 2 {
		t.Errorf("sample count = %d, want window size 2", pc.sampleCount)
	}
	if pc.Stats().MinGeneration > pc.Stats().MaxGeneration {
		t.Error("min generation exceeds max")
	}
}

func TestPerfCollector_PhasePercentages(t *testing.T) {
	pc := NewPerfCollector(10)

	for i := 0; i < 3; i++ {
		pc.StartGeneration()
		pc.StartPhase(PhaseReport)
		time.Sleep(10 * time.Microsecond)
		pc.StartPhase(PhaseEvaluate)
		time.Sleep(2 * time.Millisecond)
		pc.EndGeneration(4)
	}

	stats := pc.Stats()
	if stats.PhasePct[PhaseEvaluate] <= stats.PhasePct[PhaseReport] {
		t.Errorf("expected evaluate (%v%%) > report (%v%%)",
			stats.PhasePct[PhaseEvaluate], stats.PhasePct[PhaseReport])
	}

	row := stats.ToCSV(7)
	if row.Generation != 7 || row.EvaluatePct != stats.PhasePct[PhaseEvaluate] {
		t.Errorf("unexpected csv row: %+v", row)
	}
}

func TestPerfCollector_EmptyStats(t *testing.T) {
	stats := NewPerfCollector(10).Stats()

	if stats.AvgGeneration != 0 {
		t.Error("expected zero average for empty collector")
	}
	if stats.PhaseAvg == nil || stats.PhasePct == nil {
		t.Error("expected non-nil phase maps")
	}
}
