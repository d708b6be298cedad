package telemetry

import (
	"log/slog"
	"time"
)

// Phase names for one generation.
const (
	PhaseEvaluate = "evaluate"
	PhaseReport   = "report"
	PhasePersist  = "persist"
	PhaseBreed    = "breed"
)

// PerfSample holds timing data for a single generation.
type PerfSample struct {
	Duration    time.Duration
	Evaluations int
	Phases      map[string]time.Duration
}

// PerfCollector tracks generation timings over a rolling window.
type PerfCollector struct {
	windowSize    int
	samples       []PerfSample
	writeIndex    int
	sampleCount   int
	currentPhases map[string]time.Duration
	genStart      time.Time
	phaseStart    time.Time
	lastPhase     string
}

// NewPerfCollector creates a collector averaging over the last windowSize
// generations.
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 10
	}
	return &PerfCollector{
		windowSize:    windowSize,
		samples:       make([]PerfSample, windowSize),
		currentPhases: make(map[string]time.Duration),
	}
}

// StartGeneration begins timing a new generation.
func (p *PerfCollector) StartGeneration() {
	p.genStart = time.Now()
	p.currentPhases = make(map[string]time.Duration)
	p.lastPhase = ""
}

// StartPhase ends the running phase, if any, and starts timing phase.
func (p *PerfCollector) StartPhase(phase string) {
	now := time.Now()
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
	}
	p.phaseStart = now
	p.lastPhase = phase
}

// EndGeneration records the sample. evaluations is the number of episodes
// run during the generation.
func (p *PerfCollector) EndGeneration(evaluations int) {
	now := time.Now()
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
	}

	p.samples[p.writeIndex] = PerfSample{
		Duration:    now.Sub(p.genStart),
		Evaluations: evaluations,
		Phases:      p.currentPhases,
	}
	p.writeIndex = (p.writeIndex + 1) % p.windowSize
	if p.sampleCount < p.windowSize {
		p.sampleCount++
	}
}

// PerfStats holds aggregated performance statistics.
type PerfStats struct {
	AvgGeneration time.Duration
	MinGeneration time.Duration
	MaxGeneration time.Duration

	// Average duration and share of generation time per phase
	PhaseAvg map[string]time.Duration
	PhasePct map[string]float64

	EvaluationsPerSecond float64
}

// Stats computes aggregated statistics over the current window.
func (p *PerfCollector) Stats() PerfStats {
	if p.sampleCount == 0 {
		return PerfStats{
			PhaseAvg: make(map[string]time.Duration),
			PhasePct: make(map[string]float64),
		}
	}

	var total, minGen, maxGen time.Duration
	var evals int
	phaseSum := make(map[string]time.Duration)
	for i := 0; i < p.sampleCount; i++ {
		s := p.samples[i]
		total += s.Duration
		evals += s.Evaluations
		if i == 0 || s.Duration < minGen {
			minGen = s.Duration
		}
		if s.Duration > maxGen {
			maxGen = s.Duration
		}
		for phase, d := range s.Phases {
			phaseSum[phase] += d
		}
	}

	avg := total / time.Duration(p.sampleCount)
	phaseAvg := make(map[string]time.Duration)
	phasePct := make(map[string]float64)
	for phase, sum := range phaseSum {
		phaseAvg[phase] = sum / time.Duration(p.sampleCount)
		if avg > 0 {
			phasePct[phase] = float64(phaseAvg[phase]) / float64(avg) * 100
		}
	}

	var eps float64
	if total > 0 {
		eps = float64(evals) / total.Seconds()
	}

	return PerfStats{
		AvgGeneration:        avg,
		MinGeneration:        minGen,
		MaxGeneration:        maxGen,
		PhaseAvg:             phaseAvg,
		PhasePct:             phasePct,
		EvaluationsPerSecond: eps,
	}
}

// LogValue implements slog.LogValuer for structured logging.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int64("avg_generation_ms", s.AvgGeneration.Milliseconds()),
		slog.Int64("min_generation_ms", s.MinGeneration.Milliseconds()),
		slog.Int64("max_generation_ms", s.MaxGeneration.Milliseconds()),
		slog.Float64("evaluations_per_sec", s.EvaluationsPerSecond),
	}
	for phase, pct := range s.PhasePct {
		attrs = append(attrs, slog.Float64(phase+"_pct", pct))
	}
	return slog.GroupValue(attrs...)
}

// PerfStatsCSV is a flat struct for CSV export of performance stats.
type PerfStatsCSV struct {
	Generation        int     `csv:"generation"`
	AvgGenerationMS   int64   `csv:"avg_generation_ms"`
	MinGenerationMS   int64   `csv:"min_generation_ms"`
	MaxGenerationMS   int64   `csv:"max_generation_ms"`
	EvaluationsPerSec float64 `csv:"evaluations_per_sec"`
	EvaluatePct       float64 `csv:"evaluate_pct"`
	ReportPct         float64 `csv:"report_pct"`
	PersistPct        float64 `csv:"persist_pct"`
	BreedPct          float64 `csv:"breed_pct"`
}

// ToCSV converts PerfStats to a flat CSV-friendly struct.
func (s PerfStats) ToCSV(generation int) PerfStatsCSV {
	return PerfStatsCSV{
		Generation:        generation,
		AvgGenerationMS:   s.AvgGeneration.Milliseconds(),
		MinGenerationMS:   s.MinGeneration.Milliseconds(),
		MaxGenerationMS:   s.MaxGeneration.Milliseconds(),
		EvaluationsPerSec: s.EvaluationsPerSecond,
		EvaluatePct:       s.PhasePct[PhaseEvaluate],
		ReportPct:         s.PhasePct[PhaseReport],
		PersistPct:        s.PhasePct[PhasePersist],
		BreedPct:          s.PhasePct[PhaseBreed],
	}
}
