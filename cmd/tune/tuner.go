package main

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pthm-cable/morphogen/config"
	"github.com/pthm-cable/morphogen/telemetry"
)

var errOutputRequired = errors.New("--output is required")

// trial is one scored parameter vector. Lower scores are better.
type trial struct {
	score  float64
	values []float64
}

// tuneLog appends one row per evaluation: eval, score, then every parameter
// in ParamVector order.
type tuneLog struct {
	f *os.File
	w *csv.Writer
}

func createTuneLog(dir string, params *ParamVector) (*tuneLog, error) {
	f, err := os.Create(filepath.Join(dir, "tune_log.csv"))
	if err != nil {
		return nil, fmt.Errorf("creating tune log: %w", err)
	}
	header := []string{"eval", "score"}
	for _, spec := range params.Specs {
		header = append(header, spec.Name)
	}
	l := &tuneLog{f: f, w: csv.NewWriter(f)}
	if err := l.write(header); err != nil {
		f.Close()
		return nil, err
	}
	return l, nil
}

func (l *tuneLog) record(eval int, t trial) error {
	row := []string{strconv.Itoa(eval), strconv.FormatFloat(t.score, 'f', 6, 64)}
	for _, v := range t.values {
		row = append(row, strconv.FormatFloat(v, 'f', 6, 64))
	}
	return l.write(row)
}

// write flushes after every row so an interrupted run keeps its history.
func (l *tuneLog) write(row []string) error {
	if err := l.w.Write(row); err != nil {
		return err
	}
	l.w.Flush()
	return l.w.Error()
}

func (l *tuneLog) Close() error {
	l.w.Flush()
	return errors.Join(l.w.Error(), l.f.Close())
}

// tuner wraps a score function as a CMA-ES objective over normalized
// vectors, tracking the best clamped vector seen.
type tuner struct {
	params   *ParamVector
	score    func([]float64) float64
	log      *tuneLog
	maxEvals int

	start time.Time
	evals int
	best  trial
}

func newTuner(params *ParamVector, score func([]float64) float64, log *tuneLog, maxEvals int) *tuner {
	return &tuner{
		params:   params,
		score:    score,
		log:      log,
		maxEvals: maxEvals,
		start:    time.Now(),
	}
}

// objective scores a normalized vector. The vector is clamped before
// scoring so the logged values are the ones actually run.
func (t *tuner) objective(x []float64) float64 {
	values := t.params.Clamp(t.params.Denormalize(x))
	cur := trial{score: t.score(values), values: values}
	t.evals++

	if t.best.values == nil || cur.score < t.best.score {
		t.best = cur
	}
	if t.log != nil {
		if err := t.log.record(t.evals, cur); err != nil {
			slog.Warn("failed to write tune log", "error", err)
		}
	}

	elapsed := time.Since(t.start)
	remaining := time.Duration(max(t.maxEvals-t.evals, 0)) * (elapsed / time.Duration(t.evals))
	slog.Info("eval",
		"n", t.evals,
		"of", t.maxEvals,
		"best_fitness", -cur.score,
		"overall_best", -t.best.score,
		"elapsed", elapsed.Round(time.Second),
		"eta", remaining.Round(time.Second),
	)
	return cur.score
}

func (t *tuner) summarize(best trial) {
	attrs := []any{"evals", t.evals, "elapsed", time.Since(t.start).Round(time.Second), "best_fitness", -best.score}
	for i, spec := range t.params.Specs {
		if i < len(best.values) {
			attrs = append(attrs, spec.Name, best.values[i])
		}
	}
	slog.Info("tuning complete", attrs...)
}

// saveResults writes best_config.yaml (the base config with best applied)
// and, when a run produced one, the hall of fame of the best evaluation.
func saveResults(dir string, base *config.Config, params *ParamVector, best []float64, hof *telemetry.HallOfFame) error {
	if best != nil {
		cfg := *base
		params.ApplyToConfig(&cfg, best)
		path := filepath.Join(dir, "best_config.yaml")
		if err := cfg.WriteYAML(path); err != nil {
			return fmt.Errorf("writing best config: %w", err)
		}
		slog.Info("best config saved", "path", path)
	}

	if hof == nil {
		return nil
	}
	data, err := json.MarshalIndent(hof, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling hall of fame: %w", err)
	}
	path := filepath.Join(dir, "hall_of_fame.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing hall of fame: %w", err)
	}
	slog.Info("hall of fame saved", "path", path)
	return nil
}
