package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/pthm-cable/morphogen/creature"
)

// Observer receives one call per finished episode. Calls may be concurrent.
type Observer interface {
	ObserveEpisode(o Outcome, elapsed time.Duration)
}

// Option configures a Pool.
type Option func(*Pool)

// WithObserver reports every episode to o.
func WithObserver(o Observer) Option {
	return func(p *Pool) { p.observer = o }
}

// WithLogger sets the logger used for recovered episode failures.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pool) { p.logger = l }
}

// Pool evaluates individuals on a fixed set of engines. Each worker owns one
// engine for the lifetime of the pool.
type Pool struct {
	engines  []Engine
	episode  Episode
	observer Observer
	logger   *slog.Logger
}

// NewPool creates workers engines with factory. On failure every engine
// created so far is closed.
func NewPool(workers int, factory EngineFactory, ep Episode, opts ...Option) (*Pool, error) {
	if workers <= 0 {
		return nil, fmt.Errorf("pool needs at least one worker, got %d", workers)
	}
	if err := ep.Validate(); err != nil {
		return nil, err
	}

	p := &Pool{episode: ep, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	for i := 0; i < workers; i++ {
		e, err := factory(i)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("creating engine %d: %w", i, err)
		}
		p.engines = append(p.engines, e)
	}
	return p, nil
}

// Workers returns the number of engines.
func (p *Pool) Workers() int {
	return len(p.engines)
}

// Evaluate runs one episode per individual and returns evaluated clones in
// submission order; the inputs are not modified. Work is split into batches
// of at most Workers() individuals, item k of a batch running on engine k.
// Each batch completes before the next starts, and ctx is checked between
// batches.
func (p *Pool) Evaluate(ctx context.Context, inds []*creature.Individual) ([]*creature.Individual, error) {
	out := make([]*creature.Individual, len(inds))
	workers := len(p.engines)

	for start := 0; start < len(inds); start += workers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(start+workers, len(inds))

		batch := pool.New().WithMaxGoroutines(workers).WithErrors()
		for k := start; k < end; k++ {
			engine := p.engines[k-start]
			ind := inds[k].Clone()
			batch.Go(func() error {
				t0 := time.Now()
				outcome, err := RunEpisode(engine, ind, p.episode)
				if err != nil {
					return fmt.Errorf("individual %d (%s): %w", k, ind.ID, err)
				}
				if p.observer != nil {
					p.observer.ObserveEpisode(outcome, time.Since(t0))
				}
				if outcome.Failed() {
					p.logger.Debug("episode failed",
						"individual", ind.ID.String(),
						"frames", outcome.Frames,
						"escaped", outcome.Escaped,
						"error", outcome.Failure,
					)
				}
				out[k] = ind
				return nil
			})
		}
		if err := batch.Wait(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Close closes every engine.
func (p *Pool) Close() error {
	var errs []error
	for _, e := range p.engines {
		if err := e.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	p.engines = nil
	return errors.Join(errs...)
}
