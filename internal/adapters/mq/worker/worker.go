// Package worker runs the recomputation passes behind the dirty-set queue.
//
// Each worker pulls a dirty board key, snapshots the board, recomputes
// every cached point value from the current standings, and writes the
// results back in one shot. Failures put the key back in the queue.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/paceboard/paceboard/internal/domain/model"
	"github.com/paceboard/paceboard/internal/domain/scoring"
	"github.com/paceboard/paceboard/internal/domain/variant"
	"github.com/paceboard/paceboard/pkg/logger"
	"github.com/paceboard/paceboard/pkg/metrics"
)

const (
	defaultWorkerMultiplier = 4 // multiplier for runtime.NumCPU()
	workerShutdownTimeout   = 5 * time.Second
	poolShutdownTimeout     = 30 * time.Second
)

// Boards is the slice of the personal-best index a recomputation pass needs.
type Boards interface {
	Snapshot(ctx context.Context, key model.BoardKey) ([]model.PersonalBest, error)
	ApplyPoints(ctx context.Context, key model.BoardKey, points map[model.RunID]*float64) error
}

// Variants resolves tier and freeze metadata for a board.
type Variants interface {
	Get(ctx context.Context, id string) (variant.Variant, error)
}

// Params resolves fitted distribution parameters for a board.
type Params interface {
	Get(ctx context.Context, key model.BoardKey) *scoring.Params
}

// Queue defines how workers receive and settle dirty keys.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.BoardKey
	Mark(ctx context.Context, key model.BoardKey) bool
	Ack(ctx context.Context, key model.BoardKey)
}

// Worker consumes dirty keys until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	Shutdown(ctx context.Context) error
}

// Recomputer implements Worker.
type Recomputer struct {
	queue    Queue
	boards   Boards
	variants Variants
	params   Params
	name     string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewRecomputer creates a worker with configuration options.
func NewRecomputer(queue Queue, boards Boards, variants Variants, params Params, opts ...Option) *Recomputer {
	w := &Recomputer{
		queue:    queue,
		boards:   boards,
		variants: variants,
		params:   params,
		name:     "recomputer",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("recomputer"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "recomputer" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *Recomputer) Run(ctx context.Context) {
	defer close(w.done)

	keys := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case key, ok := <-keys:
			if !ok {
				return
			}
			if err := w.recompute(ctx, key); err != nil {
				w.logger.Error(ctx, "recomputation failed",
					logger.String("variant", key.VariantID),
					logger.String("kind", string(key.Kind)),
					logger.Error(err),
				)
				// Put the key back so a later pass retries it.
				w.queue.Mark(ctx, key)
			}
			w.queue.Ack(ctx, key)
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *Recomputer) Shutdown(ctx context.Context) error {
	close(w.shutdown)

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// recompute performs one full point pass over a board.
func (w *Recomputer) recompute(ctx context.Context, key model.BoardKey) error {
	start := time.Now()
	defer func() {
		metrics.RecordRecomputeLatency(float64(time.Since(start).Milliseconds()))
	}()

	entries, err := w.boards.Snapshot(ctx, key)
	if err != nil {
		metrics.RecordRecomputeError()
		return fmt.Errorf("snapshot board: %w", err)
	}
	if len(entries) == 0 {
		metrics.RecordRecomputePass()
		return nil
	}

	points := make(map[model.RunID]*float64, len(entries))

	v, err := w.variants.Get(ctx, key.VariantID)
	if err != nil || !v.Ranked(key.Kind) {
		// Unknown or unranked boards carry no points; clear any stale cache.
		for _, e := range entries {
			points[e.RunID] = nil
		}
		if err := w.boards.ApplyPoints(ctx, key, points); err != nil {
			metrics.RecordRecomputeError()
			return fmt.Errorf("clear points: %w", err)
		}
		metrics.RecordRecomputePass()
		return nil
	}

	tier := v.Tier(key.Kind)
	dist := w.distances(ctx, key, tier, entries)
	for _, e := range entries {
		total, ok := scoring.TotalPoints(tier, key.Kind, e.Rank, dist[e.RunID])
		if !ok {
			points[e.RunID] = nil
			continue
		}
		pts := total
		points[e.RunID] = &pts
	}

	if err := w.boards.ApplyPoints(ctx, key, points); err != nil {
		metrics.RecordRecomputeError()
		return fmt.Errorf("apply points: %w", err)
	}
	metrics.RecordRecomputePass()
	return nil
}

// distances computes the distribution portion per run. Small fields use the
// closed-form tier curve against the top time; larger fields need fitted
// parameters, and score zero distance until the fitter has produced some.
func (w *Recomputer) distances(ctx context.Context, key model.BoardKey, tier int, entries []model.PersonalBest) map[model.RunID]float64 {
	dist := make(map[model.RunID]float64, len(entries))

	if len(entries) <= scoring.SmallFieldThreshold {
		top := entries[0].Time
		for _, e := range entries {
			dist[e.RunID] = scoring.SmallFieldPoints(tier, top, e.Time)
		}
		return dist
	}

	p := w.params.Get(ctx, key)
	for _, e := range entries {
		dist[e.RunID] = scoring.DistancePoints(e.Time, p)
	}
	return dist
}

// Pool manages multiple workers draining the same queue.
type Pool struct {
	workers []*Recomputer
	queue   Queue

	shutdown chan struct{}

	logger logger.Logger
}

// NewPool creates a pool of recomputation workers.
func NewPool(workerCount int, queue Queue, boards Boards, variants Variants, params Params) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	pool := &Pool{
		workers:  make([]*Recomputer, workerCount),
		queue:    queue,
		shutdown: make(chan struct{}),
		logger:   logger.Get().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewRecomputer(
			queue, boards, variants, params,
			WithName("recomputer-"+strconv.Itoa(i)),
		)
	}

	metrics.UpdateWorkerCount(workerCount)
	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Stop stops all workers without draining the queue.
func (p *Pool) Stop() {
	close(p.shutdown)
	for _, w := range p.workers {
		close(w.shutdown)
	}
	for _, w := range p.workers {
		select {
		case <-w.done:
		case <-time.After(workerShutdownTimeout):
		}
	}
}

// Shutdown closes the queue and waits for workers to drain it.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	return nil
}
