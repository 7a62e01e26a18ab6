// Package service wires the run store, personal-best index, variant
// registry, dirty-set queue and recomputation workers into the surface
// the HTTP API consumes.
package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	dirtyqueue "github.com/paceboard/paceboard/internal/adapters/mq/queue"
	workerpool "github.com/paceboard/paceboard/internal/adapters/mq/worker"
	"github.com/paceboard/paceboard/internal/adapters/repository"
	"github.com/paceboard/paceboard/internal/domain/dedupe"
	"github.com/paceboard/paceboard/internal/domain/model"
	"github.com/paceboard/paceboard/internal/domain/scoring"
	"github.com/paceboard/paceboard/internal/domain/types"
	"github.com/paceboard/paceboard/internal/domain/variant"
	"github.com/paceboard/paceboard/pkg/logger"
	"github.com/paceboard/paceboard/pkg/metrics"
)

// Service implements the API dependencies for the leaderboard engine.
type Service struct {
	mu sync.RWMutex

	// Core components
	runs     repository.RunStore
	index    repository.BestIndex
	variants variant.Registry
	params   variant.ParamsCache
	deduper  dedupe.Deduper
	queue    dirtyqueue.Queue
	pool     *workerpool.Pool

	// Configuration
	workerCount int
	queueSize   int
	dedupeSize  int
	dataDir     string
	seed        []variant.Variant

	// State
	started bool
	stopCh  chan struct{}

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of recomputation workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize caps the dirty-set queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the submission dedupe cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithDataDir selects a directory for the durable run store. Without one,
// runs live in memory only.
func WithDataDir(dir string) Option {
	return func(s *Service) {
		s.dataDir = dir
	}
}

// WithVariants seeds the registry at startup.
func WithVariants(seed ...variant.Variant) Option {
	return func(s *Service) {
		s.seed = seed
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU() * 2,
		queueSize:   100000,
		dedupeSize:  50000,
		stopCh:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting leaderboard engine...")

	if s.dataDir != "" {
		store, err := repository.OpenBoltRunStore(filepath.Join(s.dataDir, "runs.db"))
		if err != nil {
			return fmt.Errorf("open run store: %w", err)
		}
		s.runs = store
		s.logger.Info(ctx, "using bolt run store", logger.String("dataDir", s.dataDir))
	} else {
		s.runs = repository.NewMemRunStore()
		s.logger.Info(ctx, "using in-memory run store")
	}

	s.index = repository.NewTreapIndex()
	s.variants = variant.NewInMemoryRegistry(s.seed...)
	s.params = variant.NewInMemoryParamsCache()
	s.deduper = dedupe.NewInMemoryDeduper(
		dedupe.WithMaxSize(s.dedupeSize),
	)
	s.queue = dirtyqueue.NewDirtySet(
		dirtyqueue.WithCapacity(s.queueSize),
	)

	s.pool = workerpool.NewPool(s.workerCount, s.queue, s.index, s.variants, s.params)
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "leaderboard engine started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
	)
	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping leaderboard engine...")

	// Closing the queue lets workers drain remaining keys before exiting.
	if s.pool != nil {
		_ = s.pool.Shutdown(ctx)
	}
	if closer, ok := s.runs.(interface{ Close() error }); ok {
		_ = closer.Close()
	}

	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}

	s.started = false
	s.logger.Info(ctx, "leaderboard engine stopped")
}

// SeenAndRecord atomically checks whether a submission token was seen and
// records it if not. Returns true if the token was already seen.
func (s *Service) SeenAndRecord(ctx context.Context, token string) bool {
	seen := s.deduper.SeenAndRecord(ctx, token)
	if seen {
		metrics.RecordSubmissionDuplicate()
	}
	return seen
}

// Unrecord removes a submission token so a failed submission can be retried.
func (s *Service) Unrecord(ctx context.Context, token string) {
	s.deduper.Unrecord(ctx, token)
}

// Submit persists a run and, when it is legitimate, feeds it through the
// personal-best index and dirties the affected boards.
func (s *Service) Submit(ctx context.Context, run model.Run) (model.Run, error) {
	v, err := s.variants.Get(ctx, run.VariantID)
	if err != nil {
		return model.Run{}, fmt.Errorf("submit: %w", err)
	}

	id, err := s.runs.Append(ctx, run)
	if err != nil {
		return model.Run{}, fmt.Errorf("submit: %w", err)
	}
	stored, err := s.runs.Get(ctx, id)
	if err != nil {
		return model.Run{}, fmt.Errorf("submit: %w", err)
	}
	metrics.RecordSubmission(string(stored.Status))

	if stored.Status == model.StatusLegitimate {
		if err := s.evaluate(ctx, v, stored); err != nil {
			return model.Run{}, fmt.Errorf("submit: %w", err)
		}
	}
	return stored, nil
}

// evaluate offers a legitimate run to each of its boards and dirties the
// ones where it became the personal best.
func (s *Service) evaluate(ctx context.Context, v variant.Variant, run model.Run) error {
	for _, key := range run.Keys() {
		improved, err := s.index.Evaluate(ctx, key, run, s.seedPoints(v, key.Kind))
		if err != nil {
			return fmt.Errorf("evaluate %s/%s: %w", key.VariantID, key.Kind, err)
		}
		if improved {
			if err := s.markDirty(ctx, key); err != nil {
				return err
			}
		}
	}
	return nil
}

// markDirty retry parameters. Rejections only happen when the queue is
// closed or a burst of distinct boards fills it, so a couple of short
// retries clear the transient case.
const (
	markAttempts   = 3
	markRetryDelay = 5 * time.Millisecond
)

// markDirty hands a board key to the recomputation queue. The personal-best
// write has already committed by the time this runs, so a dropped mark means
// a permanently stale board; rejections are retried and then surfaced as an
// error rather than discarded.
func (s *Service) markDirty(ctx context.Context, key model.BoardKey) error {
	for attempt := 0; attempt < markAttempts; attempt++ {
		if s.queue.Mark(ctx, key) {
			return nil
		}
		if s.queue.IsClosed() {
			break // no mark will ever succeed again
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("mark dirty %s/%s: %w", key.VariantID, key.Kind, ctx.Err())
		case <-time.After(markRetryDelay):
		}
	}

	metrics.RecordErrorByComponent("service", "mark_rejected")
	s.logger.Error(ctx, "board could not be queued for recomputation",
		logger.String("variant", key.VariantID),
		logger.String("kind", string(key.Kind)),
	)
	return fmt.Errorf("mark dirty %s/%s: %w", key.VariantID, key.Kind, ErrQueueRejected)
}

// seedPoints returns the provisional tier-base points a fresh personal best
// carries until the next recomputation pass, or nil on unranked boards.
func (s *Service) seedPoints(v variant.Variant, kind model.RankingKind) *float64 {
	if !v.Ranked(kind) {
		return nil
	}
	base, ok := scoring.BasePoints(v.Tier(kind), kind)
	if !ok {
		return nil
	}
	return &base
}

// Transition moves a run to a new legitimacy status and repairs the
// personal-best index accordingly.
func (s *Service) Transition(ctx context.Context, id model.RunID, next model.RunStatus) (model.Run, error) {
	prev, err := s.runs.Get(ctx, id)
	if err != nil {
		return model.Run{}, fmt.Errorf("transition: %w", err)
	}

	run, err := s.runs.Transition(ctx, id, next)
	if err != nil {
		return model.Run{}, fmt.Errorf("transition: %w", err)
	}
	metrics.RecordTransition(string(prev.Status), string(next))

	v, err := s.variants.Get(ctx, run.VariantID)
	if err != nil {
		// The variant disappeared from the registry; the run store is still
		// consistent, boards for it no longer exist to repair.
		s.logger.Warn(ctx, "transition on unknown variant",
			logger.String("variant", run.VariantID),
			logger.Any("run", id),
		)
		return run, nil
	}

	switch {
	case next == model.StatusLegitimate:
		if err := s.evaluate(ctx, v, run); err != nil {
			return model.Run{}, fmt.Errorf("transition: %w", err)
		}
	case next == model.StatusRejected && prev.Status == model.StatusLegitimate:
		if err := s.invalidate(ctx, v, run); err != nil {
			return model.Run{}, fmt.Errorf("transition: %w", err)
		}
	}
	return run, nil
}

// invalidate removes a rejected run from any board where it held the
// personal best, promoting the player's next-best legitimate run.
func (s *Service) invalidate(ctx context.Context, v variant.Variant, run model.Run) error {
	for _, key := range run.Keys() {
		pb, err := s.index.PersonalBest(ctx, key, run.PlayerID)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("invalidate %s/%s: %w", key.VariantID, key.Kind, err)
		}
		if pb.RunID != run.ID {
			continue // the rejected run was not the board entry
		}

		var replacement *model.Run
		if best, ok, err := s.runs.BestLegitimate(ctx, run.PlayerID, key); err != nil {
			return fmt.Errorf("invalidate %s/%s: %w", key.VariantID, key.Kind, err)
		} else if ok {
			replacement = &best
		}
		if err := s.index.Invalidate(ctx, key, run.PlayerID, replacement, s.seedPoints(v, key.Kind)); err != nil {
			return fmt.Errorf("invalidate %s/%s: %w", key.VariantID, key.Kind, err)
		}
		if err := s.markDirty(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

// GetRun returns a stored run by id.
func (s *Service) GetRun(ctx context.Context, id model.RunID) (model.Run, error) {
	return s.runs.Get(ctx, id)
}

// Leaderboard returns one page of a board, best first.
func (s *Service) Leaderboard(ctx context.Context, variantID string, kind model.RankingKind, page, perPage int) ([]types.LeaderboardEntry, error) {
	if !kind.Valid() {
		return nil, model.ErrInvalidKind
	}

	key := model.BoardKey{VariantID: variantID, Kind: kind}
	bests, err := s.index.Page(ctx, key, page, perPage)
	if err != nil {
		return nil, err
	}

	entries := make([]types.LeaderboardEntry, len(bests))
	for i, pb := range bests {
		entries[i] = types.LeaderboardEntry{
			Rank:     pb.Rank,
			PlayerID: pb.PlayerID,
			RunID:    uint64(pb.RunID),
			Time:     pb.Time,
			Points:   pb.Points,
		}
	}
	return entries, nil
}

// PersonalBest returns a player's standing on one board.
func (s *Service) PersonalBest(ctx context.Context, variantID string, kind model.RankingKind, player string) (types.PersonalBest, error) {
	if !kind.Valid() {
		return types.PersonalBest{}, model.ErrInvalidKind
	}

	key := model.BoardKey{VariantID: variantID, Kind: kind}
	pb, err := s.index.PersonalBest(ctx, key, player)
	if err != nil {
		return types.PersonalBest{}, err
	}
	return types.PersonalBest{
		PlayerID: pb.PlayerID,
		RunID:    uint64(pb.RunID),
		Time:     pb.Time,
		Rank:     pb.Rank,
		Points:   pb.Points,
	}, nil
}

// UpsertVariant replaces a variant's metadata and dirties both of its
// boards so cached points follow the tier change.
func (s *Service) UpsertVariant(ctx context.Context, v variant.Variant) error {
	if err := s.variants.Upsert(ctx, v); err != nil {
		return err
	}
	for _, kind := range model.Kinds() {
		if err := s.markDirty(ctx, model.BoardKey{VariantID: v.ID, Kind: kind}); err != nil {
			return err
		}
	}
	return nil
}

// GetVariant returns a variant's metadata.
func (s *Service) GetVariant(ctx context.Context, id string) (variant.Variant, error) {
	return s.variants.Get(ctx, id)
}

// ReplaceDistribution swaps a board's fitted distribution parameters and
// dirties the board. A nil value clears the parameters.
func (s *Service) ReplaceDistribution(ctx context.Context, key model.BoardKey, p *scoring.Params) error {
	if !key.Kind.Valid() {
		return model.ErrInvalidKind
	}
	s.params.Replace(ctx, key, p)
	return s.markDirty(ctx, key)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
	}

	if s.started {
		stats["dirtyBoards"] = s.queue.Len(ctx)
		stats["totalRuns"] = s.runs.Count(ctx)
		stats["totalVariants"] = s.variants.Count(ctx)
		stats["boards"] = len(s.index.Keys(ctx))
	}
	return stats
}

// Size returns the current number of entries in the deduper.
func (s *Service) Size() int64 {
	if s.deduper == nil {
		return 0
	}
	return s.deduper.Size()
}
