package repository

import (
	"context"
	"sync"
	"time"

	"github.com/paceboard/paceboard/internal/domain/model"
)

// validateRun guards the append path for both run store implementations.
func validateRun(run model.Run) error {
	switch {
	case run.PlayerID == "", run.ServerID == "", run.VariantID == "":
		return ErrInvalidRun
	case run.Time <= 0:
		return ErrInvalidRun
	case !run.Status.Valid():
		return ErrInvalidRun
	}
	return nil
}

// matchesBoard reports whether the run competes on the board and is
// currently legitimate.
func matchesBoard(run model.Run, key model.BoardKey) bool {
	if run.Status != model.StatusLegitimate || run.VariantID != key.VariantID {
		return false
	}
	return key.Kind != model.KindZeroAid || run.ZeroAid()
}

type playerVariant struct {
	player  string
	variant string
}

// MemRunStore implements RunStore in memory. Used by tests and deployments
// without a data directory; semantics match the bolt-backed store exactly.
type MemRunStore struct {
	mu      sync.RWMutex
	runs    []model.Run // runs[i].ID == i+1
	byOwner map[playerVariant][]model.RunID
}

// NewMemRunStore constructs an empty in-memory run store.
func NewMemRunStore() *MemRunStore {
	return &MemRunStore{byOwner: make(map[playerVariant][]model.RunID)}
}

// Append implements RunStore.Append.
func (s *MemRunStore) Append(ctx context.Context, run model.Run) (model.RunID, error) {
	if err := validateRun(run); err != nil {
		return 0, err
	}
	if run.SubmittedAt.IsZero() {
		run.SubmittedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	run.ID = model.RunID(len(s.runs) + 1)
	s.runs = append(s.runs, run)

	owner := playerVariant{player: run.PlayerID, variant: run.VariantID}
	s.byOwner[owner] = append(s.byOwner[owner], run.ID)
	return run.ID, nil
}

// Get implements RunStore.Get.
func (s *MemRunStore) Get(ctx context.Context, id model.RunID) (model.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if id < 1 || int(id) > len(s.runs) {
		return model.Run{}, ErrRunNotFound
	}
	return s.runs[id-1], nil
}

// Transition implements RunStore.Transition.
func (s *MemRunStore) Transition(ctx context.Context, id model.RunID, next model.RunStatus) (model.Run, error) {
	if !next.Valid() {
		return model.Run{}, ErrInvalidTransition
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if id < 1 || int(id) > len(s.runs) {
		return model.Run{}, ErrRunNotFound
	}
	run := s.runs[id-1]
	if !run.Status.CanTransitionTo(next) {
		return model.Run{}, ErrInvalidTransition
	}
	run.Status = next
	s.runs[id-1] = run
	return run, nil
}

// BestLegitimate implements RunStore.BestLegitimate.
func (s *MemRunStore) BestLegitimate(ctx context.Context, player string, key model.BoardKey) (model.Run, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best model.Run
	var found bool
	for _, id := range s.byOwner[playerVariant{player: player, variant: key.VariantID}] {
		run := s.runs[id-1]
		if !matchesBoard(run, key) {
			continue
		}
		if !found || run.FasterThan(best) {
			best = run
			found = true
		}
	}
	return best, found, nil
}

// Count implements RunStore.Count.
func (s *MemRunStore) Count(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.runs)
}

var _ RunStore = (*MemRunStore)(nil)
