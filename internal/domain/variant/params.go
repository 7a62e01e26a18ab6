package variant

import (
	"context"
	"sync"

	"github.com/paceboard/paceboard/internal/domain/model"
	"github.com/paceboard/paceboard/internal/domain/scoring"
)

// ParamsCache stores the fitted distribution parameters per board. The
// external fitting job replaces entries wholesale; readers use whichever
// snapshot is visible at read time. There is deliberately no transactional
// coupling with the fitter.
type ParamsCache interface {
	// Get returns the current parameters for a board, or nil if none are
	// cached (too few samples fitted yet).
	Get(ctx context.Context, key model.BoardKey) *scoring.Params

	// Replace swaps the parameters for a board. A nil value clears them.
	Replace(ctx context.Context, key model.BoardKey, p *scoring.Params)
}

// InMemoryParamsCache implements ParamsCache with a mutex-guarded map of
// immutable snapshots.
type InMemoryParamsCache struct {
	mu     sync.RWMutex
	params map[model.BoardKey]*scoring.Params
}

// NewInMemoryParamsCache creates an empty cache.
func NewInMemoryParamsCache() *InMemoryParamsCache {
	return &InMemoryParamsCache{params: make(map[model.BoardKey]*scoring.Params)}
}

// Get implements ParamsCache.Get. The returned pointer is a snapshot; a
// concurrent Replace never mutates it.
func (c *InMemoryParamsCache) Get(ctx context.Context, key model.BoardKey) *scoring.Params {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.params[key]
}

// Replace implements ParamsCache.Replace. The value is copied so later
// caller mutations cannot leak into published snapshots.
func (c *InMemoryParamsCache) Replace(ctx context.Context, key model.BoardKey, p *scoring.Params) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if p == nil {
		delete(c.params, key)
		return
	}
	cp := *p
	c.params[key] = &cp
}
