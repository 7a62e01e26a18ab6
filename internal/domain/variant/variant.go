// Package variant holds scoring-relevant course variant metadata.
//
// The registry is read-mostly: administrators change tiers or freeze boards
// rarely, while every submission and every recomputation pass reads it.
package variant

import (
	"context"
	"sync"

	"github.com/paceboard/paceboard/internal/domain/model"
)

// Tier bounds. Tiers 9 and 10 exist for labeling impossibly hard variants
// but never score; tier 1 is below the scored range as well.
const (
	MinTier       = 1
	MaxTier       = 10
	minScoredTier = 2
	maxScoredTier = 8
)

// Variant is the scoring-relevant metadata for one course variant. Each of
// the two boards has its own difficulty tier and freeze flag.
type Variant struct {
	ID                 string
	UnrestrictedTier   int
	ZeroAidTier        int
	UnrestrictedFrozen bool
	ZeroAidFrozen      bool
}

// Tier returns the variant's tier for one board.
func (v Variant) Tier(kind model.RankingKind) int {
	if kind == model.KindZeroAid {
		return v.ZeroAidTier
	}
	return v.UnrestrictedTier
}

// Ranked reports whether the board assigns points at all: the tier must be
// in the scored range and the board must not be administratively frozen.
func (v Variant) Ranked(kind model.RankingKind) bool {
	frozen := v.UnrestrictedFrozen
	if kind == model.KindZeroAid {
		frozen = v.ZeroAidFrozen
	}
	tier := v.Tier(kind)
	return tier >= minScoredTier && tier <= maxScoredTier && !frozen
}

// Registry provides lookups of variant metadata.
type Registry interface {
	// Get returns the variant's metadata, or ErrUnknownVariant.
	Get(ctx context.Context, id string) (Variant, error)

	// Upsert replaces the whole record for a variant. Used by the admin
	// surface; returns ErrInvalidVariant for out-of-range tiers.
	Upsert(ctx context.Context, v Variant) error

	// Count returns the number of registered variants.
	Count(ctx context.Context) int
}

// InMemoryRegistry implements Registry with a mutex-guarded map.
type InMemoryRegistry struct {
	mu       sync.RWMutex
	variants map[string]Variant
}

// NewInMemoryRegistry creates an empty registry, optionally seeded.
func NewInMemoryRegistry(seed ...Variant) *InMemoryRegistry {
	r := &InMemoryRegistry{variants: make(map[string]Variant, len(seed))}
	for _, v := range seed {
		r.variants[v.ID] = v
	}
	return r
}

// Get implements Registry.Get.
func (r *InMemoryRegistry) Get(ctx context.Context, id string) (Variant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.variants[id]
	if !ok {
		return Variant{}, ErrUnknownVariant
	}
	return v, nil
}

// Upsert implements Registry.Upsert.
func (r *InMemoryRegistry) Upsert(ctx context.Context, v Variant) error {
	if v.ID == "" {
		return ErrInvalidVariant
	}
	for _, tier := range []int{v.UnrestrictedTier, v.ZeroAidTier} {
		if tier < MinTier || tier > MaxTier {
			return ErrInvalidVariant
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.variants[v.ID] = v
	return nil
}

// Count implements Registry.Count.
func (r *InMemoryRegistry) Count(ctx context.Context) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.variants)
}
