// Package dedupe tracks submission idempotency tokens.
//
// Game servers retry failed submissions; the core engine is not idempotent
// by content, so retries are deduplicated at the ingestion edge using the
// client-supplied submission token.
package dedupe

import (
	"context"
	"sync"
)

// defaultMaxSize bounds the token set when no option overrides it.
const defaultMaxSize = 50_000

// Deduper records seen submission tokens so retries can be answered without
// re-running ingestion.
type Deduper interface {
	// SeenAndRecord atomically checks whether token was seen and records it
	// if not. Returns true if the token was already seen.
	SeenAndRecord(ctx context.Context, token string) bool

	// Unrecord forgets a token so the submission can be retried. Used when a
	// submission was recorded but failed before committing.
	Unrecord(ctx context.Context, token string)

	// Size returns the number of tokens currently tracked.
	Size() int64
}

// inMemoryDeduper implements Deduper with a map plus a fixed ring of tokens
// in arrival order. When the ring is full the oldest token is evicted, which
// bounds memory while keeping recent retries deduplicated.
type inMemoryDeduper struct {
	mu      sync.Mutex
	maxSize int
	seen    map[string]struct{}
	ring    []string
	next    int // ring slot the next token will occupy
}

// NewInMemoryDeduper creates a deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{maxSize: defaultMaxSize}
	for _, opt := range opts {
		opt(d)
	}

	d.seen = make(map[string]struct{}, d.maxSize)
	d.ring = make([]string, d.maxSize)
	return d
}

// SeenAndRecord implements Deduper.SeenAndRecord.
func (d *inMemoryDeduper) SeenAndRecord(ctx context.Context, token string) bool {
	if token == "" {
		return false // untokened submissions are never deduplicated
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[token]; ok {
		return true
	}

	// Evict whatever occupied this ring slot a full lap ago.
	if old := d.ring[d.next]; old != "" {
		delete(d.seen, old)
	}
	d.ring[d.next] = token
	d.next = (d.next + 1) % len(d.ring)
	d.seen[token] = struct{}{}
	return false
}

// Unrecord implements Deduper.Unrecord. The ring slot is left in place; it
// ages out naturally and the map is the source of truth for membership.
func (d *inMemoryDeduper) Unrecord(ctx context.Context, token string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.seen, token)
}

// Size implements Deduper.Size.
func (d *inMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.seen))
}
