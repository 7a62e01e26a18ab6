// Package queue implements the dirty-set queue that drives deferred
// point recomputation.
//
// A board key enters the set when something that affects its points
// changes, and leaves it when a recomputation pass finishes. Membership
// is idempotent: marking an already-dirty board is a no-op, so a burst
// of submissions against one board costs a single recomputation.
package queue

import (
	"context"
	"sync"

	"github.com/paceboard/paceboard/internal/domain/model"
	"github.com/paceboard/paceboard/pkg/metrics"
)

const defaultCapacity = 100000

// Key identifies a dirty board.
type Key = model.BoardKey

// keyState tracks where a dirty key is in its lifecycle.
type keyState uint8

const (
	// statePending: the key is waiting in the channel for a worker.
	statePending keyState = iota
	// stateInProgress: a worker holds the key.
	stateInProgress
	// stateRedirtied: the board changed again while a worker held the key;
	// Ack will put it back to pending instead of removing it.
	stateRedirtied
)

// Queue provides idempotent marking and channel-based dequeue of dirty
// board keys.
type Queue interface {
	// Mark flags the board as needing recomputation. Marking a board that
	// is already dirty or already being processed is absorbed. Returns
	// false when the queue is closed or at capacity.
	Mark(ctx context.Context, key Key) bool

	// Dequeue returns a channel delivering dirty keys as they become
	// available. The channel is closed when the queue is closed and
	// drained. Every delivered key must be Acked.
	Dequeue(ctx context.Context) <-chan Key

	// Ack completes a delivered key. If the board was re-dirtied while
	// in progress, the key goes back to pending; otherwise it leaves
	// the set.
	Ack(ctx context.Context, key Key)

	// Len returns the number of keys currently in the set, including
	// in-progress ones.
	Len(ctx context.Context) int

	// Close stops accepting marks and lets consumers drain.
	Close() error

	// IsClosed reports whether the queue has been closed.
	IsClosed() bool
}

// DirtySet implements Queue with a map for membership and a buffered
// channel for delivery order.
type DirtySet struct {
	mu       sync.Mutex
	states   map[Key]keyState
	keys     chan Key
	capacity int
	closed   bool
}

// NewDirtySet creates a dirty-set queue with configuration options.
func NewDirtySet(opts ...Option) *DirtySet {
	q := &DirtySet{
		states:   make(map[Key]keyState),
		capacity: defaultCapacity,
	}
	for _, opt := range opts {
		opt(q)
	}

	// A pending key occupies exactly one channel slot, so a buffer of
	// capacity can never reject a send.
	q.keys = make(chan Key, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	return q
}

// Mark implements Queue.Mark.
func (q *DirtySet) Mark(ctx context.Context, key Key) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "closed")
		return false
	}

	switch state, ok := q.states[key]; {
	case ok && state == statePending:
		return true // already waiting; absorbed
	case ok: // in progress or already re-dirtied
		q.states[key] = stateRedirtied
		return true
	}

	if len(q.states) >= q.capacity {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "capacity_exceeded")
		return false
	}

	q.states[key] = statePending
	q.keys <- key
	metrics.RecordQueueEnqueue()
	metrics.UpdateQueueSize(len(q.states))
	return true
}

// Dequeue implements Queue.Dequeue.
func (q *DirtySet) Dequeue(ctx context.Context) <-chan Key {
	out := make(chan Key)
	go func() {
		defer close(out)
		for key := range q.keys {
			q.mu.Lock()
			if q.states[key] == statePending {
				q.states[key] = stateInProgress
			}
			q.mu.Unlock()

			select {
			case out <- key:
				metrics.RecordQueueDequeue()
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Ack implements Queue.Ack.
func (q *DirtySet) Ack(ctx context.Context, key Key) {
	q.mu.Lock()
	defer q.mu.Unlock()

	switch q.states[key] {
	case stateInProgress:
		delete(q.states, key)
	case stateRedirtied:
		if q.closed {
			delete(q.states, key)
			break
		}
		q.states[key] = statePending
		q.keys <- key
		metrics.RecordQueueRequeue()
	}
	metrics.UpdateQueueSize(len(q.states))
}

// Len implements Queue.Len.
func (q *DirtySet) Len(ctx context.Context) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.states)
}

// Close implements Queue.Close.
func (q *DirtySet) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrClosed
	}
	q.closed = true
	close(q.keys)
	return nil
}

// IsClosed implements Queue.IsClosed.
func (q *DirtySet) IsClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

var _ Queue = (*DirtySet)(nil)
