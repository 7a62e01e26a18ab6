// Package queue implements the dirty-set queue that drives deferred
// point recomputation.
package queue

// Option applies a configuration option to the DirtySet.
type Option func(*DirtySet)

// WithCapacity caps how many boards can be dirty at once.
func WithCapacity(capacity int) Option {
	return func(q *DirtySet) {
		if capacity > 0 {
			q.capacity = capacity
		}
	}
}
