package service

import "errors"

// ErrQueueRejected reports that a board could not be handed to the
// recomputation queue. A write that committed without its dirty mark would
// leave the board's cached points stale forever, so callers surface this
// instead of swallowing the rejection.
var ErrQueueRejected = errors.New("recomputation queue rejected board")
