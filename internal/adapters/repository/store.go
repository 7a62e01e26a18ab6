// Package repository defines the run store and personal-best index
// contracts plus their implementations.
package repository

import (
	"context"

	"github.com/paceboard/paceboard/internal/domain/model"
)

// RunStore is the durable, append-only record of every submitted run.
// Runs are never deleted; only their legitimacy status may change, and only
// along the transitions model.RunStatus allows.
type RunStore interface {
	// Append validates and persists a new run, returning its assigned ID.
	// The ID on the passed run is ignored.
	Append(ctx context.Context, run model.Run) (model.RunID, error)

	// Get returns a run by ID, or ErrRunNotFound.
	Get(ctx context.Context, id model.RunID) (model.Run, error)

	// Transition applies a status change and returns the updated run.
	// Illegal changes fail with ErrInvalidTransition.
	Transition(ctx context.Context, id model.RunID, next model.RunStatus) (model.Run, error)

	// BestLegitimate returns the player's fastest remaining legitimate run
	// for the board, if any. Used to repoint a personal best after a
	// retroactive rejection.
	BestLegitimate(ctx context.Context, player string, key model.BoardKey) (model.Run, bool, error)

	// Count returns the total number of stored runs.
	Count(ctx context.Context) int
}

// BestIndex maintains one personal-best board per (variant, ranking kind).
// Boards are fully independent: operations on different keys never contend.
//
// Entries are totally ordered by time ascending, ties broken by earlier
// submission timestamp, then by lower run ID. Ranks are the 0-based
// positions in that order.
type BestIndex interface {
	// Evaluate replaces the player's personal best iff the candidate is
	// strictly faster than the incumbent (or there is none). Ties keep the
	// incumbent. seedPoints is the provisional cached point value (tier base
	// only, nil on unranked boards); the recomputation pass overwrites it.
	// Returns true when the board changed.
	Evaluate(ctx context.Context, key model.BoardKey, candidate model.Run, seedPoints *float64) (bool, error)

	// Invalidate removes the player's personal best and, when replacement is
	// non-nil, installs it as the new one with the given seed points.
	Invalidate(ctx context.Context, key model.BoardKey, player string, replacement *model.Run, seedPoints *float64) error

	// Snapshot returns the board's entries in rank order, as one consistent
	// view taken under the board lock.
	Snapshot(ctx context.Context, key model.BoardKey) ([]model.PersonalBest, error)

	// ApplyPoints atomically rewrites cached point values for the entries
	// whose personal best still references the given run. Entries that moved
	// since the pass's snapshot are skipped; their key was re-dirtied.
	// A nil map value clears the cached points (unranked board).
	ApplyPoints(ctx context.Context, key model.BoardKey, points map[model.RunID]*float64) error

	// Page returns one page of the board in rank order, 1-based page index.
	Page(ctx context.Context, key model.BoardKey, page, perPage int) ([]model.PersonalBest, error)

	// PersonalBest returns the player's entry with its current rank, or
	// ErrNotFound.
	PersonalBest(ctx context.Context, key model.BoardKey, player string) (model.PersonalBest, error)

	// Count returns the number of entries on the board.
	Count(ctx context.Context, key model.BoardKey) int

	// Keys returns every board that currently has entries.
	Keys(ctx context.Context) []model.BoardKey
}
