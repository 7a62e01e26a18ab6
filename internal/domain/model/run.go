// Package model contains domain models passed between layers.
package model

import "time"

// RunID is a monotonically increasing identifier assigned by the run store
// at append time. Lower IDs were appended earlier, which makes the ID usable
// as the final leaderboard tie-break.
type RunID uint64

// RunStatus is the legitimacy verdict attached to a run. Verdicts are
// produced by external review; this engine only stores and enforces them.
type RunStatus string

const (
	StatusLegitimate    RunStatus = "legitimate"
	StatusPendingReview RunStatus = "pending_review"
	StatusRejected      RunStatus = "rejected"
)

// Valid reports whether s is one of the known statuses.
func (s RunStatus) Valid() bool {
	switch s {
	case StatusLegitimate, StatusPendingReview, StatusRejected:
		return true
	}
	return false
}

// CanTransitionTo reports whether a status change from s to next is legal.
// Allowed: pending_review -> legitimate, pending_review -> rejected, and
// legitimate -> rejected (retroactive invalidation). Nothing leaves rejected.
func (s RunStatus) CanTransitionTo(next RunStatus) bool {
	switch s {
	case StatusPendingReview:
		return next == StatusLegitimate || next == StatusRejected
	case StatusLegitimate:
		return next == StatusRejected
	}
	return false
}

// RankingKind selects one of the two independent leaderboards per variant.
type RankingKind string

const (
	// KindUnrestricted ranks every run regardless of movement-aid usage.
	KindUnrestricted RankingKind = "unrestricted"
	// KindZeroAid ranks only runs completed without any movement aids.
	KindZeroAid RankingKind = "zero_aid"
)

// Kinds lists both ranking kinds in a stable order.
func Kinds() [2]RankingKind {
	return [2]RankingKind{KindUnrestricted, KindZeroAid}
}

// Valid reports whether k is a known ranking kind.
func (k RankingKind) Valid() bool {
	return k == KindUnrestricted || k == KindZeroAid
}

// BoardKey identifies one leaderboard: a variant plus a ranking kind.
type BoardKey struct {
	VariantID string
	Kind      RankingKind
}

// Run is one submitted completion of a course variant. Immutable once
// appended, except for Status.
type Run struct {
	ID            RunID
	PlayerID      string
	ServerID      string
	VariantID     string
	AidUsage      uint32 // zero means the run also qualifies for the zero-aid board
	Time          float64
	Status        RunStatus
	SubmittedAt   time.Time
	ClientVersion string
}

// ZeroAid reports whether the run qualifies for the zero-aid board.
func (r Run) ZeroAid() bool {
	return r.AidUsage == 0
}

// Keys returns the board keys the run competes on.
func (r Run) Keys() []BoardKey {
	keys := []BoardKey{{VariantID: r.VariantID, Kind: KindUnrestricted}}
	if r.ZeroAid() {
		keys = append(keys, BoardKey{VariantID: r.VariantID, Kind: KindZeroAid})
	}
	return keys
}

// FasterThan reports whether r strictly beats other under the board ordering:
// lower time wins, ties go to the earlier submission, then to the lower ID.
func (r Run) FasterThan(other Run) bool {
	if r.Time != other.Time {
		return r.Time < other.Time
	}
	if !r.SubmittedAt.Equal(other.SubmittedAt) {
		return r.SubmittedAt.Before(other.SubmittedAt)
	}
	return r.ID < other.ID
}

// PersonalBest is a player's best legitimate run on one board, with the
// cached rank and point value maintained by the recomputation pass.
type PersonalBest struct {
	RunID       RunID
	PlayerID    string
	Time        float64
	SubmittedAt time.Time

	// Rank is 0-based (0 = best in the field). Points is nil until the first
	// completed recomputation pass, and stays nil on unranked boards.
	Rank   int
	Points *float64
}
