package repository

import (
	"context"
	"sync"
	"time"

	"github.com/paceboard/paceboard/internal/domain/model"
	"github.com/paceboard/paceboard/pkg/metrics"
)

func unixNano(ns int64) time.Time {
	return time.Unix(0, ns).UTC()
}

// Treap-based, in-memory BestIndex implementation.
//
// Ordering: time ASC, then submission timestamp ASC, then run ID ASC. The
// comparator makes "less" mean "ranks earlier", so in-order traversal yields
// the board from best to worst. One treap plus one byPlayer map per board,
// each behind its own lock, so ingestion on different boards never blocks.

// node is one treap node. The sort key is (time, at, run); the priority is
// derived deterministically from the run ID.
type node struct {
	run    model.RunID
	player string
	time   float64
	at     int64 // submission timestamp, unix nanos
	prio   uint64
	left   *node
	right  *node
	size   int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// less reports whether entry a ranks earlier than entry b.
func less(aTime float64, aAt int64, aRun model.RunID, bTime float64, bAt int64, bRun model.RunID) bool {
	if aTime != bTime {
		return aTime < bTime
	}
	if aAt != bAt {
		return aAt < bAt
	}
	return aRun < bRun
}

func (n *node) before(o *node) bool {
	return less(n.time, n.at, n.run, o.time, o.at, o.run)
}

// priority mixes the run ID through splitmix64 so treap shape is
// deterministic but uncorrelated with insertion order.
func priority(run model.RunID) uint64 {
	z := uint64(run) + 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

func insert(root, fresh *node) *node {
	if root == nil {
		fresh.size = 1
		return fresh
	}
	if fresh.before(root) {
		root.left = insert(root.left, fresh)
		if root.left.prio > root.prio {
			root = rotateRight(root)
		}
	} else {
		root.right = insert(root.right, fresh)
		if root.right.prio > root.prio {
			root = rotateLeft(root)
		}
	}
	fix(root)
	return root
}

func remove(root *node, time float64, at int64, run model.RunID) *node {
	if root == nil {
		return nil
	}
	if root.run == run && root.time == time && root.at == at {
		if root.left == nil {
			return root.right
		}
		if root.right == nil {
			return root.left
		}
		if root.left.prio > root.right.prio {
			root = rotateRight(root)
			root.right = remove(root.right, time, at, run)
		} else {
			root = rotateLeft(root)
			root.left = remove(root.left, time, at, run)
		}
	} else if less(time, at, run, root.time, root.at, root.run) {
		root.left = remove(root.left, time, at, run)
	} else {
		root.right = remove(root.right, time, at, run)
	}
	fix(root)
	return root
}

// position returns the 0-based in-order index of the entry, or -1.
func position(root *node, time float64, at int64, run model.RunID) int {
	idx := 0
	for root != nil {
		if root.run == run && root.time == time && root.at == at {
			return idx + nsize(root.left)
		}
		if less(time, at, run, root.time, root.at, root.run) {
			root = root.left
		} else {
			idx += nsize(root.left) + 1
			root = root.right
		}
	}
	return -1
}

// record is the cached per-player state behind a treap node.
type record struct {
	run    model.RunID
	time   float64
	at     int64
	points *float64
}

// board is one (variant, ranking kind) leaderboard.
type board struct {
	mu       sync.RWMutex
	root     *node
	byPlayer map[string]record
}

// TreapIndex implements BestIndex.
type TreapIndex struct {
	mu     sync.RWMutex
	boards map[model.BoardKey]*board
}

// NewTreapIndex constructs an empty personal-best index.
func NewTreapIndex() *TreapIndex {
	return &TreapIndex{boards: make(map[model.BoardKey]*board)}
}

// boardFor returns the board for key, creating it when create is set.
func (s *TreapIndex) boardFor(key model.BoardKey, create bool) *board {
	s.mu.RLock()
	b := s.boards[key]
	s.mu.RUnlock()
	if b != nil || !create {
		return b
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if b = s.boards[key]; b == nil {
		b = &board{byPlayer: make(map[string]record)}
		s.boards[key] = b
		metrics.UpdateBoardCount(len(s.boards))
	}
	return b
}

// Evaluate implements BestIndex.Evaluate.
func (s *TreapIndex) Evaluate(ctx context.Context, key model.BoardKey, candidate model.Run, seedPoints *float64) (bool, error) {
	if candidate.PlayerID == "" || candidate.Time <= 0 {
		return false, ErrInvalidRun
	}

	b := s.boardFor(key, true)
	at := candidate.SubmittedAt.UnixNano()

	b.mu.Lock()
	defer b.mu.Unlock()

	if cur, ok := b.byPlayer[candidate.PlayerID]; ok {
		if !less(candidate.Time, at, candidate.ID, cur.time, cur.at, cur.run) {
			return false, nil // not a strict improvement; ties keep the incumbent
		}
		b.root = remove(b.root, cur.time, cur.at, cur.run)
	}

	b.byPlayer[candidate.PlayerID] = record{run: candidate.ID, time: candidate.Time, at: at, points: seedPoints}
	b.root = insert(b.root, &node{
		run:    candidate.ID,
		player: candidate.PlayerID,
		time:   candidate.Time,
		at:     at,
		prio:   priority(candidate.ID),
	})
	metrics.UpdateBoardSize(key.VariantID, string(key.Kind), nsize(b.root))
	return true, nil
}

// Invalidate implements BestIndex.Invalidate.
func (s *TreapIndex) Invalidate(ctx context.Context, key model.BoardKey, player string, replacement *model.Run, seedPoints *float64) error {
	b := s.boardFor(key, replacement != nil)
	if b == nil {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if cur, ok := b.byPlayer[player]; ok {
		b.root = remove(b.root, cur.time, cur.at, cur.run)
		delete(b.byPlayer, player)
	}
	if replacement != nil {
		at := replacement.SubmittedAt.UnixNano()
		b.byPlayer[player] = record{run: replacement.ID, time: replacement.Time, at: at, points: seedPoints}
		b.root = insert(b.root, &node{
			run:    replacement.ID,
			player: player,
			time:   replacement.Time,
			at:     at,
			prio:   priority(replacement.ID),
		})
	}
	metrics.UpdateBoardSize(key.VariantID, string(key.Kind), nsize(b.root))
	return nil
}

// collect appends entries in rank order, up to limit (limit < 0 = all).
func collect(n *node, byPlayer map[string]record, limit int, out *[]model.PersonalBest) {
	if n == nil || (limit >= 0 && len(*out) >= limit) {
		return
	}
	collect(n.left, byPlayer, limit, out)
	if limit < 0 || len(*out) < limit {
		rec := byPlayer[n.player]
		*out = append(*out, model.PersonalBest{
			RunID:       n.run,
			PlayerID:    n.player,
			Time:        n.time,
			SubmittedAt: unixNano(n.at),
			Rank:        len(*out), // in-order position is the rank
			Points:      rec.points,
		})
	}
	if limit < 0 || len(*out) < limit {
		collect(n.right, byPlayer, limit, out)
	}
}

// Snapshot implements BestIndex.Snapshot.
func (s *TreapIndex) Snapshot(ctx context.Context, key model.BoardKey) ([]model.PersonalBest, error) {
	b := s.boardFor(key, false)
	if b == nil {
		return nil, nil
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]model.PersonalBest, 0, nsize(b.root))
	collect(b.root, b.byPlayer, -1, &out)
	return out, nil
}

// ApplyPoints implements BestIndex.ApplyPoints.
func (s *TreapIndex) ApplyPoints(ctx context.Context, key model.BoardKey, points map[model.RunID]*float64) error {
	b := s.boardFor(key, false)
	if b == nil {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for player, rec := range b.byPlayer {
		pts, ok := points[rec.run]
		if !ok {
			continue // entry moved since the snapshot; its key was re-dirtied
		}
		rec.points = pts
		b.byPlayer[player] = rec
	}
	return nil
}

// Page implements BestIndex.Page.
func (s *TreapIndex) Page(ctx context.Context, key model.BoardKey, page, perPage int) ([]model.PersonalBest, error) {
	if page < 1 || perPage < 1 {
		return nil, ErrInvalidPage
	}

	b := s.boardFor(key, false)
	if b == nil {
		return []model.PersonalBest{}, nil
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	// Collect up to the end of the requested page, then slice. Pages deep
	// into a big board pay for what they skip, which is acceptable for the
	// access pattern (early pages dominate).
	end := page * perPage
	out := make([]model.PersonalBest, 0, min(end, nsize(b.root)))
	collect(b.root, b.byPlayer, end, &out)

	start := (page - 1) * perPage
	if start >= len(out) {
		return []model.PersonalBest{}, nil
	}
	return out[start:], nil
}

// PersonalBest implements BestIndex.PersonalBest.
func (s *TreapIndex) PersonalBest(ctx context.Context, key model.BoardKey, player string) (model.PersonalBest, error) {
	b := s.boardFor(key, false)
	if b == nil {
		return model.PersonalBest{}, ErrNotFound
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	rec, ok := b.byPlayer[player]
	if !ok {
		return model.PersonalBest{}, ErrNotFound
	}
	return model.PersonalBest{
		RunID:       rec.run,
		PlayerID:    player,
		Time:        rec.time,
		SubmittedAt: unixNano(rec.at),
		Rank:        position(b.root, rec.time, rec.at, rec.run),
		Points:      rec.points,
	}, nil
}

// Count implements BestIndex.Count.
func (s *TreapIndex) Count(ctx context.Context, key model.BoardKey) int {
	b := s.boardFor(key, false)
	if b == nil {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return nsize(b.root)
}

// Keys implements BestIndex.Keys.
func (s *TreapIndex) Keys(ctx context.Context) []model.BoardKey {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]model.BoardKey, 0, len(s.boards))
	for key := range s.boards {
		keys = append(keys, key)
	}
	return keys
}

var _ BestIndex = (*TreapIndex)(nil)
