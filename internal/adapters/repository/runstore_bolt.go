package repository

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/paceboard/paceboard/internal/domain/model"
)

// Bucket and key layout for the bolt-backed run store.
//
//	runs:       big-endian run ID -> JSON run record
//	player_idx: player 0x00 variant 0x00 big-endian run ID -> nil
//
// The index bucket makes BestLegitimate a prefix scan instead of a full
// table walk. Run IDs come from the runs bucket's sequence, so they are
// monotonic across restarts.
const (
	bRuns      = "runs"
	bPlayerIdx = "player_idx"

	openTimeout = 2 * time.Second
)

// runRecord is the stored shape of a run.
type runRecord struct {
	PlayerID      string    `json:"player_id"`
	ServerID      string    `json:"server_id"`
	VariantID     string    `json:"variant_id"`
	AidUsage      uint32    `json:"aid_usage"`
	Time          float64   `json:"time"`
	Status        string    `json:"status"`
	SubmittedAt   time.Time `json:"submitted_at"`
	ClientVersion string    `json:"client_version"`
}

func toRecord(run model.Run) runRecord {
	return runRecord{
		PlayerID:      run.PlayerID,
		ServerID:      run.ServerID,
		VariantID:     run.VariantID,
		AidUsage:      run.AidUsage,
		Time:          run.Time,
		Status:        string(run.Status),
		SubmittedAt:   run.SubmittedAt,
		ClientVersion: run.ClientVersion,
	}
}

func (r runRecord) toRun(id model.RunID) model.Run {
	return model.Run{
		ID:            id,
		PlayerID:      r.PlayerID,
		ServerID:      r.ServerID,
		VariantID:     r.VariantID,
		AidUsage:      r.AidUsage,
		Time:          r.Time,
		Status:        model.RunStatus(r.Status),
		SubmittedAt:   r.SubmittedAt,
		ClientVersion: r.ClientVersion,
	}
}

// BoltRunStore implements RunStore on top of bbolt.
type BoltRunStore struct {
	db *bolt.DB
}

// OpenBoltRunStore opens (or creates) the run database at path.
func OpenBoltRunStore(path string) (*BoltRunStore, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty db path", ErrInvalidRun)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, fmt.Errorf("open run db: %w", err)
	}

	s := &BoltRunStore{db: db}
	if err := db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{bRuns, bPlayerIdx} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init run db: %w", err)
	}
	return s, nil
}

// Close releases the underlying database.
func (s *BoltRunStore) Close() error {
	return s.db.Close()
}

// Append implements RunStore.Append.
func (s *BoltRunStore) Append(ctx context.Context, run model.Run) (model.RunID, error) {
	if err := validateRun(run); err != nil {
		return 0, err
	}
	if run.SubmittedAt.IsZero() {
		run.SubmittedAt = time.Now().UTC()
	}

	var id model.RunID
	err := s.db.Update(func(tx *bolt.Tx) error {
		runs := tx.Bucket([]byte(bRuns))

		seq, err := runs.NextSequence()
		if err != nil {
			return err
		}
		id = model.RunID(seq)

		val, err := json.Marshal(toRecord(run))
		if err != nil {
			return err
		}
		if err := runs.Put(idKey(id), val); err != nil {
			return err
		}
		return tx.Bucket([]byte(bPlayerIdx)).Put(ownerKey(run.PlayerID, run.VariantID, id), nil)
	})
	if err != nil {
		return 0, fmt.Errorf("append run: %w", err)
	}
	return id, nil
}

// Get implements RunStore.Get.
func (s *BoltRunStore) Get(ctx context.Context, id model.RunID) (model.Run, error) {
	var run model.Run
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket([]byte(bRuns)).Get(idKey(id))
		if raw == nil {
			return ErrRunNotFound
		}
		var rec runRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return err
		}
		run = rec.toRun(id)
		return nil
	})
	if err != nil {
		return model.Run{}, err
	}
	return run, nil
}

// Transition implements RunStore.Transition. The read-check-write happens in
// one update transaction, so concurrent transitions on the same run
// serialize and at most one of them succeeds.
func (s *BoltRunStore) Transition(ctx context.Context, id model.RunID, next model.RunStatus) (model.Run, error) {
	if !next.Valid() {
		return model.Run{}, ErrInvalidTransition
	}

	var run model.Run
	err := s.db.Update(func(tx *bolt.Tx) error {
		runs := tx.Bucket([]byte(bRuns))
		raw := runs.Get(idKey(id))
		if raw == nil {
			return ErrRunNotFound
		}

		var rec runRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return err
		}
		if !model.RunStatus(rec.Status).CanTransitionTo(next) {
			return ErrInvalidTransition
		}
		rec.Status = string(next)

		val, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		if err := runs.Put(idKey(id), val); err != nil {
			return err
		}
		run = rec.toRun(id)
		return nil
	})
	if err != nil {
		return model.Run{}, err
	}
	return run, nil
}

// BestLegitimate implements RunStore.BestLegitimate via a prefix scan over
// the player index.
func (s *BoltRunStore) BestLegitimate(ctx context.Context, player string, key model.BoardKey) (model.Run, bool, error) {
	var best model.Run
	var found bool

	err := s.db.View(func(tx *bolt.Tx) error {
		runs := tx.Bucket([]byte(bRuns))
		c := tx.Bucket([]byte(bPlayerIdx)).Cursor()

		prefix := ownerPrefix(player, key.VariantID)
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			id := idFromOwnerKey(k)
			raw := runs.Get(idKey(id))
			if raw == nil {
				continue
			}
			var rec runRecord
			if err := json.Unmarshal(raw, &rec); err != nil {
				continue
			}
			run := rec.toRun(id)
			if !matchesBoard(run, key) {
				continue
			}
			if !found || run.FasterThan(best) {
				best = run
				found = true
			}
		}
		return nil
	})
	if err != nil {
		return model.Run{}, false, err
	}
	return best, found, nil
}

// Count implements RunStore.Count.
func (s *BoltRunStore) Count(ctx context.Context) int {
	var n int
	_ = s.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket([]byte(bRuns)).Stats().KeyN
		return nil
	})
	return n
}

func idKey(id model.RunID) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(id))
	return b
}

func ownerPrefix(player, variant string) []byte {
	b := make([]byte, 0, len(player)+len(variant)+2)
	b = append(b, player...)
	b = append(b, 0)
	b = append(b, variant...)
	b = append(b, 0)
	return b
}

func ownerKey(player, variant string, id model.RunID) []byte {
	return append(ownerPrefix(player, variant), idKey(id)...)
}

func idFromOwnerKey(k []byte) model.RunID {
	if len(k) < 8 {
		return 0
	}
	return model.RunID(binary.BigEndian.Uint64(k[len(k)-8:]))
}

var _ RunStore = (*BoltRunStore)(nil)
