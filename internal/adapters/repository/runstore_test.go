package repository_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/paceboard/paceboard/internal/adapters/repository"
	"github.com/paceboard/paceboard/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func legitRun(player string, tm float64) model.Run {
	return model.Run{
		PlayerID:    player,
		ServerID:    "srv-1",
		VariantID:   "v1",
		Time:        tm,
		Status:      model.StatusLegitimate,
		SubmittedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

// runStoreSuite exercises the RunStore contract against any implementation.
func runStoreSuite(t *testing.T, open func(t *testing.T) repository.RunStore) {
	t.Helper()
	ctx := context.Background()

	Convey("When appending a valid run", func() {
		store := open(t)
		id, err := store.Append(ctx, legitRun("alice", 42.5))

		Convey("Then it gets a monotonic id and can be read back", func() {
			So(err, ShouldBeNil)
			So(id, ShouldEqual, model.RunID(1))

			run, err := store.Get(ctx, id)
			So(err, ShouldBeNil)
			So(run.PlayerID, ShouldEqual, "alice")
			So(run.Time, ShouldEqual, 42.5)
			So(store.Count(ctx), ShouldEqual, 1)

			id2, err := store.Append(ctx, legitRun("bob", 40))
			So(err, ShouldBeNil)
			So(id2, ShouldEqual, model.RunID(2))
		})
	})

	Convey("When appending invalid runs", func() {
		store := open(t)

		Convey("Then each is rejected and nothing is persisted", func() {
			bad := legitRun("alice", 42.5)
			bad.Time = 0
			_, err := store.Append(ctx, bad)
			So(err, ShouldWrap, repository.ErrInvalidRun)

			bad = legitRun("alice", -1)
			_, err = store.Append(ctx, bad)
			So(err, ShouldWrap, repository.ErrInvalidRun)

			bad = legitRun("", 42.5)
			_, err = store.Append(ctx, bad)
			So(err, ShouldWrap, repository.ErrInvalidRun)

			bad = legitRun("alice", 42.5)
			bad.Status = "banana"
			_, err = store.Append(ctx, bad)
			So(err, ShouldWrap, repository.ErrInvalidRun)

			So(store.Count(ctx), ShouldEqual, 0)
		})
	})

	Convey("When transitioning statuses", func() {
		store := open(t)
		pending := legitRun("alice", 42.5)
		pending.Status = model.StatusPendingReview
		id, err := store.Append(ctx, pending)
		So(err, ShouldBeNil)

		Convey("Then pending review can become legitimate", func() {
			run, err := store.Transition(ctx, id, model.StatusLegitimate)
			So(err, ShouldBeNil)
			So(run.Status, ShouldEqual, model.StatusLegitimate)

			Convey("And legitimate can later be rejected", func() {
				run, err := store.Transition(ctx, id, model.StatusRejected)
				So(err, ShouldBeNil)
				So(run.Status, ShouldEqual, model.StatusRejected)

				Convey("But rejected is terminal", func() {
					_, err := store.Transition(ctx, id, model.StatusLegitimate)
					So(err, ShouldWrap, repository.ErrInvalidTransition)
				})
			})
		})

		Convey("Then unknown runs are reported as such", func() {
			_, err := store.Transition(ctx, 999, model.StatusRejected)
			So(err, ShouldWrap, repository.ErrRunNotFound)
		})
	})

	Convey("When looking for a player's best legitimate run", func() {
		store := open(t)
		key := model.BoardKey{VariantID: "v1", Kind: model.KindUnrestricted}

		fast := legitRun("alice", 40)
		fast.AidUsage = 2
		fastID, err := store.Append(ctx, fast)
		So(err, ShouldBeNil)

		slowNoAid := legitRun("alice", 45)
		slowID, err := store.Append(ctx, slowNoAid)
		So(err, ShouldBeNil)

		Convey("Then the fastest run wins on the unrestricted board", func() {
			best, ok, err := store.BestLegitimate(ctx, "alice", key)
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)
			So(best.ID, ShouldEqual, fastID)
		})

		Convey("Then only aid-free runs count on the zero-aid board", func() {
			best, ok, err := store.BestLegitimate(ctx, "alice", model.BoardKey{VariantID: "v1", Kind: model.KindZeroAid})
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)
			So(best.ID, ShouldEqual, slowID)
		})

		Convey("Then rejected runs stop counting", func() {
			_, err := store.Transition(ctx, fastID, model.StatusRejected)
			So(err, ShouldBeNil)

			best, ok, err := store.BestLegitimate(ctx, "alice", key)
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)
			So(best.ID, ShouldEqual, slowID)
		})

		Convey("Then players without legitimate runs report none", func() {
			_, ok, err := store.BestLegitimate(ctx, "nobody", key)
			So(err, ShouldBeNil)
			So(ok, ShouldBeFalse)
		})
	})
}

func TestMemRunStore(t *testing.T) {
	Convey("Given an in-memory run store", t, func() {
		runStoreSuite(t, func(t *testing.T) repository.RunStore {
			return repository.NewMemRunStore()
		})
	})
}

func TestBoltRunStore(t *testing.T) {
	Convey("Given a bolt-backed run store", t, func() {
		runStoreSuite(t, func(t *testing.T) repository.RunStore {
			store, err := repository.OpenBoltRunStore(filepath.Join(t.TempDir(), "runs.db"))
			So(err, ShouldBeNil)
			t.Cleanup(func() { _ = store.Close() })
			return store
		})
	})
}

func TestBoltRunStoreDurability(t *testing.T) {
	Convey("Given runs persisted to disk", t, func() {
		ctx := context.Background()
		path := filepath.Join(t.TempDir(), "runs.db")

		store, err := repository.OpenBoltRunStore(path)
		So(err, ShouldBeNil)
		id, err := store.Append(ctx, legitRun("alice", 42.5))
		So(err, ShouldBeNil)
		So(store.Close(), ShouldBeNil)

		Convey("When the store is reopened", func() {
			reopened, err := repository.OpenBoltRunStore(path)
			So(err, ShouldBeNil)
			defer func() { _ = reopened.Close() }()

			Convey("Then the run survives and ids keep increasing", func() {
				run, err := reopened.Get(ctx, id)
				So(err, ShouldBeNil)
				So(run.PlayerID, ShouldEqual, "alice")

				next, err := reopened.Append(ctx, legitRun("bob", 50))
				So(err, ShouldBeNil)
				So(next, ShouldBeGreaterThan, id)
			})
		})
	})
}
