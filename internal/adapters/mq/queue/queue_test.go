package queue_test

import (
	"context"
	"testing"
	"time"

	"github.com/paceboard/paceboard/internal/adapters/mq/queue"
	"github.com/paceboard/paceboard/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func boardKey(variant string) model.BoardKey {
	return model.BoardKey{VariantID: variant, Kind: model.KindUnrestricted}
}

func receive(t *testing.T, ch <-chan queue.Key) (queue.Key, bool) {
	t.Helper()
	select {
	case key, ok := <-ch:
		return key, ok
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a dirty key")
		return queue.Key{}, false
	}
}

func TestMarkIsIdempotent(t *testing.T) {
	Convey("Given a dirty-set queue", t, func() {
		ctx := context.Background()
		q := queue.NewDirtySet()
		defer func() { _ = q.Close() }()

		Convey("When the same board is marked repeatedly", func() {
			So(q.Mark(ctx, boardKey("v1")), ShouldBeTrue)
			So(q.Mark(ctx, boardKey("v1")), ShouldBeTrue)
			So(q.Mark(ctx, boardKey("v1")), ShouldBeTrue)

			Convey("Then the set holds it once", func() {
				So(q.Len(ctx), ShouldEqual, 1)
			})

			Convey("Then a consumer receives it exactly once", func() {
				ch := q.Dequeue(ctx)
				key, ok := receive(t, ch)
				So(ok, ShouldBeTrue)
				So(key, ShouldResemble, boardKey("v1"))
				q.Ack(ctx, key)

				select {
				case extra := <-ch:
					So(extra, ShouldBeZeroValue) // no duplicate delivery
				case <-time.After(50 * time.Millisecond):
				}
				So(q.Len(ctx), ShouldEqual, 0)
			})
		})

		Convey("When distinct boards are marked", func() {
			So(q.Mark(ctx, boardKey("v1")), ShouldBeTrue)
			So(q.Mark(ctx, boardKey("v2")), ShouldBeTrue)
			So(q.Mark(ctx, model.BoardKey{VariantID: "v1", Kind: model.KindZeroAid}), ShouldBeTrue)

			Convey("Then each has its own slot", func() {
				So(q.Len(ctx), ShouldEqual, 3)
			})
		})
	})
}

func TestRedirtyWhileInProgress(t *testing.T) {
	Convey("Given a key held by a worker", t, func() {
		ctx := context.Background()
		q := queue.NewDirtySet()
		defer func() { _ = q.Close() }()

		So(q.Mark(ctx, boardKey("v1")), ShouldBeTrue)
		ch := q.Dequeue(ctx)
		key, ok := receive(t, ch)
		So(ok, ShouldBeTrue)

		Convey("When the board is marked again before the ack", func() {
			So(q.Mark(ctx, key), ShouldBeTrue)
			q.Ack(ctx, key)

			Convey("Then the key is delivered a second time", func() {
				again, ok := receive(t, ch)
				So(ok, ShouldBeTrue)
				So(again, ShouldResemble, key)

				q.Ack(ctx, again)
				So(q.Len(ctx), ShouldEqual, 0)
			})
		})

		Convey("When the ack comes without a re-mark", func() {
			q.Ack(ctx, key)

			Convey("Then the key leaves the set for good", func() {
				So(q.Len(ctx), ShouldEqual, 0)
				select {
				case extra := <-ch:
					So(extra, ShouldBeZeroValue)
				case <-time.After(50 * time.Millisecond):
				}
			})
		})
	})
}

func TestQueueCapacity(t *testing.T) {
	Convey("Given a queue with a tiny capacity", t, func() {
		ctx := context.Background()
		q := queue.NewDirtySet(queue.WithCapacity(2))
		defer func() { _ = q.Close() }()

		Convey("When more boards than capacity get dirty", func() {
			So(q.Mark(ctx, boardKey("v1")), ShouldBeTrue)
			So(q.Mark(ctx, boardKey("v2")), ShouldBeTrue)

			Convey("Then the overflow mark is rejected", func() {
				So(q.Mark(ctx, boardKey("v3")), ShouldBeFalse)
			})

			Convey("Then an already-dirty board is still absorbed", func() {
				So(q.Mark(ctx, boardKey("v1")), ShouldBeTrue)
			})
		})
	})
}

func TestQueueClose(t *testing.T) {
	Convey("Given a queue with pending work", t, func() {
		ctx := context.Background()
		q := queue.NewDirtySet()
		So(q.Mark(ctx, boardKey("v1")), ShouldBeTrue)

		Convey("When the queue is closed", func() {
			So(q.Close(), ShouldBeNil)

			Convey("Then new marks are refused", func() {
				So(q.IsClosed(), ShouldBeTrue)
				So(q.Mark(ctx, boardKey("v2")), ShouldBeFalse)
			})

			Convey("Then consumers drain what remains and the channel closes", func() {
				ch := q.Dequeue(ctx)
				key, ok := receive(t, ch)
				So(ok, ShouldBeTrue)
				q.Ack(ctx, key)

				_, ok = receive(t, ch)
				So(ok, ShouldBeFalse)
			})

			Convey("Then a second close reports it", func() {
				So(q.Close(), ShouldEqual, queue.ErrClosed)
			})
		})
	})
}
