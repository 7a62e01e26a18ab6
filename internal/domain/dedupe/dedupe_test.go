package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/paceboard/paceboard/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSeenAndRecord(t *testing.T) {
	Convey("Given a fresh deduper", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper()

		Convey("When a token is recorded for the first time", func() {
			seen := d.SeenAndRecord(ctx, "tok-1")

			Convey("Then it is reported as new", func() {
				So(seen, ShouldBeFalse)
				So(d.Size(), ShouldEqual, 1)
			})

			Convey("And a retry with the same token is a duplicate", func() {
				So(d.SeenAndRecord(ctx, "tok-1"), ShouldBeTrue)
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When a token is unrecorded", func() {
			d.SeenAndRecord(ctx, "tok-1")
			d.Unrecord(ctx, "tok-1")

			Convey("Then it can be recorded again", func() {
				So(d.SeenAndRecord(ctx, "tok-1"), ShouldBeFalse)
			})
		})

		Convey("When submissions carry no token", func() {
			Convey("Then they are never deduplicated", func() {
				So(d.SeenAndRecord(ctx, ""), ShouldBeFalse)
				So(d.SeenAndRecord(ctx, ""), ShouldBeFalse)
				So(d.Size(), ShouldEqual, 0)
			})
		})
	})
}

func TestEviction(t *testing.T) {
	Convey("Given a deduper bounded to 3 tokens", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))

		Convey("When a fourth token arrives", func() {
			for i := 1; i <= 4; i++ {
				d.SeenAndRecord(ctx, fmt.Sprintf("tok-%d", i))
			}

			Convey("Then the oldest token was evicted", func() {
				So(d.Size(), ShouldEqual, 3)
				So(d.SeenAndRecord(ctx, "tok-1"), ShouldBeFalse) // forgotten
			})

			Convey("And the newest tokens are still deduplicated", func() {
				So(d.SeenAndRecord(ctx, "tok-4"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "tok-3"), ShouldBeTrue)
			})
		})
	})
}

func TestConcurrentRecording(t *testing.T) {
	Convey("Given many goroutines racing on the same token", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper()

		const goroutines = 32
		var wg sync.WaitGroup
		newCount := make(chan bool, goroutines)

		for i := 0; i < goroutines; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if !d.SeenAndRecord(ctx, "contested") {
					newCount <- true
				}
			}()
		}
		wg.Wait()
		close(newCount)

		Convey("Then exactly one of them recorded it", func() {
			So(len(newCount), ShouldEqual, 1)
			So(d.Size(), ShouldEqual, 1)
		})
	})
}
