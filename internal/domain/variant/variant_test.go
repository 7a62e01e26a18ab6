package variant_test

import (
	"context"
	"testing"

	"github.com/paceboard/paceboard/internal/domain/model"
	"github.com/paceboard/paceboard/internal/domain/scoring"
	"github.com/paceboard/paceboard/internal/domain/variant"
	. "github.com/smartystreets/goconvey/convey"
)

func TestVariantRanked(t *testing.T) {
	Convey("Given a variant with tiers in the scored range", t, func() {
		v := variant.Variant{ID: "v1", UnrestrictedTier: 5, ZeroAidTier: 6}

		Convey("Then both boards are ranked", func() {
			So(v.Ranked(model.KindUnrestricted), ShouldBeTrue)
			So(v.Ranked(model.KindZeroAid), ShouldBeTrue)
		})

		Convey("When one board is frozen", func() {
			v.ZeroAidFrozen = true

			Convey("Then only that board becomes unranked", func() {
				So(v.Ranked(model.KindUnrestricted), ShouldBeTrue)
				So(v.Ranked(model.KindZeroAid), ShouldBeFalse)
			})
		})
	})

	Convey("Given extreme tiers", t, func() {
		Convey("Then tiers 1, 9 and 10 are unranked", func() {
			for _, tier := range []int{1, 9, 10} {
				v := variant.Variant{ID: "v1", UnrestrictedTier: tier, ZeroAidTier: tier}
				So(v.Ranked(model.KindUnrestricted), ShouldBeFalse)
				So(v.Ranked(model.KindZeroAid), ShouldBeFalse)
			}
		})
	})
}

func TestInMemoryRegistry(t *testing.T) {
	Convey("Given an empty registry", t, func() {
		ctx := context.Background()
		reg := variant.NewInMemoryRegistry()

		Convey("When looking up an unknown variant", func() {
			_, err := reg.Get(ctx, "missing")

			Convey("Then it returns ErrUnknownVariant", func() {
				So(err, ShouldEqual, variant.ErrUnknownVariant)
			})
		})

		Convey("When upserting a valid variant", func() {
			err := reg.Upsert(ctx, variant.Variant{ID: "v1", UnrestrictedTier: 4, ZeroAidTier: 5})
			So(err, ShouldBeNil)

			Convey("Then it can be read back", func() {
				v, err := reg.Get(ctx, "v1")
				So(err, ShouldBeNil)
				So(v.Tier(model.KindZeroAid), ShouldEqual, 5)
				So(reg.Count(ctx), ShouldEqual, 1)
			})

			Convey("And a second upsert replaces the whole record", func() {
				So(reg.Upsert(ctx, variant.Variant{ID: "v1", UnrestrictedTier: 9, ZeroAidTier: 9}), ShouldBeNil)
				v, err := reg.Get(ctx, "v1")
				So(err, ShouldBeNil)
				So(v.Ranked(model.KindUnrestricted), ShouldBeFalse)
			})
		})

		Convey("When upserting out-of-range tiers", func() {
			Convey("Then the upsert is rejected", func() {
				So(reg.Upsert(ctx, variant.Variant{ID: "v1", UnrestrictedTier: 0, ZeroAidTier: 5}), ShouldEqual, variant.ErrInvalidVariant)
				So(reg.Upsert(ctx, variant.Variant{ID: "v1", UnrestrictedTier: 3, ZeroAidTier: 11}), ShouldEqual, variant.ErrInvalidVariant)
				So(reg.Upsert(ctx, variant.Variant{UnrestrictedTier: 3, ZeroAidTier: 3}), ShouldEqual, variant.ErrInvalidVariant)
			})
		})
	})
}

func TestInMemoryParamsCache(t *testing.T) {
	Convey("Given an empty parameter cache", t, func() {
		ctx := context.Background()
		cache := variant.NewInMemoryParamsCache()
		key := model.BoardKey{VariantID: "v1", Kind: model.KindUnrestricted}

		Convey("Then lookups return nil", func() {
			So(cache.Get(ctx, key), ShouldBeNil)
		})

		Convey("When parameters are replaced wholesale", func() {
			p := scoring.Params{A: 1, B: 0, Loc: 40, Scale: 8, TopScale: 0.9}
			cache.Replace(ctx, key, &p)

			Convey("Then readers see the new snapshot", func() {
				got := cache.Get(ctx, key)
				So(got, ShouldNotBeNil)
				So(got.Loc, ShouldEqual, 40)
			})

			Convey("And mutating the caller's copy does not leak in", func() {
				p.Loc = 999
				So(cache.Get(ctx, key).Loc, ShouldEqual, 40)
			})

			Convey("And a nil replace clears the entry", func() {
				cache.Replace(ctx, key, nil)
				So(cache.Get(ctx, key), ShouldBeNil)
			})
		})
	})
}
