package scoring_test

import (
	"testing"

	"github.com/paceboard/paceboard/internal/domain/model"
	"github.com/paceboard/paceboard/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func TestBasePoints(t *testing.T) {
	Convey("Given the tier base table", t, func() {
		Convey("Then scored tiers map to their base values", func() {
			cases := map[int]float64{
				2: 500, 3: 2000, 4: 3500, 5: 5000, 6: 6500, 7: 8000, 8: 9500,
			}
			for tier, want := range cases {
				base, ok := scoring.BasePoints(tier, model.KindUnrestricted)
				So(ok, ShouldBeTrue)
				So(base, ShouldEqual, want)
			}
		})

		Convey("Then the zero-aid board boosts the base by 10% of headroom", func() {
			base, ok := scoring.BasePoints(2, model.KindZeroAid)
			So(ok, ShouldBeTrue)
			So(base, ShouldEqual, 1450) // 500 + 9500*0.1

			base, ok = scoring.BasePoints(5, model.KindZeroAid)
			So(ok, ShouldBeTrue)
			So(base, ShouldEqual, 5500) // 5000 + 5000*0.1
		})

		Convey("Then tiers 1, 9 and 10 are never scored", func() {
			for _, tier := range []int{1, 9, 10, 0, -1, 42} {
				_, ok := scoring.BasePoints(tier, model.KindUnrestricted)
				So(ok, ShouldBeFalse)
			}
		})
	})
}

func TestRankBonus(t *testing.T) {
	Convey("Given the rank bonus curve", t, func() {
		Convey("Then the world record stacks all three components", func() {
			So(scoring.RankBonus(0), ShouldAlmostEqual, 100*0.004+20*0.02+0.2)
		})

		Convey("Then mid-field ranks only get the top-100 slope", func() {
			So(scoring.RankBonus(50), ShouldAlmostEqual, 0.2) // (100-50)*0.004
		})

		Convey("Then ranks past 100 get nothing", func() {
			So(scoring.RankBonus(100), ShouldEqual, 0)
			So(scoring.RankBonus(5000), ShouldEqual, 0)
		})

		Convey("Then the bonus never increases with rank", func() {
			prev := scoring.RankBonus(0)
			for rank := 1; rank <= 150; rank++ {
				cur := scoring.RankBonus(rank)
				So(cur, ShouldBeLessThanOrEqualTo, prev)
				prev = cur
			}
		})
	})
}

func TestDistancePoints(t *testing.T) {
	Convey("Given fitted distribution parameters", t, func() {
		p := &scoring.Params{A: 1.2, B: 0.3, Loc: 40, Scale: 8, TopScale: 0.9}

		Convey("Then the result is bounded to [0,1]", func() {
			for _, tm := range []float64{0, 10, 40, 80, 1e6} {
				d := scoring.DistancePoints(tm, p)
				So(d, ShouldBeGreaterThanOrEqualTo, 0)
				So(d, ShouldBeLessThanOrEqualTo, 1)
			}
		})

		Convey("Then a faster time never scores below a slower one", func() {
			prev := scoring.DistancePoints(20, p)
			for tm := 21.0; tm < 120; tm++ {
				cur := scoring.DistancePoints(tm, p)
				So(cur, ShouldBeLessThanOrEqualTo, prev)
				prev = cur
			}
		})

		Convey("Then evaluation is reproducible", func() {
			So(scoring.DistancePoints(55, p), ShouldEqual, scoring.DistancePoints(55, p))
		})

		Convey("Then absent parameters contribute nothing", func() {
			So(scoring.DistancePoints(55, nil), ShouldEqual, 0)
		})

		Convey("Then degenerate parameters contribute nothing", func() {
			So(scoring.DistancePoints(55, &scoring.Params{A: -1, Scale: 8}), ShouldEqual, 0)
			So(scoring.DistancePoints(55, &scoring.Params{A: 1, Scale: 0}), ShouldEqual, 0)
		})
	})
}

func TestSmallFieldPoints(t *testing.T) {
	Convey("Given a small field", t, func() {
		Convey("Then the top time scores exactly 1.0", func() {
			So(scoring.SmallFieldPoints(4, 30, 30), ShouldAlmostEqual, 1.0)
		})

		Convey("Then slower times score strictly less", func() {
			prev := scoring.SmallFieldPoints(4, 30, 30)
			for _, tm := range []float64{31, 35, 45, 60, 120} {
				cur := scoring.SmallFieldPoints(4, 30, tm)
				So(cur, ShouldBeLessThan, prev)
				prev = cur
			}
		})

		Convey("Then times faster than the top time are rejected", func() {
			So(scoring.SmallFieldPoints(4, 30, 29), ShouldEqual, 0)
		})
	})
}

func TestTotalPoints(t *testing.T) {
	Convey("Given a zero-aid tier 5 board", t, func() {
		Convey("When scoring the world record with a perfect distance term", func() {
			pts, ok := scoring.TotalPoints(5, model.KindZeroAid, 0, 1.0)

			Convey("Then the result caps at the maximum", func() {
				So(ok, ShouldBeTrue)
				// 5500 + 0.125*4500*1.0 + 0.875*4500*1.0 = 10000
				So(pts, ShouldEqual, 10000)
			})
		})

		Convey("When scoring rank 50 with distance 0.3", func() {
			pts, ok := scoring.TotalPoints(5, model.KindZeroAid, 50, 0.3)

			Convey("Then the components add up exactly", func() {
				So(ok, ShouldBeTrue)
				// 5500 + 0.125*4500*0.2 + 0.875*4500*0.3
				So(pts, ShouldAlmostEqual, 6793.75)
			})
		})
	})

	Convey("Given an unranked tier", t, func() {
		Convey("Then no points are ever produced", func() {
			for _, tier := range []int{1, 9, 10} {
				_, ok := scoring.TotalPoints(tier, model.KindUnrestricted, 0, 1.0)
				So(ok, ShouldBeFalse)
			}
		})
	})

	Convey("Given a fixed rank and tier", t, func() {
		Convey("Then a larger distance term never yields fewer points", func() {
			prev := -1.0
			for d := 0.0; d <= 1.0; d += 0.05 {
				pts, ok := scoring.TotalPoints(6, model.KindUnrestricted, 10, d)
				So(ok, ShouldBeTrue)
				So(pts, ShouldBeGreaterThanOrEqualTo, prev)
				prev = pts
			}
		})
	})
}
