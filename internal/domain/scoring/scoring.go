// Package scoring computes point values for personal bests.
//
// A point value has three parts: a base amount from the variant's difficulty
// tier, a bonus for holding a high rank in the field, and a "distance" term
// measuring how competitive the time itself is. The distance term comes from
// distribution parameters fitted offline by an external job; this package
// only evaluates them.
package scoring

import (
	"math"

	"github.com/paceboard/paceboard/internal/domain/model"
)

// MaxPoints is the ceiling for any point value.
const MaxPoints = 10_000.0

// SmallFieldThreshold is the largest field size that is scored with the
// tier-shaped curve instead of fitted distribution parameters. Fields this
// small don't carry enough samples for a meaningful fit.
const SmallFieldThreshold = 50

// zeroAidBoost is the fraction of headroom added to the base on the
// zero-aid board.
const zeroAidBoost = 0.1

// basePointsByTier maps tiers 2..8 to base points. Tiers 1, 9 and 10 are
// never scored.
var basePointsByTier = map[int]float64{
	2: 500,
	3: 2_000,
	4: 3_500,
	5: 5_000,
	6: 6_500,
	7: 8_000,
	8: 9_500,
}

// placementBonus rewards the top five positions on top of the rank curve.
var placementBonus = [5]float64{0.2, 0.12, 0.09, 0.06, 0.02}

// Params are the five coefficients describing a fitted monotone mapping from
// time to a normalized competitiveness value. They are produced wholesale by
// the external fitting job and treated as opaque here.
type Params struct {
	A        float64 `json:"a"`
	B        float64 `json:"b"`
	Loc      float64 `json:"loc"`
	Scale    float64 `json:"scale"`
	TopScale float64 `json:"top_scale"`
}

// BasePoints returns the tier-derived base for a board. The second return is
// false for tiers that never score (1, 9, 10 and anything out of range).
func BasePoints(tier int, kind model.RankingKind) (float64, bool) {
	base, ok := basePointsByTier[tier]
	if !ok {
		return 0, false
	}
	if kind == model.KindZeroAid {
		base += (MaxPoints - base) * zeroAidBoost
	}
	return base, true
}

// RankBonus converts a 0-based rank into a bonus factor. The curve stacks a
// shallow top-100 slope, a steeper top-20 slope and a fixed placement bonus
// for the podium positions.
func RankBonus(rank int) float64 {
	if rank < 0 {
		return 0
	}

	var bonus float64
	if rank < 100 {
		bonus += float64(100-rank) * 0.004
	}
	if rank < 20 {
		bonus += float64(20-rank) * 0.02
	}
	if rank < len(placementBonus) {
		bonus += placementBonus[rank]
	}
	return bonus
}

// DistancePoints evaluates the fitted curve at the given time. The result is
// deterministic, monotone non-increasing in time, and bounded to [0,1].
// Absent or degenerate parameters yield 0.
func DistancePoints(time float64, p *Params) float64 {
	if p == nil {
		return 0
	}
	if p.A <= 0 || p.Scale <= 0 || !finite(p.A, p.B, p.Loc, p.Scale, p.TopScale) {
		return 0
	}
	if math.IsNaN(time) || math.IsInf(time, 0) {
		return 0
	}

	// Logistic survival curve over the scaled time: faster times sit further
	// left and survive with higher probability.
	z := (time - p.Loc) / p.Scale
	sf := 1 / (1 + math.Exp(p.A*z+p.B))

	// TopScale is the curve's value at the fitted top time; dividing by it
	// pins the world record at 1.0.
	if p.TopScale > 0 {
		sf /= p.TopScale
	}
	return clamp01(sf)
}

// SmallFieldPoints scores the distance term for fields of at most
// SmallFieldThreshold entries, as a tier-shaped curve of the ratio between
// the time and the field's top time. Equal to 1.0 at the top time and
// strictly decreasing for slower times.
func SmallFieldPoints(tier int, topTime, time float64) float64 {
	if topTime <= 0 || time < topTime {
		return 0
	}

	x := 2.1 - 0.25*float64(tier)
	y := 1 + math.Exp(-0.5*x)
	z := 1 + math.Exp(x*(time/topTime-1.5))
	return clamp01(y / z)
}

// TotalPoints combines base, rank bonus and distance term into the final
// point value for one personal best. dist must already be in [0,1] (from
// DistancePoints or SmallFieldPoints). The second return is false when the
// tier is not scored at all.
func TotalPoints(tier int, kind model.RankingKind, rank int, dist float64) (float64, bool) {
	base, ok := BasePoints(tier, kind)
	if !ok {
		return 0, false
	}

	remaining := MaxPoints - base
	points := base +
		0.125*remaining*RankBonus(rank) +
		0.875*remaining*clamp01(dist)

	return math.Max(0, math.Min(MaxPoints, points)), true
}

func clamp01(x float64) float64 {
	if math.IsNaN(x) {
		return 0
	}
	return math.Max(0, math.Min(1, x))
}

func finite(xs ...float64) bool {
	for _, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
