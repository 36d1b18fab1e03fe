package combat

import "github.com/nstehr/vimy/vimy-micro/model"

// SelectScoutBase picks the next base to scout from pos. Unconfirmed start
// locations come first, nearest wins; otherwise the least recently scouted
// base, nearest on ties. The base with id exclude is skipped.
func SelectScoutBase(bases []model.Base, pos model.Vec, exclude int) (model.Base, bool) {
	var (
		best     model.Base
		found    bool
		bestTier int
	)
	tier := func(b model.Base) int {
		if b.StartLocation && !b.Confirmed() {
			return 0
		}
		return 1
	}
	better := func(b model.Base) bool {
		t := tier(b)
		if t != bestTier {
			return t < bestTier
		}
		if t == 1 && b.LastScouted != best.LastScouted {
			return b.LastScouted < best.LastScouted
		}
		return b.Pos().Dist(pos) < best.Pos().Dist(pos)
	}
	for _, b := range bases {
		if b.ID == exclude {
			continue
		}
		if !found || better(b) {
			best, bestTier, found = b, tier(b), true
		}
	}
	return best, found
}

// settled reports whether a scouted base no longer needs attention: it is in
// view and known not to be hostile.
func settled(b model.Base) bool {
	return b.Visible && b.Confirmed() && b.Owner != model.OwnerHostile
}
