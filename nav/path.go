package nav

import "github.com/nstehr/vimy/vimy-micro/model"

// Path is the result of one planning call. Waypoints exclude the start cell
// and end at the goal (or at the best cell reached when Partial).
type Path struct {
	Start     model.Vec
	Waypoints []model.Vec
	Cells     []model.Cell
	Cost      float64 // in cells
	Partial   bool
}

// Len returns the number of waypoints left.
func (p *Path) Len() int { return len(p.Waypoints) }

// Empty reports whether every waypoint has been consumed.
func (p *Path) Empty() bool { return len(p.Waypoints) == 0 }

// Head returns the next waypoint.
func (p *Path) Head() (model.Vec, bool) {
	if len(p.Waypoints) == 0 {
		return model.Vec{}, false
	}
	return p.Waypoints[0], true
}

// Advance pops every leading waypoint within tolerance of pos and returns
// how many were dropped.
func (p *Path) Advance(pos model.Vec, tolerance float64) int {
	n := 0
	for len(p.Waypoints) > 0 && p.Waypoints[0].Dist(pos) <= tolerance {
		p.Waypoints = p.Waypoints[1:]
		if len(p.Cells) > 0 {
			p.Cells = p.Cells[1:]
		}
		n++
	}
	return n
}

// Length returns the world-space polyline length from Start through every
// remaining waypoint.
func (p *Path) Length() float64 {
	total := 0.0
	prev := p.Start
	for _, w := range p.Waypoints {
		total += prev.Dist(w)
		prev = w
	}
	return total
}

// ShouldReuse implements the replanning contract shared by every caller: an
// existing path is kept while at least a third of it remains, or when it was
// already much shorter than the new request. Lengths are in waypoints/cells.
func ShouldReuse(remaining, original, requested int) bool {
	if remaining == 0 {
		return false
	}
	return remaining*3 >= original || original*3 < requested
}

// ScaledMaxCost deepens the search budget for units that keep failing to
// reach their goal: every window frames the base budget grows by one
// multiple.
func ScaledMaxCost(base float64, elapsed, window int) float64 {
	if window <= 0 || elapsed <= 0 {
		return base
	}
	return base * float64(elapsed/window+1)
}
