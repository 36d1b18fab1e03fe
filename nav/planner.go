package nav

import (
	"container/heap"
	"fmt"
	"math"
	"slices"

	"github.com/nstehr/vimy/vimy-micro/model"
)

// PlannerOptions tunes the planner.
type PlannerOptions struct {
	// StartSearchRadius bounds the ring search (in cells) used when the start
	// or a point goal sits on a cell too tight for the footprint.
	StartSearchRadius int
}

// DefaultPlannerOptions mirrors the shipped tuning file.
func DefaultPlannerOptions() PlannerOptions {
	return PlannerOptions{StartSearchRadius: 4}
}

// Planner runs A* over a ClearanceField. Search bookkeeping lives in
// per-planner arrays indexed by cell and stamped with a search generation,
// so a Planner must only be used from one goroutine at a time.
type Planner struct {
	field *ClearanceField
	opts  PlannerOptions

	gen    uint32
	stamp  []uint32 // generation a cell's bookkeeping belongs to
	g      []float64
	parent []int32
	closed []bool
	open   openList
}

// NewPlanner creates a planner over the field.
func NewPlanner(field *ClearanceField, opts PlannerOptions) *Planner {
	n := field.width * field.height
	return &Planner{
		field:  field,
		opts:   opts,
		stamp:  make([]uint32, n),
		g:      make([]float64, n),
		parent: make([]int32, n),
		closed: make([]bool, n),
	}
}

// SetOptions replaces the options; the next search uses them.
func (p *Planner) SetOptions(opts PlannerOptions) { p.opts = opts }

// Field returns the clearance field the planner reads.
func (p *Planner) Field() *ClearanceField { return p.field }

// AnchorCell maps a world position to the footprint anchor (north-west cell)
// of a unit centered there.
func (p *Planner) AnchorCell(pos model.Vec, footprint int) model.Cell {
	f := float64(max(footprint, 1))
	ts := p.field.tileSize
	return model.Cell{
		X: int(math.Floor(pos.X/ts - f/2 + 0.5)),
		Y: int(math.Floor(pos.Y/ts - f/2 + 0.5)),
	}
}

// Waypoint maps an anchor cell back to the world center of the footprint.
func (p *Planner) Waypoint(c model.Cell, footprint int) model.Vec {
	f := float64(max(footprint, 1))
	ts := p.field.tileSize
	return model.Vec{X: (float64(c.X) + f/2) * ts, Y: (float64(c.Y) + f/2) * ts}
}

// FindPath plans from start toward a world-space goal point. maxCost is in
// cells; zero or negative means unbounded.
// An unresolvable start is reported before any goal problem.
func (p *Planner) FindPath(start, goal model.Vec, footprint int, maxCost float64) (Path, error) {
	sc, anchor, err := p.resolveStart(start, footprint)
	if err != nil {
		return Path{}, err
	}
	gc, ok := p.resolve(p.AnchorCell(goal, footprint), footprint)
	if !ok {
		return Path{}, fmt.Errorf("goal %v footprint %d: %w", goal, footprint, ErrNoPathFound)
	}
	target := model.Rect{X: gc.X, Y: gc.Y, W: 1, H: 1}
	return p.search(start, sc, anchor, target, footprint, maxCost)
}

// FindPathToRect plans toward any cell of a rectangular goal, typically the
// cells around a structure.
func (p *Planner) FindPathToRect(start model.Vec, goal model.Rect, footprint int, maxCost float64) (Path, error) {
	sc, anchor, err := p.resolveStart(start, footprint)
	if err != nil {
		return Path{}, err
	}
	if goal.Empty() {
		return Path{}, fmt.Errorf("empty goal rect: %w", ErrNoPathFound)
	}
	return p.search(start, sc, anchor, goal, footprint, maxCost)
}

func (p *Planner) resolveStart(pos model.Vec, footprint int) (start, anchor model.Cell, err error) {
	anchor = p.AnchorCell(pos, footprint)
	start, ok := p.resolve(anchor, footprint)
	if !ok {
		return start, anchor, fmt.Errorf("start %v footprint %d: %w", pos, footprint, ErrInvalidStartNode)
	}
	return start, anchor, nil
}

// resolve returns c if admissible, else the nearest admissible cell within
// the ring radius. Cells are visited ring by ring; within a ring the
// Euclidean-nearest wins and scan order breaks ties.
func (p *Planner) resolve(c model.Cell, footprint int) (model.Cell, bool) {
	c.X = min(max(c.X, 0), p.field.width-1)
	c.Y = min(max(c.Y, 0), p.field.height-1)
	if p.field.Admissible(c.X, c.Y, footprint) {
		return c, true
	}
	for r := 1; r <= p.opts.StartSearchRadius; r++ {
		best, bestD := model.Cell{}, math.MaxFloat64
		for dy := -r; dy <= r; dy++ {
			for dx := -r; dx <= r; dx++ {
				if max(abs(dx), abs(dy)) != r {
					continue
				}
				x, y := c.X+dx, c.Y+dy
				if !p.field.Admissible(x, y, footprint) {
					continue
				}
				if d := math.Hypot(float64(dx), float64(dy)); d < bestD {
					best, bestD = model.Cell{X: x, Y: y}, d
				}
			}
		}
		if bestD < math.MaxFloat64 {
			return best, true
		}
	}
	return c, false
}

var dirs = [8][2]int{
	{1, 0}, {-1, 0}, {0, 1}, {0, -1},
	{1, 1}, {1, -1}, {-1, 1}, {-1, -1},
}

func (p *Planner) reset() {
	p.gen++
	if p.gen == 0 {
		// Wrapped: stale stamps could alias the new generation.
		clear(p.stamp)
		p.gen = 1
	}
	p.open = p.open[:0]
}

func (p *Planner) touched(i int) bool { return p.stamp[i] == p.gen }

func (p *Planner) search(startPos model.Vec, start, anchor model.Cell, goal model.Rect, footprint int, maxCost float64) (Path, error) {
	w := p.field.width
	heuristic := func(x, y int) float64 {
		n := goal.Nearest(x, y)
		return math.Hypot(float64(x-n.X), float64(y-n.Y))
	}

	p.reset()
	si := start.Y*w + start.X
	p.stamp[si] = p.gen
	p.g[si] = 0
	p.parent[si] = -1
	p.closed[si] = false
	heap.Push(&p.open, &openNode{idx: si, g: 0, h: heuristic(start.X, start.Y)})

	bestIdx, bestH := si, heuristic(start.X, start.Y)
	truncated := false

	for p.open.Len() > 0 {
		cur := heap.Pop(&p.open).(*openNode)
		if p.closed[cur.idx] || cur.g > p.g[cur.idx] {
			continue
		}
		p.closed[cur.idx] = true
		cx, cy := cur.idx%w, cur.idx/w

		if goal.Contains(cx, cy) {
			return p.buildPath(startPos, start, anchor, cur.idx, footprint, false), nil
		}
		if cur.h < bestH {
			bestIdx, bestH = cur.idx, cur.h
		}

		for _, d := range dirs {
			nx, ny := cx+d[0], cy+d[1]
			if !p.field.Admissible(nx, ny, footprint) {
				continue
			}
			cost := 1.0
			if d[0] != 0 && d[1] != 0 {
				if !p.field.Admissible(cx+d[0], cy, footprint) || !p.field.Admissible(cx, cy+d[1], footprint) {
					continue
				}
				cost = math.Sqrt2
			}
			ni := ny*w + nx
			ng := cur.g + cost
			if maxCost > 0 && ng > maxCost {
				truncated = true
				continue
			}
			if p.touched(ni) {
				if p.closed[ni] || ng >= p.g[ni] {
					continue
				}
			} else {
				p.stamp[ni] = p.gen
				p.closed[ni] = false
			}
			p.g[ni] = ng
			p.parent[ni] = int32(cur.idx)
			heap.Push(&p.open, &openNode{idx: ni, g: ng, h: heuristic(nx, ny)})
		}
	}

	if truncated && bestIdx != si {
		return p.buildPath(startPos, start, anchor, bestIdx, footprint, true), nil
	}
	return Path{}, fmt.Errorf("from %v to %v: %w", start, goal, ErrNoPathFound)
}

// buildPath walks parents back from end. When the start had to be moved off
// a tight cell, the resolved start becomes the first waypoint so the unit
// steps onto admissible ground before following the rest.
func (p *Planner) buildPath(startPos model.Vec, start, anchor model.Cell, end, footprint int, partial bool) Path {
	w := p.field.width
	var cells []model.Cell
	for i := end; p.parent[i] >= 0; i = int(p.parent[i]) {
		cells = append(cells, model.Cell{X: i % w, Y: i / w})
	}
	if start != anchor {
		cells = append(cells, start)
	}
	slices.Reverse(cells)

	path := Path{
		Start:     startPos,
		Waypoints: make([]model.Vec, len(cells)),
		Cells:     cells,
		Cost:      p.g[end],
		Partial:   partial,
	}
	for i, c := range cells {
		path.Waypoints[i] = p.Waypoint(c, footprint)
	}
	return path
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// --- open list ---

type openNode struct {
	idx  int
	g, h float64
}

type openList []*openNode

func (ol openList) Len() int { return len(ol) }

// Less orders by f, preferring nodes nearer the goal on ties so equal-cost
// fronts are explored goal-first.
func (ol openList) Less(i, j int) bool {
	fi, fj := ol[i].g+ol[i].h, ol[j].g+ol[j].h
	if fi != fj {
		return fi < fj
	}
	return ol[i].h < ol[j].h
}

func (ol openList) Swap(i, j int) { ol[i], ol[j] = ol[j], ol[i] }
func (ol *openList) Push(x any)   { *ol = append(*ol, x.(*openNode)) }
func (ol *openList) Pop() any {
	old := *ol
	n := old[len(old)-1]
	old[len(old)-1] = nil
	*ol = old[:len(old)-1]
	return n
}
