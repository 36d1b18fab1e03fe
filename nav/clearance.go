package nav

import (
	"log/slog"

	"github.com/nstehr/vimy/vimy-micro/model"
)

// ClearanceField stores, per cell, the side of the largest obstacle-free
// square whose north-west corner is that cell. A unit with footprint f can
// stand on a cell iff its clearance is at least f.
//
// Values satisfy c = 0 for unwalkable cells and c = 1 + min(S, E, SE)
// otherwise, with out-of-range neighbours counting as 0. Obstacle changes
// are applied incrementally; only Build touches the whole grid.
type ClearanceField struct {
	width, height int
	tileSize      float64

	terrain   []bool   // static walkability from the walk grid
	blockers  []uint16 // number of obstacles covering each cell
	clearance []int

	// Incremental update scratch, reused across updates.
	buckets [][]int // indexed by x+y
	queued  []bool
}

// NewClearanceField builds the field for a walk grid.
func NewClearanceField(grid *model.WalkGrid) *ClearanceField {
	n := grid.Cols * grid.Rows
	f := &ClearanceField{
		width:     grid.Cols,
		height:    grid.Rows,
		tileSize:  grid.TileSize,
		terrain:   make([]bool, n),
		blockers:  make([]uint16, n),
		clearance: make([]int, n),
		buckets:   make([][]int, grid.Cols+grid.Rows-1),
		queued:    make([]bool, n),
	}
	for y := 0; y < grid.Rows; y++ {
		for x := 0; x < grid.Cols; x++ {
			f.terrain[y*f.width+x] = grid.Walkable(x, y)
		}
	}
	f.Build()
	return f
}

func (f *ClearanceField) Width() int        { return f.width }
func (f *ClearanceField) Height() int       { return f.height }
func (f *ClearanceField) TileSize() float64 { return f.tileSize }

func (f *ClearanceField) inBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < f.width && y < f.height
}

// Walkable reports whether the cell is passable terrain with no obstacle on it.
func (f *ClearanceField) Walkable(x, y int) bool {
	if !f.inBounds(x, y) {
		return false
	}
	i := y*f.width + x
	return f.terrain[i] && f.blockers[i] == 0
}

// Clearance returns the cell's clearance, 0 outside the grid.
func (f *ClearanceField) Clearance(x, y int) int {
	if !f.inBounds(x, y) {
		return 0
	}
	return f.clearance[y*f.width+x]
}

// Admissible reports whether a unit with the given footprint may occupy the cell.
func (f *ClearanceField) Admissible(x, y, footprint int) bool {
	return f.Clearance(x, y) >= max(footprint, 1)
}

// compute derives a cell's clearance from its current forward neighbours.
func (f *ClearanceField) compute(x, y int) int {
	if !f.Walkable(x, y) {
		return 0
	}
	return 1 + min(f.Clearance(x, y+1), f.Clearance(x+1, y), f.Clearance(x+1, y+1))
}

// Build recomputes every cell. Walking rows and columns backwards from the
// south-east corner visits cells after their forward neighbours.
func (f *ClearanceField) Build() {
	for y := f.height - 1; y >= 0; y-- {
		for x := f.width - 1; x >= 0; x-- {
			f.clearance[y*f.width+x] = f.compute(x, y)
		}
	}
}

// InsertObstacle marks the cells of r (clipped to the grid) as blocked.
func (f *ClearanceField) InsertObstacle(r model.Rect) {
	f.applyObstacle(r, true)
}

// RemoveObstacle releases the cells of r. Cells still covered by another
// obstacle stay blocked.
func (f *ClearanceField) RemoveObstacle(r model.Rect) {
	f.applyObstacle(r, false)
}

func (f *ClearanceField) applyObstacle(r model.Rect, insert bool) {
	r = r.Clip(f.width, f.height)
	if r.Empty() {
		return
	}

	seeded := 0
	for y := r.Y; y < r.Y+r.H; y++ {
		for x := r.X; x < r.X+r.W; x++ {
			i := y*f.width + x
			before := f.Walkable(x, y)
			if insert {
				f.blockers[i]++
			} else if f.blockers[i] > 0 {
				f.blockers[i]--
			}
			if f.Walkable(x, y) != before {
				f.enqueue(x, y)
				seeded++
			}
		}
	}
	if seeded == 0 {
		return
	}
	updated := f.drain(r.X + r.W - 1 + r.Y + r.H - 1)
	slog.Debug("clearance updated", "rect", r, "insert", insert, "seeded", seeded, "recomputed", updated)
}

func (f *ClearanceField) enqueue(x, y int) {
	if !f.inBounds(x, y) {
		return
	}
	i := y*f.width + x
	if f.queued[i] {
		return
	}
	f.queued[i] = true
	f.buckets[x+y] = append(f.buckets[x+y], i)
}

// drain processes queued cells from the highest anti-diagonal down. A cell's
// dependents (N, W, NW) sit on strictly lower diagonals, so by the time a
// bucket is drained nothing can be added to it again and each cell is
// recomputed at most once.
func (f *ClearanceField) drain(top int) int {
	recomputed := 0
	for s := top; s >= 0; s-- {
		bucket := f.buckets[s]
		for _, i := range bucket {
			f.queued[i] = false
			x, y := i%f.width, i/f.width
			recomputed++
			v := f.compute(x, y)
			if v == f.clearance[i] {
				continue
			}
			f.clearance[i] = v
			f.enqueue(x, y-1)
			f.enqueue(x-1, y)
			f.enqueue(x-1, y-1)
		}
		f.buckets[s] = bucket[:0]
	}
	return recomputed
}
