// Package threat maintains the per-frame potential fields used for target
// avoidance and opportunistic targeting. Both layers are rebuilt from the
// hostile snapshot every tick; nothing carries over between ticks.
package threat

import (
	"math"

	"github.com/nstehr/vimy/vimy-micro/model"
)

// Options are the empirically tuned field constants.
type Options struct {
	SafetyMargin int     // cells added to every hostile's weapon range
	CenterValue  float64 // danger at a hostile's own cell
	WorkerValue  float64 // target value at a worker's own cell
	WorkerRadius int     // cells over which worker value is spread
}

func DefaultOptions() Options {
	return Options{
		SafetyMargin: 2,
		CenterValue:  10,
		WorkerValue:  5,
		WorkerRadius: 6,
	}
}

// HostileInfo is what the field needs to know about a hostile's type.
type HostileInfo struct {
	WeaponRange float64 // world units
	Worker      bool
}

// ProfileLookup resolves a hostile type; ok=false for unknown types, which
// are splatted with zero weapon range (margin only).
type ProfileLookup func(unitType string) (HostileInfo, bool)

// Field is the danger and target-value grid.
type Field struct {
	width, height int
	tileSize      float64
	opts          Options

	danger []float64
	value  []float64
}

func New(width, height int, tileSize float64, opts Options) *Field {
	return &Field{
		width:    width,
		height:   height,
		tileSize: tileSize,
		opts:     opts,
		danger:   make([]float64, width*height),
		value:    make([]float64, width*height),
	}
}

// SetOptions swaps tuning; takes effect on the next Rebuild.
func (f *Field) SetOptions(opts Options) { f.opts = opts }

func (f *Field) inBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < f.width && y < f.height
}

// CellAt maps a world position to its cell.
func (f *Field) CellAt(p model.Vec) model.Cell {
	return model.Cell{X: int(math.Floor(p.X / f.tileSize)), Y: int(math.Floor(p.Y / f.tileSize))}
}

// CellCenter maps a cell to its world-space center.
func (f *Field) CellCenter(c model.Cell) model.Vec {
	return model.Vec{X: (float64(c.X) + 0.5) * f.tileSize, Y: (float64(c.Y) + 0.5) * f.tileSize}
}

// Rebuild recomputes both layers from the visible hostiles.
func (f *Field) Rebuild(hostiles []model.Enemy, lookup ProfileLookup) {
	clear(f.danger)
	clear(f.value)

	for _, e := range hostiles {
		if !e.Visible || !e.Hostile() {
			continue
		}
		var info HostileInfo
		if lookup != nil {
			info, _ = lookup(e.Type)
		}
		c := f.CellAt(e.Pos())
		radius := int(math.Ceil(info.WeaponRange/f.tileSize)) + f.opts.SafetyMargin
		f.splatLinear(c, radius, f.opts.CenterValue)
		if info.Worker {
			f.splatInverse(c, f.opts.WorkerRadius, f.opts.WorkerValue)
		}
	}
}

// splatLinear adds center·(1 − d/r) to every cell closer than r.
func (f *Field) splatLinear(c model.Cell, r int, center float64) {
	if r <= 0 {
		return
	}
	rf := float64(r)
	f.eachInDisk(c, r, func(i int, d float64) {
		if d < rf {
			f.danger[i] += center * (1 - d/rf)
		}
	})
}

// splatInverse adds peak/(1 + d) to every cell within r.
func (f *Field) splatInverse(c model.Cell, r int, peak float64) {
	f.eachInDisk(c, r, func(i int, d float64) {
		f.value[i] += peak / (1 + d)
	})
}

func (f *Field) eachInDisk(c model.Cell, r int, fn func(i int, d float64)) {
	rf := float64(r)
	for y := max(c.Y-r, 0); y <= min(c.Y+r, f.height-1); y++ {
		for x := max(c.X-r, 0); x <= min(c.X+r, f.width-1); x++ {
			d := math.Hypot(float64(x-c.X), float64(y-c.Y))
			if d > rf {
				continue
			}
			fn(y*f.width+x, d)
		}
	}
}

// Danger returns the summed danger of a cell, 0 outside the grid.
func (f *Field) Danger(c model.Cell) float64 {
	if !f.inBounds(c.X, c.Y) {
		return 0
	}
	return f.danger[c.Y*f.width+c.X]
}

func (f *Field) DangerAt(p model.Vec) float64 { return f.Danger(f.CellAt(p)) }

// Value returns the opportunistic target value of a cell.
func (f *Field) Value(c model.Cell) float64 {
	if !f.inBounds(c.X, c.Y) {
		return 0
	}
	return f.value[c.Y*f.width+c.X]
}

func (f *Field) ValueAt(p model.Vec) float64 { return f.Value(f.CellAt(p)) }

// diagonals in the fixed order used to break equal-danger ties.
var diagonals = [4][2]int{{1, -1}, {1, 1}, {-1, 1}, {-1, -1}}

// RetreatTarget walks greedily downhill from pos for up to budget cells,
// each step moving to the least dangerous in-bounds diagonal neighbour. The
// walk stops early at the grid edge or when no neighbour is strictly safer
// than the current cell, so a flat field returns pos unchanged. It is a
// local heuristic, not a safe path; callers re-query every tick.
func (f *Field) RetreatTarget(pos model.Vec, budget int) model.Vec {
	c := f.CellAt(pos)
	if !f.inBounds(c.X, c.Y) {
		return pos
	}
	moved := false
	for ; budget > 0; budget-- {
		best, bestD, found := c, f.Danger(c), false
		for _, d := range diagonals {
			n := model.Cell{X: c.X + d[0], Y: c.Y + d[1]}
			if !f.inBounds(n.X, n.Y) {
				continue
			}
			if v := f.Danger(n); v < bestD {
				best, bestD, found = n, v, true
			}
		}
		if !found {
			break
		}
		c, moved = best, true
		if c.X == 0 || c.Y == 0 || c.X == f.width-1 || c.Y == f.height-1 {
			break
		}
	}
	if !moved {
		return pos
	}
	return f.CellCenter(c)
}

// BestValueCell returns the highest-value cell within radius cells of pos,
// ok=false when every cell there is worthless.
func (f *Field) BestValueCell(pos model.Vec, radius int) (model.Cell, bool) {
	c := f.CellAt(pos)
	best, bestV := model.Cell{}, 0.0
	f.eachInDisk(c, radius, func(i int, _ float64) {
		if f.value[i] > bestV {
			best, bestV = model.Cell{X: i % f.width, Y: i / f.width}, f.value[i]
		}
	})
	return best, bestV > 0
}
