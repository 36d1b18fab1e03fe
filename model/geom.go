package model

import "math"

// Vec is a world-space position or direction.
type Vec struct {
	X, Y float64
}

func (v Vec) Add(o Vec) Vec       { return Vec{v.X + o.X, v.Y + o.Y} }
func (v Vec) Sub(o Vec) Vec       { return Vec{v.X - o.X, v.Y - o.Y} }
func (v Vec) Scale(k float64) Vec { return Vec{v.X * k, v.Y * k} }
func (v Vec) Len() float64        { return math.Hypot(v.X, v.Y) }
func (v Vec) Dist(o Vec) float64  { return v.Sub(o).Len() }
func (v Vec) Angle() float64      { return math.Atan2(v.Y, v.X) }
func (v Vec) IsZero() bool        { return v.X == 0 && v.Y == 0 }

// Norm returns the unit vector, or the zero vector for a zero input.
func (v Vec) Norm() Vec {
	l := v.Len()
	if l == 0 {
		return Vec{}
	}
	return Vec{v.X / l, v.Y / l}
}

// AngleDiff returns the absolute difference between two angles in [0, π].
func AngleDiff(a, b float64) float64 {
	d := math.Mod(math.Abs(a-b), 2*math.Pi)
	if d > math.Pi {
		d = 2*math.Pi - d
	}
	return d
}

// Cell is a grid coordinate.
type Cell struct {
	X, Y int
}

// Rect is a tile-aligned rectangle in cells. X,Y is the north-west corner.
type Rect struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

func (r Rect) Empty() bool { return r.W <= 0 || r.H <= 0 }

func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H
}

// Clip returns the part of r inside a w×h grid.
func (r Rect) Clip(w, h int) Rect {
	x0, y0 := max(r.X, 0), max(r.Y, 0)
	x1, y1 := min(r.X+r.W, w), min(r.Y+r.H, h)
	if x1 <= x0 || y1 <= y0 {
		return Rect{}
	}
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// Nearest returns the cell of r closest to (x, y).
func (r Rect) Nearest(x, y int) Cell {
	return Cell{
		X: min(max(x, r.X), r.X+r.W-1),
		Y: min(max(y, r.Y), r.Y+r.H-1),
	}
}
