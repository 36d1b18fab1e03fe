package model

import "fmt"

// TerrainType classifies a walk-grid cell as reported by the adapter.
type TerrainType byte

const (
	Land   TerrainType = 0 // passable ground
	Water  TerrainType = 1 // naval only
	Cliff  TerrainType = 2 // impassable (rock, tree, wall)
	Bridge TerrainType = 3 // land corridor over water
)

// Walkable reports whether ground units can stand on the terrain.
func (t TerrainType) Walkable() bool {
	return t == Land || t == Bridge
}

// WalkGrid is the fixed-resolution terrain grid of the map. Each cell covers
// TileSize world units on a side. Obstacles are tracked separately by the
// clearance field; this grid only carries static terrain.
type WalkGrid struct {
	Cols     int           // grid columns
	Rows     int           // grid rows
	TileSize float64       // world units per cell
	Grid     []TerrainType // row-major: Grid[row*Cols + col]
}

// NewWalkGrid returns an all-Land grid.
func NewWalkGrid(cols, rows int, tileSize float64) *WalkGrid {
	return &WalkGrid{
		Cols:     cols,
		Rows:     rows,
		TileSize: tileSize,
		Grid:     make([]TerrainType, cols*rows),
	}
}

// MaxGridSide bounds each grid dimension so Cols*Rows cannot overflow.
const MaxGridSide = 1 << 14

// Validate checks the grid dimensions against the cell slice.
func (g *WalkGrid) Validate() error {
	if g.Cols <= 0 || g.Rows <= 0 || g.Cols > MaxGridSide || g.Rows > MaxGridSide {
		return fmt.Errorf("walk grid: invalid size %dx%d", g.Cols, g.Rows)
	}
	if len(g.Grid) != g.Cols*g.Rows {
		return fmt.Errorf("walk grid: %d cells for %dx%d", len(g.Grid), g.Cols, g.Rows)
	}
	if g.TileSize <= 0 {
		return fmt.Errorf("walk grid: invalid tile size %v", g.TileSize)
	}
	return nil
}

// At returns the terrain type at grid coordinates (col, row).
// Returns Cliff for out-of-bounds coordinates.
func (g *WalkGrid) At(col, row int) TerrainType {
	if col < 0 || col >= g.Cols || row < 0 || row >= g.Rows {
		return Cliff
	}
	return g.Grid[row*g.Cols+col]
}

// Set overwrites one cell; out-of-bounds writes are ignored.
func (g *WalkGrid) Set(col, row int, t TerrainType) {
	if col < 0 || col >= g.Cols || row < 0 || row >= g.Rows {
		return
	}
	g.Grid[row*g.Cols+col] = t
}

// Walkable reports whether terrain at (col, row) is passable.
func (g *WalkGrid) Walkable(col, row int) bool {
	return g.At(col, row).Walkable()
}

// CellAt converts world coordinates to the containing cell.
func (g *WalkGrid) CellAt(p Vec) Cell {
	return Cell{X: floorDiv(p.X, g.TileSize), Y: floorDiv(p.Y, g.TileSize)}
}

// CellCenter returns the world coordinates of the center of (col, row).
func (g *WalkGrid) CellCenter(col, row int) Vec {
	return Vec{(float64(col) + 0.5) * g.TileSize, (float64(row) + 0.5) * g.TileSize}
}

func floorDiv(v, size float64) int {
	if size <= 0 {
		return 0
	}
	q := v / size
	i := int(q)
	if q < 0 && float64(i) != q {
		i--
	}
	return i
}
