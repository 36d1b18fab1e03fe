package ipc

import (
	"fmt"

	"github.com/nstehr/vimy/vimy-micro/model"
)

// These constants must stay in sync with the game adapter's message enum.
const (
	TypeHello     = "hello"
	TypeAck       = "ack"
	TypeGameState = "game_state"
	TypeObstacle  = "obstacle"
)

type HelloMessage struct {
	Player    string          `json:"player"`
	Faction   string          `json:"faction"`
	Map       MapData         `json:"map"`
	Obstacles []ObstacleEvent `json:"obstacles,omitempty"` // structures already standing
}

// MapData carries the walk grid: one terrain code per cell, row-major.
type MapData struct {
	Cols     int     `json:"cols"`
	Rows     int     `json:"rows"`
	TileSize float64 `json:"tileSize"`
	Grid     []int   `json:"grid"`
}

// WalkGrid converts and validates the map.
func (m MapData) WalkGrid() (*model.WalkGrid, error) {
	g := &model.WalkGrid{Cols: m.Cols, Rows: m.Rows, TileSize: m.TileSize, Grid: make([]model.TerrainType, len(m.Grid))}
	for i, v := range m.Grid {
		if v < int(model.Land) || v > int(model.Bridge) {
			return nil, fmt.Errorf("map: cell %d: unknown terrain %d", i, v)
		}
		g.Grid[i] = model.TerrainType(v)
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// Obstacle operations.
const (
	ObstacleInsert = "insert"
	ObstacleRemove = "remove"
)

// ObstacleEvent reports a structure footprint appearing or disappearing.
// The rect is in cells.
type ObstacleEvent struct {
	Op          string     `json:"op"`
	StructureID int        `json:"structure_id"`
	Type        string     `json:"type,omitempty"`
	Rect        model.Rect `json:"rect"`
}

type AckMessage struct {
	Status string `json:"status"`
}
