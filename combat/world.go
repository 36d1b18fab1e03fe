package combat

import (
	"github.com/nstehr/vimy/vimy-micro/model"
	"github.com/nstehr/vimy/vimy-micro/nav"
	"github.com/nstehr/vimy/vimy-micro/threat"
)

// Commander issues orders to the game adapter.
type Commander interface {
	Move(actorID int, to model.Vec) error
	Attack(actorID, targetID int) error
}

// BaseRegistry enumerates candidate base locations for scouting.
type BaseRegistry interface {
	Bases() []model.Base
}

// World is everything a unit may consult during one tick. Hostiles holds
// only visible, non-neutral enemies.
type World struct {
	Frame    int
	Hostiles []model.Enemy
	Threat   *threat.Field
	Planner  *nav.Planner
	Bases    BaseRegistry
	Commands Commander
}

func (w *World) tileSize() float64 {
	if w.Planner == nil {
		return 1
	}
	return w.Planner.Field().TileSize()
}

func (w *World) hostile(id int) (model.Enemy, bool) {
	for _, h := range w.Hostiles {
		if h.ID == id {
			return h, true
		}
	}
	return model.Enemy{}, false
}

// VisibleHostiles filters an enemy snapshot down to what units may engage.
func VisibleHostiles(enemies []model.Enemy) []model.Enemy {
	out := make([]model.Enemy, 0, len(enemies))
	for _, e := range enemies {
		if e.Visible && e.Hostile() {
			out = append(out, e)
		}
	}
	return out
}

// Snapshot is a BaseRegistry backed by one frame's base list.
type Snapshot []model.Base

func (s Snapshot) Bases() []model.Base { return s }
