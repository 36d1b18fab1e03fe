package agent

import (
	"fmt"
	"log/slog"

	"github.com/nstehr/vimy/vimy-micro/ipc"
	"github.com/nstehr/vimy/vimy-micro/model"
	"github.com/nstehr/vimy/vimy-micro/nav"
)

// obstacleTracker maps structure ids to the footprint they put into the
// clearance field, so a removal always takes out exactly what was inserted
// and a structure re-landing elsewhere moves its footprint.
type obstacleTracker struct {
	field *nav.ClearanceField
	byID  map[int]model.Rect
}

func newObstacleTracker(field *nav.ClearanceField) *obstacleTracker {
	return &obstacleTracker{field: field, byID: make(map[int]model.Rect)}
}

func (t *obstacleTracker) Apply(ev ipc.ObstacleEvent) error {
	switch ev.Op {
	case ipc.ObstacleInsert:
		if old, ok := t.byID[ev.StructureID]; ok {
			if old == ev.Rect {
				return nil
			}
			t.field.RemoveObstacle(old)
		}
		t.field.InsertObstacle(ev.Rect)
		t.byID[ev.StructureID] = ev.Rect
		slog.Debug("obstacle inserted", "structure", ev.StructureID, "type", ev.Type, "rect", ev.Rect)
	case ipc.ObstacleRemove:
		old, ok := t.byID[ev.StructureID]
		if !ok {
			slog.Debug("remove for untracked structure", "structure", ev.StructureID)
			return nil
		}
		t.field.RemoveObstacle(old)
		delete(t.byID, ev.StructureID)
		slog.Debug("obstacle removed", "structure", ev.StructureID, "rect", old)
	default:
		return fmt.Errorf("obstacle %d: unknown op %q", ev.StructureID, ev.Op)
	}
	return nil
}

func (t *obstacleTracker) Len() int { return len(t.byID) }
