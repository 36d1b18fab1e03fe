package agent

import (
	"fmt"

	"github.com/nstehr/vimy/vimy-micro/config"
	"github.com/nstehr/vimy/vimy-micro/model"
)

// EventKind identifies a notable change between consecutive frames.
type EventKind string

const (
	EventArmyDevastated      EventKind = "army_devastated"
	EventEnemyBaseDiscovered EventKind = "enemy_base_discovered"
	EventFirstContact        EventKind = "first_contact"
	EventScoutingComplete    EventKind = "scouting_complete"
)

// Event is detected by diffing consecutive game states and logged for
// whoever is watching the sidecar.
type Event struct {
	Kind   EventKind
	Frame  int
	Detail string
}

// stateSnapshot captures the diffable fields of one frame.
type stateSnapshot struct {
	combatCount     int // armed units with a known profile
	hasEnemyBase    bool
	enemiesSeen     bool
	unscoutedStarts int
}

func takeSnapshot(gs model.GameState, tuning *config.Tuning) stateSnapshot {
	var snap stateSnapshot
	for _, u := range gs.Units {
		if p, ok := tuning.Profile(u.Type); ok && p.WeaponRange > 0 {
			snap.combatCount++
		}
	}
	for _, e := range gs.Enemies {
		if e.Visible && e.Hostile() {
			snap.enemiesSeen = true
			break
		}
	}
	for _, b := range gs.Bases {
		if b.Owner == model.OwnerHostile {
			snap.hasEnemyBase = true
		}
		if b.StartLocation && !b.Confirmed() {
			snap.unscoutedStarts++
		}
	}
	return snap
}

// detectEvents compares the current snapshot against the previous one.
// Returns nil if prev is nil (first frame).
func detectEvents(frame int, cur stateSnapshot, prev *stateSnapshot) []Event {
	if prev == nil {
		return nil
	}
	var events []Event

	// army_devastated: >50% combat units lost (floor of 6 to avoid early noise)
	if prev.combatCount >= 6 && cur.combatCount > 0 {
		lost := prev.combatCount - cur.combatCount
		if lost > 0 && float64(lost)/float64(prev.combatCount) > 0.5 {
			events = append(events, Event{
				Kind:   EventArmyDevastated,
				Frame:  frame,
				Detail: fmt.Sprintf("Army devastated: %d→%d combat units (lost %d%%)", prev.combatCount, cur.combatCount, 100*lost/prev.combatCount),
			})
		}
	}

	if !prev.hasEnemyBase && cur.hasEnemyBase {
		events = append(events, Event{
			Kind:   EventEnemyBaseDiscovered,
			Frame:  frame,
			Detail: "Enemy base located",
		})
	}

	if !prev.enemiesSeen && cur.enemiesSeen {
		events = append(events, Event{
			Kind:   EventFirstContact,
			Frame:  frame,
			Detail: "Hostiles visible for the first time",
		})
	}

	if prev.unscoutedStarts > 0 && cur.unscoutedStarts == 0 {
		events = append(events, Event{
			Kind:   EventScoutingComplete,
			Frame:  frame,
			Detail: "Every start location confirmed",
		})
	}

	return events
}
