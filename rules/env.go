package rules

import (
	"github.com/nstehr/vimy/vimy-micro/combat"
	"github.com/nstehr/vimy/vimy-micro/model"
)

// RuleEnv is one frame's view for the escalation rules. Its methods are
// callable from expr conditions.
type RuleEnv struct {
	Frame    int
	Units    []combat.Status
	Hostiles []model.Enemy // visible hostiles only
	Bases    []model.Base
}

func (e RuleEnv) filter(keep func(combat.Status) bool) []combat.Status {
	var out []combat.Status
	for _, u := range e.Units {
		if keep(u) {
			out = append(out, u)
		}
	}
	return out
}

// IdleGroundUnits returns armed ground units with nothing to do.
func (e RuleEnv) IdleGroundUnits() []combat.Status {
	return e.filter(func(u combat.Status) bool { return u.Armed && !u.Flying && u.State == combat.Idle })
}

func (e RuleEnv) IdleAircraft() []combat.Status {
	return e.filter(func(u combat.Status) bool { return u.Armed && u.Flying && u.State == combat.Idle })
}

// ReadyGroundUnits returns armed ground units that may be escalated: idle or
// scouting.
func (e RuleEnv) ReadyGroundUnits() []combat.Status {
	return e.filter(func(u combat.Status) bool { return u.Armed && !u.Flying && ready(u.State) })
}

func (e RuleEnv) ReadyAircraft() []combat.Status {
	return e.filter(func(u combat.Status) bool { return u.Armed && u.Flying && ready(u.State) })
}

// EngagedUnits counts units already fighting.
func (e RuleEnv) EngagedUnits() int {
	return len(e.filter(func(u combat.Status) bool { return !ready(u.State) }))
}

func ready(s combat.State) bool { return s == combat.Idle || s == combat.Scouting }

func (e RuleEnv) EnemiesVisible() bool { return len(e.Hostiles) > 0 }
func (e RuleEnv) HostileCount() int    { return len(e.Hostiles) }

// HasEnemyIntel reports whether any base is known to be hostile.
func (e RuleEnv) HasEnemyIntel() bool {
	for _, b := range e.Bases {
		if b.Owner == model.OwnerHostile {
			return true
		}
	}
	return false
}

// UnscoutedStarts counts start locations whose owner is still unknown.
func (e RuleEnv) UnscoutedStarts() int {
	n := 0
	for _, b := range e.Bases {
		if b.StartLocation && !b.Confirmed() {
			n++
		}
	}
	return n
}

func ids(units []combat.Status) []int {
	out := make([]int, len(units))
	for i, u := range units {
		out[i] = u.ID
	}
	return out
}
