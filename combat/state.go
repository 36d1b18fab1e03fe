package combat

import "fmt"

// State is a unit's combat state. The set is closed; Unit.step panics on
// anything else.
type State int

const (
	Idle State = iota
	Scouting
	AttackRun
	Firing
	Retreating
	Move
)

var stateNames = [...]string{
	Idle:       "IDLE",
	Scouting:   "SCOUTING",
	AttackRun:  "ATTACK_RUN",
	Firing:     "FIRING",
	Retreating: "RETREATING",
	Move:       "MOVE",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}
