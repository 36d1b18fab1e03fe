// Package combat runs the per-unit combat state machine: scout, engage,
// fire, retreat and kite. The Controller owns one Unit per controlled actor
// and steps them all once per frame.
package combat

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/nstehr/vimy/vimy-micro/config"
	"github.com/nstehr/vimy/vimy-micro/model"
)

// ErrUnrecognizedUnitType is returned by Sync for units whose type has no
// profile. Such units are left uncontrolled.
var ErrUnrecognizedUnitType = errors.New("unrecognized unit type")

// Status is a read-only view of a controlled unit, used by the escalation
// rules.
type Status struct {
	ID     int
	Type   string
	State  State
	Flying bool
	Armed  bool
}

type Controller struct {
	tuning  *config.Tuning
	units   map[int]*Unit
	unknown map[string]bool // types already reported
	frame   int
}

func NewController(t *config.Tuning) *Controller {
	return &Controller{
		tuning:  t,
		units:   make(map[int]*Unit),
		unknown: make(map[string]bool),
	}
}

// SetTuning swaps tuning and refreshes the profile of every controlled unit.
func (c *Controller) SetTuning(t *config.Tuning) {
	c.tuning = t
	for _, u := range c.units {
		if p, ok := t.Profile(u.Type); ok {
			u.Profile = p
		}
	}
	clear(c.unknown)
}

// Sync reconciles the controlled set with a frame's unit list: new units get
// an agent in IDLE, known units get their snapshot refreshed, units missing
// from the list are dropped. An unrecognized type is reported once.
// frame becomes the controller's current frame, so orders issued before the
// next Tick are stamped with it.
func (c *Controller) Sync(frame int, units []model.Unit) error {
	c.frame = frame
	seen := make(map[int]bool, len(units))
	var errs []error
	for _, s := range units {
		seen[s.ID] = true
		if u, ok := c.units[s.ID]; ok {
			u.snap = s
			continue
		}
		p, ok := c.tuning.Profile(s.Type)
		if !ok {
			base := config.BaseType(s.Type)
			if !c.unknown[base] {
				c.unknown[base] = true
				errs = append(errs, fmt.Errorf("unit %d type %q: %w", s.ID, s.Type, ErrUnrecognizedUnitType))
			}
			continue
		}
		u := newUnit(s, p)
		u.GoalFrame = c.frame
		c.units[s.ID] = u
	}
	for id := range c.units {
		if !seen[id] {
			delete(c.units, id)
		}
	}
	return errors.Join(errs...)
}

// Tick steps every unit once, in id order.
func (c *Controller) Tick(w *World) {
	c.frame = w.Frame
	for _, id := range slices.Sorted(maps.Keys(c.units)) {
		c.units[id].step(w, c.tuning)
	}
}

// Escalate sends idle or scouting armed units on an attack run. It returns
// how many changed state.
func (c *Controller) Escalate(ids []int) int {
	n := 0
	for _, id := range ids {
		u, ok := c.units[id]
		if !ok || !u.armed() || (u.State != Idle && u.State != Scouting) {
			continue
		}
		u.ScoutBase = noBase
		u.enter(AttackRun, c.frame)
		n++
	}
	return n
}

// Scout sends idle units scouting.
func (c *Controller) Scout(ids []int) int {
	n := 0
	for _, id := range ids {
		u, ok := c.units[id]
		if !ok || u.State != Idle {
			continue
		}
		u.ScoutBase = noBase
		u.enter(Scouting, c.frame)
		n++
	}
	return n
}

func (c *Controller) Unit(id int) (*Unit, bool) {
	u, ok := c.units[id]
	return u, ok
}

func (c *Controller) Len() int { return len(c.units) }

// Status lists the controlled units in id order.
func (c *Controller) Status() []Status {
	out := make([]Status, 0, len(c.units))
	for _, id := range slices.Sorted(maps.Keys(c.units)) {
		u := c.units[id]
		out = append(out, Status{
			ID:     u.ID,
			Type:   u.Type,
			State:  u.State,
			Flying: u.Profile.Flying,
			Armed:  u.armed(),
		})
	}
	return out
}
