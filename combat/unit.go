package combat

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/nstehr/vimy/vimy-micro/config"
	"github.com/nstehr/vimy/vimy-micro/model"
	"github.com/nstehr/vimy/vimy-micro/nav"
)

const noBase = -1

// Unit is the agent driving one controlled unit. Every unit runs the same
// state machine; flying, kiting and unarmed behaviour fall out of the
// profile's tags and numbers.
type Unit struct {
	ID      int
	Type    string
	Profile config.Profile
	State   State

	Path          nav.Path
	PathOrigLen   int
	TargetID      int // hostile being engaged, 0 for none
	ScoutBase     int // base being scouted, noBase for none
	Timeout       int // frames left in the current lock
	LastPathFrame int
	GoalFrame     int // frame the current goal was set

	snap model.Unit
}

func newUnit(snap model.Unit, p config.Profile) *Unit {
	return &Unit{ID: snap.ID, Type: snap.Type, Profile: p, ScoutBase: noBase, snap: snap}
}

// Snapshot returns the unit as last reported by the adapter.
func (u *Unit) Snapshot() model.Unit { return u.snap }

func (u *Unit) armed() bool { return u.Profile.WeaponRange > 0 }

// drained reports whether the weapon has reloaded enough to re-engage.
func (u *Unit) drained() bool {
	return float64(u.snap.Cooldown) <= u.Profile.CooldownDrain*float64(u.Profile.Cooldown)
}

// enter switches state. Any in-flight path is discarded.
func (u *Unit) enter(s State, frame int) {
	if u.State != s {
		slog.Debug("unit state", "unit", u.ID, "type", u.Type, "from", u.State, "to", s, "frame", frame)
	}
	u.State = s
	u.resetGoal(frame)
}

func (u *Unit) resetGoal(frame int) {
	u.Path = nav.Path{}
	u.PathOrigLen = 0
	u.GoalFrame = frame
}

func (u *Unit) step(w *World, t *config.Tuning) {
	switch u.State {
	case Idle:
		u.stepIdle(w)
	case Scouting:
		u.stepScouting(w, t)
	case AttackRun:
		u.stepAttackRun(w, t)
	case Firing:
		u.stepFiring(w, t)
	case Retreating:
		u.stepRetreating(w, t)
	case Move:
		u.stepMove(w, t)
	default:
		panic(fmt.Sprintf("combat: unit %d (%s) in unmodeled state %v", u.ID, u.Type, u.State))
	}
}

func (u *Unit) stepIdle(w *World) {
	h, ok := nearest(w.Hostiles, u.snap.Pos())
	if !ok || h.Pos().Dist(u.snap.Pos()) > u.Profile.AlertRadius*w.tileSize() {
		return
	}
	u.TargetID = h.ID
	if !u.armed() {
		u.enter(Retreating, w.Frame)
		u.Timeout = u.Profile.FireLock
		return
	}
	u.enter(AttackRun, w.Frame)
}

func (u *Unit) stepAttackRun(w *World, t *config.Tuning) {
	target, ok := u.acquire(w)
	if !ok {
		u.TargetID = 0
		u.enter(Scouting, w.Frame)
		return
	}
	if target.ID != u.TargetID {
		u.TargetID = target.ID
		u.resetGoal(w.Frame)
	}

	aim := target.Pos().Add(target.Velocity())
	if u.inRange(aim, w.tileSize()) && u.facing(aim) {
		u.attack(w, target.ID)
		u.enter(Firing, w.Frame)
		return
	}
	u.goTo(w, t, aim)
}

func (u *Unit) stepFiring(w *World, t *config.Tuning) {
	target, ok := w.hostile(u.TargetID)
	if ok {
		u.attack(w, target.ID)
		if u.outranges(target, t) {
			u.enter(AttackRun, w.Frame)
			return
		}
	}
	u.enter(Retreating, w.Frame)
	u.Timeout = u.Profile.FireLock
}

func (u *Unit) stepRetreating(w *World, t *config.Tuning) {
	if dest, ok := u.retreatPoint(w, t); ok {
		u.goTo(w, t, dest)
	}
	if u.Timeout > 0 {
		u.Timeout--
	}
	if u.Timeout > 0 {
		return
	}
	switch {
	case !u.armed():
		u.TargetID = 0
		u.enter(Idle, w.Frame)
	case u.drained():
		u.enter(AttackRun, w.Frame)
	case u.Profile.Kite:
		u.enter(Move, w.Frame)
	}
}

// stepMove holds a stand-off point at weapon range while the weapon reloads.
func (u *Unit) stepMove(w *World, t *config.Tuning) {
	target, ok := w.hostile(u.TargetID)
	if !ok {
		u.TargetID = 0
		u.enter(Scouting, w.Frame)
		return
	}
	if u.drained() {
		u.enter(AttackRun, w.Frame)
		return
	}
	away := u.snap.Pos().Sub(target.Pos()).Norm()
	if away.IsZero() {
		return
	}
	u.goTo(w, t, target.Pos().Add(away.Scale(u.Profile.WeaponRange*w.tileSize())))
}

func (u *Unit) stepScouting(w *World, t *config.Tuning) {
	if w.Bases == nil {
		return
	}
	bases := w.Bases.Bases()
	pos := u.snap.Pos()
	reach := max(u.Profile.AlertRadius, t.Planner.WaypointTolerance) * w.tileSize()

	cur, ok := findBase(bases, u.ScoutBase)
	if !ok || settled(cur) || cur.Pos().Dist(pos) <= reach {
		next, found := SelectScoutBase(bases, pos, u.ScoutBase)
		if !found {
			return
		}
		if next.ID != u.ScoutBase {
			slog.Debug("scout target", "unit", u.ID, "base", next.ID, "start", next.StartLocation)
			u.ScoutBase = next.ID
			u.resetGoal(w.Frame)
		}
		cur = next
	}
	u.goTo(w, t, cur.Pos())
}

// acquire picks the hostile to engage: nearest by default, the most
// valuable one in alert range for harassers.
func (u *Unit) acquire(w *World) (model.Enemy, bool) {
	if u.Profile.Harass && w.Threat != nil {
		if h, ok := u.harassTarget(w); ok {
			return h, true
		}
	}
	return nearest(w.Hostiles, u.snap.Pos())
}

// harassTarget finds the most valuable cell within alert radius and picks
// the hostile standing closest to it.
func (u *Unit) harassTarget(w *World) (model.Enemy, bool) {
	pos := u.snap.Pos()
	cell, ok := w.Threat.BestValueCell(pos, int(math.Ceil(u.Profile.AlertRadius)))
	if !ok {
		return model.Enemy{}, false
	}
	alert := u.Profile.AlertRadius * w.tileSize()
	var inAlert []model.Enemy
	for _, h := range w.Hostiles {
		if h.Pos().Dist(pos) <= alert {
			inAlert = append(inAlert, h)
		}
	}
	return nearest(inAlert, w.Threat.CellCenter(cell))
}

func (u *Unit) inRange(aim model.Vec, tile float64) bool {
	return u.snap.Pos().Dist(aim) <= (u.Profile.WeaponRange+u.Profile.RangeMargin)*tile
}

func (u *Unit) facing(aim model.Vec) bool {
	if u.Profile.Flying {
		return true
	}
	bearing := aim.Sub(u.snap.Pos()).Angle()
	return model.AngleDiff(u.snap.Facing, bearing) <= u.Profile.AngleToleranceRad()
}

// outranges reports whether the target cannot shoot back at our range, in
// which case retreating after a shot gains nothing.
func (u *Unit) outranges(target model.Enemy, t *config.Tuning) bool {
	var theirs float64
	if p, ok := t.Profile(target.Type); ok {
		theirs = p.WeaponRange
	}
	return u.Profile.WeaponRange > theirs
}

// retreatPoint asks the threat field for a safer spot, falling back to
// backing straight away from the threat when the field offers nothing.
func (u *Unit) retreatPoint(w *World, t *config.Tuning) (model.Vec, bool) {
	pos := u.snap.Pos()
	if w.Threat != nil {
		if dest := w.Threat.RetreatTarget(pos, t.Combat.RetreatBudget); dest != pos {
			return dest, true
		}
	}
	src, ok := w.hostile(u.TargetID)
	if !ok {
		src, ok = nearest(w.Hostiles, pos)
	}
	if !ok {
		return model.Vec{}, false
	}
	away := pos.Sub(src.Pos()).Norm()
	if away.IsZero() {
		return model.Vec{}, false
	}
	return pos.Add(away.Scale(float64(t.Combat.RetreatBudget) * w.tileSize())), true
}

// goTo moves toward goal. Flying units fly straight; ground units follow a
// planned path, replanning only when the reuse contract says so. Planning
// failures are logged and the unit holds for the tick.
func (u *Unit) goTo(w *World, t *config.Tuning, goal model.Vec) {
	if u.Profile.Flying || w.Planner == nil {
		u.move(w, goal)
		return
	}
	pos := u.snap.Pos()
	tile := w.tileSize()
	tolerance := t.Planner.WaypointTolerance * tile
	u.Path.Advance(pos, tolerance)

	requested := int(math.Ceil(pos.Dist(goal) / tile))
	if !nav.ShouldReuse(u.Path.Len(), u.PathOrigLen, requested) {
		maxCost := nav.ScaledMaxCost(t.Planner.MaxCost, w.Frame-u.GoalFrame, t.Planner.ReplanWindow)
		path, err := w.Planner.FindPath(pos, goal, u.Profile.Footprint, maxCost)
		if err != nil {
			slog.Warn("path planning failed, holding", "unit", u.ID, "state", u.State, "error", err)
			return
		}
		slog.Debug("path planned", "unit", u.ID, "waypoints", path.Len(), "length", path.Length(), "partial", path.Partial)
		u.Path, u.PathOrigLen, u.LastPathFrame = path, path.Len(), w.Frame
		u.Path.Advance(pos, tolerance)
	}
	if next, ok := u.Path.Head(); ok {
		u.move(w, next)
	}
}

func (u *Unit) move(w *World, to model.Vec) {
	if err := w.Commands.Move(u.ID, to); err != nil {
		slog.Warn("move command failed", "unit", u.ID, "error", err)
	}
}

func (u *Unit) attack(w *World, targetID int) {
	if err := w.Commands.Attack(u.ID, targetID); err != nil {
		slog.Warn("attack command failed", "unit", u.ID, "target", targetID, "error", err)
	}
}

// nearest returns the closest hostile to pos; the first one seen wins ties.
func nearest(hostiles []model.Enemy, pos model.Vec) (model.Enemy, bool) {
	var (
		best  model.Enemy
		bestD = math.Inf(1)
	)
	for _, h := range hostiles {
		if d := h.Pos().Dist(pos); d < bestD {
			best, bestD = h, d
		}
	}
	return best, !math.IsInf(bestD, 1)
}

func findBase(bases []model.Base, id int) (model.Base, bool) {
	if id == noBase {
		return model.Base{}, false
	}
	for _, b := range bases {
		if b.ID == id {
			return b, true
		}
	}
	return model.Base{}, false
}
