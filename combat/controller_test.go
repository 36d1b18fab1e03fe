package combat

import (
	"errors"
	"testing"

	"github.com/nstehr/vimy/vimy-micro/config"
	"github.com/nstehr/vimy/vimy-micro/model"
	"github.com/nstehr/vimy/vimy-micro/nav"
	"github.com/nstehr/vimy/vimy-micro/threat"
)

type order struct {
	kind   string
	actor  int
	target int
	to     model.Vec
}

type recorder struct{ orders []order }

func (r *recorder) Move(actorID int, to model.Vec) error {
	r.orders = append(r.orders, order{kind: "move", actor: actorID, to: to})
	return nil
}

func (r *recorder) Attack(actorID, targetID int) error {
	r.orders = append(r.orders, order{kind: "attack", actor: actorID, target: targetID})
	return nil
}

func (r *recorder) count(kind string) int {
	n := 0
	for _, o := range r.orders {
		if o.kind == kind {
			n++
		}
	}
	return n
}

func testTuning() *config.Tuning {
	return &config.Tuning{
		Planner: config.PlannerConfig{StartSearchRadius: 4, ReplanWindow: 48, WaypointTolerance: 0.5},
		Combat:  config.CombatConfig{RetreatBudget: 3},
		Units: map[string]config.Profile{
			"rifle":   {Footprint: 1, WeaponRange: 5, Cooldown: 20, AngleTolerance: 10, AlertRadius: 8, FireLock: 6, CooldownDrain: 0.5},
			"kiter":   {Footprint: 1, WeaponRange: 5, Cooldown: 20, AngleTolerance: 10, AlertRadius: 8, FireLock: 6, CooldownDrain: 0.5, Kite: true},
			"sniper":  {Footprint: 1, WeaponRange: 7, Cooldown: 40, AngleTolerance: 10, AlertRadius: 10, FireLock: 6, CooldownDrain: 0.5},
			"heli":    {Footprint: 1, Flying: true, WeaponRange: 4, Cooldown: 20, AlertRadius: 12, FireLock: 3, CooldownDrain: 0.5},
			"raider":  {Footprint: 1, WeaponRange: 4, Cooldown: 20, AngleTolerance: 30, AlertRadius: 10, FireLock: 4, CooldownDrain: 0.5, Harass: true},
			"harv":    {Footprint: 1, Worker: true, AlertRadius: 6, FireLock: 2},
			"tank":    {Footprint: 2, WeaponRange: 5, Cooldown: 40, AlertRadius: 9, FireLock: 8},
			"pillbox": {Footprint: 1, WeaponRange: 3},
		},
	}
}

type harness struct {
	tuning *config.Tuning
	c      *Controller
	w      *World
	rec    *recorder
}

func newHarness(size int) *harness {
	tuning := testTuning()
	planner := nav.NewPlanner(nav.NewClearanceField(model.NewWalkGrid(size, size, 1)), nav.DefaultPlannerOptions())
	rec := &recorder{}
	return &harness{
		tuning: tuning,
		c:      NewController(tuning),
		rec:    rec,
		w: &World{
			Threat:   threat.New(size, size, 1, threat.Options{SafetyMargin: 2, CenterValue: 10, WorkerValue: 5, WorkerRadius: 4}),
			Planner:  planner,
			Commands: rec,
		},
	}
}

// observe starts a new frame: world refreshed, units synced, no step yet.
func (h *harness) observe(t *testing.T, units []model.Unit, enemies []model.Enemy) {
	t.Helper()
	h.w.Frame++
	h.w.Hostiles = VisibleHostiles(enemies)
	h.w.Threat.Rebuild(enemies, h.tuning.HostileLookup(1))
	h.rec.orders = nil
	if err := h.c.Sync(h.w.Frame, units); err != nil {
		t.Fatalf("Sync: %v", err)
	}
}

func (h *harness) frame(t *testing.T, units []model.Unit, enemies []model.Enemy) {
	t.Helper()
	h.observe(t, units, enemies)
	h.c.Tick(h.w)
}

func (h *harness) unit(t *testing.T, id int) *Unit {
	t.Helper()
	u, ok := h.c.Unit(id)
	if !ok {
		t.Fatalf("unit %d not controlled", id)
	}
	return u
}

func own(id int, typ string, x, y float64) model.Unit {
	return model.Unit{ID: id, Type: typ, X: x, Y: y}
}

func foe(id int, typ string, x, y float64) model.Enemy {
	return model.Enemy{ID: id, Type: typ, X: x, Y: y, Visible: true}
}

func TestAttackRunFiresThenRetreats(t *testing.T) {
	h := newHarness(20)
	units := []model.Unit{own(1, "rifle", 2.5, 10.5)}
	enemies := []model.Enemy{foe(100, "tank", 7.5, 10.5)} // exactly weapon range, dead ahead

	h.observe(t, units, enemies)
	h.unit(t, 1).State = AttackRun
	h.c.Tick(h.w)

	u := h.unit(t, 1)
	if u.State != Firing {
		t.Fatalf("state = %v, want FIRING", u.State)
	}
	if len(h.rec.orders) != 1 || h.rec.orders[0] != (order{kind: "attack", actor: 1, target: 100}) {
		t.Errorf("orders = %+v, want a single attack on 100", h.rec.orders)
	}

	h.frame(t, units, enemies)
	if u.State != Retreating {
		t.Fatalf("state = %v, want RETREATING", u.State)
	}
	if u.Timeout != 6 {
		t.Errorf("Timeout = %d, want 6", u.Timeout)
	}

	h.frame(t, units, enemies)
	if u.State != Retreating || u.Timeout != 5 {
		t.Errorf("state = %v timeout = %d, want RETREATING 5", u.State, u.Timeout)
	}
	if h.rec.count("move") != 1 {
		t.Errorf("retreat issued %d moves, want 1", h.rec.count("move"))
	}
}

func TestFiringOutrangedTargetKeepsAttacking(t *testing.T) {
	h := newHarness(20)
	units := []model.Unit{own(1, "sniper", 2.5, 10.5)}
	enemies := []model.Enemy{foe(100, "pillbox", 9.5, 10.5)}

	h.observe(t, units, enemies)
	u := h.unit(t, 1)
	u.State = AttackRun
	h.c.Tick(h.w)
	if u.State != Firing {
		t.Fatalf("state = %v, want FIRING", u.State)
	}

	h.frame(t, units, enemies)
	if u.State != AttackRun {
		t.Errorf("state = %v, want ATTACK_RUN", u.State)
	}
	if h.rec.count("attack") != 1 {
		t.Errorf("FIRING issued %d attacks, want 1", h.rec.count("attack"))
	}
}

func TestRetreatExpiry(t *testing.T) {
	tests := []struct {
		name     string
		typ      string
		cooldown int
		want     State
	}{
		{"drained", "rifle", 5, AttackRun},
		{"drain boundary", "rifle", 10, AttackRun},
		{"still reloading", "rifle", 15, Retreating},
		{"kiter reloading", "kiter", 15, Move},
		{"kiter drained", "kiter", 10, AttackRun},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(20)
			me := own(1, tc.typ, 2.5, 10.5)
			me.Cooldown = tc.cooldown
			h.observe(t, []model.Unit{me}, []model.Enemy{foe(100, "tank", 7.5, 10.5)})
			u := h.unit(t, 1)
			u.State, u.Timeout, u.TargetID = Retreating, 1, 100
			h.c.Tick(h.w)
			if u.State != tc.want {
				t.Errorf("state = %v, want %v", u.State, tc.want)
			}
		})
	}
}

func TestMoveState(t *testing.T) {
	tests := []struct {
		name     string
		cooldown int
		enemies  []model.Enemy
		want     State
		moves    int
	}{
		{"reloading holds stand-off", 15, []model.Enemy{foe(100, "tank", 7.5, 10.5)}, Move, 1},
		{"reloaded", 0, []model.Enemy{foe(100, "tank", 7.5, 10.5)}, AttackRun, 0},
		{"target gone", 15, nil, Scouting, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(20)
			me := own(1, "kiter", 4.5, 10.5)
			me.Cooldown = tc.cooldown
			h.observe(t, []model.Unit{me}, tc.enemies)
			u := h.unit(t, 1)
			u.State, u.TargetID = Move, 100
			h.c.Tick(h.w)
			if u.State != tc.want {
				t.Errorf("state = %v, want %v", u.State, tc.want)
			}
			if got := h.rec.count("move"); got != tc.moves {
				t.Errorf("moves = %d, want %d", got, tc.moves)
			}
		})
	}
}

func TestIdleAlertRadius(t *testing.T) {
	tests := []struct {
		hostileX float64
		want     State
	}{
		{9.5, AttackRun}, // 7 cells
		{10.5, AttackRun},
		{12.5, Idle},
	}
	for _, tc := range tests {
		h := newHarness(20)
		h.frame(t, []model.Unit{own(1, "rifle", 2.5, 10.5)}, []model.Enemy{foe(100, "tank", tc.hostileX, 10.5)})
		if got := h.unit(t, 1).State; got != tc.want {
			t.Errorf("hostile at x=%v: state = %v, want %v", tc.hostileX, got, tc.want)
		}
	}
}

func TestIdleIgnoresHiddenAndNeutral(t *testing.T) {
	h := newHarness(20)
	hidden := foe(100, "tank", 4.5, 10.5)
	hidden.Visible = false
	neutral := foe(101, "tank", 4.5, 11.5)
	neutral.Neutral = true
	h.frame(t, []model.Unit{own(1, "rifle", 2.5, 10.5)}, []model.Enemy{hidden, neutral})
	if got := h.unit(t, 1).State; got != Idle {
		t.Errorf("state = %v, want IDLE", got)
	}
}

func TestAttackRunWithoutHostilesScouts(t *testing.T) {
	h := newHarness(20)
	h.observe(t, []model.Unit{own(1, "rifle", 2.5, 10.5)}, nil)
	u := h.unit(t, 1)
	u.State, u.TargetID = AttackRun, 55
	h.c.Tick(h.w)
	if u.State != Scouting || u.TargetID != 0 {
		t.Errorf("state = %v target = %d, want SCOUTING with no target", u.State, u.TargetID)
	}
}

func TestAttackRunPathsTowardTarget(t *testing.T) {
	h := newHarness(20)
	h.observe(t, []model.Unit{own(1, "rifle", 2.5, 10.5)}, []model.Enemy{foe(100, "tank", 12.5, 10.5)})
	u := h.unit(t, 1)
	u.State = AttackRun
	h.c.Tick(h.w)

	if u.State != AttackRun {
		t.Fatalf("state = %v, want ATTACK_RUN", u.State)
	}
	if h.rec.count("attack") != 0 {
		t.Error("attacked out of range")
	}
	want := order{kind: "move", actor: 1, to: model.Vec{X: 3.5, Y: 10.5}}
	if len(h.rec.orders) != 1 || h.rec.orders[0] != want {
		t.Errorf("orders = %+v, want %+v", h.rec.orders, want)
	}
	if u.PathOrigLen != 10 || u.LastPathFrame != h.w.Frame {
		t.Errorf("PathOrigLen = %d LastPathFrame = %d, want 10 and %d", u.PathOrigLen, u.LastPathFrame, h.w.Frame)
	}

	// The next frame reuses the path instead of replanning.
	h.frame(t, []model.Unit{own(1, "rifle", 3.5, 10.5)}, []model.Enemy{foe(100, "tank", 12.5, 10.5)})
	if u.LastPathFrame == h.w.Frame {
		t.Error("path was replanned while most of it remained")
	}
	if h.rec.orders[0].to != (model.Vec{X: 4.5, Y: 10.5}) {
		t.Errorf("second move = %v, want (4.5,10.5)", h.rec.orders[0].to)
	}
}

func TestAttackRunNeedsFacing(t *testing.T) {
	h := newHarness(20)
	me := own(1, "rifle", 2.5, 10.5)
	me.Facing = 3.14159 // facing away
	h.observe(t, []model.Unit{me}, []model.Enemy{foe(100, "tank", 7.5, 10.5)})
	u := h.unit(t, 1)
	u.State = AttackRun
	h.c.Tick(h.w)
	if u.State != AttackRun || h.rec.count("attack") != 0 {
		t.Errorf("state = %v attacks = %d, want ATTACK_RUN without attacking", u.State, h.rec.count("attack"))
	}
}

func TestFlyingSkipsFacingAndPathing(t *testing.T) {
	h := newHarness(20)
	me := own(1, "heli", 2.5, 10.5)
	me.Facing = 3.14159
	h.observe(t, []model.Unit{me}, []model.Enemy{foe(100, "tank", 6.5, 10.5)})
	u := h.unit(t, 1)
	u.State = AttackRun
	h.c.Tick(h.w)
	if u.State != Firing {
		t.Errorf("state = %v, want FIRING", u.State)
	}

	far := foe(100, "tank", 12.5, 10.5)
	far.VX = 1
	h.observe(t, []model.Unit{me}, []model.Enemy{far})
	u.State = AttackRun
	h.c.Tick(h.w)
	want := order{kind: "move", actor: 1, to: model.Vec{X: 13.5, Y: 10.5}}
	if len(h.rec.orders) != 1 || h.rec.orders[0] != want {
		t.Errorf("orders = %+v, want direct move to predicted position", h.rec.orders)
	}
}

func TestHarassPrefersWorkers(t *testing.T) {
	enemies := []model.Enemy{
		foe(100, "tank", 8.5, 10.5),
		foe(101, "harv", 15.5, 10.5),
	}
	tests := []struct {
		typ  string
		want int
	}{
		{"raider", 101},
		{"rifle", 100},
	}
	for _, tc := range tests {
		h := newHarness(20)
		h.observe(t, []model.Unit{own(1, tc.typ, 10.5, 10.5)}, enemies)
		u := h.unit(t, 1)
		u.State = AttackRun
		h.c.Tick(h.w)
		if u.TargetID != tc.want {
			t.Errorf("%s: target = %d, want %d", tc.typ, u.TargetID, tc.want)
		}
	}
}

func TestUnarmedUnitFlees(t *testing.T) {
	h := newHarness(20)
	units := []model.Unit{own(1, "harv", 2.5, 10.5)}
	enemies := []model.Enemy{foe(100, "tank", 6.5, 10.5)}

	h.frame(t, units, enemies)
	u := h.unit(t, 1)
	if u.State != Retreating || u.Timeout != 2 {
		t.Fatalf("state = %v timeout = %d, want RETREATING 2", u.State, u.Timeout)
	}
	h.frame(t, units, enemies)
	h.frame(t, units, enemies)
	if u.State != Idle {
		t.Errorf("state = %v, want IDLE after the lock", u.State)
	}
}

func TestRetreatBacksAwayOnFlatField(t *testing.T) {
	h := newHarness(20)
	units := []model.Unit{own(1, "harv", 10.5, 10.5)}
	// Unknown type: no danger is splatted, so the field is flat.
	enemy := foe(100, "ghost", 14.5, 6.5)
	enemies := []model.Enemy{enemy}

	h.frame(t, units, enemies)
	u := h.unit(t, 1)
	if u.State != Retreating {
		t.Fatalf("state = %v, want RETREATING", u.State)
	}
	h.frame(t, units, enemies)

	before := units[0].Pos().Dist(enemy.Pos())
	var moved bool
	for _, o := range h.rec.orders {
		if o.kind != "move" {
			continue
		}
		moved = true
		if after := o.to.Dist(enemy.Pos()); after <= before {
			t.Errorf("move to %v: distance to hostile %.2f -> %.2f, want it to grow", o.to, before, after)
		}
	}
	if !moved {
		t.Error("no move issued while retreating")
	}
}

func TestPathFailureHolds(t *testing.T) {
	h := newHarness(20)
	h.w.Planner.Field().InsertObstacle(model.Rect{X: 1, Y: 5, W: 11, H: 11})
	h.observe(t, []model.Unit{own(1, "rifle", 6.5, 10.5)}, []model.Enemy{foe(100, "tank", 18.5, 18.5)})
	u := h.unit(t, 1)
	u.State = AttackRun
	h.c.Tick(h.w)
	if u.State != AttackRun {
		t.Errorf("state = %v, want ATTACK_RUN", u.State)
	}
	if len(h.rec.orders) != 0 {
		t.Errorf("orders = %+v, want none", h.rec.orders)
	}
}

func TestUnmodeledStatePanics(t *testing.T) {
	h := newHarness(10)
	h.observe(t, []model.Unit{own(1, "rifle", 2.5, 2.5)}, nil)
	h.unit(t, 1).State = State(42)
	defer func() {
		if recover() == nil {
			t.Error("expected a panic for an unmodeled state")
		}
	}()
	h.c.Tick(h.w)
}

func TestSyncUnknownAndDeadUnits(t *testing.T) {
	c := NewController(testTuning())
	units := []model.Unit{own(1, "rifle", 0, 0), own(2, "ufo", 0, 0)}

	err := c.Sync(1, units)
	if !errors.Is(err, ErrUnrecognizedUnitType) {
		t.Fatalf("err = %v, want ErrUnrecognizedUnitType", err)
	}
	if c.Len() != 1 {
		t.Errorf("controlled = %d, want 1", c.Len())
	}
	if err := c.Sync(1, units); err != nil {
		t.Errorf("second Sync err = %v, want nil (reported once)", err)
	}

	if err := c.Sync(1, units[1:]); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if c.Len() != 0 {
		t.Errorf("dead unit still controlled")
	}

	tuning := testTuning()
	tuning.Units["ufo"] = config.Profile{Footprint: 1, WeaponRange: 2}
	c.SetTuning(tuning)
	if err := c.Sync(1, units[1:]); err != nil {
		t.Fatalf("Sync after tuning: %v", err)
	}
	if _, ok := c.Unit(2); !ok {
		t.Error("unit 2 not controlled after its profile appeared")
	}
}

func TestEscalateAndScout(t *testing.T) {
	c := NewController(testTuning())
	if err := c.Sync(1, []model.Unit{own(1, "rifle", 0, 0), own(2, "harv", 0, 0), own(3, "rifle", 0, 0)}); err != nil {
		t.Fatal(err)
	}
	u3, _ := c.Unit(3)
	u3.State = Firing

	if n := c.Escalate([]int{1, 2, 3, 99}); n != 1 {
		t.Errorf("Escalate changed %d units, want 1", n)
	}
	if n := c.Scout([]int{1, 2}); n != 1 {
		t.Errorf("Scout changed %d units, want 1", n)
	}

	want := []State{AttackRun, Scouting, Firing}
	for i, s := range c.Status() {
		if s.State != want[i] {
			t.Errorf("unit %d state = %v, want %v", s.ID, s.State, want[i])
		}
	}
}

func TestOrdersStampSyncFrame(t *testing.T) {
	c := NewController(testTuning())
	c.Tick(&World{Frame: 39, Commands: &recorder{}})
	if err := c.Sync(40, []model.Unit{own(1, "rifle", 0, 0), own(2, "rifle", 0, 0)}); err != nil {
		t.Fatal(err)
	}
	c.Escalate([]int{1})
	c.Scout([]int{2})
	for _, id := range []int{1, 2} {
		u, _ := c.Unit(id)
		if u.GoalFrame != 40 {
			t.Errorf("unit %d GoalFrame = %d, want 40", id, u.GoalFrame)
		}
	}
}

func TestScoutingRetargetsSettledBase(t *testing.T) {
	h := newHarness(20)
	bases := Snapshot{
		{ID: 1, X: 18.5, Y: 2.5, StartLocation: true},
		{ID: 2, X: 3.5, Y: 3.5, LastScouted: 100, Owner: model.OwnerHostile},
		{ID: 3, X: 18.5, Y: 18.5, LastScouted: 50},
	}
	h.w.Bases = bases
	units := []model.Unit{own(1, "rifle", 10.5, 10.5)}

	h.observe(t, units, nil)
	u := h.unit(t, 1)
	u.State = Scouting
	h.c.Tick(h.w)
	if u.ScoutBase != 1 {
		t.Fatalf("ScoutBase = %d, want 1", u.ScoutBase)
	}
	if h.rec.count("move") != 1 {
		t.Errorf("moves = %d, want 1", h.rec.count("move"))
	}

	bases[0].Visible = true
	bases[0].Owner = model.OwnerNeutral
	h.frame(t, units, nil)
	if u.ScoutBase != 3 {
		t.Errorf("ScoutBase = %d, want 3", u.ScoutBase)
	}
}

func TestSelectScoutBase(t *testing.T) {
	pos := model.Vec{X: 10, Y: 10}
	tests := []struct {
		name    string
		bases   []model.Base
		exclude int
		want    int
		ok      bool
	}{
		{"none", nil, noBase, 0, false},
		{"unconfirmed start first", []model.Base{
			{ID: 1, X: 11, Y: 10, LastScouted: 0},
			{ID: 2, X: 30, Y: 30, StartLocation: true},
		}, noBase, 2, true},
		{"nearest start", []model.Base{
			{ID: 1, X: 30, Y: 30, StartLocation: true},
			{ID: 2, X: 14, Y: 10, StartLocation: true},
		}, noBase, 2, true},
		{"confirmed start is ordinary", []model.Base{
			{ID: 1, X: 11, Y: 10, StartLocation: true, Owner: model.OwnerHostile, LastScouted: 80},
			{ID: 2, X: 30, Y: 30, LastScouted: 20},
		}, noBase, 2, true},
		{"least recently scouted", []model.Base{
			{ID: 1, X: 11, Y: 10, LastScouted: 90},
			{ID: 2, X: 30, Y: 30, LastScouted: 40},
			{ID: 3, X: 40, Y: 40, LastScouted: 60},
		}, noBase, 2, true},
		{"excluded", []model.Base{
			{ID: 1, X: 11, Y: 10, StartLocation: true},
			{ID: 2, X: 30, Y: 30, LastScouted: 40},
		}, 1, 2, true},
	}
	for _, tc := range tests {
		got, ok := SelectScoutBase(tc.bases, pos, tc.exclude)
		if ok != tc.ok || (ok && got.ID != tc.want) {
			t.Errorf("%s: got %d %v, want %d %v", tc.name, got.ID, ok, tc.want, tc.ok)
		}
	}
}
