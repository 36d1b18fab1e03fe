package agent

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/nstehr/vimy/vimy-micro/combat"
	"github.com/nstehr/vimy/vimy-micro/config"
	"github.com/nstehr/vimy/vimy-micro/ipc"
	"github.com/nstehr/vimy/vimy-micro/model"
	"github.com/nstehr/vimy/vimy-micro/nav"
	"github.com/nstehr/vimy/vimy-micro/rules"
	"github.com/nstehr/vimy/vimy-micro/threat"
)

var errNoMap = errors.New("no map yet: hello not received")

// Agent owns the micro decisions for a single player session.
type Agent struct {
	Conn    *ipc.Connection
	Player  string
	Faction string
	Engine  *rules.Engine

	// Commands receives the unit orders; it defaults to Conn.
	Commands combat.Commander

	tuning    *config.Tuning
	tuner     *Tuner
	tuningGen uint64

	field      *nav.ClearanceField
	planner    *nav.Planner
	threat     *threat.Field
	obstacles  *obstacleTracker
	controller *combat.Controller

	prevSnapshot *stateSnapshot
}

// New creates an agent. tuner may be nil when hot reload is off.
func New(conn *ipc.Connection, engine *rules.Engine, tuning *config.Tuning, tuner *Tuner) *Agent {
	a := &Agent{
		Conn:       conn,
		Engine:     engine,
		tuning:     tuning,
		tuner:      tuner,
		controller: combat.NewController(tuning),
	}
	if conn != nil {
		a.Commands = conn
	}
	if tuner != nil {
		_, a.tuningGen = tuner.Latest()
	}
	return a
}

// HandleHello builds the navigation and threat layers for the map and
// completes the handshake.
func (a *Agent) HandleHello(env ipc.Envelope) (*ipc.Envelope, error) {
	var hello ipc.HelloMessage
	if err := env.Decode(&hello); err != nil {
		return nil, err
	}

	grid, err := hello.Map.WalkGrid()
	if err != nil {
		return nil, fmt.Errorf("hello map: %w", err)
	}

	a.Player = hello.Player
	a.Faction = hello.Faction
	if a.Conn != nil {
		a.Conn.Player = hello.Player
	}

	// A new hello starts a new game: nothing from the previous one carries over.
	a.controller = combat.NewController(a.tuning)
	a.prevSnapshot = nil
	a.Engine.Reset()

	a.field = nav.NewClearanceField(grid)
	a.planner = nav.NewPlanner(a.field, a.tuning.Planner.Options())
	a.threat = threat.New(grid.Cols, grid.Rows, grid.TileSize, a.tuning.Threat.Options())
	a.obstacles = newObstacleTracker(a.field)
	for _, ev := range hello.Obstacles {
		if err := a.obstacles.Apply(ev); err != nil {
			slog.Warn("initial obstacle rejected", "error", err)
		}
	}

	slog.Info("player identified",
		"player", a.Player,
		"faction", a.Faction,
		"map", fmt.Sprintf("%dx%d", grid.Cols, grid.Rows),
		"tile", grid.TileSize,
		"obstacles", a.obstacles.Len(),
	)

	return ack()
}

// HandleObstacle applies one structure insert or removal to the clearance
// field. No reply is sent.
func (a *Agent) HandleObstacle(env ipc.Envelope) (*ipc.Envelope, error) {
	if a.obstacles == nil {
		return nil, errNoMap
	}
	var ev ipc.ObstacleEvent
	if err := env.Decode(&ev); err != nil {
		return nil, err
	}
	return nil, a.obstacles.Apply(ev)
}

func (a *Agent) HandleGameState(env ipc.Envelope) (*ipc.Envelope, error) {
	if a.planner == nil {
		return nil, errNoMap
	}
	var gs model.GameState
	if err := env.Decode(&gs); err != nil {
		return nil, err
	}

	a.applyTuning()

	hostiles := combat.VisibleHostiles(gs.Enemies)
	a.threat.Rebuild(hostiles, a.tuning.HostileLookup(a.field.TileSize()))

	if err := a.controller.Sync(gs.Frame, gs.Units); err != nil {
		slog.Warn("unit sync", "frame", gs.Frame, "error", err)
	}

	fired := a.Engine.Evaluate(rules.RuleEnv{
		Frame:    gs.Frame,
		Units:    a.controller.Status(),
		Hostiles: hostiles,
		Bases:    gs.Bases,
	}, a.controller)

	a.controller.Tick(&combat.World{
		Frame:    gs.Frame,
		Hostiles: hostiles,
		Threat:   a.threat,
		Planner:  a.planner,
		Bases:    combat.Snapshot(gs.Bases),
		Commands: a.Commands,
	})

	snap := takeSnapshot(gs, a.tuning)
	for _, ev := range detectEvents(gs.Frame, snap, a.prevSnapshot) {
		slog.Info("event", "kind", ev.Kind, "frame", ev.Frame, "detail", ev.Detail)
	}
	a.prevSnapshot = &snap

	slog.Debug("game state processed",
		"player", a.Player,
		"frame", gs.Frame,
		"units", a.controller.Len(),
		"hostiles", len(hostiles),
		"rules", fired,
	)

	return ack()
}

// applyTuning picks up a newer tuning generation between frames.
func (a *Agent) applyTuning() {
	if a.tuner == nil {
		return
	}
	t, gen := a.tuner.Latest()
	if gen == a.tuningGen || t == nil {
		return
	}
	a.tuningGen = gen
	a.tuning = t
	a.controller.SetTuning(t)
	a.planner.SetOptions(t.Planner.Options())
	a.threat.SetOptions(t.Threat.Options())
	if err := a.Engine.Swap(rules.CompileDoctrine(t.Doctrine)); err != nil {
		slog.Warn("doctrine swap rejected", "error", err)
	}
	slog.Info("tuning applied", "generation", gen, "doctrine", t.Doctrine.Name)
}

func ack() (*ipc.Envelope, error) {
	ack, err := ipc.NewEnvelope(ipc.TypeAck, ipc.AckMessage{Status: "ok"})
	if err != nil {
		return nil, err
	}
	return &ack, nil
}
