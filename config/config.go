// Package config loads the sidecar's tuning file: unit profiles and the
// planner, threat and combat constants. Every distance is in cells and every
// duration in frames.
package config

import (
	_ "embed"
	"fmt"
	"maps"
	"math"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nstehr/vimy/vimy-micro/nav"
	"github.com/nstehr/vimy/vimy-micro/threat"
)

//go:embed default.yaml
var defaultYAML []byte

type Tuning struct {
	Planner  PlannerConfig      `yaml:"planner"`
	Threat   ThreatConfig       `yaml:"threat"`
	Combat   CombatConfig       `yaml:"combat"`
	Doctrine Doctrine           `yaml:"doctrine"`
	Units    map[string]Profile `yaml:"units"`
}

type PlannerConfig struct {
	MaxCost           float64 `yaml:"max_cost"`            // base search budget
	StartSearchRadius int     `yaml:"start_search_radius"` // ring search bound
	ReplanWindow      int     `yaml:"replan_window"`       // frames per budget step
	WaypointTolerance float64 `yaml:"waypoint_tolerance"`  // arrival radius
}

type ThreatConfig struct {
	SafetyMargin int     `yaml:"safety_margin"`
	CenterValue  float64 `yaml:"center_value"`
	WorkerValue  float64 `yaml:"worker_value"`
	WorkerRadius int     `yaml:"worker_radius"`
}

type CombatConfig struct {
	RetreatBudget int `yaml:"retreat_budget"` // cells walked per retreat query
}

// Profile carries the capability tags and numeric guards of one unit type.
// The combat state machine is shared; only these values differ.
type Profile struct {
	Footprint      int     `yaml:"footprint"`
	Flying         bool    `yaml:"flying"`
	Worker         bool    `yaml:"worker"`
	Kite           bool    `yaml:"kite"`   // reposition at max range while reloading
	Harass         bool    `yaml:"harass"` // prefer high-value targets
	WeaponRange    float64 `yaml:"weapon_range"`
	Cooldown       int     `yaml:"cooldown"`
	AngleTolerance float64 `yaml:"angle_tolerance"` // degrees
	RangeMargin    float64 `yaml:"range_margin"`
	AlertRadius    float64 `yaml:"alert_radius"`
	FireLock       int     `yaml:"fire_lock"`
	CooldownDrain  float64 `yaml:"cooldown_drain"` // fraction of Cooldown left when re-engaging
}

// AngleToleranceRad returns the facing tolerance in radians.
func (p Profile) AngleToleranceRad() float64 {
	return p.AngleTolerance * math.Pi / 180
}

// Default returns the embedded tuning.
func Default() (*Tuning, error) {
	return Parse(defaultYAML)
}

// Load reads a tuning file. Fields missing from the file keep their
// embedded defaults; a unit listed in the file replaces the default profile
// of that type. Unit keys are lowercase base types.
func Load(path string) (*Tuning, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML over the embedded defaults and validates the result.
func Parse(data []byte) (*Tuning, error) {
	var t Tuning
	if err := yaml.Unmarshal(defaultYAML, &t); err != nil {
		return nil, fmt.Errorf("config: unmarshal defaults: %w", err)
	}
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// Validate clamps tunables into usable ranges and rejects tuning that
// cannot drive any unit.
func (t *Tuning) Validate() error {
	if len(t.Units) == 0 {
		return fmt.Errorf("config: no unit profiles")
	}
	t.Planner.StartSearchRadius = max(t.Planner.StartSearchRadius, 0)
	t.Planner.ReplanWindow = max(t.Planner.ReplanWindow, 1)
	if t.Planner.WaypointTolerance <= 0 {
		t.Planner.WaypointTolerance = 1
	}
	t.Threat.SafetyMargin = max(t.Threat.SafetyMargin, 0)
	t.Threat.WorkerRadius = max(t.Threat.WorkerRadius, 0)
	t.Combat.RetreatBudget = max(t.Combat.RetreatBudget, 1)
	t.Doctrine.Validate()

	normalized := make(map[string]Profile, len(t.Units))
	for _, name := range slices.Sorted(maps.Keys(t.Units)) {
		p := t.Units[name]
		if p.WeaponRange < 0 {
			return fmt.Errorf("config: unit %q: negative weapon range", name)
		}
		p.Footprint = max(p.Footprint, 1)
		p.Cooldown = max(p.Cooldown, 0)
		p.FireLock = max(p.FireLock, 0)
		p.CooldownDrain = min(max(p.CooldownDrain, 0), 1)
		p.AngleTolerance = min(max(p.AngleTolerance, 0), 180)
		normalized[BaseType(name)] = p
	}
	t.Units = normalized
	return nil
}

// Profile looks up a unit type, ignoring faction suffixes and case.
func (t *Tuning) Profile(unitType string) (Profile, bool) {
	p, ok := t.Units[BaseType(unitType)]
	return p, ok
}

// BaseType strips faction variants (e.g. "e1.england" → "e1") and lowercases.
func BaseType(t string) string {
	base := strings.ToLower(t)
	if idx := strings.IndexByte(base, '.'); idx >= 0 {
		base = base[:idx]
	}
	return base
}

func (c PlannerConfig) Options() nav.PlannerOptions {
	return nav.PlannerOptions{StartSearchRadius: c.StartSearchRadius}
}

func (c ThreatConfig) Options() threat.Options {
	return threat.Options{
		SafetyMargin: c.SafetyMargin,
		CenterValue:  c.CenterValue,
		WorkerValue:  c.WorkerValue,
		WorkerRadius: c.WorkerRadius,
	}
}

// HostileLookup adapts the unit table for the threat field. Ranges are
// converted from cells to world units.
func (t *Tuning) HostileLookup(tileSize float64) threat.ProfileLookup {
	return func(unitType string) (threat.HostileInfo, bool) {
		p, ok := t.Profile(unitType)
		if !ok {
			return threat.HostileInfo{}, false
		}
		return threat.HostileInfo{WeaponRange: p.WeaponRange * tileSize, Worker: p.Worker}, true
	}
}
