package rules

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Engine runs compiled rules against each frame's RuleEnv.
// Rules fire in priority order; exclusive rules block lower-priority rules
// in the same category, preventing conflicting orders to the same units.
type Engine struct {
	mu    sync.RWMutex
	rules []*Rule

	lastDiagFrame int
}

// NewEngine compiles all rule conditions into expr bytecode and sorts by priority.
func NewEngine(rules []*Rule) (*Engine, error) {
	compiled, err := compileRules(rules)
	if err != nil {
		return nil, err
	}
	return &Engine{rules: compiled}, nil
}

// Evaluate runs all rules against one frame and returns the names of the
// rules that fired.
func (e *Engine) Evaluate(env RuleEnv, orders Orders) []string {
	e.mu.RLock()
	rules := e.rules
	e.mu.RUnlock()

	e.logDiagnostics(env)
	fired := make(map[string]bool) // category → exclusive rule already fired

	var names []string
	for _, r := range rules {
		if fired[r.Category] {
			continue
		}

		result, err := vm.Run(r.program, env)
		if err != nil {
			slog.Warn("rule condition error", "rule", r.Name, "error", err)
			continue
		}

		match, ok := result.(bool)
		if !ok || !match {
			continue
		}

		names = append(names, r.Name)
		slog.Debug("rule fired", "rule", r.Name, "priority", r.Priority, "category", r.Category)

		if err := r.Action(env, orders); err != nil {
			slog.Error("rule action error", "rule", r.Name, "error", err)
		}

		if r.Exclusive {
			fired[r.Category] = true
		}
	}
	return names
}

// Reset clears per-game state so the engine can serve a new game.
func (e *Engine) Reset() {
	e.lastDiagFrame = 0
}

// Swap replaces the rule set after a tuning reload. Compiles first; if
// compilation fails the old rules remain active.
func (e *Engine) Swap(newRules []*Rule) error {
	compiled, err := compileRules(newRules)
	if err != nil {
		return err
	}
	names := make([]string, len(compiled))
	for i, r := range compiled {
		names[i] = r.Name
	}
	e.mu.Lock()
	e.rules = compiled
	e.mu.Unlock()
	slog.Info("rule set swapped", "count", len(compiled), "rules", names)
	return nil
}

// logDiagnostics helps debug "why doesn't the AI attack?"; fires every
// 100 frames regardless of rule activity.
func (e *Engine) logDiagnostics(env RuleEnv) {
	if env.Frame-e.lastDiagFrame < 100 {
		return
	}
	e.lastDiagFrame = env.Frame

	slog.Info("combat diagnostics",
		"frame", env.Frame,
		"units", len(env.Units),
		"idleGround", len(env.IdleGroundUnits()),
		"idleAir", len(env.IdleAircraft()),
		"engaged", env.EngagedUnits(),
		"hostilesVisible", env.HostileCount(),
		"hasEnemyIntel", env.HasEnemyIntel(),
	)
}

func compileRules(rules []*Rule) ([]*Rule, error) {
	for _, r := range rules {
		prog, err := expr.Compile(r.ConditionSrc, expr.Env(RuleEnv{}), expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("compile rule %q: %w", r.Name, err)
		}
		r.program = prog
	}
	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].Priority > rules[j].Priority
	})
	return rules, nil
}
