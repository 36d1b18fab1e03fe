package rules

import "github.com/expr-lang/expr/vm"

// Orders is what a rule action may ask of the combat controller.
type Orders interface {
	Escalate(ids []int) int
	Scout(ids []int) int
}

// ActionFunc changes unit states when a rule's condition is true.
type ActionFunc func(env RuleEnv, orders Orders) error

// Rule is a condition → action pair. The engine evaluates rules by priority
// and uses Category + Exclusive so only one rule per unit domain acts per
// frame.
type Rule struct {
	Name         string      // human-readable identifier
	Priority     int         // higher = evaluated first
	Category     string      // grouping for exclusive semantics
	Exclusive    bool        // if true, blocks lower-priority rules in same category
	ConditionSrc string      // expr source
	program      *vm.Program // compiled bytecode
	Action       ActionFunc
}
