package rules

import (
	"fmt"

	"github.com/nstehr/vimy/vimy-micro/config"
)

// CompileDoctrine generates the escalation rule set from a doctrine.
// Conditions are built with fmt.Sprintf from validated integers, so the
// compiler never generates invalid expr.
func CompileDoctrine(d config.Doctrine) []*Rule {
	d.Validate()
	var rules []*Rule

	// Ground units wait until the group is big enough, then every ready unit
	// goes in together.
	attackPriority := lerp(200, 400, d.Aggression)
	rules = append(rules, &Rule{
		Name:         "attack-visible-ground",
		Priority:     attackPriority,
		Category:     "ground",
		Exclusive:    true,
		ConditionSrc: fmt.Sprintf(`EnemiesVisible() && len(ReadyGroundUnits()) >= %d`, d.GroundAttackGroupSize),
		Action:       ActionEscalateGround,
	})

	// Reinforce a fight already under way with whatever is ready.
	rules = append(rules, &Rule{
		Name:         "reinforce-ground",
		Priority:     attackPriority - 10,
		Category:     "ground",
		Exclusive:    true,
		ConditionSrc: `EnemiesVisible() && EngagedUnits() > 0 && len(ReadyGroundUnits()) > 0`,
		Action:       ActionEscalateGround,
	})

	rules = append(rules, &Rule{
		Name:         "attack-visible-air",
		Priority:     attackPriority - 5,
		Category:     "air",
		Exclusive:    true,
		ConditionSrc: fmt.Sprintf(`EnemiesVisible() && len(ReadyAircraft()) >= %d`, d.AirAttackGroupSize),
		Action:       ActionEscalateAir,
	})

	// Scouts go out only while nothing is in view.
	scoutPriority := lerp(150, 300, d.ScoutPriority)
	rules = append(rules, &Rule{
		Name:         "scout-with-idle-units",
		Priority:     scoutPriority,
		Category:     "ground",
		Exclusive:    true,
		ConditionSrc: `!EnemiesVisible() && len(IdleGroundUnits()) > 0`,
		Action:       ScoutGroup("ground", d.ScoutGroupSize),
	})

	rules = append(rules, &Rule{
		Name:         "scout-starts-air",
		Priority:     scoutPriority - 5,
		Category:     "air",
		Exclusive:    true,
		ConditionSrc: `!EnemiesVisible() && UnscoutedStarts() > 0 && len(IdleAircraft()) > 0`,
		Action:       ScoutGroup("air", 1),
	})

	return rules
}

// DefaultRules compiles the default doctrine.
func DefaultRules() []*Rule {
	return CompileDoctrine(config.DefaultDoctrine())
}
