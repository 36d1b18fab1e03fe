package config

// Doctrine is the tunable escalation posture. Weights are 0.0–1.0; the
// compiler maps them to rule priorities and thresholds.
type Doctrine struct {
	Name                  string  `yaml:"name"`
	Aggression            float64 `yaml:"aggression"`
	ScoutPriority         float64 `yaml:"scout_priority"`
	GroundAttackGroupSize int     `yaml:"ground_attack_group_size"`
	AirAttackGroupSize    int     `yaml:"air_attack_group_size"`
	ScoutGroupSize        int     `yaml:"scout_group_size"`
}

// DefaultDoctrine returns a balanced baseline doctrine.
func DefaultDoctrine() Doctrine {
	return Doctrine{
		Name:                  "Balanced",
		Aggression:            0.5,
		ScoutPriority:         0.5,
		GroundAttackGroupSize: 5,
		AirAttackGroupSize:    2,
		ScoutGroupSize:        2,
	}
}

// Validate clamps all weights to their valid ranges.
func (d *Doctrine) Validate() {
	d.Aggression = clamp(d.Aggression, 0, 1)
	d.ScoutPriority = clamp(d.ScoutPriority, 0, 1)
	d.GroundAttackGroupSize = clampInt(d.GroundAttackGroupSize, 1, 15)
	d.AirAttackGroupSize = clampInt(d.AirAttackGroupSize, 1, 8)
	d.ScoutGroupSize = clampInt(d.ScoutGroupSize, 1, 4)
}

// clampInt restricts v to [min, max].
func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// clamp restricts v to [min, max].
func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
