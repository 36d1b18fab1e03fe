package rules

import (
	"log/slog"

	"github.com/nstehr/vimy/vimy-micro/combat"
)

func ActionEscalateGround(env RuleEnv, orders Orders) error {
	n := orders.Escalate(ids(env.ReadyGroundUnits()))
	slog.Debug("escalating ground units", "count", n, "hostiles", env.HostileCount())
	return nil
}

func ActionEscalateAir(env RuleEnv, orders Orders) error {
	n := orders.Escalate(ids(env.ReadyAircraft()))
	slog.Debug("escalating aircraft", "count", n, "hostiles", env.HostileCount())
	return nil
}

// ScoutGroup keeps up to size units of one domain ("ground" or "air")
// scouting, drawing from idle units and leaving the rest home.
func ScoutGroup(domain string, size int) ActionFunc {
	flying := domain == "air"
	return func(env RuleEnv, orders Orders) error {
		out := 0
		var idle []combat.Status
		for _, u := range env.Units {
			if !u.Armed || u.Flying != flying {
				continue
			}
			switch u.State {
			case combat.Scouting:
				out++
			case combat.Idle:
				idle = append(idle, u)
			}
		}
		want := min(size-out, len(idle))
		if want <= 0 {
			return nil
		}
		n := orders.Scout(ids(idle[:want]))
		slog.Debug("scouting with idle units", "domain", domain, "count", n, "already_out", out)
		return nil
	}
}
