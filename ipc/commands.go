package ipc

// Command type constants; they must stay in sync with the adapter's command executor.
const (
	TypeMove   = "move"
	TypeAttack = "attack"
)

// MoveCommand coordinates are world units.
type MoveCommand struct {
	ActorID uint32  `json:"actor_id"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
}

type AttackCommand struct {
	ActorID  uint32 `json:"actor_id"`
	TargetID uint32 `json:"target_id"`
}
