package model

// GameState is one frame's world snapshot as reported by the game adapter.
// Positions are world coordinates; the adapter decides the world unit, the
// walk grid's TileSize maps them onto cells.
type GameState struct {
	Frame     int     `json:"frame"`
	Player    string  `json:"player"`
	Units     []Unit  `json:"units"`
	Enemies   []Enemy `json:"enemies"`
	Bases     []Base  `json:"bases"`
	MapWidth  int     `json:"mapWidth"`
	MapHeight int     `json:"mapHeight"`
}

// Unit is one of our own units.
type Unit struct {
	ID       int     `json:"id"`
	Type     string  `json:"type"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	VX       float64 `json:"vx"`
	VY       float64 `json:"vy"`
	Facing   float64 `json:"facing"`   // radians, 0 = +X
	Cooldown int     `json:"cooldown"` // frames until the weapon is ready
	HP       int     `json:"hp"`
	MaxHP    int     `json:"maxHp"`
}

func (u Unit) Pos() Vec      { return Vec{u.X, u.Y} }
func (u Unit) Velocity() Vec { return Vec{u.VX, u.VY} }

// Enemy is any non-friendly unit or structure the adapter knows about.
// Visible is false for remembered positions under fog.
type Enemy struct {
	ID      int     `json:"id"`
	Owner   string  `json:"owner"`
	Type    string  `json:"type"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	VX      float64 `json:"vx"`
	VY      float64 `json:"vy"`
	HP      int     `json:"hp"`
	MaxHP   int     `json:"maxHp"`
	Visible bool    `json:"visible"`
	Neutral bool    `json:"neutral"`
}

func (e Enemy) Pos() Vec      { return Vec{e.X, e.Y} }
func (e Enemy) Velocity() Vec { return Vec{e.VX, e.VY} }

// Hostile reports whether the enemy should be fought.
func (e Enemy) Hostile() bool { return !e.Neutral }

// Ownership classifies a base location.
type Ownership string

const (
	OwnerUnknown  Ownership = ""
	OwnerNeutral  Ownership = "neutral"
	OwnerFriendly Ownership = "friendly"
	OwnerHostile  Ownership = "hostile"
)

// Base is a candidate base location from the adapter's base registry.
type Base struct {
	ID            int       `json:"id"`
	X             float64   `json:"x"`
	Y             float64   `json:"y"`
	StartLocation bool      `json:"startLocation"`
	LastScouted   int       `json:"lastScouted"` // frame, 0 = never
	Owner         Ownership `json:"owner"`
	Visible       bool      `json:"visible"`
}

func (b Base) Pos() Vec { return Vec{b.X, b.Y} }

// Confirmed reports whether the base's ownership has been observed.
func (b Base) Confirmed() bool { return b.Owner != OwnerUnknown }
