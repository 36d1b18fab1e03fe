package nav

import "errors"

var (
	// ErrNoPathFound means the search ran out of frontier without reaching
	// the goal and without any progress worth returning as a partial path.
	ErrNoPathFound = errors.New("no path found")

	// ErrInvalidStartNode means no cell near the start can hold the unit's
	// footprint. It is a local geometry problem, usually cleared once the
	// unit moves.
	ErrInvalidStartNode = errors.New("invalid start node")
)
