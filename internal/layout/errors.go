package layout

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCollisionDetected is returned when two type identifiers of one layout
// canonicalize to the same key and the collision policy forbids replacement.
var ErrCollisionDetected = errors.New("canonical type identifier collision")

// Collision records two identifiers that canonicalized to the same key.
type Collision struct {
	Canonical string // resulting key
	Kept      string // original identifier whose descriptor now lives at Canonical
	Replaced  string // original identifier whose descriptor was overwritten
}

// CollisionError carries every collision found in one layout.
type CollisionError struct {
	Collisions []Collision
}

func (e *CollisionError) Error() string {
	parts := make([]string, 0, len(e.Collisions))
	for _, c := range e.Collisions {
		parts = append(parts, fmt.Sprintf("%s <- {%s, %s}", c.Canonical, c.Replaced, c.Kept))
	}
	return fmt.Sprintf("%v: %s", ErrCollisionDetected, strings.Join(parts, "; "))
}

func (e *CollisionError) Unwrap() error {
	return ErrCollisionDetected
}
