// Package compare decides which storage entries survive a contract upgrade
// and extracts the merged old/new type graph behind them.
package compare

import (
	"errors"
	"fmt"
)

var (
	// ErrTypeNotFound is returned when a referenced type identifier is absent
	// from the universe it should live in.
	ErrTypeNotFound = errors.New("type not found")

	// ErrMalformedEquality is returned when a descriptor lacks label,
	// encoding or numberOfBytes, or carries an unparsable size.
	ErrMalformedEquality = errors.New("malformed type descriptor")

	// ErrTypeCycle is returned when a type reaches itself through base or
	// member references.
	ErrTypeCycle = errors.New("cycle in type graph")
)

// Side identifies which layout version a type belongs to.
type Side string

const (
	SideOld Side = "old"
	SideNew Side = "new"
)

// TypeError attaches the offending identifier and layout side to one of the
// sentinel errors above.
type TypeError struct {
	ID   string
	Side Side
	Err  error
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("%v: %s (%s layout)", e.Err, e.ID, e.Side)
}

func (e *TypeError) Unwrap() error {
	return e.Err
}
