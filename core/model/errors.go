package model

import (
	"errors"
	"fmt"
)

// ErrInvariant is wrapped by every InvariantError.
var ErrInvariant = errors.New("invariant violated")

// InvariantError reports a broken trip or vehicle invariant together with a
// snapshot of the offending entity.
type InvariantError struct {
	Op      string
	Reason  string
	Trip    *Trip
	Vehicle *Vehicle
}

func newTripError(op, reason string, t *Trip) *InvariantError {
	snap := *t
	return &InvariantError{Op: op, Reason: reason, Trip: &snap}
}

// NewVehicleError reports a vehicle level violation.
func NewVehicleError(op, reason string, v *Vehicle) *InvariantError {
	snap := *v
	return &InvariantError{Op: op, Reason: reason, Vehicle: &snap}
}

func (e *InvariantError) Error() string {
	switch {
	case e.Trip != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Reason, e.Trip)
	case e.Vehicle != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Reason, e.Vehicle)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

func (e *InvariantError) Unwrap() error { return ErrInvariant }
