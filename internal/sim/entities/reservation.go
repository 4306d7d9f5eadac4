package entities

import (
	"colonysim.ai/internal/sim/simerr"
)

// Reservation is the exclusivity lock an agent holds on a world object.
// The zero value is unreserved.
type Reservation struct {
	holder string
}

func (r *Reservation) IsReserved() bool   { return r.holder != "" }
func (r *Reservation) ReservedBy() string { return r.holder }

// Reserve claims the object for agentID. Re-reserving by the holder is a
// no-op; any other holder yields ErrReservationConflict.
func (r *Reservation) Reserve(agentID string) error {
	if agentID == "" {
		return simerr.Wrap(simerr.ErrReservationConflict, "empty agent id")
	}
	if r.holder != "" && r.holder != agentID {
		return simerr.Wrap(simerr.ErrReservationConflict, "held by %s", r.holder)
	}
	r.holder = agentID
	return nil
}

func (r *Reservation) ReleaseReservation() { r.holder = "" }

// ReleaseIfHeldBy releases only when agentID is the holder.
func (r *Reservation) ReleaseIfHeldBy(agentID string) bool {
	if r.holder == "" || r.holder != agentID {
		return false
	}
	r.holder = ""
	return true
}

// AvailableTo reports whether agentID may claim the object.
func (r *Reservation) AvailableTo(agentID string) bool {
	return r.holder == "" || r.holder == agentID
}
