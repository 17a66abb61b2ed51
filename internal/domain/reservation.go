package domain

import "time"

// Reservation binds a username to exactly one identity.
type Reservation struct {
	Username   string
	IdentityID IdentityID
	CreatedAt  time.Time
}

// OwnedBy reports whether the reservation points at id.
func (r *Reservation) OwnedBy(id IdentityID) bool {
	return r != nil && r.IdentityID == id
}
