package domain

import (
	"time"

	"github.com/google/uuid"
)

// IdentityID is a value object for an authenticated principal.
type IdentityID struct{ uuid.UUID }

// NewIdentityID creates a new IdentityID from uuid.
func NewIdentityID(id uuid.UUID) IdentityID { return IdentityID{UUID: id} }

// ParseIdentityID parses the canonical string form.
func ParseIdentityID(s string) (IdentityID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return IdentityID{}, err
	}
	return NewIdentityID(id), nil
}

// String returns the canonical string form.
func (i IdentityID) String() string { return i.UUID.String() }

// Identity is a credential record keyed by email, independent of username.
type Identity struct {
	ID        IdentityID
	Email     string
	CreatedAt time.Time
}
