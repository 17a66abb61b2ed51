package ports

import (
	"context"
	"time"

	"github.com/tienquocbui/pineapple/internal/domain"
)

// CredentialStore owns identity records keyed by email.
type CredentialStore interface {
	// Create returns ErrEmailInUse, ErrWeakPassword or a network error.
	Create(ctx context.Context, email, password string) (*domain.Identity, error)
	Delete(ctx context.Context, id domain.IdentityID) error
	// Verify returns ErrInvalidCredentials when email or password do not match.
	Verify(ctx context.Context, email, password string) (*domain.Identity, error)
	EmailRegistered(ctx context.Context, email string) (bool, error)
	// SendPasswordReset succeeds silently for unknown emails.
	SendPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}

// ReservationStore maps a canonical username to the identity that owns it.
// ReserveIfAbsent is the only uniqueness authority: it must succeed for
// exactly one caller per username across all processes.
type ReservationStore interface {
	ReserveIfAbsent(ctx context.Context, username string, id domain.IdentityID) (bool, error)
	Exists(ctx context.Context, username string) (bool, error)
	// Get returns nil, nil when the username is free.
	Get(ctx context.Context, username string) (*domain.Reservation, error)
	// Release deletes the reservation only while it is owned by id.
	Release(ctx context.Context, username string, id domain.IdentityID) error
}

// ReservationLister is implemented by reservation stores that can be swept.
type ReservationLister interface {
	ListCreatedBefore(ctx context.Context, before time.Time, limit int) ([]domain.Reservation, error)
}

// ProfileStore maps an identity to its profile document.
type ProfileStore interface {
	Put(ctx context.Context, profile *domain.Profile) error
	// Get returns nil, nil when no profile exists.
	Get(ctx context.Context, id domain.IdentityID) (*domain.Profile, error)
	Delete(ctx context.Context, id domain.IdentityID) error
}

// IdentityRepository persists identities with their password hash.
type IdentityRepository interface {
	// Create returns ErrEmailInUse when the email is already registered.
	Create(ctx context.Context, identity *domain.Identity, passwordHash string) error
	// GetByEmail returns nil, "", nil when no identity has the email.
	GetByEmail(ctx context.Context, email string) (*domain.Identity, string, error)
	Delete(ctx context.Context, id domain.IdentityID) error
	UpdatePasswordHash(ctx context.Context, id domain.IdentityID, passwordHash string) error
}

// PasswordResetStore persists hashed single-use reset tokens.
type PasswordResetStore interface {
	Create(ctx context.Context, id domain.IdentityID, tokenHash string, expiresAt time.Time) error
	// Consume marks the token used and returns its identity; ErrPasswordResetInvalid when unusable.
	Consume(ctx context.Context, tokenHash string) (domain.IdentityID, error)
}
