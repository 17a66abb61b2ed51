package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for handlers to map to HTTP status.
var (
	ErrInvalidUsername      = errors.New("username must be 1-30 letters, digits, '.' or '_' and may not start or end with '.'")
	ErrUsernameTaken        = errors.New("username is already taken")
	ErrEmailInUse           = errors.New("email is already registered")
	ErrWeakPassword         = errors.New("password is too weak")
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrNetwork              = errors.New("store unavailable, try again")
	ErrProfileWriteFailure  = errors.New("signup failed, try again")
	ErrIncompleteProfile    = errors.New("finish setting up your account")
	ErrAlreadyProvisioned   = errors.New("account is already set up")
	ErrAccountLocked        = errors.New("too many failed attempts, try again later")
	ErrIdentityNotFound     = errors.New("identity not found")
	ErrPasswordResetInvalid = errors.New("invalid or expired password reset token")
)

// Network wraps a transport failure from op so that it matches both
// ErrNetwork and the underlying cause.
func Network(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNetwork) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, ErrNetwork, err)
}

// ProfileWrite wraps the internal cause of a failed profile write.
func ProfileWrite(err error) error {
	return fmt.Errorf("%w: %w", ErrProfileWriteFailure, err)
}
