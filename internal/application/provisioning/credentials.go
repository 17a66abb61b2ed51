package provisioning

import (
	"context"
	"errors"
	"fmt"

	"github.com/tienquocbui/pineapple/internal/domain"
	domerrors "github.com/tienquocbui/pineapple/internal/domain/errors"
)

// AccountLockedError is returned by Login while the email is in cooldown.
type AccountLockedError struct {
	RetryAfterSeconds int
}

func (e *AccountLockedError) Error() string {
	return fmt.Sprintf("%s (retry after %ds)", domerrors.ErrAccountLocked, e.RetryAfterSeconds)
}

func (e *AccountLockedError) Unwrap() error { return domerrors.ErrAccountLocked }

// Login verifies credentials. It does not check onboarding; callers follow
// a successful login with RepairOnLogin.
func (c *Coordinator) Login(ctx context.Context, email, password string) (*domain.Identity, error) {
	if c.lockout != nil {
		if locked, retryAfter := c.lockout.IsLocked(ctx, email); locked {
			return nil, &AccountLockedError{RetryAfterSeconds: retryAfter}
		}
	}
	identity, err := c.credentials.Verify(ctx, email, password)
	if err != nil {
		if errors.Is(err, domerrors.ErrInvalidCredentials) {
			if c.lockout != nil {
				c.lockout.RecordFailure(ctx, email)
			}
			return nil, err
		}
		return nil, domerrors.Network("verify credentials", err)
	}
	if c.lockout != nil {
		c.lockout.RecordSuccess(ctx, email)
	}
	return identity, nil
}

// SendPasswordReset asks the credential store to mail a reset link.
func (c *Coordinator) SendPasswordReset(ctx context.Context, email string) error {
	if err := c.credentials.SendPasswordReset(ctx, email); err != nil {
		return domerrors.Network("send password reset", err)
	}
	return nil
}

// ResetPassword consumes a reset token and sets a new password.
func (c *Coordinator) ResetPassword(ctx context.Context, token, newPassword string) error {
	err := c.credentials.ResetPassword(ctx, token, newPassword)
	if err == nil || errors.Is(err, domerrors.ErrPasswordResetInvalid) || errors.Is(err, domerrors.ErrWeakPassword) {
		return err
	}
	return domerrors.Network("reset password", err)
}
