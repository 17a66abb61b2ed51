package provisioning

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tienquocbui/pineapple/internal/domain"
	domerrors "github.com/tienquocbui/pineapple/internal/domain/errors"
)

func TestLoginPassThrough(t *testing.T) {
	f := newFixture(t)
	result, err := f.signUp(t, "Ann", "ann_01", "Ann@X.com", "secret1")
	require.NoError(t, err)

	identity, err := f.coord.Login(context.Background(), "ann@x.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, result.Identity.ID, identity.ID)

	_, err = f.coord.Login(context.Background(), "ann@x.com", "wrong")
	assert.ErrorIs(t, err, domerrors.ErrInvalidCredentials)

	_, err = f.coord.Login(context.Background(), "nobody@x.com", "secret1")
	assert.ErrorIs(t, err, domerrors.ErrInvalidCredentials)
}

func TestLoginLocksAfterRepeatedFailures(t *testing.T) {
	f := newFixture(t)
	_, err := f.signUp(t, "Ann", "ann_01", "ann@x.com", "secret1")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = f.coord.Login(context.Background(), "ann@x.com", "wrong")
		require.ErrorIs(t, err, domerrors.ErrInvalidCredentials)
	}

	_, err = f.coord.Login(context.Background(), "ann@x.com", "secret1")
	assert.ErrorIs(t, err, domerrors.ErrAccountLocked)
	var locked *AccountLockedError
	require.True(t, errors.As(err, &locked))
	assert.Positive(t, locked.RetryAfterSeconds)
}

func TestLoginNetworkError(t *testing.T) {
	creds := new(mockCredentials)
	creds.On("Verify", "ann@x.com", "secret1").Return(nil, errStoreDown).Once()
	coord := NewCoordinator(creds, new(mockReservations), new(mockProfiles), zerolog.Nop())

	_, err := coord.Login(context.Background(), "ann@x.com", "secret1")
	assert.ErrorIs(t, err, domerrors.ErrNetwork)
	creds.AssertExpectations(t)
}

func TestSendPasswordResetPassThrough(t *testing.T) {
	creds := new(mockCredentials)
	creds.On("SendPasswordReset", "ann@x.com").Return(nil).Once()
	creds.On("SendPasswordReset", "bo@x.com").Return(errStoreDown).Once()
	coord := NewCoordinator(creds, new(mockReservations), new(mockProfiles), zerolog.Nop())

	assert.NoError(t, coord.SendPasswordReset(context.Background(), "ann@x.com"))
	assert.ErrorIs(t, coord.SendPasswordReset(context.Background(), "bo@x.com"), domerrors.ErrNetwork)
	creds.AssertExpectations(t)
}

func TestResetPasswordKeepsDomainErrors(t *testing.T) {
	creds := new(mockCredentials)
	creds.On("ResetPassword", "bad", "secret2").Return(domerrors.ErrPasswordResetInvalid).Once()
	creds.On("ResetPassword", "tok", "pw").Return(domerrors.ErrWeakPassword).Once()
	creds.On("ResetPassword", "tok", "secret2").Return(errStoreDown).Once()
	coord := NewCoordinator(creds, new(mockReservations), new(mockProfiles), zerolog.Nop())

	assert.ErrorIs(t, coord.ResetPassword(context.Background(), "bad", "secret2"), domerrors.ErrPasswordResetInvalid)
	assert.ErrorIs(t, coord.ResetPassword(context.Background(), "tok", "pw"), domerrors.ErrWeakPassword)
	assert.ErrorIs(t, coord.ResetPassword(context.Background(), "tok", "secret2"), domerrors.ErrNetwork)
}

func TestDeleteAccountFreesUsername(t *testing.T) {
	f := newFixture(t)
	result, err := f.signUp(t, "Ann", "ann_01", "ann@x.com", "secret1")
	require.NoError(t, err)

	require.NoError(t, f.coord.DeleteAccount(context.Background(), result.Identity.ID))
	assert.Equal(t, 0, f.identities.Count())
	assert.Equal(t, 0, f.reservations.Count())
	assert.Equal(t, 0, f.profiles.Count())

	_, err = f.signUp(t, "Ann again", "ann_01", "ann@x.com", "secret1")
	require.NoError(t, err)
}

func TestDeleteAccountRetryAfterReleaseFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	result, err := f.signUp(t, "Ann", "ann_01", "ann@x.com", "secret1")
	require.NoError(t, err)
	f.reservations.releaseErr = errStoreDown

	err = f.coord.DeleteAccount(ctx, result.Identity.ID)
	assert.ErrorIs(t, err, domerrors.ErrNetwork)
	assert.Equal(t, 1, f.identities.Count(), "identity kept so the user can retry")
	assert.Equal(t, 1, f.profiles.Count())
	f.requireLinked(t, result.Identity.ID)

	f.reservations.releaseErr = nil
	require.NoError(t, f.coord.DeleteAccount(ctx, result.Identity.ID))
	assert.Equal(t, 0, f.identities.Count())
	assert.Equal(t, 0, f.profiles.Count())
	assert.Equal(t, 0, f.reservations.Count())

	_, err = f.signUp(t, "Someone else", "ann_01", "other@x.com", "secret1")
	require.NoError(t, err)
}

func TestDeleteAccountRetryAfterProfileDeleteFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	result, err := f.signUp(t, "Ann", "ann_01", "ann@x.com", "secret1")
	require.NoError(t, err)
	f.profiles.deleteErr = errStoreDown

	err = f.coord.DeleteAccount(ctx, result.Identity.ID)
	assert.ErrorIs(t, err, domerrors.ErrNetwork)
	assert.Equal(t, 0, f.reservations.Count())
	assert.Equal(t, 1, f.identities.Count())

	outcome, err := f.coord.RepairOnLogin(ctx, result.Identity.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RepairIncompleteProfile, outcome)

	f.profiles.deleteErr = nil
	require.NoError(t, f.coord.DeleteAccount(ctx, result.Identity.ID))
	assert.Equal(t, 0, f.identities.Count())
	assert.Equal(t, 0, f.profiles.Count())
	assert.Equal(t, 0, f.reservations.Count())
}
