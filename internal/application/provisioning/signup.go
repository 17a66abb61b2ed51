package provisioning

import (
	"context"
	"errors"

	"github.com/tienquocbui/pineapple/internal/domain"
	domerrors "github.com/tienquocbui/pineapple/internal/domain/errors"
)

// SignUpInput carries the raw fields a user submits to create an account.
type SignUpInput struct {
	DisplayName string
	Username    string
	Email       string
	Password    string
}

// SignUpResult holds the identity and profile written by a successful SignUp.
type SignUpResult struct {
	Identity *domain.Identity
	Profile  *domain.Profile
}

// SignUp creates an identity, reserves its username and writes its profile,
// in that order. Only ReserveIfAbsent decides who gets a username; the
// initial Exists probe is a shortcut that may race.
func (c *Coordinator) SignUp(ctx context.Context, input SignUpInput) (*SignUpResult, error) {
	result, err := c.signUp(ctx, input)
	recordSignup(err)
	return result, err
}

func (c *Coordinator) signUp(ctx context.Context, input SignUpInput) (*SignUpResult, error) {
	username, err := domain.CanonicalUsername(input.Username)
	if err != nil {
		return nil, err
	}

	taken, err := c.reservations.Exists(ctx, username)
	if err != nil {
		return nil, domerrors.Network("probe username", err)
	}
	if taken {
		return nil, c.probeConflict(ctx, input.Email)
	}

	identity, err := c.credentials.Create(ctx, input.Email, input.Password)
	if err != nil {
		if errors.Is(err, domerrors.ErrEmailInUse) || errors.Is(err, domerrors.ErrWeakPassword) {
			return nil, err
		}
		return nil, domerrors.Network("create identity", err)
	}
	log := c.log.With().Str("identity_id", identity.ID.String()).Str("username", username).Logger()

	owned, err := c.reservations.ReserveIfAbsent(ctx, username, identity.ID)
	if err != nil {
		// The write may have landed; Release is conditional on ownership.
		log.Warn().Err(err).Msg("reserve username failed")
		c.compensate(ctx, log, identity.ID, username, false)
		return nil, domerrors.Network("reserve username", err)
	}
	if !owned {
		log.Info().Msg("username lost to a concurrent signup")
		c.compensate(ctx, log, identity.ID, "", false)
		return nil, domerrors.ErrUsernameTaken
	}

	now := c.now()
	profile := &domain.Profile{
		IdentityID:  identity.ID,
		Username:    username,
		DisplayName: domain.NormalizeDisplayName(input.DisplayName),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := c.profiles.Put(ctx, profile); err != nil {
		log.Error().Err(err).Msg("profile write failed")
		c.compensate(ctx, log, identity.ID, username, true)
		return nil, domerrors.ProfileWrite(err)
	}

	log.Info().Msg("account provisioned")
	return &SignUpResult{Identity: identity, Profile: profile}, nil
}

// probeConflict picks the error for a username seen taken by the probe.
// An already registered email wins so that repeating a completed signup
// reports ErrEmailInUse.
func (c *Coordinator) probeConflict(ctx context.Context, email string) error {
	registered, err := c.credentials.EmailRegistered(ctx, email)
	if err != nil {
		c.log.Debug().Err(err).Msg("email lookup after username probe failed")
		return domerrors.ErrUsernameTaken
	}
	if registered {
		return domerrors.ErrEmailInUse
	}
	return domerrors.ErrUsernameTaken
}

// UsernameAvailable canonicalises username and reports whether it is free
// right now. The answer is advisory.
func (c *Coordinator) UsernameAvailable(ctx context.Context, username string) (string, bool, error) {
	canonical, err := domain.CanonicalUsername(username)
	if err != nil {
		return "", false, err
	}
	taken, err := c.reservations.Exists(ctx, canonical)
	if err != nil {
		return canonical, false, domerrors.Network("probe username", err)
	}
	return canonical, !taken, nil
}
