package provisioning

import (
	"context"

	"github.com/tienquocbui/pineapple/internal/domain"
	domerrors "github.com/tienquocbui/pineapple/internal/domain/errors"
)

// CompleteProfileInput names the identity to finish and the profile it asks for.
type CompleteProfileInput struct {
	IdentityID  domain.IdentityID
	DisplayName string
	Username    string
}

// CompleteProfile re-runs the reservation and profile steps for an identity
// whose signup was interrupted. The identity already exists and is never
// deleted here; only a reservation taken by this call is compensated.
func (c *Coordinator) CompleteProfile(ctx context.Context, input CompleteProfileInput) (*domain.Profile, error) {
	username, err := domain.CanonicalUsername(input.Username)
	if err != nil {
		return nil, err
	}
	id := input.IdentityID
	log := c.log.With().Str("identity_id", id.String()).Str("username", username).Logger()

	outcome, existing, err := c.inspect(ctx, id)
	if err != nil {
		return nil, err
	}
	if outcome == domain.RepairHealthy {
		return nil, domerrors.ErrAlreadyProvisioned
	}

	current, err := c.reservations.Get(ctx, username)
	if err != nil {
		return nil, domerrors.Network("get reservation", err)
	}
	if current != nil && !current.OwnedBy(id) {
		return nil, domerrors.ErrUsernameTaken
	}
	reservedNow := false
	if current == nil {
		owned, err := c.reservations.ReserveIfAbsent(ctx, username, id)
		if err != nil {
			c.releaseReservation(ctx, username, id)
			return nil, domerrors.Network("reserve username", err)
		}
		if !owned {
			return nil, domerrors.ErrUsernameTaken
		}
		reservedNow = true
	}

	now := c.now()
	profile := &domain.Profile{
		IdentityID:  id,
		Username:    username,
		DisplayName: domain.NormalizeDisplayName(input.DisplayName),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if existing != nil {
		profile.Bio = existing.Bio
		profile.AvatarRef = existing.AvatarRef
		profile.CreatedAt = existing.CreatedAt
	}
	if err := c.profiles.Put(ctx, profile); err != nil {
		log.Error().Err(err).Msg("profile write failed")
		if reservedNow {
			c.releaseReservation(ctx, username, id)
		}
		return nil, domerrors.ProfileWrite(err)
	}
	if err := c.confirmReservation(ctx, username, id); err != nil {
		log.Warn().Err(err).Msg("reservation lost during profile write")
		c.restoreProfile(ctx, id, existing)
		return nil, err
	}
	if existing != nil && existing.Username != username {
		// Old name may still be held by this identity if an earlier release failed.
		c.releaseReservation(ctx, existing.Username, id)
	}

	log.Info().Msg("profile completed")
	return profile, nil
}

// confirmReservation checks that id still holds username once its profile is
// written. An orphan sweep may release the name between the ownership check
// and the write; the name is taken back when nobody else got it first.
func (c *Coordinator) confirmReservation(ctx context.Context, username string, id domain.IdentityID) error {
	current, err := c.reservations.Get(ctx, username)
	if err != nil {
		return domerrors.Network("get reservation", err)
	}
	if current.OwnedBy(id) {
		return nil
	}
	if current != nil {
		return domerrors.ErrUsernameTaken
	}
	owned, err := c.reservations.ReserveIfAbsent(ctx, username, id)
	if err != nil {
		c.releaseReservation(ctx, username, id)
		return domerrors.Network("reserve username", err)
	}
	if !owned {
		return domerrors.ErrUsernameTaken
	}
	return nil
}

// restoreProfile puts back the profile id had before a failed completion,
// or removes the new one when there was none.
func (c *Coordinator) restoreProfile(ctx context.Context, id domain.IdentityID, previous *domain.Profile) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.compensationTimeout)
	defer cancel()
	var err error
	if previous != nil {
		err = c.profiles.Put(ctx, previous)
	} else {
		err = c.profiles.Delete(ctx, id)
	}
	if err != nil {
		compensationFailures.WithLabelValues("restore_profile").Inc()
		c.log.Error().Err(err).Str("identity_id", id.String()).Msg("restore profile failed")
	}
}

func (c *Coordinator) releaseReservation(ctx context.Context, username string, id domain.IdentityID) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.compensationTimeout)
	defer cancel()
	if err := c.reservations.Release(ctx, username, id); err != nil {
		compensationFailures.WithLabelValues("release_reservation").Inc()
		c.log.Warn().Err(err).Str("identity_id", id.String()).Str("username", username).Msg("release reservation failed; left for sweep")
	}
}
