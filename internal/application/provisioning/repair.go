package provisioning

import (
	"context"

	"github.com/tienquocbui/pineapple/internal/domain"
	domerrors "github.com/tienquocbui/pineapple/internal/domain/errors"
)

// RepairOnLogin reports whether an identity that just authenticated is fully
// onboarded. It never mutates: an incomplete identity is sent back through
// CompleteProfile, which re-runs the reservation and profile steps.
func (c *Coordinator) RepairOnLogin(ctx context.Context, id domain.IdentityID) (domain.RepairOutcome, error) {
	outcome, _, err := c.inspect(ctx, id)
	if err != nil {
		return "", err
	}
	repairOutcomes.WithLabelValues(string(outcome)).Inc()
	if outcome != domain.RepairHealthy {
		c.log.Info().Str("identity_id", id.String()).Str("outcome", string(outcome)).Msg("identity needs onboarding")
	}
	return outcome, nil
}

// Profile returns the profile of a healthy identity, or ErrIncompleteProfile.
func (c *Coordinator) Profile(ctx context.Context, id domain.IdentityID) (*domain.Profile, error) {
	outcome, profile, err := c.inspect(ctx, id)
	if err != nil {
		return nil, err
	}
	if outcome != domain.RepairHealthy {
		return nil, domerrors.ErrIncompleteProfile
	}
	return profile, nil
}

func (c *Coordinator) inspect(ctx context.Context, id domain.IdentityID) (domain.RepairOutcome, *domain.Profile, error) {
	profile, err := c.profiles.Get(ctx, id)
	if err != nil {
		return "", nil, domerrors.Network("get profile", err)
	}
	if profile == nil {
		return domain.RepairIncompleteProfile, nil, nil
	}
	reservation, err := c.reservations.Get(ctx, profile.Username)
	if err != nil {
		return "", nil, domerrors.Network("get reservation", err)
	}
	if !reservation.OwnedBy(id) {
		return domain.RepairIncompleteProfile, profile, nil
	}
	return domain.RepairHealthy, profile, nil
}
