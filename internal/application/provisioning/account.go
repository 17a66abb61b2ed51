package provisioning

import (
	"context"

	"github.com/tienquocbui/pineapple/internal/domain"
	domerrors "github.com/tienquocbui/pineapple/internal/domain/errors"
)

// DeleteAccount releases the reservation, then removes profile and identity.
// The profile is read again on every call and outlives its reservation, so a
// retry after any failed step still knows which username to release.
func (c *Coordinator) DeleteAccount(ctx context.Context, id domain.IdentityID) error {
	profile, err := c.profiles.Get(ctx, id)
	if err != nil {
		return domerrors.Network("get profile", err)
	}
	if profile != nil {
		if err := c.reservations.Release(ctx, profile.Username, id); err != nil {
			return domerrors.Network("release reservation", err)
		}
		if err := c.profiles.Delete(ctx, id); err != nil {
			return domerrors.Network("delete profile", err)
		}
	}
	if err := c.credentials.Delete(ctx, id); err != nil {
		return domerrors.Network("delete identity", err)
	}
	c.log.Info().Str("identity_id", id.String()).Msg("account deleted")
	return nil
}
