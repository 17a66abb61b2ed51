// Package retention releases username reservations left behind by signups
// that failed after reserving and could not compensate.
package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/tienquocbui/pineapple/internal/application/ports"
)

// DefaultSweepLimit caps how many reservations one sweep inspects.
const DefaultSweepLimit = 500

// RunReleaseOrphanedReservations releases reservations created before cutoff
// whose owner has no profile, or whose owner's profile names a different
// username. Call periodically; cutoff should leave room for in-flight
// signups and for users finishing CompleteProfile. limit 0 uses DefaultSweepLimit.
func RunReleaseOrphanedReservations(ctx context.Context, lister ports.ReservationLister, reservations ports.ReservationStore, profiles ports.ProfileStore, cutoff time.Time, limit int) (released int, err error) {
	if limit <= 0 {
		limit = DefaultSweepLimit
	}
	candidates, err := lister.ListCreatedBefore(ctx, cutoff, limit)
	if err != nil {
		return 0, fmt.Errorf("list reservations: %w", err)
	}
	for _, r := range candidates {
		profile, err := profiles.Get(ctx, r.IdentityID)
		if err != nil {
			return released, fmt.Errorf("get profile %s: %w", r.IdentityID, err)
		}
		if profile != nil && profile.Username == r.Username {
			continue
		}
		if err := reservations.Release(ctx, r.Username, r.IdentityID); err != nil {
			return released, fmt.Errorf("release %q: %w", r.Username, err) // stop on first error
		}
		released++
	}
	return released, nil
}
