package retention

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tienquocbui/pineapple/internal/domain"
	"github.com/tienquocbui/pineapple/internal/infrastructure/persistence/memory"
)

type failingProfiles struct{ *memory.ProfileStore }

func (failingProfiles) Get(ctx context.Context, id domain.IdentityID) (*domain.Profile, error) {
	return nil, errors.New("profile store down")
}

func TestReleaseOrphanedReservations(t *testing.T) {
	ctx := context.Background()
	reservations := memory.NewReservationStore()
	profiles := memory.NewProfileStore()

	healthy := domain.NewIdentityID(uuid.New())
	orphan := domain.NewIdentityID(uuid.New())
	renamed := domain.NewIdentityID(uuid.New())

	for name, id := range map[string]domain.IdentityID{"ann": healthy, "ghost": orphan, "old_name": renamed, "new_name": renamed} {
		ok, err := reservations.ReserveIfAbsent(ctx, name, id)
		require.NoError(t, err)
		require.True(t, ok)
	}
	require.NoError(t, profiles.Put(ctx, &domain.Profile{IdentityID: healthy, Username: "ann"}))
	require.NoError(t, profiles.Put(ctx, &domain.Profile{IdentityID: renamed, Username: "new_name"}))

	released, err := RunReleaseOrphanedReservations(ctx, reservations, reservations, profiles, time.Now().Add(time.Minute), 0)
	require.NoError(t, err)
	assert.Equal(t, 2, released)

	for name, want := range map[string]bool{"ann": true, "new_name": true, "ghost": false, "old_name": false} {
		exists, err := reservations.Exists(ctx, name)
		require.NoError(t, err)
		assert.Equal(t, want, exists, name)
	}
}

func TestReleaseOrphanedReservationsRespectsCutoff(t *testing.T) {
	ctx := context.Background()
	reservations := memory.NewReservationStore()
	_, err := reservations.ReserveIfAbsent(ctx, "fresh", domain.NewIdentityID(uuid.New()))
	require.NoError(t, err)

	released, err := RunReleaseOrphanedReservations(ctx, reservations, reservations, memory.NewProfileStore(), time.Now().Add(-time.Hour), 10)
	require.NoError(t, err)
	assert.Zero(t, released)
	assert.Equal(t, 1, reservations.Count())
}

func TestReleaseOrphanedReservationsStopsOnError(t *testing.T) {
	ctx := context.Background()
	reservations := memory.NewReservationStore()
	_, err := reservations.ReserveIfAbsent(ctx, "ghost", domain.NewIdentityID(uuid.New()))
	require.NoError(t, err)

	_, err = RunReleaseOrphanedReservations(ctx, reservations, reservations, failingProfiles{memory.NewProfileStore()}, time.Now().Add(time.Minute), 10)
	require.Error(t, err)
	assert.Equal(t, 1, reservations.Count())
}
