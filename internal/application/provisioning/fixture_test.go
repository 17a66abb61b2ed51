package provisioning

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/tienquocbui/pineapple/internal/application/credentials"
	"github.com/tienquocbui/pineapple/internal/domain"
	"github.com/tienquocbui/pineapple/internal/infrastructure/lockout"
	"github.com/tienquocbui/pineapple/internal/infrastructure/persistence/memory"
	"github.com/tienquocbui/pineapple/internal/infrastructure/queue"
	"github.com/tienquocbui/pineapple/internal/infrastructure/security"
)

var errStoreDown = errors.New("connection reset by peer")

type stubHasher struct{}

func (stubHasher) Hash(p string) (string, error) { return "hashed-" + p, nil }
func (stubHasher) Verify(p, h string) bool      { return h == "hashed-"+p }

// flakyIdentities fails Delete when deleteErr is set and records the
// context state Delete was called with.
type flakyIdentities struct {
	*memory.IdentityRepository
	mu          sync.Mutex
	deleteErr   error
	deleteCalls int
	deleteCtxOK bool
}

func (f *flakyIdentities) Delete(ctx context.Context, id domain.IdentityID) error {
	f.mu.Lock()
	f.deleteCalls++
	f.deleteCtxOK = ctx.Err() == nil
	err := f.deleteErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.IdentityRepository.Delete(ctx, id)
}

// flakyReservations can hide reservations from the probe, fail after
// committing a reservation, or fail releases.
type flakyReservations struct {
	*memory.ReservationStore
	blindProbe      bool
	reserveErrAfter bool
	releaseErr      error
}

func (f *flakyReservations) Exists(ctx context.Context, username string) (bool, error) {
	if f.blindProbe {
		return false, nil
	}
	return f.ReservationStore.Exists(ctx, username)
}

func (f *flakyReservations) ReserveIfAbsent(ctx context.Context, username string, id domain.IdentityID) (bool, error) {
	ok, err := f.ReservationStore.ReserveIfAbsent(ctx, username, id)
	if f.reserveErrAfter {
		return false, errStoreDown
	}
	return ok, err
}

func (f *flakyReservations) Release(ctx context.Context, username string, id domain.IdentityID) error {
	if f.releaseErr != nil {
		return f.releaseErr
	}
	return f.ReservationStore.Release(ctx, username, id)
}

// flakyProfiles fails Put, Get and Delete on demand.
type flakyProfiles struct {
	*memory.ProfileStore
	mu        sync.Mutex
	putErr    error
	getErr    error
	deleteErr error
	onPut    func()
	putCalls int
}

func (f *flakyProfiles) Put(ctx context.Context, p *domain.Profile) error {
	f.mu.Lock()
	f.putCalls++
	f.mu.Unlock()
	if f.onPut != nil {
		f.onPut()
	}
	if f.putErr != nil {
		return f.putErr
	}
	return f.ProfileStore.Put(ctx, p)
}

func (f *flakyProfiles) Delete(ctx context.Context, id domain.IdentityID) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	return f.ProfileStore.Delete(ctx, id)
}

func (f *flakyProfiles) Get(ctx context.Context, id domain.IdentityID) (*domain.Profile, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.ProfileStore.Get(ctx, id)
}

type fixture struct {
	identities   *flakyIdentities
	reservations *flakyReservations
	profiles     *flakyProfiles
	coord        *Coordinator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		identities:   &flakyIdentities{IdentityRepository: memory.NewIdentityRepository()},
		reservations: &flakyReservations{ReservationStore: memory.NewReservationStore()},
		profiles:     &flakyProfiles{ProfileStore: memory.NewProfileStore()},
	}
	creds := credentials.NewStore(
		f.identities,
		memory.NewPasswordResetStore(),
		stubHasher{},
		security.NewLengthPolicy(3),
		queue.NewNoopEnqueuer(),
		credentials.Config{ResetBaseURL: "https://app.test/reset"},
	)
	f.coord = NewCoordinator(creds, f.reservations, f.profiles, zerolog.Nop(),
		WithLockout(lockout.NewMemoryStore(3, 60)))
	return f
}

func (f *fixture) signUp(t *testing.T, displayName, username, email, password string) (*SignUpResult, error) {
	t.Helper()
	return f.coord.SignUp(context.Background(), SignUpInput{
		DisplayName: displayName,
		Username:    username,
		Email:       email,
		Password:    password,
	})
}

// requireLinked asserts that the profile of id names a username
// reserved by id.
func (f *fixture) requireLinked(t *testing.T, id domain.IdentityID) {
	t.Helper()
	p, err := f.profiles.ProfileStore.Get(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, p)
	r, err := f.reservations.ReservationStore.Get(context.Background(), p.Username)
	require.NoError(t, err)
	require.True(t, r.OwnedBy(id), "reservation %q not owned by %s", p.Username, id)
}
