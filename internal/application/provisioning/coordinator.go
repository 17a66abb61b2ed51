// Package provisioning creates accounts whose usernames stay globally
// unique across independent credential, reservation and profile stores.
//
// No store offers multi-key transactions. Every step is a single-key
// operation and a failure after the first mutation is undone by
// best-effort compensation; anything compensation leaves behind is
// reported by RepairOnLogin and, when enabled, released by the
// retention sweep.
package provisioning

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tienquocbui/pineapple/internal/application/ports"
	"github.com/tienquocbui/pineapple/internal/domain"
)

const defaultCompensationTimeout = 5 * time.Second

// Coordinator drives the signup, repair and credential pass-through flows.
// It holds no mutable state; the stores are the only shared resource.
type Coordinator struct {
	credentials  ports.CredentialStore
	reservations ports.ReservationStore
	profiles     ports.ProfileStore
	lockout      ports.LoginLockoutStore
	log          zerolog.Logger

	compensationTimeout time.Duration
	now                 func() time.Time
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLockout guards Login with a failed-attempt lockout.
func WithLockout(store ports.LoginLockoutStore) Option {
	return func(c *Coordinator) { c.lockout = store }
}

// WithCompensationTimeout bounds each compensation call. Compensation runs
// detached from the caller's cancellation.
func WithCompensationTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.compensationTimeout = d
		}
	}
}

// WithClock overrides time.Now (tests).
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// NewCoordinator wires the coordinator to its stores.
func NewCoordinator(credentials ports.CredentialStore, reservations ports.ReservationStore, profiles ports.ProfileStore, log zerolog.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		credentials:         credentials,
		reservations:        reservations,
		profiles:            profiles,
		log:                 log.With().Str("component", "provisioning").Logger(),
		compensationTimeout: defaultCompensationTimeout,
		now:                 time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// compensate undoes the mutated prefix of a signup. username is released
// only when non-empty; the identity is always deleted. Each step runs even
// if an earlier one failed, and failures are logged and counted only.
func (c *Coordinator) compensate(ctx context.Context, log zerolog.Logger, id domain.IdentityID, username string, profileWritten bool) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.compensationTimeout)
	defer cancel()

	if profileWritten {
		if err := c.profiles.Delete(ctx, id); err != nil {
			compensationFailures.WithLabelValues("delete_profile").Inc()
			log.Warn().Err(err).Msg("compensation: delete profile failed")
		}
	}
	if username != "" {
		if err := c.reservations.Release(ctx, username, id); err != nil {
			compensationFailures.WithLabelValues("release_reservation").Inc()
			log.Warn().Err(err).Msg("compensation: release reservation failed; left for sweep")
		}
	}
	if err := c.credentials.Delete(ctx, id); err != nil {
		compensationFailures.WithLabelValues("delete_identity").Inc()
		log.Warn().Err(err).Msg("compensation: delete identity failed; orphan left for repair on login")
		return
	}
	log.Info().Msg("compensation complete")
}
