// Package credentials implements ports.CredentialStore on top of an identity
// repository, a password hasher and a reset token store.
package credentials

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tienquocbui/pineapple/internal/application/ports"
	"github.com/tienquocbui/pineapple/internal/domain"
	domerrors "github.com/tienquocbui/pineapple/internal/domain/errors"
)

const defaultResetExpiry = time.Hour

// Config holds password reset link settings.
type Config struct {
	ResetBaseURL string
	ResetExpiry  time.Duration
}

// Store is the local credential store: email/password identities hashed
// with Argon2id, with emailed single-use reset tokens.
type Store struct {
	identities ports.IdentityRepository
	resets     ports.PasswordResetStore
	hasher     ports.PasswordHasher
	policy     ports.PasswordPolicy
	enqueuer   ports.TaskEnqueuer
	cfg        Config
	now        func() time.Time
}

// NewStore builds the credential store.
func NewStore(identities ports.IdentityRepository, resets ports.PasswordResetStore, hasher ports.PasswordHasher, policy ports.PasswordPolicy, enqueuer ports.TaskEnqueuer, cfg Config) *Store {
	if cfg.ResetExpiry <= 0 {
		cfg.ResetExpiry = defaultResetExpiry
	}
	return &Store{
		identities: identities,
		resets:     resets,
		hasher:     hasher,
		policy:     policy,
		enqueuer:   enqueuer,
		cfg:        cfg,
		now:        time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Store) Create(ctx context.Context, email, password string) (*domain.Identity, error) {
	if err := s.policy.Check(password); err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	identity := &domain.Identity{
		ID:        domain.NewIdentityID(uuid.New()),
		Email:     normalizeEmail(email),
		CreatedAt: s.now(),
	}
	if err := s.identities.Create(ctx, identity, hash); err != nil {
		return nil, err
	}
	return identity, nil
}

func (s *Store) Delete(ctx context.Context, id domain.IdentityID) error {
	return s.identities.Delete(ctx, id)
}

func (s *Store) Verify(ctx context.Context, email, password string) (*domain.Identity, error) {
	identity, hash, err := s.identities.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if identity == nil || !s.hasher.Verify(password, hash) {
		return nil, domerrors.ErrInvalidCredentials
	}
	return identity, nil
}

func (s *Store) EmailRegistered(ctx context.Context, email string) (bool, error) {
	identity, _, err := s.identities.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return false, err
	}
	return identity != nil, nil
}

// SendPasswordReset stores the hash of a fresh token and enqueues the email.
// Unknown emails succeed without doing anything.
func (s *Store) SendPasswordReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	identity, _, err := s.identities.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if identity == nil {
		return nil
	}
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return err
	}
	token := hex.EncodeToString(raw)
	if err := s.resets.Create(ctx, identity.ID, hashToken(token), s.now().Add(s.cfg.ResetExpiry)); err != nil {
		return err
	}
	resetURL := fmt.Sprintf("%s?token=%s", s.cfg.ResetBaseURL, token)
	return s.enqueuer.EnqueueSendPasswordReset(ctx, email, resetURL)
}

func (s *Store) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := s.policy.Check(newPassword); err != nil {
		return err
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	id, err := s.resets.Consume(ctx, hashToken(token))
	if err != nil {
		return err
	}
	return s.identities.UpdatePasswordHash(ctx, id, hash)
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

var _ ports.CredentialStore = (*Store)(nil)
