package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tienquocbui/pineapple/internal/application/ports"
	"github.com/tienquocbui/pineapple/internal/domain"
)

const (
	putProfileSQL = `INSERT INTO profiles (identity_id, username, display_name, bio, avatar_ref, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (identity_id) DO UPDATE SET
    username = EXCLUDED.username,
    display_name = EXCLUDED.display_name,
    bio = EXCLUDED.bio,
    avatar_ref = EXCLUDED.avatar_ref,
    updated_at = EXCLUDED.updated_at`
	getProfileSQL    = `SELECT identity_id, username, display_name, bio, avatar_ref, created_at, updated_at FROM profiles WHERE identity_id = $1`
	deleteProfileSQL = `DELETE FROM profiles WHERE identity_id = $1`
)

// ProfileStore implements ports.ProfileStore; Put is an upsert keyed by identity.
type ProfileStore struct {
	pool *pgxpool.Pool
}

func NewProfileStore(pool *pgxpool.Pool) *ProfileStore {
	return &ProfileStore{pool: pool}
}

func (s *ProfileStore) Put(ctx context.Context, p *domain.Profile) error {
	_, err := s.pool.Exec(ctx, putProfileSQL,
		p.IdentityID.UUID, p.Username, p.DisplayName, p.Bio, p.AvatarRef, p.CreatedAt, p.UpdatedAt)
	return err
}

func (s *ProfileStore) Get(ctx context.Context, id domain.IdentityID) (*domain.Profile, error) {
	var (
		p   domain.Profile
		uid uuid.UUID
	)
	err := s.pool.QueryRow(ctx, getProfileSQL, id.UUID).
		Scan(&uid, &p.Username, &p.DisplayName, &p.Bio, &p.AvatarRef, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	p.IdentityID = domain.NewIdentityID(uid)
	return &p, nil
}

func (s *ProfileStore) Delete(ctx context.Context, id domain.IdentityID) error {
	_, err := s.pool.Exec(ctx, deleteProfileSQL, id.UUID)
	return err
}

var _ ports.ProfileStore = (*ProfileStore)(nil)
