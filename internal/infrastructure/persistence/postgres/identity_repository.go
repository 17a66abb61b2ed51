package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tienquocbui/pineapple/internal/application/ports"
	"github.com/tienquocbui/pineapple/internal/domain"
	domerrors "github.com/tienquocbui/pineapple/internal/domain/errors"
)

const (
	createIdentitySQL     = `INSERT INTO identities (id, email, password_hash, created_at, updated_at) VALUES ($1, $2, $3, $4, $4)`
	getIdentityByEmailSQL = `SELECT id, email, password_hash, created_at FROM identities WHERE email = $1`
	deleteIdentitySQL     = `DELETE FROM identities WHERE id = $1`
	updatePasswordSQL     = `UPDATE identities SET password_hash = $1, updated_at = NOW() WHERE id = $2`
)

// IdentityRepository implements ports.IdentityRepository; the unique email
// index turns concurrent duplicate signups into ErrEmailInUse.
type IdentityRepository struct {
	pool *pgxpool.Pool
}

func NewIdentityRepository(pool *pgxpool.Pool) *IdentityRepository {
	return &IdentityRepository{pool: pool}
}

func (r *IdentityRepository) Create(ctx context.Context, identity *domain.Identity, passwordHash string) error {
	_, err := r.pool.Exec(ctx, createIdentitySQL, identity.ID.UUID, identity.Email, passwordHash, identity.CreatedAt)
	if isUniqueViolation(err) {
		return domerrors.ErrEmailInUse
	}
	return err
}

func (r *IdentityRepository) GetByEmail(ctx context.Context, email string) (*domain.Identity, string, error) {
	var (
		id        uuid.UUID
		identity  domain.Identity
		hash      string
		createdAt time.Time
	)
	err := r.pool.QueryRow(ctx, getIdentityByEmailSQL, email).Scan(&id, &identity.Email, &hash, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", nil
		}
		return nil, "", err
	}
	identity.ID = domain.NewIdentityID(id)
	identity.CreatedAt = createdAt
	return &identity, hash, nil
}

func (r *IdentityRepository) Delete(ctx context.Context, id domain.IdentityID) error {
	_, err := r.pool.Exec(ctx, deleteIdentitySQL, id.UUID)
	return err
}

func (r *IdentityRepository) UpdatePasswordHash(ctx context.Context, id domain.IdentityID, passwordHash string) error {
	tag, err := r.pool.Exec(ctx, updatePasswordSQL, passwordHash, id.UUID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domerrors.ErrIdentityNotFound
	}
	return nil
}

var _ ports.IdentityRepository = (*IdentityRepository)(nil)
