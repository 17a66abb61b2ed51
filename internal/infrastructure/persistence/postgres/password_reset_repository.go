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

// PasswordResetRepository implements ports.PasswordResetStore.
type PasswordResetRepository struct {
	pool *pgxpool.Pool
}

func NewPasswordResetRepository(pool *pgxpool.Pool) *PasswordResetRepository {
	return &PasswordResetRepository{pool: pool}
}

const (
	createPasswordResetSQL = `INSERT INTO password_resets (token_hash, identity_id, expires_at, created_at) VALUES ($1, $2, $3, NOW())`
	// Single statement so a token cannot be consumed twice.
	consumePasswordResetSQL = `UPDATE password_resets SET used_at = NOW() WHERE token_hash = $1 AND used_at IS NULL AND expires_at > NOW() RETURNING identity_id`
)

func (r *PasswordResetRepository) Create(ctx context.Context, id domain.IdentityID, tokenHash string, expiresAt time.Time) error {
	_, err := r.pool.Exec(ctx, createPasswordResetSQL, tokenHash, id.UUID, expiresAt)
	return err
}

func (r *PasswordResetRepository) Consume(ctx context.Context, tokenHash string) (domain.IdentityID, error) {
	var id uuid.UUID
	err := r.pool.QueryRow(ctx, consumePasswordResetSQL, tokenHash).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.IdentityID{}, domerrors.ErrPasswordResetInvalid
		}
		return domain.IdentityID{}, err
	}
	return domain.NewIdentityID(id), nil
}

var _ ports.PasswordResetStore = (*PasswordResetRepository)(nil)
