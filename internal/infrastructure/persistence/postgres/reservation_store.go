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
)

const (
	// The primary key on username makes this the atomic create-if-absent.
	reserveUsernameSQL   = `INSERT INTO username_reservations (username, identity_id, created_at) VALUES ($1, $2, NOW()) ON CONFLICT (username) DO NOTHING`
	existsReservationSQL = `SELECT EXISTS (SELECT 1 FROM username_reservations WHERE username = $1)`
	getReservationSQL    = `SELECT username, identity_id, created_at FROM username_reservations WHERE username = $1`
	releaseUsernameSQL   = `DELETE FROM username_reservations WHERE username = $1 AND identity_id = $2`
	listReservationsSQL  = `SELECT username, identity_id, created_at FROM username_reservations WHERE created_at < $1 ORDER BY created_at LIMIT $2`
)

// ReservationStore implements ports.ReservationStore on a table keyed by username.
type ReservationStore struct {
	pool *pgxpool.Pool
}

func NewReservationStore(pool *pgxpool.Pool) *ReservationStore {
	return &ReservationStore{pool: pool}
}

func (s *ReservationStore) ReserveIfAbsent(ctx context.Context, username string, id domain.IdentityID) (bool, error) {
	tag, err := s.pool.Exec(ctx, reserveUsernameSQL, username, id.UUID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *ReservationStore) Exists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, existsReservationSQL, username).Scan(&exists)
	return exists, err
}

func (s *ReservationStore) Get(ctx context.Context, username string) (*domain.Reservation, error) {
	r, err := scanReservation(s.pool.QueryRow(ctx, getReservationSQL, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &r, nil
}

func (s *ReservationStore) Release(ctx context.Context, username string, id domain.IdentityID) error {
	_, err := s.pool.Exec(ctx, releaseUsernameSQL, username, id.UUID)
	return err
}

func (s *ReservationStore) ListCreatedBefore(ctx context.Context, before time.Time, limit int) ([]domain.Reservation, error) {
	rows, err := s.pool.Query(ctx, listReservationsSQL, before, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanReservation(row pgx.Row) (domain.Reservation, error) {
	var (
		r  domain.Reservation
		id uuid.UUID
	)
	if err := row.Scan(&r.Username, &id, &r.CreatedAt); err != nil {
		return domain.Reservation{}, err
	}
	r.IdentityID = domain.NewIdentityID(id)
	return r, nil
}

var (
	_ ports.ReservationStore  = (*ReservationStore)(nil)
	_ ports.ReservationLister = (*ReservationStore)(nil)
)
