package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tienquocbui/pineapple/internal/application/ports"
	"github.com/tienquocbui/pineapple/internal/domain"
)

// ReservationStore maps usernames to identities.
type ReservationStore struct {
	mu   sync.RWMutex
	data map[string]domain.Reservation
	now  func() time.Time
}

func NewReservationStore() *ReservationStore {
	return &ReservationStore{data: make(map[string]domain.Reservation), now: time.Now}
}

func (s *ReservationStore) ReserveIfAbsent(ctx context.Context, username string, id domain.IdentityID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[username]; ok {
		return false, nil
	}
	s.data[username] = domain.Reservation{Username: username, IdentityID: id, CreatedAt: s.now()}
	return true, nil
}

func (s *ReservationStore) Exists(ctx context.Context, username string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data[username]
	return ok, nil
}

func (s *ReservationStore) Get(ctx context.Context, username string) (*domain.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.data[username]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (s *ReservationStore) Release(ctx context.Context, username string, id domain.IdentityID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.data[username]; ok && r.IdentityID == id {
		delete(s.data, username)
	}
	return nil
}

// ListCreatedBefore returns up to limit reservations older than before, oldest first.
func (s *ReservationStore) ListCreatedBefore(ctx context.Context, before time.Time, limit int) ([]domain.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Reservation
	for _, r := range s.data {
		if r.CreatedAt.Before(before) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Count returns the number of reservations.
func (s *ReservationStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

var (
	_ ports.ReservationStore  = (*ReservationStore)(nil)
	_ ports.ReservationLister = (*ReservationStore)(nil)
)
