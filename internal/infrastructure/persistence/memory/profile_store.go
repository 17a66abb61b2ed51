package memory

import (
	"context"
	"sync"

	"github.com/tienquocbui/pineapple/internal/application/ports"
	"github.com/tienquocbui/pineapple/internal/domain"
)

// ProfileStore keeps one profile per identity.
type ProfileStore struct {
	mu   sync.RWMutex
	data map[domain.IdentityID]domain.Profile
}

func NewProfileStore() *ProfileStore {
	return &ProfileStore{data: make(map[domain.IdentityID]domain.Profile)}
}

func (s *ProfileStore) Put(ctx context.Context, profile *domain.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[profile.IdentityID] = *profile
	return nil
}

func (s *ProfileStore) Get(ctx context.Context, id domain.IdentityID) (*domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.data[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s *ProfileStore) Delete(ctx context.Context, id domain.IdentityID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

// Count returns the number of profiles.
func (s *ProfileStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

var _ ports.ProfileStore = (*ProfileStore)(nil)
