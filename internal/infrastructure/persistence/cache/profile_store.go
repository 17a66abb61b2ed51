// Package cache wraps stores with a process-local read cache.
package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/tienquocbui/pineapple/internal/application/ports"
	"github.com/tienquocbui/pineapple/internal/domain"
)

// ProfileStore is a read-through cache in front of another ProfileStore.
// Only present profiles are cached, so a missing profile is always re-read
// and RepairOnLogin never sees a stale "absent". Writes go through first
// and then refresh or evict the local entry.
type ProfileStore struct {
	next  ports.ProfileStore
	cache *gocache.Cache
}

func NewProfileStore(next ports.ProfileStore, ttl time.Duration) *ProfileStore {
	return &ProfileStore{
		next:  next,
		cache: gocache.New(ttl, 2*ttl),
	}
}

func (s *ProfileStore) Put(ctx context.Context, profile *domain.Profile) error {
	if err := s.next.Put(ctx, profile); err != nil {
		s.cache.Delete(profile.IdentityID.String())
		return err
	}
	cp := *profile
	s.cache.SetDefault(profile.IdentityID.String(), &cp)
	return nil
}

func (s *ProfileStore) Get(ctx context.Context, id domain.IdentityID) (*domain.Profile, error) {
	if v, ok := s.cache.Get(id.String()); ok {
		cp := *v.(*domain.Profile)
		return &cp, nil
	}
	profile, err := s.next.Get(ctx, id)
	if err != nil || profile == nil {
		return profile, err
	}
	cp := *profile
	s.cache.SetDefault(id.String(), &cp)
	return profile, nil
}

func (s *ProfileStore) Delete(ctx context.Context, id domain.IdentityID) error {
	s.cache.Delete(id.String())
	return s.next.Delete(ctx, id)
}

var _ ports.ProfileStore = (*ProfileStore)(nil)
