package memory

import (
	"context"
	"sync"

	"github.com/tienquocbui/pineapple/internal/application/ports"
	"github.com/tienquocbui/pineapple/internal/domain"
	domerrors "github.com/tienquocbui/pineapple/internal/domain/errors"
)

type identityRecord struct {
	identity     domain.Identity
	passwordHash string
}

// IdentityRepository keeps identities indexed by id and email.
type IdentityRepository struct {
	mu      sync.RWMutex
	byID    map[domain.IdentityID]*identityRecord
	byEmail map[string]domain.IdentityID
}

func NewIdentityRepository() *IdentityRepository {
	return &IdentityRepository{
		byID:    make(map[domain.IdentityID]*identityRecord),
		byEmail: make(map[string]domain.IdentityID),
	}
}

func (r *IdentityRepository) Create(ctx context.Context, identity *domain.Identity, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail[identity.Email]; ok {
		return domerrors.ErrEmailInUse
	}
	r.byID[identity.ID] = &identityRecord{identity: *identity, passwordHash: passwordHash}
	r.byEmail[identity.Email] = identity.ID
	return nil
}

func (r *IdentityRepository) GetByEmail(ctx context.Context, email string) (*domain.Identity, string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[email]
	if !ok {
		return nil, "", nil
	}
	rec := r.byID[id]
	identity := rec.identity
	return &identity, rec.passwordHash, nil
}

func (r *IdentityRepository) Delete(ctx context.Context, id domain.IdentityID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.byID[id]
	if !ok {
		return nil
	}
	delete(r.byEmail, rec.identity.Email)
	delete(r.byID, id)
	return nil
}

func (r *IdentityRepository) UpdatePasswordHash(ctx context.Context, id domain.IdentityID, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.byID[id]
	if !ok {
		return domerrors.ErrIdentityNotFound
	}
	rec.passwordHash = passwordHash
	return nil
}

// Count returns the number of stored identities.
func (r *IdentityRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

var _ ports.IdentityRepository = (*IdentityRepository)(nil)
