package memory

import (
	"context"
	"sync"
	"time"

	"github.com/tienquocbui/pineapple/internal/application/ports"
	"github.com/tienquocbui/pineapple/internal/domain"
	domerrors "github.com/tienquocbui/pineapple/internal/domain/errors"
)

type resetEntry struct {
	id        domain.IdentityID
	expiresAt time.Time
	used      bool
}

// PasswordResetStore keeps hashed reset tokens.
type PasswordResetStore struct {
	mu     sync.Mutex
	tokens map[string]*resetEntry
	now    func() time.Time
}

func NewPasswordResetStore() *PasswordResetStore {
	return &PasswordResetStore{tokens: make(map[string]*resetEntry), now: time.Now}
}

func (s *PasswordResetStore) Create(ctx context.Context, id domain.IdentityID, tokenHash string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[tokenHash] = &resetEntry{id: id, expiresAt: expiresAt}
	return nil
}

func (s *PasswordResetStore) Consume(ctx context.Context, tokenHash string) (domain.IdentityID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.tokens[tokenHash]
	if !ok || e.used || !s.now().Before(e.expiresAt) {
		return domain.IdentityID{}, domerrors.ErrPasswordResetInvalid
	}
	e.used = true
	return e.id, nil
}

var _ ports.PasswordResetStore = (*PasswordResetStore)(nil)
