// Package redis stores username reservations as Redis keys created with SETNX.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tienquocbui/pineapple/internal/application/ports"
	"github.com/tienquocbui/pineapple/internal/domain"
)

const defaultKeyPrefix = "pineapple:username:"

// releaseScript deletes the key only while its value still names the owner.
var releaseScript = redis.NewScript(`
local v = redis.call('GET', KEYS[1])
if v and string.sub(v, 1, string.len(ARGV[1]) + 1) == ARGV[1] .. '|' then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

// ReservationStore implements ports.ReservationStore. Values are
// "<identity id>|<unix millis>"; keys never expire.
type ReservationStore struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

func NewReservationStore(client redis.UniversalClient, prefix string) *ReservationStore {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &ReservationStore{client: client, prefix: prefix, now: time.Now}
}

func (s *ReservationStore) key(username string) string {
	return s.prefix + username
}

func (s *ReservationStore) ReserveIfAbsent(ctx context.Context, username string, id domain.IdentityID) (bool, error) {
	return s.client.SetNX(ctx, s.key(username), encodeValue(id, s.now()), 0).Result()
}

func (s *ReservationStore) Exists(ctx context.Context, username string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(username)).Result()
	return n == 1, err
}

func (s *ReservationStore) Get(ctx context.Context, username string) (*domain.Reservation, error) {
	v, err := s.client.Get(ctx, s.key(username)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	id, createdAt, err := decodeValue(v)
	if err != nil {
		return nil, fmt.Errorf("reservation %q: %w", username, err)
	}
	return &domain.Reservation{Username: username, IdentityID: id, CreatedAt: createdAt}, nil
}

func (s *ReservationStore) Release(ctx context.Context, username string, id domain.IdentityID) error {
	return releaseScript.Run(ctx, s.client, []string{s.key(username)}, id.String()).Err()
}

func encodeValue(id domain.IdentityID, createdAt time.Time) string {
	return id.String() + "|" + strconv.FormatInt(createdAt.UnixMilli(), 10)
}

func decodeValue(v string) (domain.IdentityID, time.Time, error) {
	idPart, msPart, ok := strings.Cut(v, "|")
	if !ok {
		return domain.IdentityID{}, time.Time{}, errors.New("malformed reservation value")
	}
	id, err := domain.ParseIdentityID(idPart)
	if err != nil {
		return domain.IdentityID{}, time.Time{}, err
	}
	ms, err := strconv.ParseInt(msPart, 10, 64)
	if err != nil {
		return domain.IdentityID{}, time.Time{}, err
	}
	return id, time.UnixMilli(ms).UTC(), nil
}

var _ ports.ReservationStore = (*ReservationStore)(nil)
