package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"

	"innkeep/internal/app/policies"
	"innkeep/internal/domain/reservation"
)

const DefaultKeyPrefix = "innkeep:pref:"

func NewClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// PreferenceStore keeps one JSON document per guest and property. Keys expire
// after TTL; a zero TTL keeps them forever.
type PreferenceStore struct {
	Client *redis.Client
	Prefix string
	TTL    time.Duration
}

func NewPreferenceStore(client *redis.Client, ttl time.Duration) *PreferenceStore {
	return &PreferenceStore{Client: client, Prefix: DefaultKeyPrefix, TTL: ttl}
}

func (s *PreferenceStore) key(guestID string, ref reservation.PropertyRef) string {
	prefix := s.Prefix
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return prefix + guestID + ":" + ref.String()
}

func (s *PreferenceStore) Load(ctx context.Context, guestID string, ref reservation.PropertyRef) (policies.Preference, bool, error) {
	raw, err := s.Client.Get(ctx, s.key(guestID, ref)).Bytes()
	if errors.Is(err, redis.Nil) {
		return policies.Preference{}, false, nil
	}
	if err != nil {
		return policies.Preference{}, false, err
	}
	var pref policies.Preference
	if err := json.Unmarshal(raw, &pref); err != nil {
		// unreadable entries are treated as absent and dropped
		_ = s.Client.Del(ctx, s.key(guestID, ref)).Err()
		return policies.Preference{}, false, nil
	}
	return pref, true, nil
}

func (s *PreferenceStore) Save(ctx context.Context, guestID string, ref reservation.PropertyRef, pref policies.Preference) error {
	raw, err := json.Marshal(pref)
	if err != nil {
		return err
	}
	return s.Client.Set(ctx, s.key(guestID, ref), raw, s.TTL).Err()
}

func (s *PreferenceStore) Clear(ctx context.Context, guestID string, ref reservation.PropertyRef) error {
	return s.Client.Del(ctx, s.key(guestID, ref)).Err()
}

func (s *PreferenceStore) Ping(ctx context.Context) error {
	return s.Client.Ping(ctx).Err()
}

var _ policies.PreferenceStore = (*PreferenceStore)(nil)
