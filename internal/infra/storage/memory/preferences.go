package memory

import (
	"context"
	"sync"

	"innkeep/internal/app/policies"
	"innkeep/internal/domain/reservation"
)

type preferenceKey struct {
	guest string
	ref   reservation.PropertyRef
}

type PreferenceStore struct {
	mu    sync.RWMutex
	items map[preferenceKey]policies.Preference
}

func NewPreferenceStore() *PreferenceStore {
	return &PreferenceStore{items: make(map[preferenceKey]policies.Preference)}
}

func (s *PreferenceStore) Load(ctx context.Context, guestID string, ref reservation.PropertyRef) (policies.Preference, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pref, ok := s.items[preferenceKey{guest: guestID, ref: ref}]
	return pref, ok, nil
}

func (s *PreferenceStore) Save(ctx context.Context, guestID string, ref reservation.PropertyRef, pref policies.Preference) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[preferenceKey{guest: guestID, ref: ref}] = pref
	return nil
}

func (s *PreferenceStore) Clear(ctx context.Context, guestID string, ref reservation.PropertyRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, preferenceKey{guest: guestID, ref: ref})
	return nil
}

var _ policies.PreferenceStore = (*PreferenceStore)(nil)
