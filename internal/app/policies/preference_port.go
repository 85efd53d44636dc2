package policies

import (
	"context"
	"time"

	"innkeep/internal/domain/reservation"
)

// Preference is the last range a guest picked for a property.
type Preference struct {
	Arrival   time.Time `json:"arrival"`
	Departure time.Time `json:"departure,omitempty"`
}

func (p Preference) IsZero() bool {
	return p.Arrival.IsZero() && p.Departure.IsZero()
}

// PreferenceStore persists selections between visits. A miss is reported
// with ok == false, never as an error.
type PreferenceStore interface {
	Load(ctx context.Context, guestID string, ref reservation.PropertyRef) (Preference, bool, error)
	Save(ctx context.Context, guestID string, ref reservation.PropertyRef, pref Preference) error
	Clear(ctx context.Context, guestID string, ref reservation.PropertyRef) error
}
