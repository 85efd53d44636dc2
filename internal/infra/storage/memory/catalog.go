package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"innkeep/internal/app/policies"
	"innkeep/internal/domain/reservation"
)

// Catalog serves properties, reservations and guest profiles from memory.
// It stands in for the booking service in local runs and tests.
type Catalog struct {
	mu           sync.RWMutex
	properties   map[reservation.PropertyRef]reservation.PropertyDetail
	reservations map[reservation.PropertyRef][]reservation.Reservation
	guests       map[string]reservation.GuestProfile
	// Err, when set, is returned by every read.
	Err error
}

func NewCatalog() *Catalog {
	return &Catalog{
		properties:   make(map[reservation.PropertyRef]reservation.PropertyDetail),
		reservations: make(map[reservation.PropertyRef][]reservation.Reservation),
		guests:       make(map[string]reservation.GuestProfile),
	}
}

func (c *Catalog) PutProperty(detail reservation.PropertyDetail) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.properties[detail.Ref] = detail
}

func (c *Catalog) AddReservation(ref reservation.PropertyRef, r reservation.Reservation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if r.PropertyID == "" {
		r.PropertyID = ref.ID
	}
	c.reservations[ref] = append(c.reservations[ref], r)
}

func (c *Catalog) PutGuest(profile reservation.GuestProfile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.guests[profile.ID] = profile
}

func (c *Catalog) SetErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Err = err
}

func (c *Catalog) GetPropertyByID(ctx context.Context, ref reservation.PropertyRef) (reservation.PropertyDetail, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.Err != nil {
		return reservation.PropertyDetail{}, c.Err
	}
	detail, ok := c.properties[ref]
	if !ok {
		return reservation.PropertyDetail{}, policies.ErrPropertyNotFound
	}
	return detail, nil
}

// GetReservationsInRange returns reservations touching [start, end], ordered by check-in.
func (c *Catalog) GetReservationsInRange(ctx context.Context, ref reservation.PropertyRef, start, end time.Time) ([]reservation.Reservation, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.Err != nil {
		return nil, c.Err
	}
	out := make([]reservation.Reservation, 0)
	for _, r := range c.reservations[ref] {
		if r.CheckOut.Before(start) || r.CheckIn.After(end) {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CheckIn.Before(out[j].CheckIn) })
	return out, nil
}

func (c *Catalog) GetGuestProfile(ctx context.Context, guestID string) (reservation.GuestProfile, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.Err != nil {
		return reservation.GuestProfile{}, c.Err
	}
	profile, ok := c.guests[guestID]
	if !ok {
		return reservation.GuestProfile{}, policies.ErrGuestNotFound
	}
	return profile, nil
}

var _ policies.BookingQueryPort = (*Catalog)(nil)
