package support

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"innkeep/internal/app/policies"
	"innkeep/internal/app/window"
	"innkeep/internal/domain/reservation"
	"innkeep/internal/domain/shared/daterange"
)

var ErrPortRequired = errors.New("support: booking query port required")

// Loader reads booking service data for handlers, going through the window
// cache when one is configured.
type Loader struct {
	Port  policies.BookingQueryPort
	Cache *window.Cache
}

func (l Loader) Property(ctx context.Context, ref reservation.PropertyRef) (reservation.PropertyDetail, error) {
	if l.Port == nil {
		return reservation.PropertyDetail{}, ErrPortRequired
	}
	return l.Port.GetPropertyByID(ctx, ref)
}

// Window returns the reservations of the window shown for month.
func (l Loader) Window(ctx context.Context, key window.Key) ([]reservation.Reservation, error) {
	if l.Cache != nil {
		e, err := l.Cache.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		return e.Reservations, nil
	}
	if l.Port == nil {
		return nil, ErrPortRequired
	}
	return l.Port.GetReservationsInRange(ctx, key.Property, key.Start, key.End)
}

// Covering returns every reservation of the windows spanning [from, to],
// deduplicated by id and ordered by check-in.
func (l Loader) Covering(ctx context.Context, ref reservation.PropertyRef, from, to time.Time) ([]reservation.Reservation, error) {
	if to.Before(from) {
		from, to = to, from
	}
	seen := map[string]struct{}{}
	var out []reservation.Reservation
	for key := window.KeyFor(ref, from); ; key = key.Next() {
		list, err := l.Window(ctx, key)
		if err != nil {
			return nil, err
		}
		for _, r := range list {
			if _, dup := seen[r.ID]; dup && r.ID != "" {
				continue
			}
			seen[r.ID] = struct{}{}
			out = append(out, r)
		}
		if !daterange.Day(to).After(key.End) {
			break
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CheckIn.Before(out[j].CheckIn) })
	return out, nil
}

// Fresh asks the booking service directly, bypassing the cache.
func (l Loader) Fresh(ctx context.Context, ref reservation.PropertyRef, from, to time.Time) ([]reservation.Reservation, error) {
	if l.Port == nil {
		return nil, ErrPortRequired
	}
	if to.Before(from) {
		from, to = to, from
	}
	return l.Port.GetReservationsInRange(ctx, ref, daterange.Day(from), daterange.Day(to))
}

// Guest resolves the guest profile. Anonymous or unknown guests get the zero profile.
func (l Loader) Guest(ctx context.Context, guestID string) (reservation.GuestProfile, error) {
	guestID = strings.TrimSpace(guestID)
	if guestID == "" || l.Port == nil {
		return reservation.GuestProfile{}, nil
	}
	profile, err := l.Port.GetGuestProfile(ctx, guestID)
	if errors.Is(err, policies.ErrGuestNotFound) {
		return reservation.GuestProfile{ID: guestID}, nil
	}
	if err != nil {
		return reservation.GuestProfile{}, fmt.Errorf("load guest %s: %w", guestID, err)
	}
	return profile, nil
}
