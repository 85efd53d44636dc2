package calendar

import (
	"context"
	"testing"
	"time"

	"innkeep/internal/app/handlers/support"
	"innkeep/internal/app/policies"
	"innkeep/internal/app/window"
	"innkeep/internal/domain/occupancy"
	"innkeep/internal/domain/pricing"
	"innkeep/internal/domain/reservation"
	"innkeep/internal/infra/storage/memory"
)

var (
	room  = reservation.PropertyRef{Mode: reservation.ModeRoom, ID: "7"}
	venue = reservation.PropertyRef{Mode: reservation.ModeVenue, ID: "2"}
	now   = time.Date(2024, 7, 5, 10, 0, 0, 0, time.UTC)
)

func day(m time.Month, d int) time.Time {
	return time.Date(2024, m, d, 0, 0, 0, 0, time.UTC)
}

type fixture struct {
	catalog  *memory.Catalog
	prefs    *memory.PreferenceStore
	cache    *window.Cache
	loader   support.Loader
	settings support.Settings
	clock    policies.Clock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	catalog := memory.NewCatalog()
	catalog.PutProperty(reservation.PropertyDetail{Ref: room, Name: "Deluxe", BasePrice: "₱1,000.00", MaxGuests: 2})
	catalog.PutProperty(reservation.PropertyDetail{Ref: venue, Name: "Garden", BasePrice: "₱1,500.00", MaxGuests: 40})
	catalog.AddReservation(room, reservation.Reservation{ID: "r1", CheckIn: day(7, 10), CheckOut: day(7, 12), Status: reservation.StatusConfirmed})
	catalog.AddReservation(room, reservation.Reservation{ID: "r2", CheckIn: day(7, 20), CheckOut: day(7, 22), Status: reservation.StatusCancelled})

	cache := window.New(func(ctx context.Context, key window.Key) ([]reservation.Reservation, error) {
		return catalog.GetReservationsInRange(ctx, key.Property, key.Start, key.End)
	}, window.WithClock(func() time.Time { return now }))
	t.Cleanup(cache.Wait)

	return &fixture{
		catalog: catalog,
		prefs:   memory.NewPreferenceStore(),
		cache:   cache,
		loader:  support.Loader{Port: catalog, Cache: cache},
		settings: support.Settings{
			MaxNights:  30,
			Hours:      occupancy.DefaultHours(),
			Calculator: pricing.NewCalculator(20, "PHP"),
			Location:   time.UTC,
		},
		clock: policies.FixedClock(now),
	}
}
