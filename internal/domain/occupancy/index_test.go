package occupancy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"innkeep/internal/domain/reservation"
	"innkeep/internal/domain/shared/daterange"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func res(id string, in, out time.Time, status reservation.Status) reservation.Reservation {
	return reservation.Reservation{ID: id, PropertyID: "room-1", CheckIn: in, CheckOut: out, Status: status}
}

func TestBuildMarksEveryDayInclusive(t *testing.T) {
	r := res("r1", day(2024, 6, 10), day(2024, 6, 12), reservation.StatusConfirmed)
	idx := Build([]reservation.Reservation{r})

	require.Equal(t, 3, idx.Len())
	for _, d := range []time.Time{day(2024, 6, 10), day(2024, 6, 11), day(2024, 6, 12)} {
		e, ok := idx.Lookup(d)
		require.True(t, ok, daterange.Key(d))
		assert.Equal(t, "r1", e.ReservationID)
		assert.Equal(t, reservation.StatusConfirmed, e.Status)
	}
	_, ok := idx.Lookup(day(2024, 6, 13))
	assert.False(t, ok)
}

func TestBuildLastWriteWins(t *testing.T) {
	first := res("a", day(2024, 6, 1), day(2024, 6, 5), reservation.StatusReserved)
	second := res("b", day(2024, 6, 4), day(2024, 6, 6), reservation.StatusCheckedIn)
	idx := Build([]reservation.Reservation{first, second})

	e, _ := idx.Lookup(day(2024, 6, 4))
	assert.Equal(t, "b", e.ReservationID)
	e, _ = idx.Lookup(day(2024, 6, 3))
	assert.Equal(t, "a", e.ReservationID)
}

func TestBuildIsIdempotent(t *testing.T) {
	list := []reservation.Reservation{
		res("a", day(2024, 6, 1), day(2024, 6, 5), reservation.StatusReserved),
		res("b", day(2024, 6, 8), day(2024, 6, 9), reservation.StatusCancelled),
	}
	assert.True(t, Build(list).Equal(Build(list)))
	assert.False(t, Build(list).Equal(Build(list[:1])))
}

func TestBuildSkipsMalformedReservations(t *testing.T) {
	idx := Build([]reservation.Reservation{
		res("bad", day(2024, 6, 5), day(2024, 6, 1), reservation.StatusReserved),
		res("zero", time.Time{}, day(2024, 6, 1), reservation.StatusReserved),
	})
	assert.Zero(t, idx.Len())
}

func TestBlockingDaysAreUnavailable(t *testing.T) {
	today := day(2024, 6, 1)
	list := []reservation.Reservation{
		res("a", day(2024, 6, 10), day(2024, 6, 12), reservation.StatusReserved),
		res("b", day(2024, 6, 20), day(2024, 6, 25), reservation.StatusConfirmed),
		res("c", day(2024, 7, 1), day(2024, 7, 2), reservation.StatusCheckedIn),
	}
	idx := Build(list)
	for _, r := range list {
		daterange.EachDay(r.CheckIn, r.CheckOut, func(d time.Time) bool {
			assert.True(t, idx.IsUnavailable(d, false, today), daterange.Key(d))
			return true
		})
	}
}

func TestPastDaysAreUnavailable(t *testing.T) {
	idx := Build(nil)
	today := time.Date(2024, 6, 15, 18, 30, 0, 0, time.UTC)

	assert.True(t, idx.IsUnavailable(day(2024, 6, 14), false, today))
	assert.True(t, idx.IsUnavailable(day(2024, 6, 14), true, today))
	assert.True(t, idx.IsUnavailable(day(2023, 1, 1), true, today))
	assert.False(t, idx.IsUnavailable(day(2024, 6, 15), false, today))
	assert.False(t, idx.IsUnavailable(day(2024, 6, 15), true, today))
}

func TestCheckoutException(t *testing.T) {
	today := day(2024, 6, 1)
	idx := Build([]reservation.Reservation{
		res("a", day(2024, 6, 10), day(2024, 6, 12), reservation.StatusReserved),
		res("p", day(2024, 6, 20), day(2024, 6, 22), reservation.StatusPending),
	})

	tests := []struct {
		name       string
		day        time.Time
		asCheckout bool
		want       bool
	}{
		{"check-in day as start", day(2024, 6, 10), false, true},
		{"check-in day as checkout", day(2024, 6, 10), true, false},
		{"interior day as checkout", day(2024, 6, 11), true, true},
		{"last day as checkout", day(2024, 6, 12), true, true},
		{"free day", day(2024, 6, 13), false, false},
		{"pending does not block", day(2024, 6, 21), false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, idx.IsUnavailable(tt.day, tt.asCheckout, today))
		})
	}
}

func TestPredicateBindsToday(t *testing.T) {
	idx := Build([]reservation.Reservation{res("a", day(2024, 6, 10), day(2024, 6, 12), reservation.StatusReserved)})
	p := idx.Predicate(day(2024, 6, 5))

	assert.True(t, p.IsUnavailable(day(2024, 6, 4), false))
	assert.True(t, p.IsUnavailable(day(2024, 6, 11), false))
	assert.False(t, p.IsUnavailable(day(2024, 6, 10), true))
}
