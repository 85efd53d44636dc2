package bookingapi

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"innkeep/internal/app/policies"
	"innkeep/internal/domain/reservation"
)

const base = "http://booking.test/api"

func newTestClient(t *testing.T, opts Options) *Client {
	t.Helper()
	hc := &http.Client{}
	httpmock.ActivateNonDefault(hc)
	t.Cleanup(httpmock.DeactivateAndReset)
	c := New(base, hc, opts)
	c.sleep = func(context.Context, time.Duration) error { return nil }
	return c
}

var room = reservation.PropertyRef{Mode: reservation.ModeRoom, ID: "7"}

func TestGetPropertyByIDMapsRoomAndVenue(t *testing.T) {
	c := newTestClient(t, Options{})
	httpmock.RegisterResponder("GET", base+"/booking/rooms/7",
		httpmock.NewJsonResponderOrPanic(200, map[string]any{"data": map[string]any{
			"id": 7, "room_name": "Deluxe", "room_price": "₱1,000.00", "max_guests": 3,
		}}))
	httpmock.RegisterResponder("GET", base+"/booking/areas/2",
		httpmock.NewJsonResponderOrPanic(200, map[string]any{"data": map[string]any{
			"id": "2", "area_name": "Garden", "price_per_hour": 1500, "capacity": 40,
		}}))

	d, err := c.GetPropertyByID(context.Background(), room)
	require.NoError(t, err)
	assert.Equal(t, "Deluxe", d.Name)
	assert.Equal(t, "₱1,000.00", d.BasePrice)
	assert.Equal(t, 3, d.MaxGuests)

	venue := reservation.PropertyRef{Mode: reservation.ModeVenue, ID: "2"}
	d, err = c.GetPropertyByID(context.Background(), venue)
	require.NoError(t, err)
	assert.Equal(t, "Garden", d.Name)
	assert.Equal(t, "1500", d.BasePrice)
	assert.Equal(t, 40, d.MaxGuests)
}

func TestGetPropertyByIDNotFound(t *testing.T) {
	c := newTestClient(t, Options{})
	httpmock.RegisterResponder("GET", base+"/booking/rooms/7", httpmock.NewStringResponder(404, `{"error":"missing"}`))

	_, err := c.GetPropertyByID(context.Background(), room)
	assert.ErrorIs(t, err, policies.ErrPropertyNotFound)
}

func TestGetReservationsInRangeParsesBookings(t *testing.T) {
	manila := time.FixedZone("PHT", 8*3600)
	c := newTestClient(t, Options{Location: manila})
	httpmock.RegisterResponder("GET", base+"/booking/rooms/7/bookings",
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "2024-07-01", req.URL.Query().Get("start_date"))
			assert.Equal(t, "2024-08-31", req.URL.Query().Get("end_date"))
			return httpmock.NewJsonResponse(200, map[string]any{"data": []map[string]any{
				{"id": 11, "check_in_date": "2024-07-10", "check_out_date": "2024-07-12", "status": "Confirmed"},
				{"id": 12, "check_in_date": "2024-07-20", "check_out_date": "2024-07-21", "status": "missed_reservation"},
				{"id": 13, "check_in_date": "", "check_out_date": "2024-07-21", "status": "reserved"},
			}})
		})

	from := time.Date(2024, 7, 1, 0, 0, 0, 0, manila)
	to := time.Date(2024, 8, 31, 0, 0, 0, 0, manila)
	got, err := c.GetReservationsInRange(context.Background(), room, from, to)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "11", got[0].ID)
	assert.Equal(t, reservation.StatusConfirmed, got[0].Status)
	assert.True(t, got[0].CheckIn.Equal(time.Date(2024, 7, 10, 0, 0, 0, 0, manila)))
	assert.Equal(t, reservation.StatusNoShow, got[1].Status)
}

func TestGetReservationsInRangeCombinesVenueTimes(t *testing.T) {
	c := newTestClient(t, Options{})
	httpmock.RegisterResponder("GET", base+"/booking/areas/2/bookings",
		httpmock.NewJsonResponderOrPanic(200, map[string]any{"data": []map[string]any{
			{"id": "a", "check_in_date": "2024-07-10", "check_out_date": "2024-07-10", "start_time": "10:00", "end_time": "12:30", "status": "reserved"},
		}}))

	venue := reservation.PropertyRef{Mode: reservation.ModeVenue, ID: "2"}
	got, err := c.GetReservationsInRange(context.Background(), venue, time.Now(), time.Now())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, time.Date(2024, 7, 10, 10, 0, 0, 0, time.UTC), got[0].CheckIn)
	assert.Equal(t, time.Date(2024, 7, 10, 12, 30, 0, 0, time.UTC), got[0].CheckOut)
}

func TestRetriesServerErrors(t *testing.T) {
	c := newTestClient(t, Options{Backoff: []time.Duration{time.Millisecond, time.Millisecond}})
	calls := 0
	httpmock.RegisterResponder("GET", base+"/booking/rooms/7",
		func(req *http.Request) (*http.Response, error) {
			calls++
			if calls < 3 {
				return httpmock.NewStringResponse(503, "busy"), nil
			}
			return httpmock.NewJsonResponse(200, map[string]any{"data": map[string]any{"room_name": "Deluxe", "room_price": "900"}})
		})

	d, err := c.GetPropertyByID(context.Background(), room)
	require.NoError(t, err)
	assert.Equal(t, "Deluxe", d.Name)
	assert.Equal(t, 3, calls)
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	c := newTestClient(t, Options{BreakerMaxFailures: 2, BreakerOpenTimeout: time.Minute})
	httpmock.RegisterResponder("GET", base+"/booking/rooms/7", httpmock.NewStringResponder(500, "boom"))

	for i := 0; i < 3; i++ {
		_, err := c.GetPropertyByID(context.Background(), room)
		assert.ErrorIs(t, err, policies.ErrUpstream)
	}
	assert.Equal(t, 2, httpmock.GetTotalCallCount())
}

func TestGetGuestProfile(t *testing.T) {
	c := newTestClient(t, Options{})
	httpmock.RegisterResponder("GET", base+"/auth/users/42",
		httpmock.NewJsonResponderOrPanic(200, map[string]any{"data": map[string]any{
			"id": 42, "is_verified": "verified", "last_booking_date": "2024-07-01", "is_senior_or_pwd": true,
		}}))
	httpmock.RegisterResponder("GET", base+"/auth/users/43", httpmock.NewStringResponder(404, ""))

	p, err := c.GetGuestProfile(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, "42", p.ID)
	assert.True(t, p.Verified)
	assert.True(t, p.SeniorOrPWD)
	assert.Equal(t, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), p.LastBookingDate)

	_, err = c.GetGuestProfile(context.Background(), "43")
	assert.ErrorIs(t, err, policies.ErrGuestNotFound)

	anon, err := c.GetGuestProfile(context.Background(), " ")
	require.NoError(t, err)
	assert.Equal(t, reservation.GuestProfile{}, anon)
}
