package ginserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"innkeep/internal/app/commands"
	bookingapp "innkeep/internal/app/handlers/booking"
	calendarapp "innkeep/internal/app/handlers/calendar"
	quoteapp "innkeep/internal/app/handlers/quote"
	"innkeep/internal/app/handlers/support"
	"innkeep/internal/app/middleware"
	"innkeep/internal/app/outbox"
	"innkeep/internal/app/policies"
	"innkeep/internal/app/queries"
	"innkeep/internal/app/validation"
	"innkeep/internal/domain/occupancy"
	"innkeep/internal/domain/pricing"
	"innkeep/internal/domain/reservation"
	"innkeep/internal/infra/obs"
	"innkeep/internal/infra/storage/memory"
)

var (
	room  = reservation.PropertyRef{Mode: reservation.ModeRoom, ID: "7"}
	venue = reservation.PropertyRef{Mode: reservation.ModeVenue, ID: "2"}
	now   = time.Date(2024, 7, 5, 10, 0, 0, 0, time.UTC)
)

func day(d int) time.Time {
	return time.Date(2024, 7, d, 0, 0, 0, 0, time.UTC)
}

type testServer struct {
	router  *gin.Engine
	catalog *memory.Catalog
	sink    *memory.Outbox
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	catalog := memory.NewCatalog()
	catalog.PutProperty(reservation.PropertyDetail{Ref: room, Name: "Deluxe", BasePrice: "₱1,000.00", MaxGuests: 2})
	catalog.PutProperty(reservation.PropertyDetail{Ref: venue, Name: "Garden", BasePrice: "₱1,500.00", MaxGuests: 40})
	catalog.AddReservation(room, reservation.Reservation{ID: "r1", CheckIn: day(10), CheckOut: day(12), Status: reservation.StatusConfirmed})

	loader := support.Loader{Port: catalog}
	settings := support.Settings{
		MaxNights:  30,
		Hours:      occupancy.DefaultHours(),
		Calculator: pricing.NewCalculator(20, "PHP"),
		Location:   time.UTC,
	}
	clock := policies.FixedClock(now)
	prefs := memory.NewPreferenceStore()
	sink := memory.NewOutbox()
	box := outbox.NewBuffered(sink)
	v, err := validation.New()
	require.NoError(t, err)

	cmdBus := commands.NewInMemoryBus()
	commands.RegisterHandler(cmdBus, calendarapp.ApplySelectionCommand{}.Key(), &calendarapp.ApplySelectionHandler{Loader: loader, Preferences: prefs, Settings: settings, Clock: clock})
	commands.RegisterHandler(cmdBus, bookingapp.CommitRangeCommand{}.Key(), &bookingapp.CommitRangeHandler{Loader: loader, Settings: settings, Outbox: box, Preferences: prefs, Clock: clock})
	qBus := queries.NewInMemoryBus()
	queries.RegisterHandler(qBus, calendarapp.GetCalendarQuery{}.Key(), &calendarapp.GetCalendarHandler{Loader: loader, Preferences: prefs, Settings: settings, Clock: clock})
	queries.RegisterHandler(qBus, calendarapp.ListVenueSlotsQuery{}.Key(), &calendarapp.ListVenueSlotsHandler{Loader: loader, Settings: settings, Clock: clock})
	queries.RegisterHandler(qBus, quoteapp.GetQuoteQuery{}.Key(), &quoteapp.GetQuoteHandler{Loader: loader, Settings: settings, Clock: clock})

	commandsWithMW := middleware.ChainCommands(cmdBus,
		middleware.Validation(v),
		middleware.RequireGuest(),
		middleware.Idempotency(memory.NewIdempotencyStore(time.Hour), nil),
		middleware.OutboxFlush(box),
	)
	queriesWithMW := middleware.ChainQueries(qBus, middleware.QueryValidation(v))

	router := NewRouter(obs.Middleware{}, obs.HealthHandlers{}, Handlers{
		Calendar: CalendarHandler{Queries: queriesWithMW, Commands: commandsWithMW, Location: time.UTC},
		Booking:  BookingHandler{Commands: commandsWithMW, Location: time.UTC},
	})
	return &testServer{router: router, catalog: catalog, sink: sink}
}

func (s *testServer) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestCalendarEndpoint(t *testing.T) {
	s := newTestServer(t)
	w := s.do(http.MethodGet, "/api/v1/properties/rooms/7/calendar?month=2024-07&arrival=2024-07-06&departure=2024-07-08", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decode(t, w)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "2024-07-01", body["window_start"])
	assert.Len(t, body["days"], 62)
	price := body["price"].(map[string]any)
	assert.Equal(t, "2000.00", price["final_total"])
}

func TestCalendarEndpointErrors(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/api/v1/properties/boats/7/calendar", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodGet, "/api/v1/properties/rooms/7/calendar?month=July", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/api/v1/properties/rooms/404/calendar?month=2024-07", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	s.catalog.SetErr(policies.ErrUpstream)
	w = s.do(http.MethodGet, "/api/v1/properties/rooms/7/calendar?month=2024-07", "", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	body := decode(t, w)
	assert.Equal(t, "error", body["status"])
	assert.Nil(t, body["days"])
}

func TestSelectionEndpoint(t *testing.T) {
	s := newTestServer(t)
	w := s.do(http.MethodPost, "/api/v1/properties/room/7/selection",
		`{"state":{"start":"2024-07-06T00:00:00Z"},"event":{"kind":"click","at":"2024-07-08T00:00:00Z"}}`,
		map[string]string{GuestHeader: "g1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decode(t, w)
	assert.Equal(t, "range_complete", body["selection"].(map[string]any)["phase"])
	assert.Equal(t, true, body["assessment"].(map[string]any)["can_proceed"])

	w = s.do(http.MethodPost, "/api/v1/properties/room/7/selection", `{"event":{"kind":"drag","at":"2024-07-08T00:00:00Z"}}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "fields")
}

func TestQuoteEndpoint(t *testing.T) {
	s := newTestServer(t)
	w := s.do(http.MethodGet, "/api/v1/properties/rooms/7/quote?start=2024-07-06&end=2024-07-09&promo_percent=10", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	price := decode(t, w)["price"].(map[string]any)
	assert.Equal(t, "2700.00", price["final_total"])

	w = s.do(http.MethodGet, "/api/v1/properties/rooms/7/quote?start=2024-07-06&end=2024-07-09&promo_percent=150", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/api/v1/properties/rooms/7/quote?start=yesterday&end=2024-07-09", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSlotsEndpoint(t *testing.T) {
	s := newTestServer(t)
	w := s.do(http.MethodGet, "/api/v1/properties/venues/2/slots?day=2024-07-10&duration=1h", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, decode(t, w)["slots"], 31)

	w = s.do(http.MethodGet, "/api/v1/properties/rooms/7/slots?day=2024-07-10", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCommitEndpoint(t *testing.T) {
	s := newTestServer(t)
	body := `{"start":"2024-07-06","end":"2024-07-08","guests":2,"arrival_time":"15:00"}`

	w := s.do(http.MethodPost, "/api/v1/properties/rooms/7/commit", body, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	headers := map[string]string{GuestHeader: "g1", IdempotencyHeader: "k-1"}
	w = s.do(http.MethodPost, "/api/v1/properties/rooms/7/commit", body, headers)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	first := decode(t, w)
	assert.Equal(t, "2000.00", first["total_price"])
	assert.Contains(t, first["confirmation_url"], "/confirm-booking?")

	w = s.do(http.MethodPost, "/api/v1/properties/rooms/7/commit", body, headers)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, first["commitment_id"], decode(t, w)["commitment_id"])
	assert.Len(t, s.sink.Records(), 1)

	w = s.do(http.MethodPost, "/api/v1/properties/rooms/7/commit", `{"start":"2024-07-09","end":"2024-07-11"}`, map[string]string{GuestHeader: "g1"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assessment := decode(t, w)["assessment"].(map[string]any)
	assert.Equal(t, true, assessment["conflict"])
	assert.Contains(t, assessment["conflict_message"], "overlap with an existing booking")

	w = s.do(http.MethodPost, "/api/v1/properties/rooms/7/commit", `{"start":"2024-07-06","end":"2024-07-08","special_request":"`+strings.Repeat("x", 501)+`"}`, map[string]string{GuestHeader: "g1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthRoutes(t *testing.T) {
	s := newTestServer(t)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/livez", "", nil).Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/readyz", "", nil).Code)
}
