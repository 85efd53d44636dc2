package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"innkeep/internal/app/commands"
	"innkeep/internal/app/dto"
	"innkeep/internal/app/handlers/support"
	"innkeep/internal/app/middleware"
	"innkeep/internal/app/outbox"
	"innkeep/internal/app/policies"
	"innkeep/internal/app/window"
	domainbooking "innkeep/internal/domain/booking"
	"innkeep/internal/domain/occupancy"
	"innkeep/internal/domain/pricing"
	"innkeep/internal/domain/reservation"
	"innkeep/internal/infra/storage/memory"
)

var (
	room = reservation.PropertyRef{Mode: reservation.ModeRoom, ID: "7"}
	now  = time.Date(2024, 7, 5, 10, 0, 0, 0, time.UTC)
)

func day(d int) time.Time {
	return time.Date(2024, 7, d, 0, 0, 0, 0, time.UTC)
}

type harness struct {
	bus     commands.Bus
	catalog *memory.Catalog
	sink    *memory.Outbox
	prefs   *memory.PreferenceStore
	cache   *window.Cache
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	catalog := memory.NewCatalog()
	catalog.PutProperty(reservation.PropertyDetail{Ref: room, BasePrice: "₱1,000.00", MaxGuests: 2})
	catalog.AddReservation(room, reservation.Reservation{ID: "r1", CheckIn: day(10), CheckOut: day(12), Status: reservation.StatusConfirmed})

	cache := window.New(func(ctx context.Context, key window.Key) ([]reservation.Reservation, error) {
		return catalog.GetReservationsInRange(ctx, key.Property, key.Start, key.End)
	})
	sink := memory.NewOutbox()
	box := outbox.NewBuffered(sink)
	prefs := memory.NewPreferenceStore()

	base := commands.NewInMemoryBus()
	commands.RegisterHandler(base, CommitRangeCommand{}.Key(), &CommitRangeHandler{
		Loader: support.Loader{Port: catalog, Cache: cache},
		Settings: support.Settings{
			MaxNights:  30,
			Hours:      occupancy.DefaultHours(),
			Calculator: pricing.NewCalculator(20, "PHP"),
			Location:   time.UTC,
		},
		Outbox:      box,
		Notifier:    outbox.Notifier{Outbox: box},
		Preferences: prefs,
		Clock:       policies.FixedClock(now),
	})
	bus := middleware.ChainCommands(base,
		middleware.RequireGuest(),
		middleware.Idempotency(memory.NewIdempotencyStore(time.Hour), nil),
		middleware.OutboxFlush(box),
	)
	return &harness{bus: bus, catalog: catalog, sink: sink, prefs: prefs, cache: cache}
}

func (h *harness) commit(cmd CommitRangeCommand) (*dto.CommitResult, error) {
	if cmd.Mode == "" {
		cmd.Mode, cmd.PropertyID = room.Mode, room.ID
	}
	return commands.Dispatch[CommitRangeCommand, *dto.CommitResult](context.Background(), h.bus, cmd)
}

func TestCommitRangePublishesEventAndConfirmationURL(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.prefs.Save(context.Background(), "g1", room, policies.Preference{Arrival: day(6)}))
	key := window.KeyFor(room, day(1))
	_, err := h.cache.Get(context.Background(), key)
	require.NoError(t, err)

	res, err := h.commit(CommitRangeCommand{CommandID: "c-1", GuestID: "g1", Start: day(6), End: day(9), Guests: 2, ArrivalTime: "15:00"})
	require.NoError(t, err)

	assert.Equal(t, "c-1", res.CommitmentID)
	assert.Equal(t, "3000.00", res.TotalPrice)
	assert.Equal(t, int64(300000), res.TotalCents)
	assert.Equal(t, "/confirm-booking?arrival=2024-07-06&departure=2024-07-09&roomId=7&totalPrice=3000.00", res.ConfirmationURL)

	records := h.sink.Records()
	require.Len(t, records, 2)
	assert.Equal(t, domainbooking.RangeCommitted{}.EventName(), records[0].Name)
	assert.Equal(t, "c-1", records[0].Aggregate)
	assert.Equal(t, outbox.NotificationEvent, records[1].Name)
	assert.Equal(t, "g1", records[1].Aggregate)

	_, cached := h.cache.Peek(key)
	assert.False(t, cached, "commit invalidates the property windows")
	_, ok, err := h.prefs.Load(context.Background(), "g1", room)
	require.NoError(t, err)
	assert.False(t, ok, "commit clears the stored preference")
}

func TestCommitRangeBlocked(t *testing.T) {
	h := newHarness(t)
	_, err := h.commit(CommitRangeCommand{GuestID: "g1", Start: day(9), End: day(11)})

	var blocked *BlockedError
	require.True(t, errors.As(err, &blocked))
	assert.ErrorIs(t, err, domainbooking.ErrBlocked)
	assert.True(t, blocked.Assessment.Conflict)
	assert.Equal(t, []string{"r1"}, blocked.Assessment.ConflictingIDs)
	assert.Empty(t, h.sink.Records(), "failed commands publish nothing")
}

func TestCommitRangeSeesBookingsTheCacheMissed(t *testing.T) {
	h := newHarness(t)
	_, err := h.cache.Get(context.Background(), window.KeyFor(room, day(1)))
	require.NoError(t, err)
	h.catalog.AddReservation(room, reservation.Reservation{ID: "late", CheckIn: day(20), CheckOut: day(22), Status: reservation.StatusReserved})

	_, err = h.commit(CommitRangeCommand{GuestID: "g1", Start: day(19), End: day(21)})
	assert.ErrorIs(t, err, domainbooking.ErrBlocked)
}

func TestCommitRangeValidation(t *testing.T) {
	tests := []struct {
		name string
		cmd  CommitRangeCommand
		want error
	}{
		{"anonymous guest", CommitRangeCommand{Start: day(6), End: day(7)}, middleware.ErrGuestRequired},
		{"arrival too early", CommitRangeCommand{GuestID: "g1", Start: day(6), End: day(7), ArrivalTime: "09:00"}, domainbooking.ErrArrivalTime},
		{"arrival malformed", CommitRangeCommand{GuestID: "g1", Start: day(6), End: day(7), ArrivalTime: "noon"}, domainbooking.ErrArrivalTime},
		{"arrival at midnight", CommitRangeCommand{GuestID: "g1", Start: day(6), End: day(7), ArrivalTime: "00:00"}, domainbooking.ErrArrivalTime},
		{"unknown property", CommitRangeCommand{Mode: room.Mode, PropertyID: "404", GuestID: "g1", Start: day(6), End: day(7)}, policies.ErrPropertyNotFound},
		{"same day", CommitRangeCommand{GuestID: "g1", Start: day(6), End: day(6)}, domainbooking.ErrBlocked},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			_, err := h.commit(tt.cmd)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCommitRangeIdempotentReplay(t *testing.T) {
	h := newHarness(t)
	cmd := CommitRangeCommand{GuestID: "g1", Start: day(6), End: day(8), IdempotencyKeyV: "k-1"}

	first, err := h.commit(cmd)
	require.NoError(t, err)
	second, err := h.commit(cmd)
	require.NoError(t, err)

	assert.Equal(t, first.CommitmentID, second.CommitmentID)
	assert.Len(t, h.sink.Records(), 2, "replay publishes nothing new")
}
