package window

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"innkeep/internal/domain/reservation"
)

var room = reservation.PropertyRef{Mode: reservation.ModeRoom, ID: "7"}

func month(y int, m time.Month) time.Time {
	return time.Date(y, m, 15, 0, 0, 0, 0, time.UTC)
}

func TestForCoversTwoMonths(t *testing.T) {
	start, end := For(month(2024, 1))
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), end)

	start, end = For(month(2024, 12))
	assert.Equal(t, time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC), end)
}

func TestNextIsOneMonthAhead(t *testing.T) {
	k := KeyFor(room, month(2024, 6))
	next := k.Next()
	assert.Equal(t, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), next.Start)
	assert.Equal(t, time.Date(2024, 8, 31, 0, 0, 0, 0, time.UTC), next.End)
	assert.Equal(t, "room/7:2024-07-01:2024-08-31", next.String())
	assert.True(t, k.Contains(time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), time.Date(2024, 7, 31, 0, 0, 0, 0, time.UTC)))
	assert.False(t, k.Contains(time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)))
}

func TestGetCachesPerKey(t *testing.T) {
	var calls atomic.Int32
	c := New(func(_ context.Context, key Key) ([]reservation.Reservation, error) {
		calls.Add(1)
		return []reservation.Reservation{{ID: key.Start.Format("2006-01")}}, nil
	})

	june, err := c.Get(context.Background(), KeyFor(room, month(2024, 6)))
	require.NoError(t, err)
	july, err := c.Get(context.Background(), KeyFor(room, month(2024, 7)))
	require.NoError(t, err)
	_, err = c.Get(context.Background(), KeyFor(room, month(2024, 6)))
	require.NoError(t, err)

	assert.Equal(t, "2024-06", june.Reservations[0].ID)
	assert.Equal(t, "2024-07", july.Reservations[0].ID)
	assert.Equal(t, int32(2), calls.Load())
}

func TestEntriesExpire(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	var calls atomic.Int32
	c := New(func(context.Context, Key) ([]reservation.Reservation, error) {
		calls.Add(1)
		return nil, nil
	}, WithTTL(time.Minute), WithClock(func() time.Time { return now }))

	key := KeyFor(room, month(2024, 6))
	_, _ = c.Get(context.Background(), key)
	now = now.Add(30 * time.Second)
	_, _ = c.Get(context.Background(), key)
	assert.Equal(t, int32(1), calls.Load())

	now = now.Add(time.Minute)
	_, _ = c.Get(context.Background(), key)
	assert.Equal(t, int32(2), calls.Load())
}

func TestErrorsAreCachedAsErrorAndRetried(t *testing.T) {
	boom := errors.New("upstream down")
	fail := true
	c := New(func(context.Context, Key) ([]reservation.Reservation, error) {
		if fail {
			return nil, boom
		}
		return []reservation.Reservation{{ID: "r1"}}, nil
	})
	key := KeyFor(room, month(2024, 6))

	e, err := c.Get(context.Background(), key)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, StatusError, e.Status)
	assert.Nil(t, e.Reservations)

	peeked, ok := c.Peek(key)
	require.True(t, ok)
	assert.Equal(t, StatusError, peeked.Status)

	fail = false
	e, err = c.Get(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, e.Status)
	assert.Len(t, e.Reservations, 1)
}

func TestConcurrentGetsShareOneFetch(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	c := New(func(context.Context, Key) ([]reservation.Reservation, error) {
		calls.Add(1)
		<-release
		return nil, nil
	})
	key := KeyFor(room, month(2024, 6))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.Get(context.Background(), key)
		}()
	}
	require.Eventually(t, func() bool {
		e, ok := c.Peek(key)
		return ok && e.Status == StatusLoading && calls.Load() == 1
	}, time.Second, time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestStaleResponseOnlyWritesItsOwnKey(t *testing.T) {
	slow := make(chan struct{})
	c := New(func(_ context.Context, key Key) ([]reservation.Reservation, error) {
		if key.Start.Month() == time.June {
			<-slow
			return []reservation.Reservation{{ID: "june"}}, nil
		}
		return []reservation.Reservation{{ID: "july"}}, nil
	})
	juneKey, julyKey := KeyFor(room, month(2024, 6)), KeyFor(room, month(2024, 7))

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = c.Get(context.Background(), juneKey)
	}()
	july, err := c.Get(context.Background(), julyKey)
	require.NoError(t, err)
	close(slow)
	<-done

	current, ok := c.Peek(julyKey)
	require.True(t, ok)
	assert.Equal(t, "july", july.Reservations[0].ID)
	assert.Equal(t, "july", current.Reservations[0].ID)
}

func TestPrefetchWarmsNextWindow(t *testing.T) {
	var calls atomic.Int32
	c := New(func(context.Context, Key) ([]reservation.Reservation, error) {
		calls.Add(1)
		return nil, nil
	})
	key := KeyFor(room, month(2024, 6)).Next()

	c.Prefetch(key)
	c.Wait()
	e, ok := c.Peek(key)
	require.True(t, ok)
	assert.Equal(t, StatusSuccess, e.Status)

	c.Prefetch(key)
	c.Wait()
	assert.Equal(t, int32(1), calls.Load())

	c.Invalidate(room)
	_, ok = c.Peek(key)
	assert.False(t, ok)
}

func TestInvalidateDiscardsInFlightFetch(t *testing.T) {
	var calls atomic.Int32
	started, release := make(chan struct{}), make(chan struct{})
	c := New(func(context.Context, Key) ([]reservation.Reservation, error) {
		if calls.Add(1) == 1 {
			close(started)
			<-release
			return nil, nil
		}
		return []reservation.Reservation{{ID: "r1"}}, nil
	})
	key := KeyFor(room, month(2024, 6))

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = c.Get(context.Background(), key)
	}()
	<-started
	c.Invalidate(room)
	close(release)
	<-done

	_, ok := c.Peek(key)
	assert.False(t, ok, "pre-invalidation result must not be cached")

	e, err := c.Get(context.Background(), key)
	require.NoError(t, err)
	assert.Len(t, e.Reservations, 1)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGetAfterInvalidateStartsNewFetch(t *testing.T) {
	var calls atomic.Int32
	started, release := make(chan struct{}), make(chan struct{})
	c := New(func(context.Context, Key) ([]reservation.Reservation, error) {
		if calls.Add(1) == 1 {
			close(started)
			<-release
			return nil, nil
		}
		return []reservation.Reservation{{ID: "booked"}}, nil
	})
	key := KeyFor(room, month(2024, 6))

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = c.Get(context.Background(), key)
	}()
	<-started
	c.Invalidate(room)

	e, err := c.Get(context.Background(), key)
	require.NoError(t, err)
	require.Len(t, e.Reservations, 1)

	close(release)
	<-done
	current, ok := c.Peek(key)
	require.True(t, ok)
	require.Len(t, current.Reservations, 1)
	assert.Equal(t, "booked", current.Reservations[0].ID)
}

func TestExpiredEntriesAreSwept(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	c := New(func(context.Context, Key) ([]reservation.Reservation, error) {
		return nil, nil
	}, WithTTL(time.Minute), WithClock(func() time.Time { return now }))
	june, july := KeyFor(room, month(2024, 6)), KeyFor(room, month(2024, 7))

	_, err := c.Get(context.Background(), june)
	require.NoError(t, err)
	now = now.Add(2 * time.Minute)
	_, err = c.Get(context.Background(), july)
	require.NoError(t, err)

	_, ok := c.Peek(june)
	assert.False(t, ok)
	_, ok = c.Peek(july)
	assert.True(t, ok)
}
