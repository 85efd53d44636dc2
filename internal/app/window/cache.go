package window

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"innkeep/internal/domain/reservation"
)

const (
	DefaultTTL      = 2 * time.Minute
	prefetchTimeout = 10 * time.Second
)

var ErrFetcherRequired = errors.New("window: fetcher required")

type Status string

const (
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

type Entry struct {
	Status       Status
	Reservations []reservation.Reservation
	Err          error
	FetchedAt    time.Time
}

// Fetcher loads the reservations of a window from the booking service.
type Fetcher func(ctx context.Context, key Key) ([]reservation.Reservation, error)

// Cache stores one entry per window key. A fetch only ever writes its own key,
// so a slow response for a window nobody looks at anymore cannot clobber the
// one being displayed. A fetch that was in flight when its property got
// invalidated is returned to its callers but never stored.
type Cache struct {
	fetch  Fetcher
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger

	mu        sync.RWMutex
	entries   map[string]Entry
	gens      map[string]uint64
	lastSweep time.Time
	group     singleflight.Group
	wg        sync.WaitGroup
}

type Option func(*Cache)

func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func New(fetch Fetcher, opts ...Option) *Cache {
	if fetch == nil {
		panic(ErrFetcherRequired)
	}
	c := &Cache{
		fetch:   fetch,
		ttl:     DefaultTTL,
		now:     time.Now,
		logger:  slog.Default(),
		entries: make(map[string]Entry),
		gens:    make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Peek returns the current entry without fetching.
func (c *Cache) Peek(key Key) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key.String()]
	return e, ok
}

// Get returns a fresh successful entry, fetching when the key is missing,
// expired or failed. A failed fetch returns the error entry along with the error.
func (c *Cache) Get(ctx context.Context, key Key) (Entry, error) {
	if e, ok := c.Peek(key); ok && c.fresh(e) {
		return e, nil
	}
	e := c.load(ctx, key)
	if e.Status == StatusError {
		return e, e.Err
	}
	return e, nil
}

// Prefetch warms key in the background unless a fresh entry exists.
func (c *Cache) Prefetch(key Key) {
	if e, ok := c.Peek(key); ok && (c.fresh(e) || e.Status == StatusLoading) {
		return
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), prefetchTimeout)
		defer cancel()
		if e := c.load(ctx, key); e.Status == StatusError {
			c.logger.Warn("window prefetch failed", "window", key.String(), "error", e.Err)
		}
	}()
}

// Invalidate drops every window cached for ref. Fetches already in flight
// for ref are detached: later callers start a new fetch, and the old result
// is not stored.
func (c *Cache) Invalidate(ref reservation.PropertyRef) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gens[ref.String()]++
	prefix := ref.String() + ":"
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
			c.group.Forget(k)
		}
	}
}

// Wait blocks until background prefetches finish.
func (c *Cache) Wait() {
	c.wg.Wait()
}

func (c *Cache) load(ctx context.Context, key Key) Entry {
	id := key.String()
	c.mu.Lock()
	if _, ok := c.entries[id]; !ok {
		c.entries[id] = Entry{Status: StatusLoading}
	}
	c.mu.Unlock()

	v, _, _ := c.group.Do(id, func() (any, error) {
		gen := c.generation(key.Property)
		list, err := c.fetch(ctx, key)
		e := Entry{Status: StatusSuccess, Reservations: list, FetchedAt: c.now()}
		if err != nil {
			e = Entry{Status: StatusError, Err: err, FetchedAt: c.now()}
		}
		c.store(key, gen, e)
		return e, nil
	})
	return v.(Entry)
}

func (c *Cache) generation(ref reservation.PropertyRef) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gens[ref.String()]
}

// store writes e unless ref was invalidated since gen was read. Expired
// entries are swept at most once per TTL.
func (c *Cache) store(key Key, gen uint64, e Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[key.Property.String()] != gen {
		c.logger.Debug("window fetch discarded after invalidation", "window", key.String())
		return
	}
	if now := c.now(); now.Sub(c.lastSweep) >= c.ttl {
		for k, old := range c.entries {
			if old.Status != StatusLoading && now.Sub(old.FetchedAt) >= c.ttl {
				delete(c.entries, k)
			}
		}
		c.lastSweep = now
	}
	c.entries[key.String()] = e
}

func (c *Cache) fresh(e Entry) bool {
	return e.Status == StatusSuccess && c.now().Sub(e.FetchedAt) < c.ttl
}
