package bookingapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"innkeep/internal/app/policies"
	"innkeep/internal/domain/reservation"
	"innkeep/internal/domain/shared/daterange"
)

var ErrNotConfigured = errors.New("bookingapi: client not configured")

// Options tunes the client. Zero values fall back to sensible defaults.
type Options struct {
	Timeout            time.Duration
	Backoff            []time.Duration
	BreakerMaxFailures int
	BreakerOpenTimeout time.Duration
	Location           *time.Location
	Logger             *slog.Logger
}

// Client reads properties, reservations and guest profiles from the booking
// service over HTTP. Calls go through a circuit breaker and are retried on
// transport errors and 5xx responses.
type Client struct {
	base    string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	backoff []time.Duration
	loc     *time.Location
	logger  *slog.Logger
	sleep   func(ctx context.Context, d time.Duration) error
}

func New(baseURL string, httpClient *http.Client, opts Options) *Client {
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	maxFailures := opts.BreakerMaxFailures
	if maxFailures <= 0 {
		maxFailures = 5
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		base:    strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		backoff: opts.Backoff,
		loc:     loc,
		logger:  logger,
		sleep:   sleepCtx,
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "booking-api",
		Timeout: opts.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(maxFailures)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return c
}

func (c *Client) GetPropertyByID(ctx context.Context, ref reservation.PropertyRef) (reservation.PropertyDetail, error) {
	if err := ref.Validate(); err != nil {
		return reservation.PropertyDetail{}, err
	}
	var env envelope[propertyPayload]
	if err := c.getJSON(ctx, propertyPath(ref), nil, &env); err != nil {
		if errors.Is(err, errNotFound) {
			return reservation.PropertyDetail{}, fmt.Errorf("%w: %s", policies.ErrPropertyNotFound, ref)
		}
		return reservation.PropertyDetail{}, err
	}
	return env.Data.toDetail(ref), nil
}

func (c *Client) GetReservationsInRange(ctx context.Context, ref reservation.PropertyRef, start, end time.Time) ([]reservation.Reservation, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("start_date", start.Format(daterange.DayLayout))
	q.Set("end_date", end.Format(daterange.DayLayout))
	var env envelope[[]bookingPayload]
	if err := c.getJSON(ctx, propertyPath(ref)+"/bookings", q, &env); err != nil {
		if errors.Is(err, errNotFound) {
			return nil, fmt.Errorf("%w: %s", policies.ErrPropertyNotFound, ref)
		}
		return nil, err
	}
	out := make([]reservation.Reservation, 0, len(env.Data))
	for _, b := range env.Data {
		r, err := b.toReservation(ref, c.loc)
		if err != nil {
			c.logger.WarnContext(ctx, "skipping malformed booking", "property", ref.String(), "booking_id", string(b.ID), "error", err)
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (c *Client) GetGuestProfile(ctx context.Context, guestID string) (reservation.GuestProfile, error) {
	guestID = strings.TrimSpace(guestID)
	if guestID == "" {
		return reservation.GuestProfile{}, nil
	}
	var env envelope[guestPayload]
	if err := c.getJSON(ctx, "/auth/users/"+url.PathEscape(guestID), nil, &env); err != nil {
		if errors.Is(err, errNotFound) {
			return reservation.GuestProfile{}, fmt.Errorf("%w: %s", policies.ErrGuestNotFound, guestID)
		}
		return reservation.GuestProfile{}, err
	}
	return env.Data.toProfile(guestID, c.loc), nil
}

var errNotFound = errors.New("bookingapi: not found")

type response struct {
	status int
	body   []byte
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	if c == nil || c.http == nil || c.base == "" {
		return ErrNotConfigured
	}
	endpoint := c.base + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var (
		resp response
		err  error
	)
	for attempt := 0; ; attempt++ {
		resp, err = c.do(ctx, endpoint)
		if err == nil || attempt >= len(c.backoff) || errors.Is(err, gobreaker.ErrOpenState) || ctx.Err() != nil {
			break
		}
		c.logger.DebugContext(ctx, "retrying booking api call", "url", endpoint, "attempt", attempt+1, "error", err)
		if serr := c.sleep(ctx, c.backoff[attempt]); serr != nil {
			break
		}
	}
	if err != nil {
		c.logger.ErrorContext(ctx, "booking api call failed", "url", endpoint, "error", err)
		return fmt.Errorf("%w: %v", policies.ErrUpstream, err)
	}

	switch {
	case resp.status == http.StatusNotFound:
		return errNotFound
	case resp.status >= http.StatusBadRequest:
		return fmt.Errorf("%w: booking service returned %d: %s", policies.ErrUpstream, resp.status, snippet(resp.body))
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", policies.ErrUpstream, path, err)
	}
	return nil
}

// do performs one request through the breaker. 4xx responses count as
// successful calls so that missing properties never trip the breaker.
func (c *Client) do(ctx context.Context, endpoint string) (response, error) {
	res, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, fmt.Errorf("booking service returned %d: %s", resp.StatusCode, snippet(body))
		}
		return response{status: resp.StatusCode, body: body}, nil
	})
	if err != nil {
		return response{}, err
	}
	return res.(response), nil
}

func propertyPath(ref reservation.PropertyRef) string {
	if ref.Mode == reservation.ModeVenue {
		return "/booking/areas/" + url.PathEscape(ref.ID)
	}
	return "/booking/rooms/" + url.PathEscape(ref.ID)
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 256 {
		s = s[:256]
	}
	return s
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

var _ policies.BookingQueryPort = (*Client)(nil)
