package policies

import (
	"context"
	"errors"
	"time"

	"innkeep/internal/domain/reservation"
)

var (
	ErrPropertyNotFound = errors.New("policies: property not found")
	ErrGuestNotFound    = errors.New("policies: guest not found")
	ErrUpstream         = errors.New("policies: booking service unavailable")
)

// BookingQueryPort is the read contract of the external booking service.
type BookingQueryPort interface {
	GetPropertyByID(ctx context.Context, ref reservation.PropertyRef) (reservation.PropertyDetail, error)
	GetReservationsInRange(ctx context.Context, ref reservation.PropertyRef, start, end time.Time) ([]reservation.Reservation, error)
	GetGuestProfile(ctx context.Context, guestID string) (reservation.GuestProfile, error)
}
