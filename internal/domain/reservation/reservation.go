package reservation

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidDates  = errors.New("reservation: check-in must not be after check-out")
	ErrUnknownMode   = errors.New("reservation: unknown property mode")
	ErrPropertyIDNil = errors.New("reservation: property id is required")
)

// Status mirrors the booking lifecycle owned by the external booking service.
type Status string

const (
	StatusPending    Status = "pending"
	StatusReserved   Status = "reserved"
	StatusConfirmed  Status = "confirmed"
	StatusCheckedIn  Status = "checked_in"
	StatusCheckedOut Status = "checked_out"
	StatusCancelled  Status = "cancelled"
	StatusRejected   Status = "rejected"
	StatusNoShow     Status = "no_show"
)

// ParseStatus normalizes a status coming off the wire. Unknown values are kept
// as-is so they can still be indexed, and they never block availability.
func ParseStatus(raw string) Status {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "missed_reservation" {
		return StatusNoShow
	}
	return Status(s)
}

// Blocking reports whether a reservation in this status removes its days from availability.
func (s Status) Blocking() bool {
	switch s {
	case StatusReserved, StatusConfirmed, StatusCheckedIn:
		return true
	default:
		return false
	}
}

// Reservation is one existing booking of a property. Day granularity for rooms,
// minute granularity for venues.
type Reservation struct {
	ID         string
	PropertyID string
	CheckIn    time.Time
	CheckOut   time.Time
	Status     Status
	CreatedAt  time.Time
}

func (r Reservation) Validate() error {
	if r.CheckIn.After(r.CheckOut) {
		return fmt.Errorf("%w: %s", ErrInvalidDates, r.ID)
	}
	return nil
}

func (r Reservation) Blocking() bool {
	return r.Status.Blocking()
}

// Mode selects the booking flavour of a property.
type Mode string

const (
	ModeRoom  Mode = "room"
	ModeVenue Mode = "venue"
)

// ParseMode accepts the singular and plural path forms used by the HTTP surface.
func ParseMode(raw string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "room", "rooms":
		return ModeRoom, nil
	case "venue", "venues", "area", "areas":
		return ModeVenue, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, raw)
	}
}

type PropertyRef struct {
	Mode Mode   `json:"mode"`
	ID   string `json:"id"`
}

func (r PropertyRef) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return ErrPropertyIDNil
	}
	if r.Mode != ModeRoom && r.Mode != ModeVenue {
		return ErrUnknownMode
	}
	return nil
}

func (r PropertyRef) String() string {
	return string(r.Mode) + "/" + r.ID
}

// PropertyDetail is what the booking service tells us about a room or venue.
// BasePrice is the display string as served, e.g. "₱1,000.00".
type PropertyDetail struct {
	Ref       PropertyRef
	Name      string
	BasePrice string
	MaxGuests int
	Amenities []string
	Images    []string
}

// GuestProfile carries the guest attributes that affect gating and discounts.
// The zero value is an anonymous, unverified guest.
type GuestProfile struct {
	ID              string
	Verified        bool
	LastBookingDate time.Time
	SeniorOrPWD     bool
}
