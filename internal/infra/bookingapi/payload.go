package bookingapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"innkeep/internal/domain/reservation"
	"innkeep/internal/domain/shared/daterange"
)

var errMissingDates = errors.New("bookingapi: booking has no usable dates")

type envelope[T any] struct {
	Data T `json:"data"`
}

// wireID accepts both numeric and string identifiers.
type wireID string

func (id *wireID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = wireID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = wireID(n.String())
	return nil
}

// price accepts "₱1,000.00", "1000" and 1000.
type price string

func (p *price) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*p = price(s)
		return nil
	}
	*p = price(string(b))
	return nil
}

type propertyPayload struct {
	ID           wireID   `json:"id"`
	RoomName     string   `json:"room_name"`
	AreaName     string   `json:"area_name"`
	RoomPrice    price    `json:"room_price"`
	PricePerNight price    `json:"price_per_night"`
	PricePerHour price    `json:"price_per_hour"`
	MaxGuests    int      `json:"max_guests"`
	Capacity     int      `json:"capacity"`
	Amenities    []string `json:"amenities"`
	Images       []string `json:"images"`
}

func (p propertyPayload) toDetail(ref reservation.PropertyRef) reservation.PropertyDetail {
	d := reservation.PropertyDetail{
		Ref:       ref,
		Amenities: p.Amenities,
		Images:    p.Images,
	}
	if ref.Mode == reservation.ModeVenue {
		d.Name = p.AreaName
		d.BasePrice = string(p.PricePerHour)
		d.MaxGuests = p.Capacity
	} else {
		d.Name = p.RoomName
		d.BasePrice = string(p.PricePerNight)
		if d.BasePrice == "" {
			d.BasePrice = string(p.RoomPrice)
		}
		d.MaxGuests = p.MaxGuests
	}
	if d.BasePrice == "" {
		d.BasePrice = "0"
	}
	return d
}

type bookingPayload struct {
	ID           wireID `json:"id"`
	CheckInDate  string `json:"check_in_date"`
	CheckOutDate string `json:"check_out_date"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	Status       string `json:"status"`
	CreatedAt    string `json:"created_at"`
}

// toReservation resolves the booking to instants in loc. Venue bookings carry
// separate HH:MM start and end times.
func (b bookingPayload) toReservation(ref reservation.PropertyRef, loc *time.Location) (reservation.Reservation, error) {
	in, err := parseWireTime(b.CheckInDate, b.StartTime, loc)
	if err != nil {
		return reservation.Reservation{}, err
	}
	out, err := parseWireTime(b.CheckOutDate, b.EndTime, loc)
	if err != nil {
		return reservation.Reservation{}, err
	}
	r := reservation.Reservation{
		ID:         string(b.ID),
		PropertyID: ref.ID,
		CheckIn:    in,
		CheckOut:   out,
		Status:     reservation.ParseStatus(b.Status),
	}
	if created, err := parseWireTime(b.CreatedAt, "", loc); err == nil {
		r.CreatedAt = created
	}
	if err := r.Validate(); err != nil {
		return reservation.Reservation{}, err
	}
	return r, nil
}

type guestPayload struct {
	ID              wireID `json:"id"`
	IsVerified      any    `json:"is_verified"`
	LastBookingDate string `json:"last_booking_date"`
	IsSeniorOrPWD   bool   `json:"is_senior_or_pwd"`
}

func (g guestPayload) toProfile(fallbackID string, loc *time.Location) reservation.GuestProfile {
	p := reservation.GuestProfile{ID: string(g.ID), SeniorOrPWD: g.IsSeniorOrPWD}
	if p.ID == "" {
		p.ID = fallbackID
	}
	switch v := g.IsVerified.(type) {
	case bool:
		p.Verified = v
	case string:
		p.Verified = strings.EqualFold(v, "verified") || strings.EqualFold(v, "true")
	}
	if last, err := parseWireTime(g.LastBookingDate, "", loc); err == nil {
		p.LastBookingDate = last
	}
	return p
}

func parseWireTime(date, clock string, loc *time.Location) (time.Time, error) {
	date = strings.TrimSpace(date)
	if date == "" {
		return time.Time{}, errMissingDates
	}
	if t, err := time.Parse(time.RFC3339, date); err == nil {
		return t.In(loc), nil
	}
	day, err := daterange.ParseDay(date, loc)
	if err != nil {
		return time.Time{}, err
	}
	clock = strings.TrimSpace(clock)
	if clock == "" {
		return day, nil
	}
	for _, layout := range []string{"15:04", "15:04:05"} {
		if hm, err := time.Parse(layout, clock); err == nil {
			return day.Add(time.Duration(hm.Hour())*time.Hour + time.Duration(hm.Minute())*time.Minute), nil
		}
	}
	return time.Time{}, errMissingDates
}
