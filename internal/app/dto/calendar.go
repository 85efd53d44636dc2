package dto

import "time"

const (
	DayAvailable = "available"
	DayBooked    = "booked"
	DayPast      = "past"
)

// CalendarDay is one cell of the calendar grid.
type CalendarDay struct {
	Date             string `json:"date"`
	State            string `json:"state"`
	Status           string `json:"status,omitempty"`
	UnavailableStart bool   `json:"unavailable_as_start"`
	UnavailableEnd   bool   `json:"unavailable_as_end"`
	Selected         bool   `json:"selected,omitempty"`
	InRange          bool   `json:"in_range,omitempty"`
	InPreview        bool   `json:"in_preview,omitempty"`
}

type Property struct {
	ID        string   `json:"id"`
	Mode      string   `json:"mode"`
	Name      string   `json:"name,omitempty"`
	BasePrice string   `json:"base_price"`
	MaxGuests int      `json:"max_guests"`
	Amenities []string `json:"amenities,omitempty"`
	Images    []string `json:"images,omitempty"`
}

type Calendar struct {
	Status      string        `json:"status"`
	Property    Property      `json:"property"`
	WindowStart string        `json:"window_start"`
	WindowEnd   string        `json:"window_end"`
	Today       string        `json:"today"`
	Days        []CalendarDay `json:"days"`
	Selection   Selection     `json:"selection"`
	Preview     *Range        `json:"preview,omitempty"`
	Assessment  *Assessment   `json:"assessment,omitempty"`
	Price       *Price        `json:"price,omitempty"`
}

type SelectionResult struct {
	Selection  Selection   `json:"selection"`
	Preview    *Range      `json:"preview,omitempty"`
	Assessment *Assessment `json:"assessment,omitempty"`
	Price      *Price      `json:"price,omitempty"`
}

type Slot struct {
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Label     string    `json:"label"`
	Available bool      `json:"available"`
}

type SlotList struct {
	PropertyID string `json:"property_id"`
	Day        string `json:"day"`
	Duration   string `json:"duration"`
	Slots      []Slot `json:"slots"`
}
