package ginserver

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	gin "github.com/gin-gonic/gin"

	"innkeep/internal/app/commands"
	"innkeep/internal/app/dto"
	calendarapp "innkeep/internal/app/handlers/calendar"
	quoteapp "innkeep/internal/app/handlers/quote"
	"innkeep/internal/app/queries"
	"innkeep/internal/domain/reservation"
)

const (
	GuestHeader       = "X-Guest-ID"
	IdempotencyHeader = "Idempotency-Key"
	monthLayout       = "2006-01"
)

type CalendarHandler struct {
	Queries  queries.Bus
	Commands commands.Bus
	Location *time.Location
}

func (h CalendarHandler) loc() *time.Location {
	if h.Location == nil {
		return time.UTC
	}
	return h.Location
}

func (h CalendarHandler) Calendar(c *gin.Context) {
	mode, ok := pathMode(c)
	if !ok {
		return
	}
	q := calendarapp.GetCalendarQuery{
		Mode:       mode,
		PropertyID: c.Param("id"),
		Arrival:    c.Query("arrival"),
		Departure:  c.Query("departure"),
		Hover:      c.Query("hover"),
		GuestID:    guestID(c),
	}
	if raw := c.Query("month"); raw != "" {
		month, err := time.ParseInLocation(monthLayout, raw, h.loc())
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "month must be YYYY-MM"})
			return
		}
		q.Month = month
	}
	result, err := queries.Ask[calendarapp.GetCalendarQuery, dto.Calendar](c.Request.Context(), h.Queries, q)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type applySelectionRequest struct {
	State dto.Selection              `json:"state"`
	Event calendarapp.SelectionEvent `json:"event"`
}

func (h CalendarHandler) Select(c *gin.Context) {
	mode, ok := pathMode(c)
	if !ok {
		return
	}
	var req applySelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := calendarapp.ApplySelectionCommand{
		Mode:       mode,
		PropertyID: c.Param("id"),
		GuestID:    guestID(c),
		State:      req.State,
		Event:      req.Event,
	}
	result, err := commands.Dispatch[calendarapp.ApplySelectionCommand, *dto.SelectionResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h CalendarHandler) Quote(c *gin.Context) {
	mode, ok := pathMode(c)
	if !ok {
		return
	}
	start, err := calendarapp.ParseInstant(c.Query("start"), mode, h.loc())
	if err != nil {
		writeError(c, err)
		return
	}
	end, err := calendarapp.ParseInstant(c.Query("end"), mode, h.loc())
	if err != nil {
		writeError(c, err)
		return
	}
	guests, ok := intQuery(c, "guests")
	if !ok {
		return
	}
	promo, ok := intQuery(c, "promo_percent")
	if !ok {
		return
	}
	q := quoteapp.GetQuoteQuery{
		Mode:         mode,
		PropertyID:   c.Param("id"),
		Start:        start,
		End:          end,
		Guests:       guests,
		PromoPercent: promo,
		GuestID:      guestID(c),
	}
	result, err := queries.Ask[quoteapp.GetQuoteQuery, dto.Quote](c.Request.Context(), h.Queries, q)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h CalendarHandler) Slots(c *gin.Context) {
	mode, ok := pathMode(c)
	if !ok {
		return
	}
	day, err := calendarapp.ParseInstant(c.Query("day"), reservation.ModeRoom, h.loc())
	if err != nil {
		writeError(c, err)
		return
	}
	var duration time.Duration
	if raw := c.Query("duration"); raw != "" {
		duration, err = time.ParseDuration(raw)
		if err != nil || duration < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "duration must be a positive Go duration, e.g. 2h"})
			return
		}
	}
	q := calendarapp.ListVenueSlotsQuery{Mode: mode, PropertyID: c.Param("id"), Day: day, Duration: duration}
	result, err := queries.Ask[calendarapp.ListVenueSlotsQuery, dto.SlotList](c.Request.Context(), h.Queries, q)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func pathMode(c *gin.Context) (reservation.Mode, bool) {
	mode, err := reservation.ParseMode(c.Param("mode"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return "", false
	}
	return mode, true
}

func guestID(c *gin.Context) string {
	return strings.TrimSpace(c.GetHeader(GuestHeader))
}

func intQuery(c *gin.Context, name string) (int, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": name + " must be an integer"})
		return 0, false
	}
	return n, true
}

var _ CalendarHTTP = CalendarHandler{}
