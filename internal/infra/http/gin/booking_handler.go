package ginserver

import (
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"innkeep/internal/app/commands"
	"innkeep/internal/app/dto"
	bookingapp "innkeep/internal/app/handlers/booking"
	calendarapp "innkeep/internal/app/handlers/calendar"
)

type BookingHandler struct {
	Commands commands.Bus
	Location *time.Location
}

type commitRequest struct {
	Start          string `json:"start" binding:"required"`
	End            string `json:"end" binding:"required"`
	Guests         int    `json:"guests"`
	PromoPercent   int    `json:"promo_percent"`
	ArrivalTime    string `json:"arrival_time"`
	SpecialRequest string `json:"special_request"`
}

func (h BookingHandler) Commit(c *gin.Context) {
	mode, ok := pathMode(c)
	if !ok {
		return
	}
	if h.Commands == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "commands unavailable"})
		return
	}
	var req commitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	loc := h.Location
	if loc == nil {
		loc = time.UTC
	}
	start, err := calendarapp.ParseInstant(req.Start, mode, loc)
	if err != nil {
		writeError(c, err)
		return
	}
	end, err := calendarapp.ParseInstant(req.End, mode, loc)
	if err != nil {
		writeError(c, err)
		return
	}
	cmd := bookingapp.CommitRangeCommand{
		CommandID:       uuid.NewString(),
		Mode:            mode,
		PropertyID:      c.Param("id"),
		GuestID:         guestID(c),
		Start:           start,
		End:             end,
		Guests:          req.Guests,
		PromoPercent:    req.PromoPercent,
		ArrivalTime:     req.ArrivalTime,
		SpecialRequest:  req.SpecialRequest,
		IdempotencyKeyV: c.GetHeader(IdempotencyHeader),
	}
	result, err := commands.Dispatch[bookingapp.CommitRangeCommand, *dto.CommitResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

var _ BookingHTTP = BookingHandler{}
