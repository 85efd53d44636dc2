package ginserver

import (
	"errors"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"innkeep/internal/app/dto"
	bookingapp "innkeep/internal/app/handlers/booking"
	calendarapp "innkeep/internal/app/handlers/calendar"
	"innkeep/internal/app/middleware"
	"innkeep/internal/app/policies"
	"innkeep/internal/app/validation"
	domainbooking "innkeep/internal/domain/booking"
	"innkeep/internal/domain/pricing"
	"innkeep/internal/domain/reservation"
	"innkeep/internal/domain/selection"
	"innkeep/internal/domain/shared/daterange"
)

var badRequest = []error{
	reservation.ErrUnknownMode,
	reservation.ErrPropertyIDNil,
	daterange.ErrInvalidRange,
	daterange.ErrInvalidDay,
	selection.ErrEndWithoutStart,
	calendarapp.ErrMalformedInstant,
	calendarapp.ErrNotVenue,
	calendarapp.ErrUnknownEvent,
	domainbooking.ErrArrivalTime,
	domainbooking.ErrSpecialRequestSize,
	pricing.ErrNegativeUnits,
	pricing.ErrTotalOverflow,
}

// writeError maps application errors onto HTTP statuses.
func writeError(c *gin.Context, err error) {
	var fields validation.Errors
	if errors.As(err, &fields) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": fields})
		return
	}
	var blocked *bookingapp.BlockedError
	if errors.As(err, &blocked) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "assessment": dto.MapAssessment(blocked.Assessment)})
		return
	}
	for _, target := range badRequest {
		if errors.Is(err, target) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	switch {
	case errors.Is(err, middleware.ErrGuestRequired):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, policies.ErrPropertyNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, middleware.ErrKeyReused):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, calendarapp.ErrWindowUnavailable), errors.Is(err, policies.ErrUpstream):
		c.JSON(http.StatusBadGateway, gin.H{"status": calendarapp.StatusError, "error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
