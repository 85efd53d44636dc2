package obs

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	RequestIDHeader = "X-Request-ID"
	// maxRequestIDLen bounds client-supplied ids before they reach the logs.
	maxRequestIDLen = 128
)

type Middleware struct {
	Logger *slog.Logger
	// GuestHeader, when set, is logged with each request.
	GuestHeader string
}

// RequestID reuses the caller's X-Request-ID or mints one, and stores it on
// the request context for RequestIDFromContext and the logger.
func (m Middleware) RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > maxRequestIDLen {
			id = uuid.NewString()
		}
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), requestIDKey{}, id))
		c.Writer.Header().Set(RequestIDHeader, id)
		c.Next()
	}
}

// AccessLog logs one line per request; 5xx responses log at error level.
func (m Middleware) AccessLog() gin.HandlerFunc {
	log := m.Logger
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if log == nil {
			return
		}
		level := slog.LevelInfo
		if c.Writer.Status() >= 500 {
			level = slog.LevelError
		}
		attrs := []any{
			"method", c.Request.Method,
			"route", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		}
		if m.GuestHeader != "" {
			if guest := c.GetHeader(m.GuestHeader); guest != "" {
				attrs = append(attrs, "guest_id", guest)
			}
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "errors", c.Errors.String())
		}
		log.Log(c.Request.Context(), level, "http", attrs...)
	}
}

type requestIDKey struct{}

func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
