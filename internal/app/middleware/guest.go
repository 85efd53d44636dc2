package middleware

import (
	"context"
	"errors"
	"strings"

	"innkeep/internal/app/commands"
)

var ErrGuestRequired = errors.New("middleware: guest identity required")

// GuestScoped is implemented by commands only an identified guest may issue.
type GuestScoped interface {
	GuestIdentity() string
}

// RequireGuest rejects guest-scoped commands without a guest id. Anonymous
// visitors can still browse calendars and quotes.
func RequireGuest() CommandMiddleware {
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			if scoped, ok := cmd.(GuestScoped); ok && strings.TrimSpace(scoped.GuestIdentity()) == "" {
				return nil, ErrGuestRequired
			}
			return next.Dispatch(ctx, cmd)
		})
	}
}
