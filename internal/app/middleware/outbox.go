package middleware

import (
	"context"
	"fmt"

	"innkeep/internal/app/commands"
	"innkeep/internal/app/outbox"
)

// OutboxFlush gives each command a private event buffer and hands it to the
// sink only when the handler succeeds. A failed command leaves no records.
func OutboxFlush(box outbox.Outbox) CommandMiddleware {
	if box == nil {
		panic("middleware: outbox required")
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			scoped := outbox.WithBuffer(ctx)
			res, err := next.Dispatch(scoped, cmd)
			if err != nil {
				return nil, err
			}
			if err := box.Flush(scoped); err != nil {
				return nil, fmt.Errorf("flush events of %s: %w", cmd.Key(), err)
			}
			return res, nil
		})
	}
}
