package middleware

import (
	"context"
	"log/slog"
	"time"

	"innkeep/internal/app/commands"
	"innkeep/internal/app/queries"
)

// CommandLogging logs every command with its guest and idempotency key when
// the command carries them. Failures log at warn, successes at debug.
func CommandLogging(logger *slog.Logger) CommandMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			started := time.Now()
			res, err := next.Dispatch(ctx, cmd)
			logOutcome(ctx, logger, "command", cmd.Key(), commandAttrs(cmd), started, err)
			if err != nil {
				return nil, err
			}
			return res, nil
		})
	}
}

func QueryLogging(logger *slog.Logger) QueryMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next queries.Bus) queries.Bus {
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			started := time.Now()
			res, err := next.Ask(ctx, q)
			logOutcome(ctx, logger, "query", q.Key(), nil, started, err)
			if err != nil {
				return nil, err
			}
			return res, nil
		})
	}
}

func commandAttrs(cmd commands.Command) []any {
	var attrs []any
	if scoped, ok := cmd.(GuestScoped); ok && scoped.GuestIdentity() != "" {
		attrs = append(attrs, "guest_id", scoped.GuestIdentity())
	}
	if idem, ok := cmd.(IdempotentCommand); ok && idem.IdempotencyKey() != "" {
		attrs = append(attrs, "idempotency_key", idem.IdempotencyKey())
	}
	return attrs
}

func logOutcome(ctx context.Context, logger *slog.Logger, kind, key string, attrs []any, started time.Time, err error) {
	attrs = append(attrs, kind, key, "duration", time.Since(started))
	if err != nil {
		logger.WarnContext(ctx, kind+" failed", append(attrs, "error", err)...)
		return
	}
	logger.DebugContext(ctx, kind+" handled", attrs...)
}
