package middleware

import (
	"context"

	"innkeep/internal/app/commands"
	"innkeep/internal/app/queries"
)

// Validator checks struct tags on commands and queries. validation.Validator
// is the production implementation.
type Validator interface {
	Validate(ctx context.Context, message any) error
}

// Validation rejects malformed commands before they reach a handler.
func Validation(v Validator) CommandMiddleware {
	mustValidator(v)
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			if err := v.Validate(ctx, cmd); err != nil {
				return nil, err
			}
			return next.Dispatch(ctx, cmd)
		})
	}
}

// QueryValidation is Validation for the read side.
func QueryValidation(v Validator) QueryMiddleware {
	mustValidator(v)
	return func(next queries.Bus) queries.Bus {
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			if err := v.Validate(ctx, q); err != nil {
				return nil, err
			}
			return next.Ask(ctx, q)
		})
	}
}

func mustValidator(v Validator) {
	if v == nil {
		panic("middleware: validator required")
	}
}
