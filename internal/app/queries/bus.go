// Package queries routes read requests (calendars, quotes, venue slots).
package queries

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	ErrHandlerNotFound = errors.New("queries: handler not found")
	ErrInvalidQuery    = errors.New("queries: invalid query for handler")
	ErrResultType      = errors.New("queries: result type mismatch")
	ErrNilBus          = errors.New("queries: nil bus")
)

type Query interface {
	Key() string
}

type Handler[Q Query, R any] interface {
	Handle(ctx context.Context, query Q) (R, error)
}

type HandlerFunc[Q Query, R any] func(ctx context.Context, query Q) (R, error)

func (f HandlerFunc[Q, R]) Handle(ctx context.Context, query Q) (R, error) { return f(ctx, query) }

type Bus interface {
	Ask(ctx context.Context, query Query) (any, error)
}

// Ask runs query on bus and asserts the handler's result type.
func Ask[Q Query, R any](ctx context.Context, bus Bus, query Q) (R, error) {
	var zero R
	if bus == nil {
		return zero, ErrNilBus
	}
	res, err := bus.Ask(ctx, query)
	switch {
	case err != nil:
		return zero, err
	case res == nil:
		return zero, nil
	}
	if value, ok := res.(R); ok {
		return value, nil
	}
	return zero, fmt.Errorf("%w: %s returned %T", ErrResultType, query.Key(), res)
}

type route func(ctx context.Context, q Query) (any, error)

type InMemoryBus struct {
	mu     sync.RWMutex
	routes map[string]route
}

func NewInMemoryBus() *InMemoryBus {
	return &InMemoryBus{routes: make(map[string]route)}
}

func (b *InMemoryBus) Ask(ctx context.Context, query Query) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.RLock()
	fn, ok := b.routes[query.Key()]
	b.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrHandlerNotFound, query.Key())
	}
	return fn(ctx, query)
}

func RegisterHandler[Q Query, R any](bus *InMemoryBus, key string, handler Handler[Q, R]) {
	if bus == nil {
		panic(ErrNilBus.Error())
	}
	if key == "" {
		panic("queries: empty key registration")
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	if _, dup := bus.routes[key]; dup {
		panic("queries: duplicate registration for " + key)
	}
	bus.routes[key] = func(ctx context.Context, raw Query) (any, error) {
		q, ok := raw.(Q)
		if !ok {
			return nil, fmt.Errorf("%w: %s got %T", ErrInvalidQuery, key, raw)
		}
		return handler.Handle(ctx, q)
	}
}
