package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"innkeep/internal/app/commands"
)

var (
	ErrKeyReused        = errors.New("middleware: idempotency key reused for a different command")
	errMissingPrototype = errors.New("middleware: idempotent command requires result prototype")
)

// IdempotentCommand is implemented by commands a client may safely resend,
// such as a range commit retried after a timeout.
type IdempotentCommand interface {
	commands.Command
	IdempotencyKey() string
	// ResultPrototype returns a pointer to a zero handler result.
	ResultPrototype() any
}

type IdempotencyRecord struct {
	Key        string
	Command    string
	Payload    []byte
	OccurredAt time.Time
}

type IdempotencyStore interface {
	Get(ctx context.Context, key string) (IdempotencyRecord, bool, error)
	Save(ctx context.Context, rec IdempotencyRecord) error
}

type ResultCodec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, out any) error
}

type JSONResultCodec struct{}

func (JSONResultCodec) Encode(v any) ([]byte, error)      { return json.Marshal(v) }
func (JSONResultCodec) Decode(data []byte, out any) error { return json.Unmarshal(data, out) }

// Idempotency replays the stored result of an earlier successful command with
// the same key. Keys of guest-scoped commands are namespaced by guest, so two
// guests can never replay each other's commits. Failures are not stored.
func Idempotency(store IdempotencyStore, codec ResultCodec) CommandMiddleware {
	if store == nil {
		panic("middleware: idempotency store required")
	}
	if codec == nil {
		codec = JSONResultCodec{}
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			idem, ok := cmd.(IdempotentCommand)
			if !ok || strings.TrimSpace(idem.IdempotencyKey()) == "" {
				return next.Dispatch(ctx, cmd)
			}
			key := storeKey(cmd, idem.IdempotencyKey())

			rec, found, err := store.Get(ctx, key)
			if err != nil {
				return nil, err
			}
			if found {
				return replay(rec, idem, codec)
			}

			res, err := next.Dispatch(ctx, cmd)
			if err != nil {
				return nil, err
			}
			rec = IdempotencyRecord{Key: key, Command: cmd.Key(), OccurredAt: time.Now().UTC()}
			if res != nil {
				if rec.Payload, err = codec.Encode(res); err != nil {
					return nil, err
				}
			}
			if err := store.Save(ctx, rec); err != nil {
				return nil, err
			}
			return res, nil
		})
	}
}

func storeKey(cmd commands.Command, key string) string {
	key = strings.TrimSpace(key)
	if scoped, ok := cmd.(GuestScoped); ok {
		if guest := strings.TrimSpace(scoped.GuestIdentity()); guest != "" {
			return guest + "/" + key
		}
	}
	return key
}

func replay(rec IdempotencyRecord, idem IdempotentCommand, codec ResultCodec) (any, error) {
	if rec.Command != "" && rec.Command != idem.Key() {
		return nil, ErrKeyReused
	}
	proto := idem.ResultPrototype()
	if proto == nil {
		return nil, errMissingPrototype
	}
	if len(rec.Payload) == 0 {
		return proto, nil
	}
	if err := codec.Decode(rec.Payload, proto); err != nil {
		return nil, err
	}
	return proto, nil
}
