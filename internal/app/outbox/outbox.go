package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"innkeep/internal/domain/shared/events"
)

var ErrSinkRequired = errors.New("outbox: sink required")

type EventRecord struct {
	ID         string
	Name       string
	Payload    []byte
	OccurredAt time.Time
	Aggregate  string
	Headers    map[string]string
}

type Outbox interface {
	Add(ctx context.Context, record EventRecord) error
	Flush(ctx context.Context) error
}

// Sink persists records for the publishing worker.
type Sink interface {
	Append(ctx context.Context, records []EventRecord) error
}

type EventEncoder interface {
	Encode(ev events.DomainEvent) (EventRecord, error)
}

type JSONEventEncoder struct {
	IDGenerator func() string
}

func (e JSONEventEncoder) Encode(ev events.DomainEvent) (EventRecord, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return EventRecord{}, err
	}
	idGen := e.IDGenerator
	if idGen == nil {
		idGen = uuid.NewString
	}
	return EventRecord{
		ID:         idGen(),
		Name:       ev.EventName(),
		Payload:    payload,
		OccurredAt: ev.OccurredAt(),
		Aggregate:  ev.AggregateID(),
		Headers:    map[string]string{},
	}, nil
}

func RecordDomainEvents(ctx context.Context, box Outbox, encoder EventEncoder, evs []events.DomainEvent) error {
	if box == nil || len(evs) == 0 {
		return nil
	}
	if encoder == nil {
		encoder = JSONEventEncoder{}
	}
	for _, ev := range evs {
		rec, err := encoder.Encode(ev)
		if err != nil {
			return err
		}
		if err := box.Add(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

type bufferKey struct{}

type buffer struct {
	mu      sync.Mutex
	records []EventRecord
}

// WithBuffer scopes Add calls on ctx to a private buffer that Flush hands to the sink.
func WithBuffer(ctx context.Context) context.Context {
	return context.WithValue(ctx, bufferKey{}, &buffer{})
}

// Buffered collects records per command and writes them on Flush. Without a
// buffer on the context, Add writes through.
type Buffered struct {
	Sink Sink
}

func NewBuffered(sink Sink) *Buffered {
	if sink == nil {
		panic(ErrSinkRequired)
	}
	return &Buffered{Sink: sink}
}

func (b *Buffered) Add(ctx context.Context, record EventRecord) error {
	buf, ok := ctx.Value(bufferKey{}).(*buffer)
	if !ok {
		return b.Sink.Append(ctx, []EventRecord{record})
	}
	buf.mu.Lock()
	buf.records = append(buf.records, record)
	buf.mu.Unlock()
	return nil
}

func (b *Buffered) Flush(ctx context.Context) error {
	buf, ok := ctx.Value(bufferKey{}).(*buffer)
	if !ok {
		return nil
	}
	buf.mu.Lock()
	records := buf.records
	buf.records = nil
	buf.mu.Unlock()
	if len(records) == 0 {
		return nil
	}
	return b.Sink.Append(ctx, records)
}

var _ Outbox = (*Buffered)(nil)
