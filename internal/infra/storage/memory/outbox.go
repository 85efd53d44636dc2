package memory

import (
	"context"
	"sync"
	"time"

	appoutbox "innkeep/internal/app/outbox"
	infraoutbox "innkeep/internal/infra/outbox"
)

// Outbox keeps event records in memory until the worker publishes them.
type Outbox struct {
	mu      sync.Mutex
	records []*infraoutbox.EventDocument
}

func NewOutbox() *Outbox {
	return &Outbox{}
}

func (o *Outbox) Append(ctx context.Context, records []appoutbox.EventRecord) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	now := time.Now().UTC()
	for _, r := range records {
		o.records = append(o.records, &infraoutbox.EventDocument{
			ID:          r.ID,
			Name:        r.Name,
			Payload:     r.Payload,
			OccurredAt:  r.OccurredAt,
			Aggregate:   r.Aggregate,
			Headers:     r.Headers,
			State:       infraoutbox.StateNew,
			NextAttempt: now,
		})
	}
	return nil
}

func (o *Outbox) Claim(ctx context.Context, workerID string) (*infraoutbox.EventDocument, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	now := time.Now().UTC()
	for _, doc := range o.records {
		if (doc.State == infraoutbox.StateNew || doc.State == infraoutbox.StateFailed) && !doc.NextAttempt.After(now) {
			doc.State = infraoutbox.StateClaimed
			doc.ClaimedBy = workerID
			doc.ClaimedAt = now
			claimed := *doc
			return &claimed, nil
		}
	}
	return nil, nil
}

func (o *Outbox) MarkSent(ctx context.Context, id string) error {
	return o.update(id, func(doc *infraoutbox.EventDocument) {
		doc.State = infraoutbox.StateSent
		doc.SentAt = time.Now().UTC()
	})
}

func (o *Outbox) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	return o.update(id, func(doc *infraoutbox.EventDocument) {
		doc.State = infraoutbox.StateFailed
		doc.NextAttempt = next
		doc.LastError = errMsg
		doc.Attempts++
	})
}

// Records returns a snapshot of every stored record.
func (o *Outbox) Records() []infraoutbox.EventDocument {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]infraoutbox.EventDocument, 0, len(o.records))
	for _, doc := range o.records {
		out = append(out, *doc)
	}
	return out
}

func (o *Outbox) update(id string, fn func(*infraoutbox.EventDocument)) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, doc := range o.records {
		if doc.ID == id {
			fn(doc)
			return nil
		}
	}
	return nil
}

var (
	_ appoutbox.Sink    = (*Outbox)(nil)
	_ infraoutbox.Queue = (*Outbox)(nil)
)
