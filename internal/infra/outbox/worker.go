package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrWorkerNotConfigured = errors.New("outbox: worker missing dependencies")

// parkedFor pushes a record that exhausted MaxAttempts out of the claim window.
const parkedFor = 365 * 24 * time.Hour

type Producer interface {
	Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error
}

// Worker publishes committed ranges and queued notifications as structured
// CloudEvents. "booking.range_committed" goes to "<prefix>booking.events.v1",
// "notification.requested" to "<prefix>notification.events.v1".
type Worker struct {
	Queue       Queue
	Producer    Producer
	Interval    time.Duration
	TopicPrefix string
	Source      string
	ID          string
	Backoff     []time.Duration
	// MaxAttempts parks a record after that many failed publishes; zero retries forever.
	MaxAttempts int
	// BatchSize caps records published per tick; zero drains the queue.
	BatchSize int
	Logger    *slog.Logger
}

type cloudEvent struct {
	SpecVersion     string          `json:"specversion"`
	ID              string          `json:"id"`
	Type            string          `json:"type"`
	Source          string          `json:"source"`
	Subject         string          `json:"subject,omitempty"`
	Time            time.Time       `json:"time"`
	DataContentType string          `json:"datacontenttype"`
	TraceParent     string          `json:"traceparent,omitempty"`
	Data            json.RawMessage `json:"data"`
}

func (w *Worker) Run(ctx context.Context) error {
	if w.Queue == nil || w.Producer == nil {
		return ErrWorkerNotConfigured
	}
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	ticker := time.NewTicker(w.interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.tick(ctx); err != nil && ctx.Err() == nil {
				w.logger().Error("outbox claim failed", "worker", w.ID, "error", err)
			}
		}
	}
}

func (w *Worker) tick(ctx context.Context) error {
	for n := 0; w.BatchSize <= 0 || n < w.BatchSize; n++ {
		claimed, err := w.ProcessOnce(ctx)
		if err != nil || !claimed {
			return err
		}
	}
	return nil
}

// ProcessOnce claims and publishes one record, reporting whether one was due.
func (w *Worker) ProcessOnce(ctx context.Context) (bool, error) {
	doc, err := w.Queue.Claim(ctx, w.ID)
	if err != nil || doc == nil {
		return false, err
	}
	topic := w.topicFor(doc.Name)
	payload, err := w.envelope(doc)
	if err == nil {
		err = w.Producer.Publish(ctx, topic, doc.Aggregate, payload, w.headers(doc))
	}
	if err != nil {
		return true, w.fail(ctx, doc, topic, err)
	}
	return true, w.Queue.MarkSent(ctx, doc.ID)
}

func (w *Worker) fail(ctx context.Context, doc *EventDocument, topic string, cause error) error {
	attempts := doc.Attempts + 1
	next := w.nextRetry(doc.Attempts)
	if w.MaxAttempts > 0 && attempts >= w.MaxAttempts {
		next = time.Now().Add(parkedFor)
		w.logger().Error("outbox record parked", "event_id", doc.ID, "event", doc.Name, "attempts", attempts, "error", cause)
	} else {
		w.logger().Warn("outbox publish failed", "event_id", doc.ID, "topic", topic, "attempts", attempts, "error", cause)
	}
	return w.Queue.MarkFailed(ctx, doc.ID, next, cause.Error())
}

func (w *Worker) envelope(doc *EventDocument) ([]byte, error) {
	if !json.Valid(doc.Payload) {
		return nil, errors.New("outbox: payload is not valid JSON")
	}
	return json.Marshal(cloudEvent{
		SpecVersion:     "1.0",
		ID:              doc.ID,
		Type:            doc.Name + ".v1",
		Source:          w.source(),
		Subject:         doc.Aggregate,
		Time:            doc.OccurredAt,
		DataContentType: "application/json",
		TraceParent:     doc.Headers["traceparent"],
		Data:            doc.Payload,
	})
}

func (w *Worker) headers(doc *EventDocument) map[string]string {
	headers := make(map[string]string, len(doc.Headers)+1)
	for k, v := range doc.Headers {
		headers[k] = v
	}
	headers["content-type"] = "application/cloudevents+json"
	return headers
}

func (w *Worker) topicFor(name string) string {
	base, _, _ := strings.Cut(name, ".")
	return w.TopicPrefix + base + ".events.v1"
}

func (w *Worker) interval() time.Duration {
	if w.Interval <= 0 {
		return 500 * time.Millisecond
	}
	return w.Interval
}

func (w *Worker) nextRetry(attempts int) time.Time {
	switch {
	case len(w.Backoff) == 0:
		return time.Now().Add(5 * time.Second)
	case attempts < len(w.Backoff):
		return time.Now().Add(w.Backoff[attempts])
	default:
		return time.Now().Add(w.Backoff[len(w.Backoff)-1])
	}
}

func (w *Worker) source() string {
	if w.Source != "" {
		return w.Source
	}
	return "app://innkeep"
}

func (w *Worker) logger() *slog.Logger {
	if w.Logger == nil {
		return slog.Default()
	}
	return w.Logger
}
