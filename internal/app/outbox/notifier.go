package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"innkeep/internal/app/policies"
)

const NotificationEvent = "notification.requested"

var ErrRecipientRequired = errors.New("outbox: notification recipient required")

// Notifier queues notifications as outbox records so they are published
// together with the events of the command that requested them.
type Notifier struct {
	Outbox Outbox
	Now    func() time.Time
}

func (n Notifier) Notify(ctx context.Context, msg policies.Notification) error {
	if n.Outbox == nil {
		return ErrSinkRequired
	}
	if msg.GuestID == "" {
		return ErrRecipientRequired
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	now := time.Now
	if n.Now != nil {
		now = n.Now
	}
	return n.Outbox.Add(ctx, EventRecord{
		ID:         uuid.NewString(),
		Name:       NotificationEvent,
		Payload:    payload,
		OccurredAt: now().UTC(),
		Aggregate:  msg.GuestID,
		Headers:    map[string]string{"template": msg.Template},
	})
}

var _ policies.Notifier = Notifier{}
