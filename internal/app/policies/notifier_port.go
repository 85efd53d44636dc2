package policies

import "context"

// Notification asks the notification service to message a guest using one
// of its templates.
type Notification struct {
	GuestID  string `json:"to"`
	Template string `json:"template"`
	Data     any    `json:"data,omitempty"`
}

type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}
