package policies

import "context"

// Inbox remembers consumed event ids. Seen records id and reports whether it
// had been recorded before.
type Inbox interface {
	Seen(ctx context.Context, eventID string) (bool, error)
}
