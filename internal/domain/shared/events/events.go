// Package events holds the contract between domain types that emit facts
// (a committed range, for instance) and the outbox that publishes them.
package events

import "time"

type DomainEvent interface {
	EventName() string
	AggregateID() string
	OccurredAt() time.Time
}

// Recorder collects events raised during one operation. Embed it in the
// type that raises them; the zero value is ready to use.
type Recorder struct {
	raised []DomainEvent
}

func (r *Recorder) Record(evs ...DomainEvent) {
	for _, ev := range evs {
		if ev != nil {
			r.raised = append(r.raised, ev)
		}
	}
}

// Pending returns a copy of the recorded events without clearing them.
func (r *Recorder) Pending() []DomainEvent {
	return append([]DomainEvent(nil), r.raised...)
}

// Drain hands the recorded events over and resets the recorder.
func (r *Recorder) Drain() []DomainEvent {
	out := r.raised
	r.raised = nil
	return out
}
