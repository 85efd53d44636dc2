package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/IBM/sarama"

	"innkeep/internal/app/commands"
	"innkeep/internal/app/handlers/calendar"
	"innkeep/internal/domain/reservation"
)

var ErrUnroutableEvent = errors.New("kafka: reservation event names no property")

// reservationEvent accepts CloudEvents envelopes as produced by the booking
// service. The property comes from data.room_id / data.area_id or, failing
// that, a "room/12" style subject.
type reservationEvent struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Subject string `json:"subject"`
	Data    struct {
		RoomID flexibleID `json:"room_id"`
		AreaID flexibleID `json:"area_id"`
	} `json:"data"`
}

// flexibleID accepts both numeric and string ids.
type flexibleID string

func (f *flexibleID) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "null" {
		s = ""
	}
	*f = flexibleID(s)
	return nil
}

// ReservationEventHandler turns upstream reservation changes into cache invalidations.
type ReservationEventHandler struct {
	Commands commands.Bus
}

func (h ReservationEventHandler) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var evt reservationEvent
	if err := json.Unmarshal(msg.Value, &evt); err != nil {
		return fmt.Errorf("decode reservation event: %w", err)
	}
	ref, err := evt.property()
	if err != nil {
		return err
	}
	eventID := evt.ID
	if eventID == "" {
		eventID = fmt.Sprintf("%s/%d/%d", msg.Topic, msg.Partition, msg.Offset)
	}
	_, err = h.Commands.Dispatch(ctx, calendar.InvalidateWindowsCommand{
		EventID:    eventID,
		Mode:       ref.Mode,
		PropertyID: ref.ID,
	})
	return err
}

func (e reservationEvent) property() (reservation.PropertyRef, error) {
	switch {
	case e.Data.RoomID != "":
		return reservation.PropertyRef{Mode: reservation.ModeRoom, ID: string(e.Data.RoomID)}, nil
	case e.Data.AreaID != "":
		return reservation.PropertyRef{Mode: reservation.ModeVenue, ID: string(e.Data.AreaID)}, nil
	}
	kind, id, ok := strings.Cut(e.Subject, "/")
	if !ok || id == "" {
		return reservation.PropertyRef{}, ErrUnroutableEvent
	}
	mode, err := reservation.ParseMode(kind)
	if err != nil {
		return reservation.PropertyRef{}, fmt.Errorf("%w: %w", ErrUnroutableEvent, err)
	}
	return reservation.PropertyRef{Mode: mode, ID: id}, nil
}

var _ MessageHandler = ReservationEventHandler{}
