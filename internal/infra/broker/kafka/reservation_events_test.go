package kafka

import (
	"context"
	"log/slog"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"innkeep/internal/app/commands"
	"innkeep/internal/app/handlers/calendar"
	"innkeep/internal/domain/reservation"
)

type recordingBus struct {
	dispatched []commands.Command
}

func (b *recordingBus) Dispatch(ctx context.Context, cmd commands.Command) (any, error) {
	b.dispatched = append(b.dispatched, cmd)
	return calendar.InvalidateResult{}, nil
}

func TestReservationEventHandlerRoutesProperty(t *testing.T) {
	cases := []struct {
		name   string
		value  string
		wantID string
		mode   reservation.Mode
		propID string
	}{
		{"numeric room id", `{"id":"e1","type":"reservation.created.v1","data":{"room_id":12}}`, "e1", reservation.ModeRoom, "12"},
		{"string area id", `{"id":"e2","data":{"area_id":"4"}}`, "e2", reservation.ModeVenue, "4"},
		{"subject fallback", `{"id":"e3","subject":"areas/9","data":{}}`, "e3", reservation.ModeVenue, "9"},
		{"offset as event id", `{"data":{"room_id":"3"}}`, "reservation.events.v1/1/42", reservation.ModeRoom, "3"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			bus := &recordingBus{}
			h := ReservationEventHandler{Commands: bus}
			msg := &sarama.ConsumerMessage{Topic: "reservation.events.v1", Partition: 1, Offset: 42, Value: []byte(tc.value)}

			require.NoError(t, h.Handle(context.Background(), msg))
			require.Len(t, bus.dispatched, 1)
			cmd, ok := bus.dispatched[0].(calendar.InvalidateWindowsCommand)
			require.True(t, ok)
			assert.Equal(t, tc.wantID, cmd.EventID)
			assert.Equal(t, tc.mode, cmd.Mode)
			assert.Equal(t, tc.propID, cmd.PropertyID)
		})
	}
}

func TestReservationEventHandlerRejectsUnroutable(t *testing.T) {
	bus := &recordingBus{}
	h := ReservationEventHandler{Commands: bus}

	err := h.Handle(context.Background(), &sarama.ConsumerMessage{Value: []byte(`{"id":"e1","subject":"guest-7"}`)})
	assert.ErrorIs(t, err, ErrUnroutableEvent)

	err = h.Handle(context.Background(), &sarama.ConsumerMessage{Value: []byte(`{"id":"e1","subject":"boats/7"}`)})
	assert.ErrorIs(t, err, ErrUnroutableEvent)
	assert.ErrorIs(t, err, reservation.ErrUnknownMode)

	err = h.Handle(context.Background(), &sarama.ConsumerMessage{Value: []byte(`not json`)})
	assert.Error(t, err)
	assert.Empty(t, bus.dispatched)
}

func TestProducerPublishesWithHeaders(t *testing.T) {
	sync := mocks.NewSyncProducer(t, nil)
	sync.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		assert.Equal(t, "booking.events.v1", msg.Topic)
		key, err := msg.Key.Encode()
		require.NoError(t, err)
		assert.Equal(t, "c-1", string(key))
		require.Len(t, msg.Headers, 1)
		assert.Equal(t, "content-type", string(msg.Headers[0].Key))
		return nil
	})
	p := NewProducerFrom(sync)
	defer p.Close()

	err := p.Publish(context.Background(), "booking.events.v1", "c-1", []byte(`{}`), map[string]string{"content-type": "application/cloudevents+json"})
	require.NoError(t, err)
}

func TestProducerRequiresBrokers(t *testing.T) {
	_, err := NewProducer(nil, "innkeep", nil)
	assert.ErrorIs(t, err, ErrNoBrokers)
	_, err = NewConsumer(nil, "innkeep", nil, ReservationEventHandler{}, nil)
	assert.ErrorIs(t, err, ErrNoBrokers)
}

func TestProducerHonoursCancelledContext(t *testing.T) {
	p := NewProducerFrom(mocks.NewSyncProducer(t, nil))
	defer p.Close()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Publish(ctx, "t", "k", nil, nil), context.Canceled)
}

type stubSession struct {
	ctx    context.Context
	marked []int64
}

func (s *stubSession) Claims() map[string][]int32                        { return nil }
func (s *stubSession) MemberID() string                                  { return "m-1" }
func (s *stubSession) GenerationID() int32                               { return 1 }
func (s *stubSession) MarkOffset(string, int32, int64, string)           {}
func (s *stubSession) Commit()                                           {}
func (s *stubSession) ResetOffset(string, int32, int64, string)          {}
func (s *stubSession) MarkMessage(msg *sarama.ConsumerMessage, _ string) { s.marked = append(s.marked, msg.Offset) }
func (s *stubSession) Context() context.Context                          { return s.ctx }

type stubClaim struct {
	messages chan *sarama.ConsumerMessage
}

func (c stubClaim) Topic() string                            { return "reservation.events.v1" }
func (c stubClaim) Partition() int32                         { return 0 }
func (c stubClaim) InitialOffset() int64                     { return 0 }
func (c stubClaim) HighWaterMarkOffset() int64               { return 0 }
func (c stubClaim) Messages() <-chan *sarama.ConsumerMessage { return c.messages }

func TestConsumeClaimMarksEveryMessage(t *testing.T) {
	bus := &recordingBus{}
	claims := claimHandler{handler: ReservationEventHandler{Commands: bus}, logger: slog.Default()}

	messages := make(chan *sarama.ConsumerMessage, 2)
	messages <- &sarama.ConsumerMessage{Offset: 1, Value: []byte(`{"id":"e1","data":{"room_id":7}}`)}
	messages <- &sarama.ConsumerMessage{Offset: 2, Value: []byte(`garbage`)}
	close(messages)

	sess := &stubSession{ctx: context.Background()}
	require.NoError(t, claims.ConsumeClaim(sess, stubClaim{messages: messages}))
	assert.Equal(t, []int64{1, 2}, sess.marked)
	assert.Len(t, bus.dispatched, 1)
}
