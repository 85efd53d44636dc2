package kafka

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/IBM/sarama"
)

type MessageHandler interface {
	Handle(ctx context.Context, msg *sarama.ConsumerMessage) error
}

// Consumer reads the booking service's reservation change topic and hands
// each message to a MessageHandler.
type Consumer struct {
	group   sarama.ConsumerGroup
	handler MessageHandler
	logger  *slog.Logger
	// HandleTimeout bounds one Handle call; zero means no limit.
	HandleTimeout time.Duration
}

func NewConsumer(brokers []string, groupID string, cfg *sarama.Config, handler MessageHandler, logger *slog.Logger) (*Consumer, error) {
	if len(brokers) == 0 {
		return nil, ErrNoBrokers
	}
	if cfg == nil {
		cfg = sarama.NewConfig()
	}
	cfg.Version = sarama.V2_5_0_0
	cfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	cfg.Consumer.Return.Errors = true
	cfg.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategySticky()}
	group, err := sarama.NewConsumerGroup(brokers, groupID, cfg)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{group: group, handler: handler, logger: logger, HandleTimeout: 10 * time.Second}, nil
}

// Run consumes topics until ctx ends, rejoining the group after each rebalance.
func (c *Consumer) Run(ctx context.Context, topics []string) error {
	go func() {
		for err := range c.group.Errors() {
			c.logger.Warn("kafka consumer error", "error", err)
		}
	}()
	claims := claimHandler{handler: c.handler, logger: c.logger, timeout: c.HandleTimeout}
	for {
		err := c.group.Consume(ctx, topics, claims)
		switch {
		case ctx.Err() != nil:
			return ctx.Err()
		case errors.Is(err, sarama.ErrClosedConsumerGroup):
			return nil
		case err != nil:
			return err
		}
	}
}

func (c *Consumer) Close() error {
	return c.group.Close()
}

type claimHandler struct {
	handler MessageHandler
	logger  *slog.Logger
	timeout time.Duration
}

func (h claimHandler) Setup(sess sarama.ConsumerGroupSession) error {
	h.logger.Info("kafka partitions assigned", "member", sess.MemberID(), "claims", sess.Claims())
	return nil
}

func (h claimHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim marks every message, handled or not. A lost invalidation only
// delays freshness until the window cache TTL runs out.
func (h claimHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case <-sess.Context().Done():
			return nil
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			if err := h.handle(sess.Context(), msg); err != nil {
				h.logger.Warn("kafka message skipped", "topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset, "error", err)
			}
			sess.MarkMessage(msg, "")
		}
	}
}

func (h claimHandler) handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}
	return h.handler.Handle(ctx, msg)
}
