package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/IBM/sarama"
)

// MessageHandler processes one consumed message.
type MessageHandler interface {
	// HandleMessage reports whether the message should be marked as consumed.
	// Unmarked messages are redelivered after the next rebalance.
	HandleMessage(ctx context.Context, message []byte) (shouldMark bool, err error)
}

// ConsumerConfig holds Kafka consumer configuration.
type ConsumerConfig struct {
	Brokers []string
	Topic   string
	GroupID string
	Handler MessageHandler
	// FromOldest starts a new group at the oldest offset instead of the newest.
	FromOldest bool
}

// Consumer reads one topic as part of a consumer group.
type Consumer struct {
	group   sarama.ConsumerGroup
	handler MessageHandler
	topic   string
	groupID string

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// NewConsumer creates a consumer group client. Nothing is consumed until Start.
func NewConsumer(cfg ConsumerConfig) (*Consumer, error) {
	if len(cfg.Brokers) == 0 || cfg.Topic == "" || cfg.GroupID == "" {
		return nil, fmt.Errorf("kafka consumer needs brokers, topic and group id")
	}
	if cfg.Handler == nil {
		return nil, fmt.Errorf("kafka consumer needs a handler")
	}

	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V3_6_0_0
	saramaConfig.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetNewest
	if cfg.FromOldest {
		saramaConfig.Consumer.Offsets.Initial = sarama.OffsetOldest
	}
	saramaConfig.Consumer.Return.Errors = true

	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}
	return newConsumer(group, cfg), nil
}

func newConsumer(group sarama.ConsumerGroup, cfg ConsumerConfig) *Consumer {
	return &Consumer{
		group:   group,
		handler: cfg.Handler,
		topic:   cfg.Topic,
		groupID: cfg.GroupID,
		done:    make(chan struct{}),
	}
}

// Start joins the group and consumes in the background until ctx is done or
// Close is called. It returns once the first session is set up.
func (c *Consumer) Start(ctx context.Context) error {
	ctx, c.cancel = context.WithCancel(ctx)
	ready := make(chan struct{})
	handler := &groupHandler{handler: c.handler, ready: ready}

	go func() {
		defer close(c.done)
		for {
			if err := c.group.Consume(ctx, []string{c.topic}, handler); err != nil {
				if errors.Is(err, sarama.ErrClosedConsumerGroup) || errors.Is(err, context.Canceled) {
					return
				}
				log.Printf("[kafka] consume error on %s: %v", c.topic, err)
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()

	go func() {
		for err := range c.group.Errors() {
			log.Printf("[kafka] ❌ consumer error: %v", err)
		}
	}()

	select {
	case <-ready:
		log.Printf("[kafka] ✅ consumer started (group: %s, topic: %s)", c.groupID, c.topic)
		return nil
	case <-c.done:
		return fmt.Errorf("kafka consumer for %s stopped before joining the group", c.topic)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close leaves the group and waits for the consume loop to exit.
func (c *Consumer) Close() error {
	var err error
	c.once.Do(func() {
		log.Printf("[kafka] closing consumer for %s", c.topic)
		if c.cancel != nil {
			c.cancel()
		}
		err = c.group.Close()
		if c.cancel != nil {
			<-c.done
		}
	})
	return err
}

// groupHandler implements sarama.ConsumerGroupHandler.
type groupHandler struct {
	handler MessageHandler
	ready   chan struct{}
	once    sync.Once
}

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error {
	h.once.Do(func() { close(h.ready) })
	return nil
}

func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *groupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok || message == nil {
				return nil
			}
			log.Printf("[kafka] 📥 received message: topic=%s partition=%d offset=%d",
				message.Topic, message.Partition, message.Offset)

			shouldMark, err := h.handler.HandleMessage(session.Context(), message.Value)
			if err != nil {
				log.Printf("[kafka] ❌ failed to handle message at offset %d: %v", message.Offset, err)
			}
			if shouldMark {
				session.MarkMessage(message, "")
			}

		case <-session.Context().Done():
			return nil
		}
	}
}

// TypedMessageHandler decodes JSON messages into T before processing them.
type TypedMessageHandler[T any] struct {
	// Validate returns an error for messages that must be skipped.
	Validate func(msg *T) error
	// Process handles a decoded, valid message.
	Process func(ctx context.Context, msg *T) error
	// Permanent reports processing errors that will never succeed on redelivery.
	// Such messages are marked and skipped.
	Permanent func(err error) bool
	// MarkInvalid marks undecodable and invalid messages so they are not redelivered.
	MarkInvalid bool
}

// HandleMessage implements MessageHandler.
func (h *TypedMessageHandler[T]) HandleMessage(ctx context.Context, message []byte) (bool, error) {
	var msg T
	if err := json.Unmarshal(message, &msg); err != nil {
		return h.MarkInvalid, fmt.Errorf("failed to unmarshal message: %w", err)
	}
	if h.Validate != nil {
		if err := h.Validate(&msg); err != nil {
			return h.MarkInvalid, fmt.Errorf("invalid message: %w", err)
		}
	}
	if err := h.Process(ctx, &msg); err != nil {
		if h.Permanent != nil && h.Permanent(err) {
			return true, err
		}
		return false, err
	}
	return true, nil
}
