package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"skitbot/types"

	"github.com/IBM/sarama"
)

// ProducerConfig holds Kafka producer configuration.
type ProducerConfig struct {
	Brokers []string
	Topic   string
}

// EventProducer publishes composition events as JSON keyed by composition id.
type EventProducer struct {
	producer sarama.SyncProducer
	topic    string
}

// NewEventProducer creates a synchronous producer.
func NewEventProducer(cfg ProducerConfig) (*EventProducer, error) {
	if len(cfg.Brokers) == 0 || cfg.Topic == "" {
		return nil, fmt.Errorf("kafka producer needs brokers and a topic")
	}
	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V3_6_0_0
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Retry.Max = 3
	saramaConfig.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return NewEventProducerWith(producer, cfg.Topic), nil
}

// NewEventProducerWith wraps an existing producer.
func NewEventProducerWith(producer sarama.SyncProducer, topic string) *EventProducer {
	return &EventProducer{producer: producer, topic: topic}
}

// Publish sends event. Events for one composition land on one partition.
func (p *EventProducer) Publish(ctx context.Context, event types.CompositionEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	partition, offset, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.ID),
		Value: sarama.ByteEncoder(payload),
	})
	if err != nil {
		return fmt.Errorf("failed to publish %s event for %s: %w", event.Status, event.ID, err)
	}
	log.Printf("[kafka] 📤 published %s event for %s (partition=%d, offset=%d)", event.Status, event.ID, partition, offset)
	return nil
}

// Close flushes and closes the producer.
func (p *EventProducer) Close() error {
	return p.producer.Close()
}
