package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// ProducerConfig holds Kafka producer configuration
type ProducerConfig struct {
	Brokers        []string
	ClientID       string
	Topic          string
	ProduceTimeout time.Duration
}

// DefaultProducerConfig returns default configuration
func DefaultProducerConfig() *ProducerConfig {
	return &ProducerConfig{
		Brokers:        []string{"localhost:9092"},
		ClientID:       "jelli-fit-api",
		Topic:          "jellifit.events",
		ProduceTimeout: 5 * time.Second,
	}
}

// Message is an outbound domain event
type Message struct {
	Key     string
	Type    string
	Payload any
}

// Publisher publishes domain events
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
	Close()
}

// Producer publishes JSON messages to a single topic
type Producer struct {
	client *kgo.Client
	config *ProducerConfig
}

// NewProducer creates a franz-go client bound to cfg.Topic
func NewProducer(cfg *ProducerConfig) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka producer requires at least one broker")
	}
	if cfg.ProduceTimeout <= 0 {
		cfg.ProduceTimeout = 5 * time.Second
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ClientID(cfg.ClientID),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.ProducerLinger(10*time.Millisecond),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka client: %w", err)
	}

	return &Producer{client: client, config: cfg}, nil
}

// Publish encodes msg.Payload as JSON and waits for the broker ack
func (p *Producer) Publish(ctx context.Context, msg Message) error {
	value, err := json.Marshal(msg.Payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s message: %w", msg.Type, err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.config.ProduceTimeout)
	defer cancel()

	record := &kgo.Record{
		Key:   []byte(msg.Key),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "type", Value: []byte(msg.Type)},
		},
	}

	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("failed to publish %s message: %w", msg.Type, err)
	}
	return nil
}

// Close flushes and closes the client
func (p *Producer) Close() {
	p.client.Close()
}

// NopPublisher discards every message
type NopPublisher struct{}

// Publish implements Publisher
func (NopPublisher) Publish(context.Context, Message) error { return nil }

// Close implements Publisher
func (NopPublisher) Close() {}
