package kafka

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultProducerConfig(t *testing.T) {
	cfg := DefaultProducerConfig()
	assert.Equal(t, []string{"localhost:9092"}, cfg.Brokers)
	assert.Equal(t, "jellifit.events", cfg.Topic)
	assert.Positive(t, cfg.ProduceTimeout)
}

func TestNewProducer_NoBrokers(t *testing.T) {
	_, err := NewProducer(&ProducerConfig{Topic: "t"})
	assert.Error(t, err)
}

func TestPublish_UnencodablePayload(t *testing.T) {
	p, err := NewProducer(DefaultProducerConfig())
	require.NoError(t, err)
	defer p.Close()

	err = p.Publish(context.Background(), Message{Type: "bad", Payload: make(chan int)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "encode")
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), Message{Type: "event.created"}))
	p.Close()
}

func TestPublish_Integration(t *testing.T) {
	if os.Getenv("INTEGRATION_TEST") != "true" {
		t.Skip("Skipping integration test. Set INTEGRATION_TEST=true to run")
	}

	cfg := DefaultProducerConfig()
	if brokers := os.Getenv("TEST_KAFKA_BROKERS"); brokers != "" {
		cfg.Brokers = strings.Split(brokers, ",")
	}

	p, err := NewProducer(cfg)
	require.NoError(t, err)
	defer p.Close()

	err = p.Publish(context.Background(), Message{
		Key:     "team-lunch-123456",
		Type:    "event.created",
		Payload: map[string]string{"id": "team-lunch-123456"},
	})
	assert.NoError(t, err)
}
