package sink

import (
	"context"
	"fmt"
	"sync"

	"github.com/twmb/franz-go/pkg/kgo"
)

// RedpandaPublisher is a Kafka-compatible Publisher using franz-go.
type RedpandaPublisher struct {
	client *kgo.Client
	mu     sync.RWMutex
	closed bool
}

// NewRedpandaPublisher creates a producer for the given seed brokers
// (e.g., ["localhost:19092"]).
func NewRedpandaPublisher(brokers []string) (*RedpandaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("at least one broker address is required")
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.AllowAutoTopicCreation(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka client: %w", err)
	}

	return &RedpandaPublisher{client: client}, nil
}

// Publish produces one record and waits for the broker to acknowledge it.
func (p *RedpandaPublisher) Publish(ctx context.Context, topic string, key string, value []byte) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return fmt.Errorf("publisher is closed")
	}

	record := &kgo.Record{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
	}

	results := p.client.ProduceSync(ctx, record)
	if err := results.FirstErr(); err != nil {
		return fmt.Errorf("failed to produce message: %w", err)
	}

	return nil
}

// Close shuts down the producer. It is safe to call more than once.
func (p *RedpandaPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	p.client.Close()
	return nil
}
