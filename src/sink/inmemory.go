package sink

import (
	"context"
	"fmt"
	"sync"
)

// InMemoryPublisher records messages and fans them out to subscribers.
// Useful for testing and for runs without a broker.
type InMemoryPublisher struct {
	mu          sync.RWMutex
	messages    []Message
	subscribers map[string][]chan Message
	closed      bool
}

// NewInMemoryPublisher creates an empty publisher.
func NewInMemoryPublisher() *InMemoryPublisher {
	return &InMemoryPublisher{subscribers: make(map[string][]chan Message)}
}

// Subscribe returns a buffered channel receiving messages published to
// topic after the call. The channel is closed by Close.
func (p *InMemoryPublisher) Subscribe(topic string) (<-chan Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, fmt.Errorf("publisher is closed")
	}

	ch := make(chan Message, 100)
	p.subscribers[topic] = append(p.subscribers[topic], ch)
	return ch, nil
}

func (p *InMemoryPublisher) Publish(ctx context.Context, topic string, key string, value []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return fmt.Errorf("publisher is closed")
	}

	msg := Message{Topic: topic, Key: key, Value: append([]byte(nil), value...)}
	p.messages = append(p.messages, msg)

	for _, ch := range p.subscribers[topic] {
		select {
		case ch <- msg:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Messages returns a copy of everything published so far.
func (p *InMemoryPublisher) Messages() []Message {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]Message, len(p.messages))
	copy(out, p.messages)
	return out
}

// Close closes all subscriber channels.
func (p *InMemoryPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	for _, subs := range p.subscribers {
		for _, ch := range subs {
			close(ch)
		}
	}
	p.subscribers = nil
	return nil
}
