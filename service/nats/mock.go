package nats

import (
	"context"
	"sync"
)

// MockPublisher is an in-memory Publisher and Subscriber for testing.
// Published events are recorded and delivered to live subscriptions.
type MockPublisher struct {
	mu              sync.RWMutex
	publishedEvents []*ActivityEvent
	publishError    error
	subscribeError  error
	subscribers     []*mockSubscription
	closed          bool
}

type mockSubscription struct {
	ctx     context.Context
	address string
	ch      chan *ActivityEvent
}

// NewMockPublisher creates a new mock publisher for testing.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{
		publishedEvents: make([]*ActivityEvent, 0),
	}
}

// PublishActivity records the event, fans it out to matching subscriptions
// and returns any configured error.
func (m *MockPublisher) PublishActivity(ctx context.Context, event *ActivityEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.publishError != nil {
		return m.publishError
	}

	m.publishedEvents = append(m.publishedEvents, event)

	live := m.subscribers[:0]
	for _, sub := range m.subscribers {
		if sub.ctx.Err() != nil {
			continue
		}
		live = append(live, sub)
		if sub.address != "" && sub.address != event.Address {
			continue
		}
		select {
		case sub.ch <- event:
		default:
		}
	}
	m.subscribers = live

	return nil
}

// Subscribe registers a subscription that receives events published from now on.
func (m *MockPublisher) Subscribe(ctx context.Context, address string) (<-chan *ActivityEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.subscribeError != nil {
		return nil, m.subscribeError
	}

	sub := &mockSubscription{
		ctx:     ctx,
		address: address,
		ch:      make(chan *ActivityEvent, 10),
	}
	m.subscribers = append(m.subscribers, sub)
	return sub.ch, nil
}

// Close marks the publisher as closed.
func (m *MockPublisher) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// GetPublishedEvents returns all published events (for testing).
func (m *MockPublisher) GetPublishedEvents() []*ActivityEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// Return a copy to avoid race conditions
	events := make([]*ActivityEvent, len(m.publishedEvents))
	copy(events, m.publishedEvents)
	return events
}

// GetPublishedEventCount returns the number of published events.
func (m *MockPublisher) GetPublishedEventCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.publishedEvents)
}

// GetPublishedEventsForAddress returns events published for a specific address.
func (m *MockPublisher) GetPublishedEventsForAddress(address string) []*ActivityEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := make([]*ActivityEvent, 0)
	for _, event := range m.publishedEvents {
		if event.Address == address {
			events = append(events, event)
		}
	}
	return events
}

// SubscriberCount returns the number of subscriptions whose context is still live.
func (m *MockPublisher) SubscriberCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, sub := range m.subscribers {
		if sub.ctx.Err() == nil {
			n++
		}
	}
	return n
}

// SetPublishError configures the mock to return an error on PublishActivity.
func (m *MockPublisher) SetPublishError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishError = err
}

// SetSubscribeError configures the mock to return an error on Subscribe.
func (m *MockPublisher) SetSubscribeError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribeError = err
}

// Reset clears all published events, subscriptions and errors.
func (m *MockPublisher) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishedEvents = make([]*ActivityEvent, 0)
	m.subscribers = nil
	m.publishError = nil
	m.subscribeError = nil
	m.closed = false
}

// IsClosed returns whether the publisher has been closed.
func (m *MockPublisher) IsClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}
