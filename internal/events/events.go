package events

import (
	"sync"
	"sync/atomic"

	"github.com/OldStager01/forecast-autoscaler/internal/logger"
	"github.com/OldStager01/forecast-autoscaler/pkg/models"
)

// EventBus fans cycle events out to buffered subscriber channels. A full
// channel drops the event rather than blocking the cycle that published it.
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[models.EventType][]chan *models.Event
	// every channel handed out, closed exactly once by Close
	chans      []chan *models.Event
	bufferSize int
	closed     bool

	dropped atomic.Int64
	onDrop  func(models.EventType)
}

func NewEventBus(bufferSize int) *EventBus {
	if bufferSize <= 0 {
		bufferSize = 100
	}
	return &EventBus{
		subscribers: make(map[models.EventType][]chan *models.Event),
		bufferSize:  bufferSize,
	}
}

// OnDrop registers fn to be called for every event a slow subscriber misses.
// It must be set before events are published.
func (b *EventBus) OnDrop(fn func(models.EventType)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onDrop = fn
}

// Subscribe returns one channel receiving every listed event type. A closed
// bus returns an already closed channel.
func (b *EventBus) Subscribe(eventTypes ...models.EventType) <-chan *models.Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan *models.Event, b.bufferSize)
	if b.closed {
		close(ch)
		return ch
	}

	for _, eventType := range eventTypes {
		b.subscribers[eventType] = append(b.subscribers[eventType], ch)
	}
	b.chans = append(b.chans, ch)
	return ch
}

func (b *EventBus) SubscribeAll() <-chan *models.Event {
	return b.Subscribe(models.AllEventTypes()...)
}

func (b *EventBus) Publish(event *models.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for _, ch := range b.subscribers[event.Type] {
		select {
		case ch <- event:
		default:
			b.dropped.Add(1)
			logger.WithCluster(event.ClusterID).Warnf("Event channel full, dropping %s event", event.Type)
			if b.onDrop != nil {
				b.onDrop(event.Type)
			}
		}
	}
}

// Dropped is the number of deliveries lost to full subscriber channels.
func (b *EventBus) Dropped() int64 {
	return b.dropped.Load()
}

func (b *EventBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for _, ch := range b.chans {
		close(ch)
	}
	b.chans = nil
	b.subscribers = make(map[models.EventType][]chan *models.Event)
}
