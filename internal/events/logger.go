package events

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/OldStager01/forecast-autoscaler/internal/logger"
	"github.com/OldStager01/forecast-autoscaler/pkg/models"
)

// CycleStore persists finished cycles.
type CycleStore interface {
	Insert(ctx context.Context, record *models.CycleRecord) error
}

// EventLogger writes every event to the structured log and persists cycle
// outcomes when a store is configured.
type EventLogger struct {
	store     CycleStore
	eventChan <-chan *models.Event
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	startOnce sync.Once
	started   atomic.Bool
}

// NewEventLogger consumes eventChan. store may be nil.
func NewEventLogger(store CycleStore, eventChan <-chan *models.Event) *EventLogger {
	ctx, cancel := context.WithCancel(context.Background())
	return &EventLogger{
		store:     store,
		eventChan: eventChan,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
}

func (l *EventLogger) Start() {
	l.startOnce.Do(func() {
		l.started.Store(true)
		go l.run()
	})
}

// Stop cancels the logger and waits for the current event to finish.
// Buffered events may be dropped; use Drain after closing the bus to keep them.
func (l *EventLogger) Stop() {
	l.cancel()
	if l.started.Load() {
		<-l.done
	}
}

// Drain waits until the subscription channel is closed and fully consumed.
func (l *EventLogger) Drain(ctx context.Context) error {
	if !l.started.Load() {
		return nil
	}
	select {
	case <-l.done:
		return nil
	case <-ctx.Done():
		l.cancel()
		return ctx.Err()
	}
}

func (l *EventLogger) run() {
	defer close(l.done)

	for {
		select {
		case <-l.ctx.Done():
			return
		case event, ok := <-l.eventChan:
			if !ok {
				return
			}
			l.processEvent(event)
		}
	}
}

func (l *EventLogger) processEvent(event *models.Event) {
	entry := logger.WithFields(map[string]interface{}{
		"event_type": event.Type,
		"cluster_id": event.ClusterID,
		"cycle_id":   event.CycleID,
		"severity":   event.Severity,
	})

	switch event.Severity {
	case models.SeverityCritical:
		entry.Error(event.Message)
	case models.SeverityWarning:
		entry.Warn(event.Message)
	default:
		entry.Info(event.Message)
	}

	switch event.Type {
	case models.EventTypeCycleFinished, models.EventTypeCycleFailed:
		l.persistCycle(event)
	}
}

func (l *EventLogger) persistCycle(event *models.Event) {
	if l.store == nil {
		return
	}

	record, ok := event.Data.(*models.CycleRecord)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(l.ctx, 5*time.Second)
	defer cancel()

	if err := l.store.Insert(ctx, record); err != nil {
		logger.WithCycle(record.ClusterID, record.ID).Errorf("Failed to persist cycle record: %v", err)
	}
}
