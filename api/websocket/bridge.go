package websocket

import (
	"sync"
	"sync/atomic"

	"github.com/OldStager01/forecast-autoscaler/internal/logger"
	"github.com/OldStager01/forecast-autoscaler/pkg/models"
)

// EventBridge forwards cycle events from the orchestrator's bus to the
// websocket clients watching the event's cluster. Failed cycles are also
// raised as alerts.
type EventBridge struct {
	hub       *Hub
	events    <-chan *models.Event
	stop      chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
	forwarded atomic.Int64
}

func NewEventBridge(hub *Hub, events <-chan *models.Event) *EventBridge {
	return &EventBridge{
		hub:    hub,
		events: events,
		stop:   make(chan struct{}),
	}
}

func (b *EventBridge) Start() {
	b.wg.Add(1)
	go b.run()
	logger.Info("WebSocket event bridge started")
}

// Stop is safe to call more than once.
func (b *EventBridge) Stop() {
	b.stopOnce.Do(func() { close(b.stop) })
	b.wg.Wait()
	logger.WithField("forwarded", b.Forwarded()).Info("WebSocket event bridge stopped")
}

// Forwarded is the number of messages handed to the hub.
func (b *EventBridge) Forwarded() int64 {
	return b.forwarded.Load()
}

func (b *EventBridge) run() {
	defer b.wg.Done()

	for {
		select {
		case <-b.stop:
			return
		case event, ok := <-b.events:
			if !ok {
				logger.Debug("Event bus closed, stopping websocket bridge")
				return
			}
			b.forward(event)
		}
	}
}

func (b *EventBridge) forward(event *models.Event) {
	// Nobody to tell; skip the encoding work
	if b.hub.ClientCount() == 0 {
		return
	}

	if msg := MessageFromEvent(event); msg != nil {
		b.send(event.ClusterID, msg)
	}
	if alert := alertFromEvent(event); alert != nil {
		b.send(event.ClusterID, alert)
	}
}

func (b *EventBridge) send(clusterID string, msg *OutgoingMessage) {
	b.hub.BroadcastToCluster(clusterID, msg.JSON())
	b.forwarded.Add(1)
}

// AlertData summarizes why a cycle failed.
type AlertData struct {
	ErrorKind    string `json:"error_kind"`
	ErrorMessage string `json:"error_message"`
	NodesBefore  int    `json:"nodes_before"`
}

func alertFromEvent(event *models.Event) *OutgoingMessage {
	if event.Type != models.EventTypeCycleFailed {
		return nil
	}
	record, ok := event.Data.(*models.CycleRecord)
	if !ok {
		return nil
	}

	msg := NewMessage(MessageTypeAlert, event.ClusterID, AlertData{
		ErrorKind:    record.ErrorKind,
		ErrorMessage: record.ErrorMessage,
		NodesBefore:  record.NodesBefore,
	})
	msg.Event = string(event.Type)
	msg.CycleID = event.CycleID
	msg.Severity = string(event.Severity)
	msg.Message = event.Message
	return msg
}
