package websocket

import (
	"encoding/json"
	"time"

	"github.com/OldStager01/forecast-autoscaler/pkg/models"
)

type MessageType string

const (
	MessageTypeCycle        MessageType = "cycle"
	MessageTypeForecast     MessageType = "forecast"
	MessageTypeDecision     MessageType = "decision"
	MessageTypeScalingEvent MessageType = "scaling_event"
	MessageTypeAlert        MessageType = "alert"
	MessageTypeSubscription MessageType = "subscription_update"
)

// OutgoingMessage is the envelope of every frame sent to clients.
type OutgoingMessage struct {
	Type      MessageType `json:"type"`
	Event     string      `json:"event,omitempty"`
	ClusterID string      `json:"cluster_id"`
	CycleID   string      `json:"cycle_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Severity  string      `json:"severity,omitempty"`
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data,omitempty"`
}

func NewMessage(msgType MessageType, clusterID string, data interface{}) *OutgoingMessage {
	return &OutgoingMessage{
		Type:      msgType,
		ClusterID: clusterID,
		Timestamp: time.Now(),
		Data:      data,
	}
}

func (m *OutgoingMessage) JSON() []byte {
	data, _ := json.Marshal(m)
	return data
}

type SubscriptionData struct {
	Action string `json:"action"`
}

// MessageFromEvent converts a bus event into a client message. It returns nil
// for events clients do not see.
func MessageFromEvent(event *models.Event) *OutgoingMessage {
	msgType, ok := messageType(event.Type)
	if !ok {
		return nil
	}

	return &OutgoingMessage{
		Type:      msgType,
		Event:     string(event.Type),
		ClusterID: event.ClusterID,
		CycleID:   event.CycleID,
		Timestamp: event.Timestamp,
		Severity:  string(event.Severity),
		Message:   event.Message,
		Data:      event.Data,
	}
}

func messageType(eventType models.EventType) (MessageType, bool) {
	switch eventType {
	case models.EventTypeCycleFinished, models.EventTypeCycleFailed, models.EventTypeCycleSkipped:
		return MessageTypeCycle, true
	case models.EventTypeForecastMade:
		return MessageTypeForecast, true
	case models.EventTypeDecisionMade:
		return MessageTypeDecision, true
	case models.EventTypeScalingStarted, models.EventTypeScalingComplete:
		return MessageTypeScalingEvent, true
	case models.EventTypeScalingFailed:
		return MessageTypeAlert, true
	default:
		// cycle_started carries nothing a dashboard needs
		return "", false
	}
}
