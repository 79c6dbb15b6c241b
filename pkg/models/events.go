package models

import "time"

type EventType string

const (
	EventTypeCycleStarted    EventType = "cycle_started"
	EventTypeForecastMade    EventType = "forecast_made"
	EventTypeDecisionMade    EventType = "decision_made"
	EventTypeScalingStarted  EventType = "scaling_started"
	EventTypeScalingComplete EventType = "scaling_complete"
	EventTypeScalingFailed   EventType = "scaling_failed"
	EventTypeCycleFinished   EventType = "cycle_finished"
	EventTypeCycleFailed     EventType = "cycle_failed"
	EventTypeCycleSkipped    EventType = "cycle_skipped"
)

// AllEventTypes lists every event the bus can carry.
func AllEventTypes() []EventType {
	return []EventType{
		EventTypeCycleStarted,
		EventTypeForecastMade,
		EventTypeDecisionMade,
		EventTypeScalingStarted,
		EventTypeScalingComplete,
		EventTypeScalingFailed,
		EventTypeCycleFinished,
		EventTypeCycleFailed,
		EventTypeCycleSkipped,
	}
}

type EventSeverity string

const (
	SeverityInfo     EventSeverity = "info"
	SeverityWarning  EventSeverity = "warning"
	SeverityCritical EventSeverity = "critical"
)

// Event represents an internal system event
type Event struct {
	ID        string        `json:"id"`
	Type      EventType     `json:"type"`
	Severity  EventSeverity `json:"severity"`
	ClusterID string        `json:"cluster_id,omitempty"`
	CycleID   string        `json:"cycle_id,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	Message   string        `json:"message"`
	Data      interface{}   `json:"data,omitempty"`
}

func NewEvent(eventType EventType, clusterID, message string) *Event {
	return &Event{
		ID:        NewUUID(),
		Type:      eventType,
		Severity:  SeverityInfo,
		ClusterID: clusterID,
		Timestamp: time.Now(),
		Message:   message,
	}
}

func (e *Event) WithSeverity(severity EventSeverity) *Event {
	e.Severity = severity
	return e
}

func (e *Event) WithData(data interface{}) *Event {
	e.Data = data
	return e
}

func (e *Event) WithCycleID(cycleID string) *Event {
	e.CycleID = cycleID
	return e
}
