package models

import (
	"time"

	"github.com/google/uuid"
)

type CycleStatus string

const (
	CycleSuccess CycleStatus = "success"
	CycleFailed  CycleStatus = "failed"
)

// CycleRecord is the outcome of one decision cycle
type CycleRecord struct {
	ID           string        `json:"id" db:"id"`
	ClusterID    string        `json:"cluster_id" db:"cluster_id"`
	StartedAt    time.Time     `json:"started_at" db:"started_at"`
	FinishedAt   time.Time     `json:"finished_at" db:"finished_at"`
	Prediction   *float64      `json:"prediction,omitempty" db:"prediction"`
	Action       ScalingAction `json:"action" db:"action"`
	NodesBefore  int           `json:"nodes_before" db:"nodes_before"`
	NodesAfter   int           `json:"nodes_after" db:"nodes_after"`
	Status       CycleStatus   `json:"status" db:"status"`
	ErrorKind    string        `json:"error_kind,omitempty" db:"error_kind"`
	ErrorMessage string        `json:"error_message,omitempty" db:"error_message"`
}

// NewUUID returns a random identifier for cycles and events.
func NewUUID() string {
	return uuid.NewString()
}

func NewCycleRecord(clusterID string) *CycleRecord {
	return &CycleRecord{
		ID:        NewUUID(),
		ClusterID: clusterID,
		StartedAt: time.Now(),
		Action:    ActionNoChange,
	}
}

func (r *CycleRecord) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

func (r *CycleRecord) Scaled() bool {
	return r.Status == CycleSuccess && r.Action == ActionSetNodeCount
}
