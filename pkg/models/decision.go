package models

import "time"

type ScalingAction string

const (
	ActionNoChange     ScalingAction = "NO_CHANGE"
	ActionSetNodeCount ScalingAction = "SET_NODE_COUNT"
)

// ScalingDecision represents the outcome of comparing a forecast with the SLA band
type ScalingDecision struct {
	ClusterID    string        `json:"cluster_id"`
	Timestamp    time.Time     `json:"timestamp"`
	Action       ScalingAction `json:"action"`
	CurrentNodes int           `json:"current_nodes"`
	TargetNodes  int           `json:"target_nodes"`
	Prediction   float64       `json:"prediction"`
	LowerBound   float64       `json:"lower_bound"`
	UpperBound   float64       `json:"upper_bound"`
	Reason       string        `json:"reason"`
}

func (d *ScalingDecision) NodeDelta() int {
	if d.Action == ActionNoChange {
		return 0
	}
	return d.TargetNodes - d.CurrentNodes
}

func (d *ScalingDecision) ShouldExecute() bool {
	return d.Action == ActionSetNodeCount
}
