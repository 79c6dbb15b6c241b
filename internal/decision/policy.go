package decision

import (
	"fmt"
	"math"
	"time"

	"github.com/OldStager01/forecast-autoscaler/internal/logger"
	"github.com/OldStager01/forecast-autoscaler/pkg/apperrors"
	"github.com/OldStager01/forecast-autoscaler/pkg/models"
)

// FloorMode selects whether MinNodes also bounds scale-down.
type FloorMode string

const (
	// FloorSymmetric clamps both directions at MinNodes.
	FloorSymmetric FloorMode = "symmetric"
	// FloorScaleUpOnly applies MinNodes to scale-up only, as the legacy
	// controller did. Scale-down may then go below MinNodes, never below zero.
	FloorScaleUpOnly FloorMode = "scale_up_only"
)

const (
	ReasonOverSLA    = "over_sla"
	ReasonUnderSLA   = "under_sla"
	ReasonWithinBand = "within_sla_band"
	// ReasonBelowFloor marks an under-SLA decision that still grows the pool
	// because it currently runs fewer than MinNodes.
	ReasonBelowFloor = "below_min_nodes"
)

type Config struct {
	SLA       float64
	Threshold float64
	Increment int
	MinNodes  int
	FloorMode FloorMode
}

func (c Config) Upper() float64 {
	return c.SLA + c.Threshold
}

func (c Config) Lower() float64 {
	return c.SLA - c.Threshold
}

// Policy compares a completion-time forecast with the SLA band and turns a
// breach into a node count. It holds no state between calls.
type Policy struct {
	config Config
}

func NewPolicy(cfg Config) (*Policy, error) {
	const op = "decision.NewPolicy"

	if cfg.FloorMode == "" {
		cfg.FloorMode = FloorSymmetric
	}

	switch {
	case math.IsNaN(cfg.SLA) || math.IsInf(cfg.SLA, 0):
		return nil, apperrors.Configuration(op, "sla must be finite", nil)
	case math.IsNaN(cfg.Threshold) || math.IsInf(cfg.Threshold, 0) || cfg.Threshold < 0:
		return nil, apperrors.Configuration(op, "threshold must be a finite value >= 0", nil)
	case cfg.Increment <= 0:
		return nil, apperrors.Configuration(op, "scale increment must be positive", nil)
	case cfg.MinNodes <= 0:
		return nil, apperrors.Configuration(op, "min nodes must be positive", nil)
	case cfg.FloorMode != FloorSymmetric && cfg.FloorMode != FloorScaleUpOnly:
		return nil, apperrors.Configuration(op, fmt.Sprintf("unknown floor mode %q", cfg.FloorMode), nil)
	}

	return &Policy{config: cfg}, nil
}

func (p *Policy) Config() Config {
	return p.config
}

func (p *Policy) Decide(clusterID string, prediction float64, currentNodes int) (*models.ScalingDecision, error) {
	const op = "decision.Decide"

	if math.IsNaN(prediction) || math.IsInf(prediction, 0) {
		return nil, apperrors.InvalidResult(op, fmt.Sprintf("prediction %v is not finite", prediction), nil)
	}
	if currentNodes < 0 {
		return nil, apperrors.InvalidResult(op, fmt.Sprintf("current node count %d is negative", currentNodes), nil)
	}

	decision := &models.ScalingDecision{
		ClusterID:    clusterID,
		Timestamp:    time.Now(),
		Action:       models.ActionNoChange,
		CurrentNodes: currentNodes,
		TargetNodes:  currentNodes,
		Prediction:   prediction,
		LowerBound:   p.config.Lower(),
		UpperBound:   p.config.Upper(),
	}

	// Under-resourced: completion time above the band
	if prediction > decision.UpperBound {
		return p.createScaleUpDecision(decision), nil
	}

	// Over-resourced: completion time below the band
	if prediction < decision.LowerBound {
		return p.createScaleDownDecision(decision)
	}

	decision.Reason = ReasonWithinBand
	logger.WithCluster(clusterID).Debugf(
		"Decision: no change (prediction %.2f within [%.2f, %.2f])",
		prediction, decision.LowerBound, decision.UpperBound,
	)
	return decision, nil
}

func (p *Policy) createScaleUpDecision(decision *models.ScalingDecision) *models.ScalingDecision {
	target := decision.CurrentNodes + p.config.Increment
	if target < p.config.MinNodes {
		target = p.config.MinNodes
	}

	decision.Action = models.ActionSetNodeCount
	decision.TargetNodes = target
	decision.Reason = ReasonOverSLA

	logger.WithCluster(decision.ClusterID).Infof(
		"Decision: scale up %d -> %d nodes (prediction %.2f > upper %.2f)",
		decision.CurrentNodes, decision.TargetNodes, decision.Prediction, decision.UpperBound,
	)
	return decision
}

func (p *Policy) createScaleDownDecision(decision *models.ScalingDecision) (*models.ScalingDecision, error) {
	target := decision.CurrentNodes - p.config.Increment
	if p.config.FloorMode == FloorSymmetric && target < p.config.MinNodes {
		target = p.config.MinNodes
	}

	if target < 0 {
		return nil, apperrors.InvalidResult("decision.Decide",
			fmt.Sprintf("scale down from %d by %d would leave %d nodes", decision.CurrentNodes, p.config.Increment, target), nil)
	}

	decision.Action = models.ActionSetNodeCount
	decision.TargetNodes = target

	if target > decision.CurrentNodes {
		decision.Reason = ReasonBelowFloor
		logger.WithCluster(decision.ClusterID).Infof(
			"Decision: raise %d -> %d nodes to the floor (prediction %.2f < lower %.2f)",
			decision.CurrentNodes, decision.TargetNodes, decision.Prediction, decision.LowerBound,
		)
		return decision, nil
	}

	decision.Reason = ReasonUnderSLA
	logger.WithCluster(decision.ClusterID).Infof(
		"Decision: scale down %d -> %d nodes (prediction %.2f < lower %.2f)",
		decision.CurrentNodes, decision.TargetNodes, decision.Prediction, decision.LowerBound,
	)
	return decision, nil
}
