package events

import (
	"fmt"

	"github.com/OldStager01/forecast-autoscaler/pkg/apperrors"
	"github.com/OldStager01/forecast-autoscaler/pkg/models"
)

// Publisher emits the events of one cluster's decision cycles.
type Publisher struct {
	bus     *EventBus
	cycleID string
}

func NewPublisher(bus *EventBus) *Publisher {
	return &Publisher{bus: bus}
}

// WithCycleID returns a publisher stamping every event with cycleID.
func (p *Publisher) WithCycleID(cycleID string) *Publisher {
	if p == nil {
		return nil
	}
	return &Publisher{
		bus:     p.bus,
		cycleID: cycleID,
	}
}

func (p *Publisher) publish(event *models.Event) {
	if p == nil || p.bus == nil {
		return
	}
	if p.cycleID != "" {
		event.WithCycleID(p.cycleID)
	}
	p.bus.Publish(event)
}

func (p *Publisher) CycleStarted(clusterID string) {
	p.publish(models.NewEvent(models.EventTypeCycleStarted, clusterID, "Decision cycle started"))
}

func (p *Publisher) ForecastMade(clusterID string, forecast *models.Forecast) {
	msg := fmt.Sprintf("Forecast completion time: %.2f", forecast.CompletionTime)
	event := models.NewEvent(models.EventTypeForecastMade, clusterID, msg).
		WithData(forecast)
	p.publish(event)
}

func (p *Publisher) DecisionMade(clusterID string, decision *models.ScalingDecision) {
	msg := "Scaling decision: " + string(decision.Action)
	event := models.NewEvent(models.EventTypeDecisionMade, clusterID, msg).
		WithData(decision)

	if decision.ShouldExecute() {
		event.WithSeverity(models.SeverityWarning)
	}

	p.publish(event)
}

func (p *Publisher) ScalingStarted(clusterID string, decision *models.ScalingDecision) {
	msg := fmt.Sprintf("Scaling started: %d -> %d nodes", decision.CurrentNodes, decision.TargetNodes)
	event := models.NewEvent(models.EventTypeScalingStarted, clusterID, msg).
		WithData(decision)
	p.publish(event)
}

func (p *Publisher) ScalingComplete(clusterID string, decision *models.ScalingDecision) {
	msg := fmt.Sprintf("Scaling complete: %d nodes", decision.TargetNodes)
	event := models.NewEvent(models.EventTypeScalingComplete, clusterID, msg).
		WithData(decision)
	p.publish(event)
}

func (p *Publisher) ScalingFailed(clusterID string, decision *models.ScalingDecision, err error) {
	msg := "Scaling failed: " + err.Error()
	event := models.NewEvent(models.EventTypeScalingFailed, clusterID, msg).
		WithSeverity(models.SeverityCritical).
		WithData(map[string]interface{}{
			"target_nodes": decision.TargetNodes,
			"error_kind":   apperrors.KindOf(err),
			"error":        err.Error(),
		})
	p.publish(event)
}

func (p *Publisher) CycleFinished(record *models.CycleRecord) {
	msg := fmt.Sprintf("Decision cycle finished: %s", record.Action)
	event := models.NewEvent(models.EventTypeCycleFinished, record.ClusterID, msg).
		WithData(record)
	p.publish(event)
}

func (p *Publisher) CycleFailed(record *models.CycleRecord) {
	msg := fmt.Sprintf("Decision cycle failed: %s: %s", record.ErrorKind, record.ErrorMessage)
	event := models.NewEvent(models.EventTypeCycleFailed, record.ClusterID, msg).
		WithSeverity(models.SeverityCritical).
		WithData(record)
	p.publish(event)
}

func (p *Publisher) CycleSkipped(clusterID, reason string) {
	event := models.NewEvent(models.EventTypeCycleSkipped, clusterID, "Decision cycle skipped: "+reason).
		WithSeverity(models.SeverityWarning)
	p.publish(event)
}
