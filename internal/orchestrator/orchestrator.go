package orchestrator

import (
	"context"
	"time"

	"github.com/OldStager01/forecast-autoscaler/internal/cluster"
	"github.com/OldStager01/forecast-autoscaler/internal/decision"
	"github.com/OldStager01/forecast-autoscaler/internal/events"
	"github.com/OldStager01/forecast-autoscaler/internal/forecast"
	"github.com/OldStager01/forecast-autoscaler/internal/logger"
	"github.com/OldStager01/forecast-autoscaler/internal/metrics"
	"github.com/OldStager01/forecast-autoscaler/internal/resilience"
	"github.com/OldStager01/forecast-autoscaler/internal/store"
	"github.com/OldStager01/forecast-autoscaler/pkg/config"
	"github.com/OldStager01/forecast-autoscaler/pkg/models"
)

// Orchestrator owns the event bus and the scheduler driving one cluster's cycles.
type Orchestrator struct {
	config      *config.Config
	eventBus    *events.EventBus
	eventLogger *events.EventLogger
	cycle       *Cycle
	artifacts   store.Store
	scheduler   *Scheduler
	breaker     *resilience.CircuitBreaker
	metrics     *metrics.Metrics
}

// New wires a cycle for cfg. history may be nil when no history store is configured.
func New(cfg *config.Config, controller cluster.Controller, artifacts store.Store, history events.CycleStore, m *metrics.Metrics) (*Orchestrator, error) {
	policy, err := decision.NewPolicy(PolicyConfig(cfg.Policy))
	if err != nil {
		return nil, err
	}

	eventBus := events.NewEventBus(cfg.Events.BufferSize)
	if m != nil {
		eventBus.OnDrop(func(eventType models.EventType) {
			m.IncDroppedEvent(string(eventType))
		})
	}

	// Subscribe event logger to all events
	eventLogger := events.NewEventLogger(history, eventBus.SubscribeAll())
	publisher := events.NewPublisher(eventBus)

	cycle, err := NewCycle(CycleConfig{
		ClusterID:  cfg.Cluster.Name,
		Controller: controller,
		Store:      artifacts,
		Keys:       ArtifactKeys(cfg.Artifacts),
		Chain:      ChainConfig(cfg.Forecast),
		Policy:     policy,
		Publisher:  publisher,
		Metrics:    m,

		Timeout:       cfg.Schedule.CycleTimeout,
		ResizeTimeout: cfg.Schedule.ResizeTimeout,
	})
	if err != nil {
		return nil, err
	}

	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name:        "cycles",
		MaxFailures: cfg.Schedule.CircuitBreaker.MaxFailures,
		Timeout:     cfg.Schedule.CircuitBreaker.Timeout,
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warnf("Circuit breaker %s: %s -> %s", name, from, to)
			if m != nil {
				m.SetCircuitBreakerState(name, int(to))
			}
		},
	})

	scheduler := NewScheduler(SchedulerConfig{
		ClusterID: cfg.Cluster.Name,
		Interval:  cfg.Schedule.Interval,
		Cycle:     cycle,
		Breaker:   breaker,
		Publisher: publisher,
		Metrics:   m,
	})

	return &Orchestrator{
		config:      cfg,
		eventBus:    eventBus,
		eventLogger: eventLogger,
		cycle:       cycle,
		artifacts:   artifacts,
		scheduler:   scheduler,
		breaker:     breaker,
		metrics:     m,
	}, nil
}

// Start begins logging events. The scheduler is started separately by StartScheduler.
func (o *Orchestrator) Start() error {
	logger.Info("Orchestrator starting")
	o.eventLogger.Start()
	return nil
}

func (o *Orchestrator) StartScheduler() error {
	return o.scheduler.Start()
}

func (o *Orchestrator) Stop() {
	logger.Info("Orchestrator stopping")

	o.scheduler.Stop()

	// Close the bus first so the event logger drains what is buffered
	o.eventBus.Close()

	timeout := o.config.App.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := o.eventLogger.Drain(ctx); err != nil {
		logger.Warnf("Event logger did not drain: %v", err)
	}

	if err := store.Close(o.artifacts); err != nil {
		logger.Warnf("Failed to close artifact store: %v", err)
	}

	logger.Info("Orchestrator stopped")
}

// RunOnce runs a single cycle through the scheduler's guard.
func (o *Orchestrator) RunOnce(ctx context.Context) (*models.CycleRecord, error) {
	return o.scheduler.TriggerNow(ctx)
}

func (o *Orchestrator) ClusterID() string {
	return o.cycle.ClusterID()
}

func (o *Orchestrator) Scheduler() *Scheduler {
	return o.scheduler
}

func (o *Orchestrator) SubscribeEvents(eventType models.EventType) <-chan *models.Event {
	return o.eventBus.Subscribe(eventType)
}

func (o *Orchestrator) SubscribeAllEvents() <-chan *models.Event {
	return o.eventBus.SubscribeAll()
}

func PolicyConfig(p config.PolicyConfig) decision.Config {
	return decision.Config{
		SLA:       p.SLA,
		Threshold: p.Threshold,
		Increment: p.ScaleIncrement,
		MinNodes:  p.MinNodes,
		FloorMode: decision.FloorMode(p.FloorMode),
	}
}

func ArtifactKeys(a config.ArtifactsConfig) forecast.ArtifactKeys {
	return forecast.ArtifactKeys{
		Dataset:        a.Dataset,
		AdminModel:     a.AdminModel,
		ConfigModel:    a.ConfigModel,
		EndUserModel:   a.EndUserModel,
		CompletionTime: a.CompletionTime,
	}
}

func ChainConfig(f config.ForecastConfig) forecast.ChainConfig {
	return forecast.ChainConfig{
		Windows: map[models.Role]int{
			models.RoleAdmin:   f.Windows.Admin,
			models.RoleConfig:  f.Windows.Config,
			models.RoleEndUser: f.Windows.EndUser,
		},
		SharedEndUserModel: f.SharedEndUserModel,
	}
}

// Status summarises the scheduler for the API.
func (o *Orchestrator) Status() Status {
	return Status{
		ClusterID:        o.ClusterID(),
		SchedulerRunning: o.scheduler.IsRunning(),
		Interval:         o.scheduler.Interval(),
		BreakerState:     o.scheduler.BreakerState().String(),
		LastCycle:        o.scheduler.LastRecord(),
	}
}

type Status struct {
	ClusterID        string              `json:"cluster_id"`
	SchedulerRunning bool                `json:"scheduler_running"`
	Interval         time.Duration       `json:"interval"`
	BreakerState     string              `json:"circuit_breaker"`
	LastCycle        *models.CycleRecord `json:"last_cycle,omitempty"`
}
