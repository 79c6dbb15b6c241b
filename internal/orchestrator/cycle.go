package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/OldStager01/forecast-autoscaler/internal/cluster"
	"github.com/OldStager01/forecast-autoscaler/internal/decision"
	"github.com/OldStager01/forecast-autoscaler/internal/events"
	"github.com/OldStager01/forecast-autoscaler/internal/forecast"
	"github.com/OldStager01/forecast-autoscaler/internal/logger"
	"github.com/OldStager01/forecast-autoscaler/internal/metrics"
	"github.com/OldStager01/forecast-autoscaler/internal/store"
	"github.com/OldStager01/forecast-autoscaler/pkg/apperrors"
	"github.com/OldStager01/forecast-autoscaler/pkg/models"
)

type CycleConfig struct {
	// ClusterID labels logs and events until the cluster state has been read.
	ClusterID  string
	Controller cluster.Controller
	Store      store.Store
	Keys       forecast.ArtifactKeys
	Chain      forecast.ChainConfig
	Policy     *decision.Policy
	Publisher  *events.Publisher
	Metrics    *metrics.Metrics
	// Timeout bounds the steps up to the decision. Zero means no deadline.
	Timeout time.Duration
	// ResizeTimeout bounds the resize on its own, since a node pool update
	// can outlast the rest of the cycle. Zero means no deadline.
	ResizeTimeout time.Duration
}

// Cycle performs one decision cycle: authenticate, read the cluster, load the
// artifacts, forecast, decide and resize. Every failure aborts the cycle and
// nothing is retried. A Cycle keeps no state between runs.
type Cycle struct {
	config CycleConfig
}

func NewCycle(cfg CycleConfig) (*Cycle, error) {
	const op = "orchestrator.NewCycle"

	switch {
	case cfg.Controller == nil:
		return nil, apperrors.Configuration(op, "cluster controller is required", nil)
	case cfg.Store == nil:
		return nil, apperrors.Configuration(op, "artifact store is required", nil)
	case cfg.Policy == nil:
		return nil, apperrors.Configuration(op, "scaling policy is required", nil)
	}
	if cfg.Keys == (forecast.ArtifactKeys{}) {
		cfg.Keys = forecast.DefaultArtifactKeys()
	}

	return &Cycle{config: cfg}, nil
}

func (c *Cycle) ClusterID() string {
	return c.config.ClusterID
}

// Run executes the cycle and always returns its record, failed or not.
func (c *Cycle) Run(ctx context.Context) (*models.CycleRecord, error) {
	record := models.NewCycleRecord(c.config.ClusterID)
	log := logger.WithCycle(record.ClusterID, record.ID)
	ctx = logger.NewContext(ctx, log)
	pub := c.config.Publisher.WithCycleID(record.ID)

	log.Info("Decision cycle started")
	pub.CycleStarted(record.ClusterID)

	err := c.run(ctx, record, pub)
	record.FinishedAt = time.Now()

	if err != nil {
		record.Status = models.CycleFailed
		record.ErrorKind = apperrors.KindOf(err)
		record.ErrorMessage = err.Error()

		logger.WithFailure(log, err).Error("Decision cycle failed")
		pub.CycleFailed(record)
		c.observe(record)
		return record, err
	}

	record.Status = models.CycleSuccess
	log.Infof("Decision cycle finished in %s: %s (%d -> %d nodes)",
		record.Duration().Round(time.Millisecond), record.Action, record.NodesBefore, record.NodesAfter)
	pub.CycleFinished(record)
	c.observe(record)
	return record, nil
}

func (c *Cycle) run(parent context.Context, record *models.CycleRecord, pub *events.Publisher) error {
	ctx, cancel := withTimeout(parent, c.config.Timeout)
	defer cancel()

	// Step 1: Authenticate to both collaborators
	clusterSession, err := c.config.Controller.Authenticate(ctx)
	if err != nil {
		return ensureKind(err, apperrors.ErrAuthentication, "cluster.Authenticate")
	}
	storeSession, err := c.config.Store.Authenticate(ctx)
	if err != nil {
		return ensureKind(err, apperrors.ErrAuthentication, "store.Authenticate")
	}

	// Step 2: Read the current node count
	state, err := clusterSession.ClusterState(ctx)
	if err != nil {
		return ensureKind(err, apperrors.ErrClusterState, "cluster.ClusterState")
	}
	if state.ClusterID != "" {
		record.ClusterID = state.ClusterID
	}
	record.NodesBefore = state.NodeCount
	record.NodesAfter = state.NodeCount
	c.setNodeCount(record.ClusterID, state.NodePool, state.NodeCount)

	// Step 3: Load the dataset and the four models
	artifacts, err := forecast.LoadArtifacts(ctx, storeSession, c.config.Keys)
	if err != nil {
		return ensureKind(err, apperrors.ErrDataUnavailable, "forecast.LoadArtifacts")
	}

	// Step 4: Forecast the completion time
	chain, err := forecast.NewChain(c.config.Chain, artifacts.Models)
	if err != nil {
		return err
	}
	f, err := chain.Forecast(artifacts.Dataset.Samples)
	if err != nil {
		return err
	}
	f.ClusterID = record.ClusterID
	f.CreatedAt = time.Now()

	prediction := f.CompletionTime
	record.Prediction = &prediction
	pub.ForecastMade(record.ClusterID, f)
	if c.config.Metrics != nil {
		c.config.Metrics.SetCompletionTime(record.ClusterID, prediction)
	}

	// Step 5: Compare with the SLA band
	scalingDecision, err := c.config.Policy.Decide(record.ClusterID, prediction, state.NodeCount)
	if err != nil {
		return err
	}
	record.Action = scalingDecision.Action
	pub.DecisionMade(record.ClusterID, scalingDecision)
	if c.config.Metrics != nil {
		c.config.Metrics.IncDecision(record.ClusterID, string(scalingDecision.Action))
	}

	// Step 6: Apply the decision
	if !scalingDecision.ShouldExecute() {
		return nil
	}
	resizeCtx, cancelResize := withTimeout(parent, c.config.ResizeTimeout)
	defer cancelResize()
	return c.execute(resizeCtx, clusterSession, state, scalingDecision, record, pub)
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func (c *Cycle) execute(
	ctx context.Context,
	session cluster.Session,
	state *models.ClusterState,
	scalingDecision *models.ScalingDecision,
	record *models.CycleRecord,
	pub *events.Publisher,
) error {
	pub.ScalingStarted(record.ClusterID, scalingDecision)

	if err := session.Resize(ctx, state.NodePool, scalingDecision.TargetNodes); err != nil {
		err = ensureKind(err, apperrors.ErrClusterState, "cluster.Resize")
		pub.ScalingFailed(record.ClusterID, scalingDecision, err)
		return err
	}

	record.NodesAfter = scalingDecision.TargetNodes
	pub.ScalingComplete(record.ClusterID, scalingDecision)
	c.setNodeCount(record.ClusterID, state.NodePool, scalingDecision.TargetNodes)

	logger.FromContext(ctx).Infof(
		"Scaling complete: node pool %s %d -> %d nodes",
		state.NodePool, scalingDecision.CurrentNodes, scalingDecision.TargetNodes,
	)
	return nil
}

func (c *Cycle) setNodeCount(clusterID, nodePool string, count int) {
	if c.config.Metrics != nil {
		c.config.Metrics.SetNodeCount(clusterID, nodePool, count)
	}
}

func (c *Cycle) observe(record *models.CycleRecord) {
	if c.config.Metrics == nil {
		return
	}
	outcome := metrics.OutcomeSuccess
	if record.Status == models.CycleFailed {
		outcome = metrics.OutcomeFailed
	}
	c.config.Metrics.ObserveCycle(record.ClusterID, outcome, record.ErrorKind, record.Duration())
}

// ensureKind files errors from outside the taxonomy under kind.
func ensureKind(err error, kind error, op string) error {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return err
	}
	return apperrors.New(kind, op, "unexpected failure", err)
}
