package orchestrator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/forecast-autoscaler/internal/cluster"
	"github.com/OldStager01/forecast-autoscaler/internal/metrics"
	"github.com/OldStager01/forecast-autoscaler/internal/resilience"
	"github.com/OldStager01/forecast-autoscaler/internal/store"
	"github.com/OldStager01/forecast-autoscaler/pkg/apperrors"
	"github.com/OldStager01/forecast-autoscaler/pkg/config"
	"github.com/OldStager01/forecast-autoscaler/pkg/models"
)

type recordingStore struct {
	mu      sync.Mutex
	records []*models.CycleRecord
}

func (r *recordingStore) Insert(ctx context.Context, record *models.CycleRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, record)
	return nil
}

func (r *recordingStore) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

func testConfig() *config.Config {
	return &config.Config{
		App:     config.AppConfig{ShutdownTimeout: time.Second},
		Cluster: config.ClusterConfig{Provider: config.ClusterProviderSimulator, Name: "aks-test"},
		Artifacts: config.ArtifactsConfig{
			Dataset:        "log_data.json",
			AdminModel:     "admin_users.json",
			ConfigModel:    "config_users.json",
			EndUserModel:   "end_users.json",
			CompletionTime: "avg_completion_time.json",
		},
		Forecast: config.ForecastConfig{Windows: config.WindowsConfig{Admin: 5, Config: 7, EndUser: 21}},
		Policy:   config.PolicyConfig{SLA: 50, Threshold: 20, ScaleIncrement: 1, MinNodes: 2, FloorMode: "symmetric"},
		Schedule: config.ScheduleConfig{
			Interval:       time.Hour,
			CycleTimeout:   time.Minute,
			ResizeTimeout:  time.Minute,
			CircuitBreaker: config.CircuitBreakerConfig{MaxFailures: 3, Timeout: time.Minute},
		},
		Events: config.EventsConfig{BufferSize: 100},
	}
}

func TestOrchestrator_RunOncePersistsRecord(t *testing.T) {
	sim := cluster.NewSimulatorController(cluster.SimulatorConfig{ClusterID: "aks-test", InitialNodes: 2})
	_, artifacts := newBucket(t, 71)
	history := &recordingStore{}

	o, err := New(testConfig(), sim, artifacts, history, metrics.New())
	require.NoError(t, err)
	require.NoError(t, o.Start())

	events := o.SubscribeEvents(models.EventTypeScalingComplete)

	record, err := o.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, record.NodesAfter)
	assert.Equal(t, "aks-test", o.ClusterID())
	assert.Equal(t, 3, sim.NodeCount("agentpool"))

	select {
	case e := <-events:
		assert.Equal(t, record.ID, e.CycleID)
	case <-time.After(time.Second):
		t.Fatal("scaling_complete event not published")
	}

	o.Stop()
	assert.Equal(t, 1, history.Len())
	assert.Equal(t, record.ID, o.Scheduler().LastRecord().ID)
}

func TestOrchestrator_FailuresOpenBreaker(t *testing.T) {
	sim := cluster.NewSimulatorController(cluster.SimulatorConfig{ClusterID: "aks-test", InitialNodes: 2})
	sim.RemoveNodePools()
	_, artifacts := newBucket(t, 71)

	o, err := New(testConfig(), sim, artifacts, nil, nil)
	require.NoError(t, err)
	defer o.Stop()

	for i := 0; i < 3; i++ {
		_, err := o.RunOnce(context.Background())
		assert.ErrorIs(t, err, apperrors.ErrClusterState)
	}

	_, err = o.RunOnce(context.Background())
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, resilience.StateOpen, o.Scheduler().BreakerState())
}

func TestOrchestrator_RejectsInvalidPolicy(t *testing.T) {
	cfg := testConfig()
	cfg.Policy.ScaleIncrement = 0

	_, artifacts := newBucket(t, 71)
	_, err := New(cfg, cluster.NewSimulatorController(cluster.SimulatorConfig{}), artifacts, nil, nil)
	assert.ErrorIs(t, err, apperrors.ErrConfiguration)
}

func TestConfigMapping(t *testing.T) {
	cfg := testConfig()

	keys := ArtifactKeys(cfg.Artifacts)
	assert.Equal(t, "end_users.json", keys.EndUserModel)

	chain := ChainConfig(cfg.Forecast)
	assert.Equal(t, 21, chain.Windows[models.RoleEndUser])
	assert.False(t, chain.SharedEndUserModel)

	policy := PolicyConfig(cfg.Policy)
	assert.Equal(t, 70.0, policy.Upper())
	assert.Equal(t, 30.0, policy.Lower())
}

func TestOrchestrator_Status(t *testing.T) {
	sim := cluster.NewSimulatorController(cluster.SimulatorConfig{ClusterID: "aks-test", InitialNodes: 4})
	_, artifacts := newBucket(t, 50)

	o, err := New(testConfig(), sim, artifacts, nil, nil)
	require.NoError(t, err)
	defer o.Stop()

	status := o.Status()
	assert.Equal(t, "aks-test", status.ClusterID)
	assert.False(t, status.SchedulerRunning)
	assert.Equal(t, time.Hour, status.Interval)
	assert.Equal(t, "closed", status.BreakerState)
	assert.Nil(t, status.LastCycle)

	_, err = o.RunOnce(context.Background())
	require.NoError(t, err)
	require.NotNil(t, o.Status().LastCycle)
	assert.Equal(t, models.ActionNoChange, o.Status().LastCycle.Action)
}

type closingStore struct {
	store.Store
	closed int
}

func (c *closingStore) Close() error {
	c.closed++
	return nil
}

func TestOrchestrator_StopClosesArtifactStore(t *testing.T) {
	_, artifacts := newBucket(t, 50)
	closing := &closingStore{Store: artifacts}

	o, err := New(testConfig(), cluster.NewSimulatorController(cluster.SimulatorConfig{InitialNodes: 2}), closing, nil, nil)
	require.NoError(t, err)
	require.NoError(t, o.Start())

	_, err = o.RunOnce(context.Background())
	require.NoError(t, err)

	o.Stop()
	assert.Equal(t, 1, closing.closed)
}
