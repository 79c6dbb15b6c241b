package cluster

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/forecast-autoscaler/pkg/apperrors"
)

func newTestSimulator() *SimulatorController {
	return NewSimulatorController(SimulatorConfig{
		ClusterID:    "test-cluster",
		NodePool:     "agentpool",
		InitialNodes: 2,
	})
}

func TestSimulator_ClusterStateReadsFirstPool(t *testing.T) {
	sim := newTestSimulator()
	sim.AddNodePool("gpupool", 7)

	session, err := sim.Authenticate(context.Background())
	require.NoError(t, err)

	state, err := session.ClusterState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "test-cluster", state.ClusterID)
	assert.Equal(t, "agentpool", state.NodePool)
	assert.Equal(t, 2, state.NodeCount)
}

func TestSimulator_Resize(t *testing.T) {
	var notified = make(chan ResizeRecord, 1)
	sim := NewSimulatorController(SimulatorConfig{
		ClusterID:    "test-cluster",
		InitialNodes: 2,
		Callbacks: SimulatorCallbacks{
			OnResize: func(r ResizeRecord) { notified <- r },
		},
	})

	session, err := sim.Authenticate(context.Background())
	require.NoError(t, err)

	require.NoError(t, session.Resize(context.Background(), "agentpool", 3))
	assert.Equal(t, 3, sim.NodeCount("agentpool"))

	history := sim.History()
	require.Len(t, history, 1)
	assert.Equal(t, 2, history[0].From)
	assert.Equal(t, 3, history[0].To)

	select {
	case r := <-notified:
		assert.Equal(t, 3, r.To)
	case <-time.After(time.Second):
		t.Fatal("resize callback not invoked")
	}
}

func TestSimulator_Failures(t *testing.T) {
	boom := errors.New("boom")

	t.Run("authentication", func(t *testing.T) {
		sim := newTestSimulator()
		sim.FailAuthenticate(boom)

		_, err := sim.Authenticate(context.Background())
		assert.ErrorIs(t, err, apperrors.ErrAuthentication)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("no node pools", func(t *testing.T) {
		sim := newTestSimulator()
		sim.RemoveNodePools()

		session, err := sim.Authenticate(context.Background())
		require.NoError(t, err)
		_, err = session.ClusterState(context.Background())
		assert.ErrorIs(t, err, apperrors.ErrClusterState)
	})

	t.Run("unknown pool on resize", func(t *testing.T) {
		sim := newTestSimulator()
		session, err := sim.Authenticate(context.Background())
		require.NoError(t, err)

		err = session.Resize(context.Background(), "missing", 4)
		assert.ErrorIs(t, err, apperrors.ErrClusterState)
		assert.Empty(t, sim.History())
	})

	t.Run("injected resize failure", func(t *testing.T) {
		sim := newTestSimulator()
		sim.FailResize(boom)
		session, err := sim.Authenticate(context.Background())
		require.NoError(t, err)

		err = session.Resize(context.Background(), "agentpool", 4)
		assert.ErrorIs(t, err, apperrors.ErrClusterState)
		assert.Equal(t, 2, sim.NodeCount("agentpool"))
	})

	t.Run("negative target", func(t *testing.T) {
		sim := newTestSimulator()
		session, err := sim.Authenticate(context.Background())
		require.NoError(t, err)

		err = session.Resize(context.Background(), "agentpool", -1)
		assert.ErrorIs(t, err, apperrors.ErrInvalidResult)
	})
}

func TestSimulator_ResizeHonoursContext(t *testing.T) {
	sim := NewSimulatorController(SimulatorConfig{InitialNodes: 2, ProvisionTime: time.Minute})
	session, err := sim.Authenticate(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err = session.Resize(ctx, "agentpool", 3)
	assert.ErrorIs(t, err, apperrors.ErrClusterState)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 2, sim.NodeCount("agentpool"))
}
