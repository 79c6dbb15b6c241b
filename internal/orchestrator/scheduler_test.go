package orchestrator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/forecast-autoscaler/internal/resilience"
	"github.com/OldStager01/forecast-autoscaler/pkg/models"
)

type fakeCycle struct {
	calls   atomic.Int32
	err     error
	block   chan struct{}
	started chan struct{}
	once    sync.Once
}

func (f *fakeCycle) Run(ctx context.Context) (*models.CycleRecord, error) {
	f.calls.Add(1)
	if f.started != nil {
		f.once.Do(func() { close(f.started) })
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
		}
	}

	record := models.NewCycleRecord("aks-test")
	record.FinishedAt = time.Now()
	record.Status = models.CycleSuccess
	if f.err != nil {
		record.Status = models.CycleFailed
	}
	return record, f.err
}

func TestScheduler_TriggerNow(t *testing.T) {
	cycle := &fakeCycle{}
	s := NewScheduler(SchedulerConfig{ClusterID: "aks-test", Interval: time.Hour, Cycle: cycle})

	record, err := s.TriggerNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.CycleSuccess, record.Status)
	assert.Equal(t, record.ID, s.LastRecord().ID)
	assert.Equal(t, int32(1), cycle.calls.Load())
}

func TestScheduler_CyclesNeverOverlap(t *testing.T) {
	cycle := &fakeCycle{block: make(chan struct{}), started: make(chan struct{})}
	s := NewScheduler(SchedulerConfig{ClusterID: "aks-test", Interval: time.Hour, Cycle: cycle})

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.TriggerNow(context.Background())
	}()
	<-cycle.started

	_, err := s.TriggerNow(context.Background())
	assert.ErrorIs(t, err, ErrCycleInProgress)

	close(cycle.block)
	<-done
	assert.Equal(t, int32(1), cycle.calls.Load())
}

func TestScheduler_BreakerSkipsCycles(t *testing.T) {
	cycle := &fakeCycle{err: errors.New("cluster unreachable")}
	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{MaxFailures: 2, Timeout: time.Hour})
	s := NewScheduler(SchedulerConfig{ClusterID: "aks-test", Interval: time.Hour, Cycle: cycle, Breaker: breaker})

	for i := 0; i < 2; i++ {
		_, err := s.TriggerNow(context.Background())
		assert.Error(t, err)
	}

	_, err := s.TriggerNow(context.Background())
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, int32(2), cycle.calls.Load())
	assert.Equal(t, resilience.StateOpen, s.BreakerState())
}

func TestScheduler_StartRunsImmediately(t *testing.T) {
	cycle := &fakeCycle{}
	s := NewScheduler(SchedulerConfig{ClusterID: "aks-test", Interval: time.Hour, Cycle: cycle})

	require.NoError(t, s.Start())
	require.NoError(t, s.Start())
	assert.True(t, s.IsRunning())

	assert.Eventually(t, func() bool { return cycle.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	s.Stop()
	s.Stop()
	assert.False(t, s.IsRunning())
}

func TestScheduler_Defaults(t *testing.T) {
	s := NewScheduler(SchedulerConfig{Cycle: &fakeCycle{}})
	assert.Equal(t, 5*time.Minute, s.Interval())
	assert.Nil(t, s.LastRecord())
	assert.Equal(t, resilience.StateClosed, s.BreakerState())
}
