package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/forecast-autoscaler/pkg/apperrors"
	"github.com/OldStager01/forecast-autoscaler/pkg/models"
)

func receive(t *testing.T, ch <-chan *models.Event) *models.Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(time.Second):
		t.Fatal("no event received")
		return nil
	}
}

func TestEventBus_SubscribeByType(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()

	decisions := bus.Subscribe(models.EventTypeDecisionMade)
	all := bus.SubscribeAll()

	bus.Publish(models.NewEvent(models.EventTypeCycleStarted, "aks", "started"))
	bus.Publish(models.NewEvent(models.EventTypeDecisionMade, "aks", "decided"))

	assert.Equal(t, models.EventTypeDecisionMade, receive(t, decisions).Type)
	assert.Equal(t, models.EventTypeCycleStarted, receive(t, all).Type)
	assert.Equal(t, models.EventTypeDecisionMade, receive(t, all).Type)
}

func TestEventBus_DropsWhenFull(t *testing.T) {
	bus := NewEventBus(1)
	defer bus.Close()

	var dropped []models.EventType
	bus.OnDrop(func(eventType models.EventType) { dropped = append(dropped, eventType) })

	ch := bus.Subscribe(models.EventTypeCycleStarted)
	bus.Publish(models.NewEvent(models.EventTypeCycleStarted, "aks", "first"))
	bus.Publish(models.NewEvent(models.EventTypeCycleStarted, "aks", "second"))

	assert.Equal(t, "first", receive(t, ch).Message)
	assert.Len(t, ch, 0)
	assert.Equal(t, int64(1), bus.Dropped())
	assert.Equal(t, []models.EventType{models.EventTypeCycleStarted}, dropped)
}

func TestEventBus_SubscribeToSeveralTypes(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()

	ch := bus.Subscribe(models.EventTypeScalingComplete, models.EventTypeScalingFailed)
	bus.Publish(models.NewEvent(models.EventTypeCycleStarted, "aks", "ignored"))
	bus.Publish(models.NewEvent(models.EventTypeScalingFailed, "aks", "failed"))
	bus.Publish(models.NewEvent(models.EventTypeScalingComplete, "aks", "done"))

	assert.Equal(t, "failed", receive(t, ch).Message)
	assert.Equal(t, "done", receive(t, ch).Message)
	assert.Len(t, ch, 0)
}

func TestEventBus_CloseClosesChannels(t *testing.T) {
	bus := NewEventBus(1)
	ch := bus.SubscribeAll()
	single := bus.Subscribe(models.EventTypeCycleFailed)

	bus.Close()
	bus.Close()

	_, ok := <-ch
	assert.False(t, ok)
	_, ok = <-single
	assert.False(t, ok)

	// Publishing after close is a no-op
	bus.Publish(models.NewEvent(models.EventTypeCycleStarted, "aks", "late"))

	_, ok = <-bus.SubscribeAll()
	assert.False(t, ok)
}

func TestPublisher_StampsCycleID(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()
	ch := bus.SubscribeAll()

	pub := NewPublisher(bus).WithCycleID("cycle-1")
	decision := &models.ScalingDecision{Action: models.ActionSetNodeCount, CurrentNodes: 2, TargetNodes: 3}

	pub.CycleStarted("aks")
	pub.DecisionMade("aks", decision)
	pub.ScalingFailed("aks", decision, apperrors.ClusterState("cluster.Resize", "boom", nil))

	started := receive(t, ch)
	assert.Equal(t, "cycle-1", started.CycleID)
	assert.Equal(t, models.SeverityInfo, started.Severity)

	decided := receive(t, ch)
	assert.Equal(t, models.SeverityWarning, decided.Severity)

	failed := receive(t, ch)
	assert.Equal(t, models.SeverityCritical, failed.Severity)
	data, ok := failed.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "ClusterStateError", data["error_kind"])
}

func TestPublisher_NilBusIsNoop(t *testing.T) {
	var pub *Publisher
	pub.CycleStarted("aks")
	NewPublisher(nil).CycleSkipped("aks", "breaker open")
}

type memoryStore struct {
	mu      sync.Mutex
	records []*models.CycleRecord
	err     error
}

func (s *memoryStore) Insert(ctx context.Context, record *models.CycleRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, record)
	return nil
}

func (s *memoryStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func TestEventLogger_PersistsCycleOutcomes(t *testing.T) {
	bus := NewEventBus(10)
	store := &memoryStore{}
	l := NewEventLogger(store, bus.SubscribeAll())
	l.Start()

	pub := NewPublisher(bus)
	ok := models.NewCycleRecord("aks")
	ok.Status = models.CycleSuccess
	failed := models.NewCycleRecord("aks")
	failed.Status = models.CycleFailed
	failed.ErrorKind = "DataUnavailableError"

	pub.CycleStarted("aks")
	pub.CycleFinished(ok)
	pub.CycleFailed(failed)

	assert.Eventually(t, func() bool { return store.count() == 2 }, time.Second, 10*time.Millisecond)

	l.Stop()
	bus.Close()
}

func TestEventLogger_StoreErrorsAreLogged(t *testing.T) {
	bus := NewEventBus(10)
	store := &memoryStore{err: errors.New("disk full")}
	l := NewEventLogger(store, bus.SubscribeAll())
	l.Start()

	NewPublisher(bus).CycleFinished(models.NewCycleRecord("aks"))
	bus.Close()

	// run exits once the closed channel drains
	select {
	case <-l.done:
	case <-time.After(time.Second):
		t.Fatal("event logger did not stop")
	}
	assert.Zero(t, store.count())
}
