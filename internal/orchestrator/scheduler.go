package orchestrator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/OldStager01/forecast-autoscaler/internal/events"
	"github.com/OldStager01/forecast-autoscaler/internal/logger"
	"github.com/OldStager01/forecast-autoscaler/internal/metrics"
	"github.com/OldStager01/forecast-autoscaler/internal/resilience"
	"github.com/OldStager01/forecast-autoscaler/pkg/models"
)

var ErrCycleInProgress = errors.New("a decision cycle is already running")

// CycleRunner runs one decision cycle.
type CycleRunner interface {
	Run(ctx context.Context) (*models.CycleRecord, error)
}

type SchedulerConfig struct {
	ClusterID    string
	Interval  time.Duration
	Cycle     CycleRunner
	Breaker   *resilience.CircuitBreaker
	Publisher *events.Publisher
	Metrics   *metrics.Metrics
}

// Scheduler runs cycles on a ticker. At most one cycle runs at a time, whether
// started by a tick or by TriggerNow, and an open breaker skips cycles.
type Scheduler struct {
	config  SchedulerConfig
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
	mu      sync.Mutex

	cycleMu sync.Mutex
	last    *models.CycleRecord
	lastMu  sync.RWMutex
}

func NewScheduler(cfg SchedulerConfig) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		config: cfg,
		ctx:    ctx,
		cancel: cancel,
	}
}

func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	s.running = true
	s.wg.Add(1)
	go s.run()

	logger.WithCluster(s.config.ClusterID).Infof("Scheduler started (interval %s)", s.config.Interval)
	return nil
}

func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()

	logger.WithCluster(s.config.ClusterID).Info("Scheduler stopped")
}

func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) Interval() time.Duration {
	return s.config.Interval
}

// LastRecord returns the outcome of the most recent cycle, or nil.
func (s *Scheduler) LastRecord() *models.CycleRecord {
	s.lastMu.RLock()
	defer s.lastMu.RUnlock()

	if s.last == nil {
		return nil
	}
	record := *s.last
	return &record
}

func (s *Scheduler) BreakerState() resilience.State {
	if s.config.Breaker == nil {
		return resilience.StateClosed
	}
	return s.config.Breaker.State()
}

func (s *Scheduler) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	// Run immediately on start
	s.tick()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

func (s *Scheduler) tick() {
	_, err := s.runCycle(s.ctx)
	if errors.Is(err, ErrCycleInProgress) {
		logger.WithCluster(s.config.ClusterID).Warn("Previous cycle still running, skipping tick")
	}
}

// TriggerNow runs a cycle immediately. It fails with ErrCycleInProgress when a
// cycle is already running and with resilience.ErrCircuitOpen when the breaker
// is open.
func (s *Scheduler) TriggerNow(ctx context.Context) (*models.CycleRecord, error) {
	return s.runCycle(ctx)
}

func (s *Scheduler) runCycle(parent context.Context) (*models.CycleRecord, error) {
	if !s.cycleMu.TryLock() {
		return nil, ErrCycleInProgress
	}
	defer s.cycleMu.Unlock()

	clusterID := s.config.ClusterID

	if s.config.Breaker != nil && !s.config.Breaker.Allow() {
		logger.WithCluster(clusterID).Warn("Circuit breaker open, skipping cycle")
		s.config.Publisher.CycleSkipped(clusterID, "circuit breaker open")
		if s.config.Metrics != nil {
			s.config.Metrics.IncSkippedCycle(clusterID)
		}
		return nil, resilience.ErrCircuitOpen
	}

	// Deadlines belong to the cycle; a resize may outlast the interval
	record, err := s.config.Cycle.Run(parent)

	if s.config.Breaker != nil {
		s.config.Breaker.Record(err)
	}

	if record != nil {
		s.lastMu.Lock()
		s.last = record
		s.lastMu.Unlock()
	}

	return record, err
}
