package cluster

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/OldStager01/forecast-autoscaler/internal/logger"
	"github.com/OldStager01/forecast-autoscaler/pkg/apperrors"
	"github.com/OldStager01/forecast-autoscaler/pkg/models"
)

// ResizeRecord is one resize applied by the simulator.
type ResizeRecord struct {
	NodePool  string
	From      int
	To        int
	AppliedAt time.Time
}

type SimulatorCallbacks struct {
	OnResize func(record ResizeRecord)
}

type SimulatorConfig struct {
	ClusterID    string
	NodePool     string
	InitialNodes int
	// ProvisionTime is how long a resize takes to settle.
	ProvisionTime time.Duration
	Callbacks     SimulatorCallbacks
}

// SimulatorController keeps node pools in memory. Failures can be injected per
// operation so the decision cycle can be exercised end to end without a cloud.
type SimulatorController struct {
	clusterID     string
	provisionTime time.Duration
	callbacks     SimulatorCallbacks

	mu      sync.RWMutex
	pools   []*simPool
	history []ResizeRecord

	authErr   error
	stateErr  error
	resizeErr error
}

type simPool struct {
	name  string
	count int
}

func NewSimulatorController(cfg SimulatorConfig) *SimulatorController {
	if cfg.ClusterID == "" {
		cfg.ClusterID = "sim-cluster"
	}
	if cfg.NodePool == "" {
		cfg.NodePool = "agentpool"
	}

	c := &SimulatorController{
		clusterID:     cfg.ClusterID,
		provisionTime: cfg.ProvisionTime,
		callbacks:     cfg.Callbacks,
	}
	c.pools = append(c.pools, &simPool{name: cfg.NodePool, count: cfg.InitialNodes})

	logger.WithCluster(c.clusterID).Infof(
		"Initialized simulated cluster with pool %s at %d nodes", cfg.NodePool, cfg.InitialNodes,
	)
	return c
}

// AddNodePool appends a pool behind the first one.
func (c *SimulatorController) AddNodePool(name string, count int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pools = append(c.pools, &simPool{name: name, count: count})
}

// RemoveNodePools drops every pool, leaving a cluster with no first pool.
func (c *SimulatorController) RemoveNodePools() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pools = nil
}

func (c *SimulatorController) FailAuthenticate(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.authErr = err
}

func (c *SimulatorController) FailClusterState(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stateErr = err
}

func (c *SimulatorController) FailResize(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resizeErr = err
}

// NodeCount returns the count of the named pool, or -1 if absent.
func (c *SimulatorController) NodeCount(pool string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if p := c.findPool(pool); p != nil {
		return p.count
	}
	return -1
}

func (c *SimulatorController) History() []ResizeRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()

	history := make([]ResizeRecord, len(c.history))
	copy(history, c.history)
	return history
}

func (c *SimulatorController) Authenticate(ctx context.Context) (Session, error) {
	c.mu.RLock()
	authErr := c.authErr
	c.mu.RUnlock()

	if authErr != nil {
		return nil, apperrors.Authentication("cluster.Authenticate", "simulated control plane rejected credentials", authErr)
	}
	return &simSession{controller: c}, nil
}

func (c *SimulatorController) findPool(name string) *simPool {
	for _, p := range c.pools {
		if p.name == name {
			return p
		}
	}
	return nil
}

type simSession struct {
	controller *SimulatorController
}

func (s *simSession) ClusterState(ctx context.Context) (*models.ClusterState, error) {
	const op = "cluster.ClusterState"
	c := s.controller

	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.stateErr != nil {
		return nil, apperrors.ClusterState(op, "simulated cluster lookup failed", c.stateErr)
	}
	if len(c.pools) == 0 {
		return nil, apperrors.ClusterState(op, fmt.Sprintf("cluster %s has no node pools", c.clusterID), nil)
	}

	first := c.pools[0]
	return &models.ClusterState{
		ClusterID: c.clusterID,
		NodePool:  first.name,
		NodeCount: first.count,
	}, nil
}

func (s *simSession) Resize(ctx context.Context, nodePool string, target int) error {
	const op = "cluster.Resize"
	c := s.controller

	if target < 0 {
		return apperrors.InvalidResult(op, fmt.Sprintf("target node count %d is negative", target), nil)
	}

	c.mu.RLock()
	resizeErr := c.resizeErr
	c.mu.RUnlock()
	if resizeErr != nil {
		return apperrors.ClusterState(op, "simulated resize failed", resizeErr)
	}

	// Simulate waiting on the provider's long-running operation
	if c.provisionTime > 0 {
		select {
		case <-ctx.Done():
			return apperrors.ClusterState(op, "resize interrupted", ctx.Err())
		case <-time.After(c.provisionTime):
		}
	}

	c.mu.Lock()
	pool := c.findPool(nodePool)
	if pool == nil {
		c.mu.Unlock()
		return apperrors.ClusterState(op, fmt.Sprintf("node pool %s not found", nodePool), nil)
	}

	record := ResizeRecord{
		NodePool:  nodePool,
		From:      pool.count,
		To:        target,
		AppliedAt: time.Now(),
	}
	pool.count = target
	c.history = append(c.history, record)
	c.mu.Unlock()

	logger.WithCluster(c.clusterID).Infof(
		"Node pool %s resized: %d -> %d", nodePool, record.From, record.To,
	)

	if c.callbacks.OnResize != nil {
		go c.callbacks.OnResize(record)
	}
	return nil
}
