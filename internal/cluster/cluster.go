package cluster

import (
	"context"

	"github.com/OldStager01/forecast-autoscaler/pkg/models"
)

// Controller authenticates against a cluster-control plane.
type Controller interface {
	// Authenticate verifies credentials and returns a session bound to one cluster
	Authenticate(ctx context.Context) (Session, error)
}

// Session reads and resizes one cluster on behalf of a single decision cycle.
type Session interface {
	// ClusterState returns the node count of the cluster's first node pool
	ClusterState(ctx context.Context) (*models.ClusterState, error)

	// Resize sets the node count of a pool and waits until the change is applied
	Resize(ctx context.Context, nodePool string, target int) error
}
