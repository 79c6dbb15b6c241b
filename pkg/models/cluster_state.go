package models

// ClusterState is the node count of the cluster's first node pool, read once per cycle.
// Clusters with several pools are only observed through their first pool.
type ClusterState struct {
	ClusterID string `json:"cluster_id"`
	NodePool  string `json:"node_pool"`
	NodeCount int    `json:"node_count"`
}
