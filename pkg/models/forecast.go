package models

import "time"

// Forecast holds the chain's per-role activity forecasts and the final
// completion-time forecast derived from them.
type Forecast struct {
	ClusterID      string    `json:"cluster_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	AdminUsers     float64   `json:"admin_users"`
	ConfigUsers    float64   `json:"config_users"`
	EndUsers       float64   `json:"end_users"`
	CompletionTime float64   `json:"completion_time"`
}

// Features returns the role forecasts in ActivityRoles order.
func (f *Forecast) Features() []float64 {
	return []float64{f.AdminUsers, f.ConfigUsers, f.EndUsers}
}
