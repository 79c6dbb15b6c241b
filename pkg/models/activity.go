package models

// Role identifies one of the regression models in the forecast chain.
type Role string

const (
	RoleAdmin          Role = "admin"
	RoleConfig         Role = "config"
	RoleEndUser        Role = "end_user"
	RoleCompletionTime Role = "completion_time"
)

// ActivityRoles is the fixed order in which role forecasts feed the
// completion-time model.
var ActivityRoles = []Role{RoleAdmin, RoleConfig, RoleEndUser}

// ActivitySample is the number of active users per role at one time step
type ActivitySample struct {
	AdminUsers  float64 `json:"admin_users"`
	ConfigUsers float64 `json:"config_users"`
	EndUsers    float64 `json:"end_users"`
}

// Value returns the sample's count for an activity role.
func (s ActivitySample) Value(role Role) (float64, bool) {
	switch role {
	case RoleAdmin:
		return s.AdminUsers, true
	case RoleConfig:
		return s.ConfigUsers, true
	case RoleEndUser:
		return s.EndUsers, true
	default:
		return 0, false
	}
}

// Dataset is the historical telemetry produced by the offline pipeline.
// Samples are chronological. Labels are the observed completion times and
// are only consumed by training.
type Dataset struct {
	Samples []ActivitySample `json:"samples"`
	Labels  []float64        `json:"labels"`
}

// Series extracts one role's sub-series, preserving order.
func Series(samples []ActivitySample, role Role) []float64 {
	series := make([]float64, 0, len(samples))
	for _, s := range samples {
		v, ok := s.Value(role)
		if !ok {
			return nil
		}
		series = append(series, v)
	}
	return series
}
