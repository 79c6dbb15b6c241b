package forecast

import (
	"fmt"
	"time"

	"github.com/OldStager01/forecast-autoscaler/internal/logger"
	"github.com/OldStager01/forecast-autoscaler/internal/timeseries"
	"github.com/OldStager01/forecast-autoscaler/pkg/apperrors"
	"github.com/OldStager01/forecast-autoscaler/pkg/models"
)

// DefaultWindows are the window lengths the role models are trained with.
func DefaultWindows() map[models.Role]int {
	return map[models.Role]int{
		models.RoleAdmin:   5,
		models.RoleConfig:  7,
		models.RoleEndUser: 21,
	}
}

type ChainConfig struct {
	Windows map[models.Role]int

	// SharedEndUserModel feeds every role through the end-user model and its
	// window length. Artifacts trained for the legacy controller rely on it.
	SharedEndUserModel bool
}

// ModelSet holds the four models of a chain.
type ModelSet struct {
	Admin          Model
	Config         Model
	EndUser        Model
	CompletionTime Model
}

func (s ModelSet) forRole(role models.Role) Model {
	switch role {
	case models.RoleAdmin:
		return s.Admin
	case models.RoleConfig:
		return s.Config
	case models.RoleEndUser:
		return s.EndUser
	case models.RoleCompletionTime:
		return s.CompletionTime
	default:
		return nil
	}
}

type roleStage struct {
	role   models.Role
	model  Model
	window int
}

// Chain forecasts per-role activity from the latest window of each role's
// series and maps the three forecasts to a completion time.
type Chain struct {
	stages     []roleStage
	completion Model
}

func NewChain(cfg ChainConfig, set ModelSet) (*Chain, error) {
	const op = "forecast.NewChain"

	windows := cfg.Windows
	if windows == nil {
		windows = DefaultWindows()
	}

	chain := &Chain{stages: make([]roleStage, 0, len(models.ActivityRoles))}

	for _, role := range models.ActivityRoles {
		source := role
		if cfg.SharedEndUserModel {
			source = models.RoleEndUser
		}

		model := set.forRole(source)
		if model == nil {
			return nil, apperrors.ModelUnavailable(op, fmt.Sprintf("%s model not loaded", source), nil)
		}

		window := windows[source]
		if window <= 0 {
			return nil, apperrors.Configuration(op, fmt.Sprintf("window length for %s must be positive", source), nil)
		}
		if model.NumFeatures() != window {
			return nil, apperrors.ModelUnavailable(op,
				fmt.Sprintf("%s model expects %d features but window length is %d", source, model.NumFeatures(), window), nil)
		}

		chain.stages = append(chain.stages, roleStage{role: role, model: model, window: window})
	}

	if set.CompletionTime == nil {
		return nil, apperrors.ModelUnavailable(op, "completion_time model not loaded", nil)
	}
	if set.CompletionTime.NumFeatures() != len(models.ActivityRoles) {
		return nil, apperrors.ModelUnavailable(op,
			fmt.Sprintf("completion_time model expects %d features, chain produces %d",
				set.CompletionTime.NumFeatures(), len(models.ActivityRoles)), nil)
	}
	chain.completion = set.CompletionTime

	return chain, nil
}

// WindowLength reports the window length used for an activity role.
func (c *Chain) WindowLength(role models.Role) int {
	for _, s := range c.stages {
		if s.role == role {
			return s.window
		}
	}
	return 0
}

// Predict returns the forecast average completion time.
func (c *Chain) Predict(samples []models.ActivitySample) (float64, error) {
	f, err := c.Forecast(samples)
	if err != nil {
		return 0, err
	}
	return f.CompletionTime, nil
}

// Forecast runs the chain and keeps the intermediate role forecasts.
func (c *Chain) Forecast(samples []models.ActivitySample) (*models.Forecast, error) {
	const op = "forecast.Predict"

	features := make([]float64, len(c.stages))
	for i, stage := range c.stages {
		series := models.Series(samples, stage.role)
		window, ok := timeseries.LastWindow(series, stage.window)
		if !ok {
			return nil, apperrors.InsufficientData(op,
				fmt.Sprintf("%s series has %d samples, window length %d needs at least %d",
					stage.role, len(series), stage.window, stage.window+1), nil)
		}

		value, err := stage.model.Predict(window)
		if err != nil {
			return nil, apperrors.ModelUnavailable(op, fmt.Sprintf("%s model failed", stage.role), err)
		}
		features[i] = value
	}

	completion, err := c.completion.Predict(features)
	if err != nil {
		return nil, apperrors.ModelUnavailable(op, "completion_time model failed", err)
	}

	logger.WithFields(map[string]interface{}{
		"admin_users":     features[0],
		"config_users":    features[1],
		"end_users":       features[2],
		"completion_time": completion,
	}).Debug("Forecast computed")

	return &models.Forecast{
		CreatedAt:      time.Now(),
		AdminUsers:     features[0],
		ConfigUsers:    features[1],
		EndUsers:       features[2],
		CompletionTime: completion,
	}, nil
}
