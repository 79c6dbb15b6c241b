package simulator

import (
	"context"
	"fmt"

	"github.com/OldStager01/forecast-autoscaler/internal/forecast"
	"github.com/OldStager01/forecast-autoscaler/internal/store"
	"github.com/OldStager01/forecast-autoscaler/pkg/models"
)

// PersistenceModel predicts the newest value of a window of the given length.
func PersistenceModel(window int) *forecast.LinearModel {
	coef := make([]float64, window)
	coef[window-1] = 1
	return forecast.NewLinearModel(coef, 0)
}

// Bundle is a dataset plus a model set that a decision cycle can consume.
type Bundle struct {
	Dataset    *models.Dataset
	Admin      *forecast.LinearModel
	Config     *forecast.LinearModel
	EndUser    *forecast.LinearModel
	Completion *forecast.LinearModel
}

// NewBundle pairs ds with persistence role models sized to windows and the
// generator's completion weights.
func NewBundle(ds *models.Dataset, windows map[models.Role]int, weights CompletionWeights) (*Bundle, error) {
	for _, role := range models.ActivityRoles {
		if windows[role] <= 0 {
			return nil, fmt.Errorf("window length for %s must be positive", role)
		}
	}
	return &Bundle{
		Dataset:    ds,
		Admin:      PersistenceModel(windows[models.RoleAdmin]),
		Config:     PersistenceModel(windows[models.RoleConfig]),
		EndUser:    PersistenceModel(windows[models.RoleEndUser]),
		Completion: weights.Model(),
	}, nil
}

// Publish writes the bundle under keys.
func (b *Bundle) Publish(ctx context.Context, session store.Session, keys forecast.ArtifactKeys) error {
	dataset, err := forecast.EncodeDataset(b.Dataset)
	if err != nil {
		return fmt.Errorf("encode dataset: %w", err)
	}
	if err := session.Put(ctx, keys.Dataset, dataset); err != nil {
		return err
	}

	for key, model := range map[string]*forecast.LinearModel{
		keys.AdminModel:     b.Admin,
		keys.ConfigModel:    b.Config,
		keys.EndUserModel:   b.EndUser,
		keys.CompletionTime: b.Completion,
	} {
		data, err := forecast.EncodeModel(model)
		if err != nil {
			return fmt.Errorf("encode %s: %w", key, err)
		}
		if err := session.Put(ctx, key, data); err != nil {
			return err
		}
	}
	return nil
}
