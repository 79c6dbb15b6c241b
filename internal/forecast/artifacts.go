package forecast

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/OldStager01/forecast-autoscaler/internal/logger"
	"github.com/OldStager01/forecast-autoscaler/pkg/apperrors"
	"github.com/OldStager01/forecast-autoscaler/pkg/models"
)

// BlobSource is the read side of an object store session.
type BlobSource interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

// ArtifactKeys names the objects published by the training pipeline.
type ArtifactKeys struct {
	Dataset        string
	AdminModel     string
	ConfigModel    string
	EndUserModel   string
	CompletionTime string
}

func DefaultArtifactKeys() ArtifactKeys {
	return ArtifactKeys{
		Dataset:        "log_data.json",
		AdminModel:     "admin_users.json",
		ConfigModel:    "config_users.json",
		EndUserModel:   "end_users.json",
		CompletionTime: "avg_completion_time.json",
	}
}

// ModelKeys returns the model object keys by role.
func (k ArtifactKeys) ModelKeys() map[models.Role]string {
	return map[models.Role]string{
		models.RoleAdmin:          k.AdminModel,
		models.RoleConfig:         k.ConfigModel,
		models.RoleEndUser:        k.EndUserModel,
		models.RoleCompletionTime: k.CompletionTime,
	}
}

// Artifacts is everything a cycle loads from the object store.
type Artifacts struct {
	Dataset *models.Dataset
	Models  ModelSet
}

type datasetArtifact struct {
	Samples [][]float64 `json:"samples"`
	Labels  []float64   `json:"labels"`
}

// DecodeDataset deserializes the dataset artifact. Each sample is an
// [admin, config, end_user] triple.
func DecodeDataset(data []byte) (*models.Dataset, error) {
	const op = "forecast.DecodeDataset"

	var artifact datasetArtifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, apperrors.DataUnavailable(op, "malformed dataset artifact", err)
	}

	samples := make([]models.ActivitySample, len(artifact.Samples))
	for i, row := range artifact.Samples {
		if len(row) != len(models.ActivityRoles) {
			return nil, apperrors.DataUnavailable(op,
				fmt.Sprintf("sample %d has %d fields, expected %d", i, len(row), len(models.ActivityRoles)), nil)
		}
		samples[i] = models.ActivitySample{AdminUsers: row[0], ConfigUsers: row[1], EndUsers: row[2]}
	}

	return &models.Dataset{Samples: samples, Labels: artifact.Labels}, nil
}

// EncodeDataset serializes a dataset into the artifact format DecodeDataset reads.
func EncodeDataset(ds *models.Dataset) ([]byte, error) {
	rows := make([][]float64, len(ds.Samples))
	for i, s := range ds.Samples {
		rows[i] = []float64{s.AdminUsers, s.ConfigUsers, s.EndUsers}
	}
	labels := ds.Labels
	if labels == nil {
		labels = []float64{}
	}
	return json.Marshal(datasetArtifact{Samples: rows, Labels: labels})
}

// LoadArtifacts fetches and decodes the dataset and the four models. A missing
// object is a DataUnavailable error; a model that does not decode is a
// ModelUnavailable error.
func LoadArtifacts(ctx context.Context, src BlobSource, keys ArtifactKeys) (*Artifacts, error) {
	raw, err := src.Get(ctx, keys.Dataset)
	if err != nil {
		return nil, err
	}
	dataset, err := DecodeDataset(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", keys.Dataset, err)
	}
	log := logger.FromContext(ctx)
	log.Debugf("Loaded dataset %s with %d samples", keys.Dataset, len(dataset.Samples))

	loaded := make(map[models.Role]Model, 4)
	for _, role := range []models.Role{models.RoleCompletionTime, models.RoleEndUser, models.RoleConfig, models.RoleAdmin} {
		key := keys.ModelKeys()[role]
		raw, err := src.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		model, err := DecodeModel(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		loaded[role] = model
		log.Debugf("Loaded %s model %s (%d features)", role, key, model.NumFeatures())
	}

	return &Artifacts{
		Dataset: dataset,
		Models: ModelSet{
			Admin:          loaded[models.RoleAdmin],
			Config:         loaded[models.RoleConfig],
			EndUser:        loaded[models.RoleEndUser],
			CompletionTime: loaded[models.RoleCompletionTime],
		},
	}, nil
}
