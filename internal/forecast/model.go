// Package forecast predicts average task completion time from recent user
// activity by chaining per-role regression models into a completion-time model.
package forecast

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/OldStager01/forecast-autoscaler/pkg/apperrors"
)

// FormatLinearRegression is the only artifact format the decoder understands.
const FormatLinearRegression = "linear_regression"

// Model is a pre-trained regression mapping a fixed-length feature vector to a scalar.
type Model interface {
	Predict(features []float64) (float64, error)
	NumFeatures() int
}

// LinearModel predicts Intercept + sum(Coefficients[i] * features[i]).
type LinearModel struct {
	Coefficients []float64
	Intercept    float64
}

func NewLinearModel(coefficients []float64, intercept float64) *LinearModel {
	coef := make([]float64, len(coefficients))
	copy(coef, coefficients)
	return &LinearModel{Coefficients: coef, Intercept: intercept}
}

func (m *LinearModel) NumFeatures() int {
	return len(m.Coefficients)
}

func (m *LinearModel) Predict(features []float64) (float64, error) {
	if len(features) != len(m.Coefficients) {
		return 0, fmt.Errorf("expected %d features, got %d", len(m.Coefficients), len(features))
	}

	sum := m.Intercept
	for i, x := range features {
		sum += m.Coefficients[i] * x
	}
	return sum, nil
}

type modelArtifact struct {
	Format       string    `json:"format"`
	Coefficients []float64 `json:"coefficients"`
	Intercept    *float64  `json:"intercept"`
}

// DecodeModel deserializes a model artifact. Any failure is a ModelUnavailable error.
func DecodeModel(data []byte) (Model, error) {
	const op = "forecast.DecodeModel"

	var artifact modelArtifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, apperrors.ModelUnavailable(op, "malformed model artifact", err)
	}

	if artifact.Format != FormatLinearRegression {
		return nil, apperrors.ModelUnavailable(op, fmt.Sprintf("unsupported model format %q", artifact.Format), nil)
	}
	if len(artifact.Coefficients) == 0 {
		return nil, apperrors.ModelUnavailable(op, "model has no coefficients", nil)
	}
	if artifact.Intercept == nil {
		return nil, apperrors.ModelUnavailable(op, "model has no intercept", nil)
	}

	for i, c := range artifact.Coefficients {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return nil, apperrors.ModelUnavailable(op, fmt.Sprintf("coefficient %d is not finite", i), nil)
		}
	}
	if math.IsNaN(*artifact.Intercept) || math.IsInf(*artifact.Intercept, 0) {
		return nil, apperrors.ModelUnavailable(op, "intercept is not finite", nil)
	}

	return NewLinearModel(artifact.Coefficients, *artifact.Intercept), nil
}

// EncodeModel serializes a linear model into the artifact format DecodeModel reads.
func EncodeModel(m *LinearModel) ([]byte, error) {
	intercept := m.Intercept
	return json.Marshal(modelArtifact{
		Format:       FormatLinearRegression,
		Coefficients: m.Coefficients,
		Intercept:    &intercept,
	})
}
