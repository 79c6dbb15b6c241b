package forecast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/forecast-autoscaler/pkg/apperrors"
)

func TestLinearModel_Predict(t *testing.T) {
	m := NewLinearModel([]float64{0.5, 2}, 10)

	got, err := m.Predict([]float64{4, 3})
	require.NoError(t, err)
	assert.InDelta(t, 18.0, got, 1e-9)

	_, err = m.Predict([]float64{1})
	assert.Error(t, err)
}

func TestDecodeModel(t *testing.T) {
	tests := []struct {
		name      string
		data      string
		expectErr bool
		features  int
	}{
		{
			name:     "valid",
			data:     `{"format":"linear_regression","coefficients":[0.1,0.2,0.3],"intercept":1.5}`,
			features: 3,
		},
		{
			name:     "zero intercept",
			data:     `{"format":"linear_regression","coefficients":[1],"intercept":0}`,
			features: 1,
		},
		{name: "not json", data: `\x80\x04pickle`, expectErr: true},
		{name: "unknown format", data: `{"format":"random_forest","coefficients":[1],"intercept":0}`, expectErr: true},
		{name: "no coefficients", data: `{"format":"linear_regression","coefficients":[],"intercept":0}`, expectErr: true},
		{name: "no intercept", data: `{"format":"linear_regression","coefficients":[1]}`, expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := DecodeModel([]byte(tt.data))
			if tt.expectErr {
				assert.ErrorIs(t, err, apperrors.ErrModelUnavailable)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.features, m.NumFeatures())
		})
	}
}

func TestEncodeModel_RoundTrip(t *testing.T) {
	original := NewLinearModel([]float64{0.25, -1, 3}, 7)

	data, err := EncodeModel(original)
	require.NoError(t, err)

	decoded, err := DecodeModel(data)
	require.NoError(t, err)

	want, _ := original.Predict([]float64{1, 2, 3})
	got, err := decoded.Predict([]float64{1, 2, 3})
	require.NoError(t, err)
	assert.InDelta(t, want, got, 1e-12)
}
