package decision

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/forecast-autoscaler/pkg/apperrors"
	"github.com/OldStager01/forecast-autoscaler/pkg/models"
)

func newTestPolicy(t *testing.T, mode FloorMode) *Policy {
	t.Helper()

	p, err := NewPolicy(Config{
		SLA:       50,
		Threshold: 20,
		Increment: 1,
		MinNodes:  2,
		FloorMode: mode,
	})
	require.NoError(t, err)
	return p
}

func TestPolicy_Decide(t *testing.T) {
	tests := []struct {
		name           string
		mode           FloorMode
		prediction     float64
		current        int
		expectedAction models.ScalingAction
		expectedTarget int
		expectedReason string
	}{
		{
			name:           "over sla scales up",
			mode:           FloorSymmetric,
			prediction:     71,
			current:        2,
			expectedAction: models.ActionSetNodeCount,
			expectedTarget: 3,
			expectedReason: ReasonOverSLA,
		},
		{
			name:           "scale up lifts to the floor",
			mode:           FloorSymmetric,
			prediction:     90,
			current:        0,
			expectedAction: models.ActionSetNodeCount,
			expectedTarget: 2,
			expectedReason: ReasonOverSLA,
		},
		{
			name:           "prediction equal to sla",
			mode:           FloorSymmetric,
			prediction:     50,
			current:        2,
			expectedAction: models.ActionNoChange,
			expectedTarget: 2,
			expectedReason: ReasonWithinBand,
		},
		{
			name:           "exactly the upper bound",
			mode:           FloorSymmetric,
			prediction:     70,
			current:        4,
			expectedAction: models.ActionNoChange,
			expectedTarget: 4,
			expectedReason: ReasonWithinBand,
		},
		{
			name:           "exactly the lower bound",
			mode:           FloorSymmetric,
			prediction:     30,
			current:        4,
			expectedAction: models.ActionNoChange,
			expectedTarget: 4,
			expectedReason: ReasonWithinBand,
		},
		{
			name:           "under sla clamps at the floor",
			mode:           FloorSymmetric,
			prediction:     29,
			current:        2,
			expectedAction: models.ActionSetNodeCount,
			expectedTarget: 2,
			expectedReason: ReasonUnderSLA,
		},
		{
			name:           "under sla without floor on scale down",
			mode:           FloorScaleUpOnly,
			prediction:     29,
			current:        2,
			expectedAction: models.ActionSetNodeCount,
			expectedTarget: 1,
			expectedReason: ReasonUnderSLA,
		},
		{
			name:           "under sla above the floor",
			mode:           FloorSymmetric,
			prediction:     10,
			current:        5,
			expectedAction: models.ActionSetNodeCount,
			expectedTarget: 4,
			expectedReason: ReasonUnderSLA,
		},
		{
			name:           "under sla below the floor raises to the floor",
			mode:           FloorSymmetric,
			prediction:     10,
			current:        1,
			expectedAction: models.ActionSetNodeCount,
			expectedTarget: 2,
			expectedReason: ReasonBelowFloor,
		},
		{
			name:           "scale down to zero without floor",
			mode:           FloorScaleUpOnly,
			prediction:     10,
			current:        1,
			expectedAction: models.ActionSetNodeCount,
			expectedTarget: 0,
			expectedReason: ReasonUnderSLA,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPolicy(t, tt.mode)

			result, err := p.Decide("test-cluster", tt.prediction, tt.current)
			require.NoError(t, err)

			assert.Equal(t, tt.expectedAction, result.Action)
			assert.Equal(t, tt.expectedTarget, result.TargetNodes)
			assert.Equal(t, tt.expectedReason, result.Reason)
			assert.Equal(t, tt.current, result.CurrentNodes)
			assert.Equal(t, 30.0, result.LowerBound)
			assert.Equal(t, 70.0, result.UpperBound)
		})
	}
}

func TestPolicy_Decide_NeverNegative(t *testing.T) {
	p := newTestPolicy(t, FloorScaleUpOnly)

	_, err := p.Decide("test-cluster", 5, 0)
	assert.ErrorIs(t, err, apperrors.ErrInvalidResult)
}

func TestPolicy_Decide_InvalidInputs(t *testing.T) {
	p := newTestPolicy(t, FloorSymmetric)

	tests := []struct {
		name       string
		prediction float64
		current    int
	}{
		{name: "nan prediction", prediction: math.NaN(), current: 2},
		{name: "infinite prediction", prediction: math.Inf(1), current: 2},
		{name: "negative current count", prediction: 50, current: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Decide("test-cluster", tt.prediction, tt.current)
			assert.ErrorIs(t, err, apperrors.ErrInvalidResult)
		})
	}
}

func TestPolicy_Decide_Idempotent(t *testing.T) {
	p := newTestPolicy(t, FloorSymmetric)

	for _, prediction := range []float64{0, 29.999, 30, 50, 70, 70.001, 500} {
		first, err := p.Decide("test-cluster", prediction, 3)
		require.NoError(t, err)

		for i := 0; i < 5; i++ {
			again, err := p.Decide("test-cluster", prediction, 3)
			require.NoError(t, err)
			assert.Equal(t, first.Action, again.Action)
			assert.Equal(t, first.TargetNodes, again.TargetNodes)
		}
	}
}

func TestNewPolicy_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "negative threshold", cfg: Config{SLA: 50, Threshold: -1, Increment: 1, MinNodes: 2}},
		{name: "zero increment", cfg: Config{SLA: 50, Threshold: 20, Increment: 0, MinNodes: 2}},
		{name: "zero min nodes", cfg: Config{SLA: 50, Threshold: 20, Increment: 1, MinNodes: 0}},
		{name: "nan sla", cfg: Config{SLA: math.NaN(), Threshold: 20, Increment: 1, MinNodes: 2}},
		{name: "unknown floor mode", cfg: Config{SLA: 50, Threshold: 20, Increment: 1, MinNodes: 2, FloorMode: "sideways"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPolicy(tt.cfg)
			assert.ErrorIs(t, err, apperrors.ErrConfiguration)
		})
	}

	p, err := NewPolicy(Config{SLA: 50, Threshold: 0, Increment: 1, MinNodes: 1})
	require.NoError(t, err)
	assert.Equal(t, FloorSymmetric, p.Config().FloorMode)
}
