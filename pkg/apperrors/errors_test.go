package apperrors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_UnwrapsKindAndCause(t *testing.T) {
	cause := errors.New("blob not found")
	err := DataUnavailable("store.Get", "log_data.json", cause)

	assert.ErrorIs(t, err, ErrDataUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrClusterState)
	assert.Equal(t, "store.Get: log_data.json: blob not found", err.Error())
}

func TestError_WithoutCause(t *testing.T) {
	err := InvalidResult("decision.Decide", "negative node count", nil)

	assert.ErrorIs(t, err, ErrInvalidResult)
	assert.Equal(t, "decision.Decide: negative node count", err.Error())
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{name: "nil", err: nil, expected: ""},
		{name: "configuration", err: Configuration("op", "msg", nil), expected: "ConfigurationError"},
		{name: "authentication", err: Authentication("op", "msg", nil), expected: "AuthenticationError"},
		{name: "cluster state", err: ClusterState("op", "msg", nil), expected: "ClusterStateError"},
		{name: "data unavailable", err: DataUnavailable("op", "msg", nil), expected: "DataUnavailableError"},
		{name: "insufficient data", err: InsufficientData("op", "msg", nil), expected: "InsufficientDataError"},
		{name: "model unavailable", err: ModelUnavailable("op", "msg", nil), expected: "ModelUnavailableError"},
		{name: "invalid result", err: InvalidResult("op", "msg", nil), expected: "InvalidResultError"},
		{
			name:     "wrapped twice",
			err:      fmt.Errorf("cycle aborted: %w", ClusterState("op", "msg", nil)),
			expected: "ClusterStateError",
		},
		{name: "outside taxonomy", err: context.DeadlineExceeded, expected: "UnknownError"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, KindOf(tt.err))
		})
	}
}
