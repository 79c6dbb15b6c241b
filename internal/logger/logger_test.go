package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/forecast-autoscaler/pkg/apperrors"
)

func TestWithCycle_AddsFields(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(os.Stdout) })

	WithCycle("aks-prod", "cycle-1").Info("decision made")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "aks-prod", entry["cluster_id"])
	assert.Equal(t, "cycle-1", entry["cycle_id"])
	assert.Equal(t, "decision made", entry["msg"])
}

func TestContextCarriesEntry(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(os.Stdout) })

	ctx := NewContext(context.Background(), WithCycle("aks-prod", "abc"))
	assert.Equal(t, "abc", CycleIDFromContext(ctx))
	assert.Empty(t, CycleIDFromContext(context.Background()))

	FromContext(ctx).Info("resized")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "abc", entry["cycle_id"])
	assert.Equal(t, "aks-prod", entry["cluster_id"])
}

func TestWithFailure_AddsErrorKind(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(os.Stdout) })

	err := apperrors.ClusterState("cluster.Resize", "node pool busy", nil)
	WithFailure(WithCluster("aks-prod"), err).Error("cycle failed")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "ClusterStateError", entry["error_kind"])
	assert.Contains(t, entry["error"], "node pool busy")
}

func TestSetup_DevelopmentUsesText(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		SetOutput(os.Stdout)
		Setup("info", "production")
	})

	Setup("debug", "development")
	Debug("visible")
	assert.Contains(t, buf.String(), "msg=visible")

	buf.Reset()
	Setup("warn", "production")
	Info("hidden")
	assert.Empty(t, buf.String())
}
