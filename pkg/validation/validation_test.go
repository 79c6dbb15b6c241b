package validation

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestValidateClusterName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "aks-prod", false},
		{"single char", "a", false},
		{"underscore inside", "aks_prod_01", false},
		{"empty", "", true},
		{"leading hyphen", "-aks", true},
		{"trailing underscore", "aks_", true},
		{"space", "aks prod", true},
		{"too long", string(make([]byte, 64)), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateClusterName(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateNodePoolName(t *testing.T) {
	assert.NoError(t, ValidateNodePoolName("agentpool"))
	assert.NoError(t, ValidateNodePoolName("pool1"))
	assert.Error(t, ValidateNodePoolName(""))
	assert.Error(t, ValidateNodePoolName("1pool"))
	assert.Error(t, ValidateNodePoolName("AgentPool"))
	assert.Error(t, ValidateNodePoolName("averyverylongpool"))
}

func TestValidateCycleID(t *testing.T) {
	assert.NoError(t, ValidateCycleID(uuid.New().String()))
	assert.Error(t, ValidateCycleID("latest"))
	assert.Error(t, ValidateCycleID(""))
}

func TestValidateUsername(t *testing.T) {
	assert.NoError(t, ValidateUsername("operator"))
	assert.NoError(t, ValidateUsername("  ops@example.com  "))
	assert.Error(t, ValidateUsername("op"))
	assert.Error(t, ValidateUsername("\x00\x00"))
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		password string
		wantErr  bool
	}{
		{"Str0ng-pass", false},
		{"Sh0rt!", true},
		{"alllower1!", true},
		{"ALLUPPER1!", true},
		{"NoDigits!!", true},
		{"NoSpecial12", true},
	}

	for _, tt := range tests {
		t.Run(tt.password, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "hello\tworld", SanitizeString("  hel\x00lo\tworld\x07 "))
}
