package sqlsafe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sayandkrishna/querypilot/pkg/apperrors"
)

func TestCheckValueForInjection(t *testing.T) {
	tests := []struct {
		name            string
		value           string
		expectInjection bool
	}{
		{name: "plain value", value: "alice", expectInjection: false},
		{name: "numeric string", value: "12345", expectInjection: false},
		{name: "value with spaces", value: "New York", expectInjection: false},
		{name: "classic injection", value: "' OR '1'='1", expectInjection: true},
		{name: "drop table", value: "'; DROP TABLE users--", expectInjection: true},
		{name: "union select", value: "x' UNION SELECT password FROM users--", expectInjection: true},
		{name: "empty value", value: "", expectInjection: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CheckValueForInjection(tt.value)
			if tt.expectInjection {
				require.NotNil(t, result)
				assert.True(t, result.IsSQLi)
				assert.NotEmpty(t, result.Fingerprint)
			} else {
				assert.Nil(t, result)
			}
		})
	}
}

func TestScreenValues(t *testing.T) {
	assert.NoError(t, ScreenValues([]string{"alice", "42", "New York"}))
	assert.NoError(t, ScreenValues(nil))

	err := ScreenValues([]string{"alice", "' OR '1'='1"})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindUnsafeStatement))
}
