// internal/rules/registry_test.go
package rules

import (
	"testing"

	engineerrors "reminder-engine/internal/common/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRegistry_Valid(t *testing.T) {
	reg, err := ParseRegistry([]byte(`{
		"version": "1",
		"rules": [
			{
				"triggerType": "vaccination_due",
				"channel": "email",
				"category": "vaccination",
				"offsets": [{"days": 14}, {"days": 7}, {"days": 1}]
			},
			{
				"triggerType": "vaccination_due",
				"channel": "sms",
				"category": "vaccination",
				"offsets": [{"days": 1}],
				"maxAttempts": 2
			}
		]
	}`))

	require.NoError(t, err)
	assert.Len(t, reg.RulesFor("vaccination_due"), 2)
	assert.Empty(t, reg.RulesFor("order_ready"))
	assert.Equal(t, []string{"vaccination_due"}, reg.TriggerTypes())
}

func TestParseRegistry_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{
			name: "unknown channel",
			data: `{"version": "1", "rules": [{"triggerType": "a", "channel": "fax", "category": "order", "offsets": [{"days": 1}]}]}`,
		},
		{
			name: "unknown category",
			data: `{"version": "1", "rules": [{"triggerType": "a", "channel": "email", "category": "billing", "offsets": [{"days": 1}]}]}`,
		},
		{
			name: "empty offsets",
			data: `{"version": "1", "rules": [{"triggerType": "a", "channel": "email", "category": "order", "offsets": []}]}`,
		},
		{
			name: "missing trigger type",
			data: `{"version": "1", "rules": [{"channel": "email", "category": "order", "offsets": [{"days": 1}]}]}`,
		},
		{
			name: "max attempts out of range",
			data: `{"version": "1", "rules": [{"triggerType": "a", "channel": "email", "category": "order", "offsets": [{"days": 1}], "maxAttempts": 50}]}`,
		},
		{
			name: "missing rules",
			data: `{"version": "1"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRegistry([]byte(tt.data))
			require.Error(t, err)

			stdErr := engineerrors.AsStandard(err)
			assert.Equal(t, engineerrors.ErrCodeRegistryInvalid, stdErr.Code)
		})
	}
}

func TestParseRegistry_MalformedJSON(t *testing.T) {
	_, err := ParseRegistry([]byte(`{not json`))
	require.Error(t, err)
}
