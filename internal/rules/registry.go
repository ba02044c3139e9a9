// internal/rules/registry.go
package rules

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	engineerrors "reminder-engine/internal/common/errors"
	"reminder-engine/internal/models"

	"github.com/xeipuuv/gojsonschema"
)

// registrySchema validates the rule registry file before anything is
// unmarshalled. Bad configuration fails startup, not a 3 a.m. tick.
const registrySchema = `{
	"type": "object",
	"required": ["version", "rules"],
	"properties": {
		"version": {"type": "string"},
		"rules": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["triggerType", "channel", "category", "offsets"],
				"properties": {
					"triggerType": {"type": "string", "minLength": 1},
					"channel": {"enum": ["email", "sms", "whatsapp", "push"]},
					"category": {"enum": ["appointment", "vaccination", "promotional", "order"]},
					"maxAttempts": {"type": "integer", "minimum": 1, "maximum": 10},
					"offsets": {
						"type": "array",
						"minItems": 1,
						"items": {
							"type": "object",
							"properties": {
								"days": {"type": "integer", "minimum": 0},
								"hours": {"type": "integer", "minimum": 0}
							},
							"additionalProperties": false
						}
					}
				}
			}
		}
	}
}`

// RuleRegistry is the parsed registry file.
type RuleRegistry struct {
	Version string                `json:"version"`
	Rules   []models.ReminderRule `json:"rules"`
}

// Registry indexes reminder rules by trigger type. One trigger type may
// carry several rules (one per channel). Read-only after load.
type Registry struct {
	byTrigger map[string][]models.ReminderRule
}

// LoadRegistry reads, validates, and indexes the rule registry file.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule registry: %w", err)
	}
	return ParseRegistry(data)
}

// ParseRegistry validates raw registry JSON against the schema and builds
// the index.
func ParseRegistry(data []byte) (*Registry, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(registrySchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return nil, fmt.Errorf("validate rule registry: %w", err)
	}
	if !result.Valid() {
		var details []string
		for _, e := range result.Errors() {
			details = append(details, e.String())
		}
		return nil, engineerrors.NewRegistryInvalidError(strings.Join(details, "; "))
	}

	var reg RuleRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("unmarshal rule registry: %w", err)
	}

	byTrigger := make(map[string][]models.ReminderRule, len(reg.Rules))
	for _, rule := range reg.Rules {
		byTrigger[rule.TriggerType] = append(byTrigger[rule.TriggerType], rule)
	}

	return &Registry{byTrigger: byTrigger}, nil
}

// RulesFor returns every rule configured for the trigger type.
func (r *Registry) RulesFor(triggerType string) []models.ReminderRule {
	return r.byTrigger[triggerType]
}

// TriggerTypes lists the configured trigger types.
func (r *Registry) TriggerTypes() []string {
	out := make([]string, 0, len(r.byTrigger))
	for t := range r.byTrigger {
		out = append(out, t)
	}
	return out
}
