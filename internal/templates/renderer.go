// Package templates renders reminder subjects and bodies from a per-trigger
// template map with {{placeholder}} substitution. Values come from the
// trigger event's metadata plus a few computed fields; unresolved
// placeholders are stripped rather than left in the output.
package templates

import (
	"fmt"
	"strings"

	"reminder-engine/internal/models"
)

type template struct {
	Subject string
	Body    string
}

// Renderer holds the built-in template set. A trigger type without an
// entry falls back to a generic reminder text.
type Renderer struct {
	byTrigger map[string]template
}

func NewRenderer() *Renderer {
	return &Renderer{
		byTrigger: map[string]template{
			models.TriggerAppointmentUpcoming: {
				Subject: "Upcoming appointment for {{petName}}",
				Body:    "Reminder: {{petName}} has an appointment on {{anchorDate}} at {{clinicName}}.",
			},
			models.TriggerVaccinationDue: {
				Subject: "Vaccination due for {{petName}}",
				Body:    "{{petName}}'s {{vaccineName}} vaccination is due on {{anchorDate}}.",
			},
			models.TriggerVaccinationOverdue: {
				Subject: "Vaccination overdue for {{petName}}",
				Body:    "{{petName}}'s {{vaccineName}} vaccination was due on {{anchorDate}}. Please book a visit.",
			},
			models.TriggerPaymentDue: {
				Subject: "Payment due",
				Body:    "Your payment of {{amount}} is due on {{anchorDate}}.",
			},
			models.TriggerOrderReady: {
				Subject: "Your order is ready",
				Body:    "Order {{orderNumber}} is ready for pickup at {{clinicName}}.",
			},
		},
	}
}

func (r *Renderer) Render(ev models.TriggerEvent, rule models.ReminderRule, offset models.EscalationOffset) (string, string, error) {
	tmpl, ok := r.byTrigger[ev.TriggerType]
	if !ok {
		tmpl = template{
			Subject: "Reminder",
			Body:    "You have a reminder scheduled for {{anchorDate}}.",
		}
	}

	data := map[string]interface{}{
		"triggerType":    ev.TriggerType,
		"sourceEntityId": ev.SourceEntityID,
		"anchorDate":     ev.AnchorTime.Format("2 January 2006 15:04"),
		"offsetDays":     offset.Days,
	}
	for k, v := range ev.Metadata {
		data[k] = v
	}

	return render(tmpl.Subject, data), render(tmpl.Body, data), nil
}

// render substitutes known placeholders and strips the rest.
func render(tmpl string, data map[string]interface{}) string {
	result := tmpl

	for k, v := range data {
		placeholder := "{{" + k + "}}"
		value := ""
		if s, ok := v.(string); ok {
			value = s
		} else if v != nil {
			value = fmt.Sprintf("%v", v)
		}
		result = strings.ReplaceAll(result, placeholder, value)
	}

	for {
		start := strings.Index(result, "{{")
		if start == -1 {
			break
		}
		end := strings.Index(result[start:], "}}")
		if end == -1 {
			break
		}
		end += start + 2
		result = result[:start] + result[end:]
	}

	return strings.TrimSpace(result)
}
