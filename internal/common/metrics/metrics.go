// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SchedulerTicks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reminder_scheduler_ticks_total",
			Help: "Total number of scheduler ticks",
		},
	)

	RemindersClaimed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reminder_claims_total",
			Help: "Total number of reminders claimed for dispatch",
		},
	)

	ClaimConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reminder_claim_conflicts_total",
			Help: "Claim attempts lost to a concurrent dispatcher",
		},
	)

	StaleClaimsRecovered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reminder_stale_claims_recovered_total",
			Help: "Claimed reminders reset to pending after the liveness threshold",
		},
	)

	ReminderTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminder_transitions_total",
			Help: "Reminder status transitions by resulting status",
		},
		[]string{"status"},
	)

	RetriesRequeued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reminder_retries_requeued_total",
			Help: "Reminders whose elapsed next_retry was cleared by the sweeper",
		},
	)

	SendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "reminder_send_duration_seconds",
			Help: "Duration of channel sender calls in seconds",
		},
		[]string{"channel"},
	)

	SendFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminder_send_failures_total",
			Help: "Failed channel sender calls",
		},
		[]string{"channel", "error_code"},
	)

	RemindersPurged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reminder_retention_purged_total",
			Help: "Terminal reminders deleted by the retention job",
		},
	)

	LogsPurged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reminder_logs_purged_total",
			Help: "Notification log rows deleted by the retention job",
		},
	)
)
