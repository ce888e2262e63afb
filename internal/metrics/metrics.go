package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RemindersScheduled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reminders_scheduled_total",
			Help: "Total number of stage reminders scheduled",
		},
	)

	RemindersRemoved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reminders_removed_total",
			Help: "Total number of stage reminders removed",
		},
	)

	CalendarEventsAdded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "calendar_events_added_total",
			Help: "Total number of calendar events created",
		},
	)

	CalendarEventsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "calendar_events_skipped_total",
			Help: "Calendar events not created, by reason",
		},
		[]string{"reason"},
	)

	ReminderSyncFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminder_sync_failed_total",
			Help: "Reminder sync messages that failed processing",
		},
		[]string{"action"},
	)

	ReminderSyncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "reminder_sync_duration_seconds",
			Help: "Duration of reminder sync processing",
		},
		[]string{"action"},
	)
)
