// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ==========================
// Prometheus Metrics
// ==========================

var (
	// FetchesTotal counts menu fetch attempts against the peer by outcome.
	FetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "menubot_fetches_total",
			Help: "Total number of menu fetch attempts by status (success, timeout, error)",
		},
		[]string{"status"},
	)

	// FetchDuration observes end-to-end fetch latency including the wait
	// for the peer reply.
	FetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "menubot_fetch_duration_seconds",
			Help:    "Duration of menu fetches in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5},
		},
	)

	// CacheRefreshesTotal counts snapshot recomputations by outcome.
	CacheRefreshesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "menubot_cache_refreshes_total",
			Help: "Total number of menu cache refreshes by status (success, error)",
		},
		[]string{"status"},
	)

	// SchedulerTicksTotal counts scheduler loop iterations.
	SchedulerTicksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "menubot_scheduler_ticks_total",
			Help: "Total number of notification scheduler ticks",
		},
	)

	// NotificationsTotal counts scheduled notification deliveries.
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "menubot_notifications_total",
			Help: "Total number of scheduled notifications by channel and status",
		},
		[]string{"channel", "status"},
	)

	// SubscriptionsActive tracks the current number of subscribed recipients.
	SubscriptionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "menubot_subscriptions_active",
			Help: "Current number of active subscriptions",
		},
	)

	// GatewayMessagesTotal counts chat frames by direction.
	GatewayMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "menubot_gateway_messages_total",
			Help: "Total number of chat gateway messages by direction (inbound, outbound)",
		},
		[]string{"direction"},
	)
)

// RecordFetch records the outcome and duration of a single menu fetch.
func RecordFetch(status string, seconds float64) {
	FetchesTotal.WithLabelValues(status).Inc()
	FetchDuration.Observe(seconds)
}

// RecordNotification records a scheduled notification attempt.
func RecordNotification(channel, status string) {
	NotificationsTotal.WithLabelValues(channel, status).Inc()
}
