// internal/metrics/metrics.go
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	EventsProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "riskd_events_processed_total",
		Help: "Inbound events processed, by event type",
	}, []string{"type"})

	EventsDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "riskd_events_dropped_total",
		Help: "Malformed inbound events dropped by validation",
	})

	EventsGated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "riskd_events_gated_total",
		Help: "Events that updated state but skipped rules because the account was locked",
	})

	Breaches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "riskd_breaches_total",
		Help: "Rule breaches that triggered enforcement, by rule",
	}, []string{"rule"})

	Enforcements = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "riskd_enforcements_total",
		Help: "Enforcement actions by type and outcome",
	}, []string{"action", "outcome"})

	LockoutsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "riskd_lockouts_active",
		Help: "Accounts currently locked out",
	})

	PersistFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "riskd_persist_failures_total",
		Help: "Snapshot flush failures",
	})
)

func init() {
	prometheus.MustRegister(
		EventsProcessed, EventsDropped, EventsGated,
		Breaches, Enforcements, LockoutsActive, PersistFailures,
	)
}
