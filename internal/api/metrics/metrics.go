// Package metrics defines and registers the custom Prometheus metrics of the
// console gateway. It is the single source of truth for metric names, labels
// and help strings.
//
// Metrics are registered with the default registry through promauto, so
// importing the package is enough.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "console"

// ── Access control ────────────────────────────────────────────────────────────

// GuardDecisionsTotal counts route guard outcomes.
// Label:
//   - state: LOADING, DENIED_ANONYMOUS, DENIED_FORBIDDEN or GRANTED
var GuardDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "guard_decisions_total",
		Help:      "Total number of route guard decisions, by resulting state.",
	},
	[]string{"state"},
)

// ── Sessions ──────────────────────────────────────────────────────────────────

// LoginsTotal counts login attempts.
// Label:
//   - outcome: "success" or the failure reason (e.g. "invalid_credentials", "network")
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by outcome.",
	},
	[]string{"outcome"},
)

// ForcedLogoutsTotal counts sessions ended because the billing API rejected
// the credential.
// Label:
//   - source: where the 401 was observed ("proxy", "console", "poller")
var ForcedLogoutsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "forced_logouts_total",
		Help:      "Total number of sessions ended by an upstream 401.",
	},
	[]string{"source"},
)

// LiveSessions is the number of consoles held in memory.
var LiveSessions = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "live_sessions",
		Help:      "Current number of browser sessions held in the in-memory registry.",
	},
)

// ── Upstream ──────────────────────────────────────────────────────────────────

// NotificationPollsTotal counts notification poll runs.
// Label:
//   - outcome: "ok", "unauthorized" or "error"
var NotificationPollsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notification_polls_total",
		Help:      "Total number of notification polls, by outcome.",
	},
	[]string{"outcome"},
)

// ProxyDuration measures proxied billing API calls.
// Label:
//   - code: upstream status code, or "error" when the API was unreachable
var ProxyDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "proxy_duration_seconds",
		Help:      "Duration of proxied billing API requests.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"code"},
)
