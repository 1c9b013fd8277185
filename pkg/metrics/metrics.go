// Package metrics defines the Prometheus metrics exported by the service.
// All metrics are registered with the default registry on package load and
// exposed through the /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "activities"

// Outcome labels shared by the participation counters.
const (
	OutcomeSuccess       = "success"
	OutcomeNotFound      = "activity_not_found"
	OutcomeDuplicate     = "already_registered"
	OutcomeFull          = "activity_full"
	OutcomeNotRegistered = "not_registered"
	OutcomeInvalid       = "invalid"
	OutcomeError         = "error"
)

// SignupsTotal counts signup attempts.
// Label:
//   - outcome: success, activity_not_found, already_registered, activity_full, invalid, error
var SignupsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "signups_total",
		Help:      "Total number of signup attempts, by outcome.",
	},
	[]string{"outcome"},
)

// UnregistrationsTotal counts unregister attempts.
// Label:
//   - outcome: success, activity_not_found, not_registered, invalid, error
var UnregistrationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "unregistrations_total",
		Help:      "Total number of unregister attempts, by outcome.",
	},
	[]string{"outcome"},
)

// UsersCreatedTotal counts users created lazily by signup.
var UsersCreatedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "users_created_total",
		Help:      "Total number of users created by the find-or-create step of signup.",
	},
)

// ListingCacheTotal counts listing cache lookups.
// Label:
//   - result: "hit" or "miss"
var ListingCacheTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "listing_cache_total",
		Help:      "Total number of activity listing cache lookups, by result.",
	},
	[]string{"result"},
)

// HTTPRequestsTotal counts served HTTP requests.
var HTTPRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests, by method, route and status code.",
	},
	[]string{"method", "route", "status"},
)

// HTTPRequestDuration measures HTTP request latency.
var HTTPRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Duration of HTTP requests, by method and route.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "route"},
)

// DBQueryDuration measures SQL statements issued through gorm.
// Label:
//   - outcome: "ok", "slow", "constraint" or "error"
var DBQueryDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "db",
		Name:      "query_duration_seconds",
		Help:      "Duration of SQL statements, by outcome.",
		Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
	},
	[]string{"outcome"},
)
