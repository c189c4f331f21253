// Package metrics registers the service's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsCreated counts approval requests created, by entity type.
	RequestsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pm_approvals",
		Name:      "requests_created_total",
		Help:      "Approval requests created.",
	}, []string{"entity_type"})

	// Decisions counts step decisions, by outcome.
	Decisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pm_approvals",
		Name:      "decisions_total",
		Help:      "Step decisions applied.",
	}, []string{"outcome"})

	// Resubmissions counts successful workflow resubmissions.
	Resubmissions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pm_approvals",
		Name:      "resubmissions_total",
		Help:      "Workflows reset from revision_requested back to pending.",
	})

	// DecideDuration observes end-to-end decision transaction latency.
	DecideDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "pm_approvals",
		Name:      "decide_duration_seconds",
		Help:      "Latency of the decide transaction.",
		Buckets:   prometheus.DefBuckets,
	})
)
