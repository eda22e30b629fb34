// Package metrics holds the Prometheus collectors shared by the lifecycle
// services. Collectors register on the default registry, which the server
// exposes on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

var (
	// PostTransitions counts lifecycle operations by transition and outcome.
	PostTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "curbside",
		Name:      "post_transitions_total",
		Help:      "Post lifecycle transitions by transition name and outcome.",
	}, []string{"transition", "outcome"})

	// MailFailures counts verification messages that could not be handed off.
	MailFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "curbside",
		Name:      "mail_failures_total",
		Help:      "Verification messages that failed to send.",
	})

	// MediaVisibilityChanges counts assets flipped public or private.
	MediaVisibilityChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "curbside",
		Name:      "media_visibility_changes_total",
		Help:      "Media assets whose visibility was changed, by target visibility.",
	}, []string{"visibility"})

	// OrphanMediaPurged counts unassigned uploads removed by the sweep.
	OrphanMediaPurged = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "curbside",
		Name:      "orphan_media_purged_total",
		Help:      "Unassigned media assets removed by the orphan sweep.",
	})
)

// Transition records one lifecycle operation outcome.
func Transition(name, outcome string) {
	PostTransitions.WithLabelValues(name, outcome).Inc()
}
