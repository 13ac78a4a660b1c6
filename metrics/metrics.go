// Package metrics provides Prometheus metrics for the HTTP server and the analysis pipeline.
//
// HTTP metrics:
//   - http_request_total: Counter with method, path and status labels
//   - http_request_duration_seconds: Histogram with method and path labels
//   - http_request_in_flight: Gauge for concurrent requests
//
// Domain metrics cover name resolution outcomes, interaction checks, the size of the
// loaded reference data and the latency of external collaborators.
//
// All metrics are registered with the Prometheus default registry during package initialization.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestTotals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_request_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)

	HTTPRequestInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_request_in_flight",
			Help: "Current in-flight requests",
		},
	)

	RateLimiterBucketsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "rate_limiter_buckets_total",
			Help: "Number of clients currently holding a rate limiter bucket",
		},
	)

	NameResolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "name_resolutions_total",
			Help: "Candidate names resolved, by method (exact, fuzzy, unresolved)",
		},
		[]string{"method"},
	)

	InteractionPairsCheckedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "interaction_pairs_checked_total",
			Help: "Medication pairs checked against the interaction table",
		},
	)

	InteractionMatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interaction_matches_total",
			Help: "Interacting pairs found, by severity",
		},
		[]string{"severity"},
	)

	ReferenceEntries = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "reference_entries",
			Help: "Entries in the loaded reference data, by table",
		},
		[]string{"table"},
	)

	ReferenceLastLoadTimestamp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "reference_last_load_timestamp_seconds",
			Help: "Unix time of the last reference data load",
		},
	)

	CollaboratorDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "collaborator_request_duration_seconds",
			Help:    "Latency of calls to external AI collaborators",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 20, 40},
		},
		[]string{"collaborator", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequestTotals)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(HTTPRequestInFlight)
	prometheus.MustRegister(RateLimiterBucketsTotal)
	prometheus.MustRegister(NameResolutionsTotal)
	prometheus.MustRegister(InteractionPairsCheckedTotal)
	prometheus.MustRegister(InteractionMatchesTotal)
	prometheus.MustRegister(ReferenceEntries)
	prometheus.MustRegister(ReferenceLastLoadTimestamp)
	prometheus.MustRegister(CollaboratorDuration)
}

// ObserveResolution counts one resolved candidate
func ObserveResolution(method string) {
	NameResolutionsTotal.WithLabelValues(method).Inc()
}

// ObserveInteractionCheck records one pairwise check and the severities it matched
func ObserveInteractionCheck(pairsChecked int, severities []string) {
	InteractionPairsCheckedTotal.Add(float64(pairsChecked))
	for _, sev := range severities {
		if sev == "" {
			sev = "unknown"
		}
		InteractionMatchesTotal.WithLabelValues(sev).Inc()
	}
}

// SetReferenceSizes publishes the size of a freshly loaded reference store
func SetReferenceSizes(drugs, aliases, interactions, drugInfo int) {
	ReferenceEntries.WithLabelValues("drugs").Set(float64(drugs))
	ReferenceEntries.WithLabelValues("aliases").Set(float64(aliases))
	ReferenceEntries.WithLabelValues("interactions").Set(float64(interactions))
	ReferenceEntries.WithLabelValues("drug_info").Set(float64(drugInfo))
	ReferenceLastLoadTimestamp.SetToCurrentTime()
}

// ObserveCollaborator records the latency and outcome of a collaborator call started at start
func ObserveCollaborator(collaborator string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	CollaboratorDuration.WithLabelValues(collaborator, outcome).Observe(time.Since(start).Seconds())
}
