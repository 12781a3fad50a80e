package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	apiRequestsTotal      *prometheus.CounterVec
	apiLatencySeconds     *prometheus.HistogramVec
	apiErrorsTotal        *prometheus.CounterVec
	rankingComputeSeconds *prometheus.HistogramVec
	rankingCacheTotal     *prometheus.CounterVec
	uploadRejectedTotal   *prometheus.CounterVec
	exportTotal           *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors of the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ksicht_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ksicht_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ksicht_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		rankingComputeSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ksicht_ranking_compute_seconds",
			Help:    "Time spent computing series rankings.",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
		}, []string{"source"})

		rankingCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ksicht_ranking_cache_total",
			Help: "Ranking cache lookups by outcome.",
		}, []string{"outcome"})

		uploadRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ksicht_submission_upload_rejected_total",
			Help: "Solution uploads rejected before storage.",
		}, []string{"reason"})

		exportTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ksicht_submission_export_total",
			Help: "Submission export attempts by outcome.",
		}, []string{"outcome"})

		prometheus.MustRegister(
			apiRequestsTotal,
			apiLatencySeconds,
			apiErrorsTotal,
			rankingComputeSeconds,
			rankingCacheTotal,
			uploadRejectedTotal,
			exportTotal,
		)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// RankingCompute exposes the ranking computation histogram, labelled by data source.
func RankingCompute() *prometheus.HistogramVec {
	RegisterMetrics()
	return rankingComputeSeconds
}

// RankingCache exposes the ranking cache outcome counter.
func RankingCache() *prometheus.CounterVec {
	RegisterMetrics()
	return rankingCacheTotal
}

// UploadRejected exposes the counter of rejected solution uploads.
func UploadRejected() *prometheus.CounterVec {
	RegisterMetrics()
	return uploadRejectedTotal
}

// Exports exposes the counter of export preparation outcomes.
func Exports() *prometheus.CounterVec {
	RegisterMetrics()
	return exportTotal
}
