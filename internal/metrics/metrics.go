package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var registerOnce sync.Once

var (
	SeparationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stems_separations_total",
			Help: "Separation requests that reached the separator, by outcome",
		}, []string{"stems", "status"},
	)
	SeparationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stems_separation_duration_seconds",
			Help:    "Time spent in the separator",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}, []string{"stems"},
	)
	SeparationsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "stems_separations_in_flight",
			Help: "Separations currently running",
		},
	)
	UploadBytes = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stems_upload_bytes",
			Help:    "Size of staged uploads",
			Buckets: prometheus.ExponentialBuckets(64<<10, 4, 8),
		},
	)
	StemsReturned = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stems_returned_files",
			Help:    "Number of stem files found on disk after separation",
			Buckets: []float64{0, 1, 2, 3, 4, 5, 6},
		}, []string{"stems"},
	)
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stems_http_requests_total",
			Help: "HTTP requests processed",
		}, []string{"path", "method", "status"},
	)

	// worker side
	AnalysisJobs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stems_analysis_jobs_total",
			Help: "Stem analysis jobs by outcome (done, retry, failed, dropped)",
		}, []string{"status"},
	)
	AnalysisJobDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stems_analysis_job_duration_seconds",
			Help:    "Time to analyze every stem of one separation",
			Buckets: prometheus.DefBuckets,
		},
	)
	AnalysisJobsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "stems_analysis_jobs_in_flight",
			Help: "Stem analysis jobs currently running",
		},
	)
)

// Register adds every collector to the default registry; safe to call repeatedly.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			SeparationsTotal, SeparationDuration, SeparationsInFlight, UploadBytes, StemsReturned, HTTPRequests,
			AnalysisJobs, AnalysisJobDuration, AnalysisJobsInFlight,
		)
	})
}
