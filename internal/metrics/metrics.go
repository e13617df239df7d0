package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Job outcomes.
const (
	OutcomeSubmitted = "submitted"
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
	OutcomePanicked  = "panicked"
)

var (
	JobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hypercast_jobs_total",
		Help: "Episode production jobs by outcome",
	}, []string{"outcome"})

	JobDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "hypercast_job_duration_seconds",
		Help:    "Wall time of episode production jobs",
		Buckets: []float64{5, 15, 30, 60, 120, 300, 600, 1200},
	})

	CapabilityFallbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hypercast_capability_fallbacks_total",
		Help: "Remote capability results replaced by a fallback, by stage and reason",
	}, []string{"stage", "reason"})

	SegmentsSynthesizedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hypercast_segments_synthesized_total",
		Help: "Text segments converted to audio",
	})

	TempFilesSweptTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hypercast_tmp_files_swept_total",
		Help: "Leftover temporary audio files removed by the sweeper",
	})
)

// IncJob records a job transition.
func IncJob(outcome string) {
	JobsTotal.WithLabelValues(outcome).Inc()
}

// IncFallback records a capability result replaced by its fallback.
func IncFallback(stage, reason string) {
	if stage == "" {
		stage = "unknown"
	}
	if reason == "" {
		reason = "unknown"
	}
	CapabilityFallbacksTotal.WithLabelValues(stage, reason).Inc()
}
