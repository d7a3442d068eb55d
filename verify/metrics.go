package verify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// verificationsTotal counts verification calls by outcome
	verificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sketchcheck_verifications_total",
		Help: "Total sketch verifications by result (pass, fail, empty, error)",
	}, []string{"result"})

	// verificationDuration tracks end-to-end verification latency
	verificationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sketchcheck_verification_duration_seconds",
		Help:    "Sketch verification duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 10), // 1ms to ~4m
	})

	// groundRules tracks how many grounded rules a sketch expands to
	groundRules = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sketchcheck_ground_rules",
		Help:    "Number of grounded rules per verified sketch",
		Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100, 500},
	})

	// lawChecksTotal counts oracle queries by law and verdict
	lawChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sketchcheck_law_checks_total",
		Help: "Total oracle queries by law and result (holds, fails, error)",
	}, []string{"law", "result"})

	// sessionsActive tracks open oracle sessions
	sessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sketchcheck_oracle_sessions_active",
		Help: "Number of oracle sessions currently open",
	})
)

const (
	resultPass  = "pass"
	resultFail  = "fail"
	resultEmpty = "empty"
	resultError = "error"
)
