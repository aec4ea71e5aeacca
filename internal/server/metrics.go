package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the service's Prometheus collectors.
type Metrics struct {
	decisions   *prometheus.CounterVec
	probability prometheus.Histogram
	errors      *prometheus.CounterVec
	latency     prometheus.Histogram
}

// Error reasons reported on heartline_analyze_errors_total.
const (
	reasonBadRequest      = "bad_request"
	reasonFeatureMismatch = "feature_mismatch"
	reasonInference       = "inference"
)

// NewMetrics registers the collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "heartline",
			Name:      "decisions_total",
			Help:      "Clinical decisions issued, by label",
		}, []string{"label"}),
		probability: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "heartline",
			Name:      "probability",
			Help:      "Distribution of predicted abnormal probabilities",
			Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
		}),
		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "heartline",
			Name:      "analyze_errors_total",
			Help:      "Failed analyze requests, by reason",
		}, []string{"reason"}),
		latency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "heartline",
			Name:      "analyze_duration_seconds",
			Help:      "Time spent analyzing one request",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
		}),
	}
}
