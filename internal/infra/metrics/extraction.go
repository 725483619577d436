package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(extractionCallsTotal, extractionLatencyMs) }

var extractionCallsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "extraction_calls_total",
		Help: "Extraction capability calls per entity type and outcome.",
	},
	[]string{"entity", "outcome"}, // outcome: 'ok', 'parse_error', 'call_error'
)

var extractionLatencyMs = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "extraction_call_latency_ms",
		Help:    "Extraction call latency distribution in milliseconds.",
		Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000},
	},
	[]string{"entity", "success"},
)

func IncExtractionCall(entity, outcome string) {
	extractionCallsTotal.WithLabelValues(norm(entity), norm(outcome)).Inc()
}

func ObserveExtractionLatency(entity string, latencyMs float64, success bool) {
	extractionLatencyMs.WithLabelValues(norm(entity), strconv.FormatBool(success)).Observe(latencyMs)
}
