package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(transformLatencyMs, storageLatencyMs) }

var transformLatencyMs = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "transform_calls_latency_ms",
		Help:    "Transform call latency distribution in milliseconds.",
		Buckets: []float64{100, 250, 500, 1000, 2500, 5000, 10000, 20000, 40000, 80000},
	},
	[]string{"provider", "success"},
)

var storageLatencyMs = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "storage_upload_latency_ms",
		Help:    "Media upload latency distribution in milliseconds.",
		Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	},
	[]string{"success"},
)

func ObserveTransform(provider string, latencyMs int64, success bool) {
	transformLatencyMs.WithLabelValues(norm(provider), strconv.FormatBool(success)).Observe(float64(latencyMs))
}

func ObserveUpload(latencyMs int64, success bool) {
	storageLatencyMs.WithLabelValues(strconv.FormatBool(success)).Observe(float64(latencyMs))
}
