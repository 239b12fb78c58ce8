package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SearchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "facesearch",
		Name:      "searches_total",
		Help:      "Total number of analysis searches performed",
	}, []string{"search_type"})

	FacesDetected = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "facesearch",
		Name:      "faces_detected_total",
		Help:      "Total number of faces detected in uploaded images",
	})

	SourceQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "facesearch",
		Name:      "source_query_duration_seconds",
		Help:      "Duration of external source queries",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
	}, []string{"source"})

	SourceDegraded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "facesearch",
		Name:      "source_degraded_total",
		Help:      "Number of aggregations in which a source failed or timed out",
	}, []string{"source", "reason"})

	CandidatesReturned = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "facesearch",
		Name:      "candidates_returned",
		Help:      "Candidates returned per source per query",
		Buckets:   []float64{0, 1, 2, 5, 10, 20, 50, 100},
	}, []string{"source"})

	InferenceDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "facesearch",
		Name:      "inference_duration_seconds",
		Help:      "Duration of ML inference stages",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
	}, []string{"stage"})

	RecordWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "facesearch",
		Name:      "record_write_failures_total",
		Help:      "Search record writes that failed after a successful search",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "facesearch",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "facesearch",
		Name:      "ws_connections",
		Help:      "Number of active WebSocket connections",
	})
)
