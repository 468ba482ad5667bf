package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "framewire",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "framewire",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
	framesetsAccepted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "framewire",
			Subsystem: "intake",
			Name:      "framesets_accepted_total",
			Help:      "Framesets that passed signature and layout checks.",
		},
		[]string{"node", "message"},
	)
	framesetsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "framewire",
			Subsystem: "intake",
			Name:      "framesets_rejected_total",
			Help:      "Datagrams rejected at intake, by error kind.",
		},
		[]string{"node", "kind"},
	)
	packetsEncoded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "framewire",
			Subsystem: "probe",
			Name:      "packets_encoded_total",
			Help:      "Framesets serialized and handed to the transport.",
		},
		[]string{"node", "message"},
	)
	packetBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "framewire",
			Subsystem: "probe",
			Name:      "packet_bytes",
			Help:      "Serialized frameset size in bytes.",
			Buckets:   prometheus.ExponentialBuckets(64, 2, 10),
		},
		[]string{"node", "message"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests, httpDuration,
			framesetsAccepted, framesetsRejected,
			packetsEncoded, packetBytes,
		)
	})
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

func RecordAccepted(node, message string) {
	RegisterMetrics()
	framesetsAccepted.WithLabelValues(node, message).Inc()
}

func RecordRejected(node, kind string) {
	RegisterMetrics()
	framesetsRejected.WithLabelValues(node, kind).Inc()
}

func RecordEncoded(node, message string, size int) {
	RegisterMetrics()
	packetsEncoded.WithLabelValues(node, message).Inc()
	packetBytes.WithLabelValues(node, message).Observe(float64(size))
}
