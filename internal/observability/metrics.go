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
			Namespace: "essentiactl",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"server", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "essentiactl",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"server", "method", "path", "status"},
	)
	queueCommands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "essentiactl",
			Subsystem: "queue",
			Name:      "commands_total",
			Help:      "Settled amplifier commands by verb and outcome.",
		},
		[]string{"verb", "outcome"},
	)
	queueDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "essentiactl",
			Subsystem: "queue",
			Name:      "command_duration_seconds",
			Help:      "Time from submit to settle, queue wait included.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2, 5, 10},
		},
		[]string{"verb"},
	)
	queueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "essentiactl",
			Subsystem: "queue",
			Name:      "depth",
			Help:      "Queued plus in-flight amplifier commands.",
		},
	)
	serialUnsolicited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "essentiactl",
			Subsystem: "serial",
			Name:      "unsolicited_lines_total",
			Help:      "Reply lines received with no command in flight.",
		},
	)
	serialReadErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "essentiactl",
			Subsystem: "serial",
			Name:      "read_errors_total",
			Help:      "Read-side failures: overlong lines and port read errors.",
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			httpDuration,
			queueCommands,
			queueDuration,
			queueDepth,
			serialUnsolicited,
			serialReadErrors,
		)
	})
}

func RecordHTTPRequest(server, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(server, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(server, method, path, statusLabel).Observe(duration.Seconds())
}

func RecordCommand(verb, outcome string, duration time.Duration) {
	RegisterMetrics()
	queueCommands.WithLabelValues(verb, outcome).Inc()
	queueDuration.WithLabelValues(verb).Observe(duration.Seconds())
}

func SetQueueDepth(depth int) {
	RegisterMetrics()
	queueDepth.Set(float64(depth))
}

func RecordUnsolicitedLine() {
	RegisterMetrics()
	serialUnsolicited.Inc()
}

func RecordReadError() {
	RegisterMetrics()
	serialReadErrors.Inc()
}
