// internal/observability/metrics.go
package observability

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "a2a_ledger",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests served by an agent.",
		},
		[]string{"role", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "a2a_ledger",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"role", "method", "path", "status"},
	)
	tasksHandled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "a2a_ledger",
			Subsystem: "server",
			Name:      "tasks_total",
			Help:      "Tasks handled by an agent, by final state.",
		},
		[]string{"role", "state"},
	)
	tasksInFlight = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "a2a_ledger",
			Subsystem: "server",
			Name:      "tasks_in_flight",
			Help:      "Tasks currently being processed.",
		},
		[]string{"role"},
	)
	dispatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "a2a_ledger",
			Subsystem: "driver",
			Name:      "dispatches_total",
			Help:      "Dispatches sent by a convergence loop, by result.",
		},
		[]string{"role", "result"},
	)
	dispatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "a2a_ledger",
			Subsystem: "driver",
			Name:      "dispatch_duration_seconds",
			Help:      "Round-trip time of a dispatch.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300},
		},
		[]string{"role", "result"},
	)
	pendingTasks = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "a2a_ledger",
			Subsystem: "driver",
			Name:      "pending_tasks",
			Help:      "Unchecked ledger tasks seen at the last check.",
		},
		[]string{"role"},
	)
	stallRounds = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "a2a_ledger",
			Subsystem: "driver",
			Name:      "stall_rounds",
			Help:      "Consecutive rounds without ledger progress.",
		},
		[]string{"role"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, tasksHandled, tasksInFlight,
			dispatches, dispatchDuration, pendingTasks, stallRounds)
	})
}

// Handler serves the default registry.
func Handler() http.Handler {
	RegisterMetrics()
	return promhttp.Handler()
}

func RecordHTTPRequest(role, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(role, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(role, method, path, statusLabel).Observe(duration.Seconds())
}

func RecordTask(role, state string) {
	RegisterMetrics()
	tasksHandled.WithLabelValues(role, state).Inc()
}

// TaskStarted increments the in-flight gauge and returns its decrement.
func TaskStarted(role string) func() {
	RegisterMetrics()
	g := tasksInFlight.WithLabelValues(role)
	g.Inc()
	return g.Dec
}

func RecordDispatch(role, result string, duration time.Duration) {
	RegisterMetrics()
	dispatches.WithLabelValues(role, result).Inc()
	dispatchDuration.WithLabelValues(role, result).Observe(duration.Seconds())
}

func SetPendingTasks(role string, n int) {
	RegisterMetrics()
	pendingTasks.WithLabelValues(role).Set(float64(n))
}

func SetStallRounds(role string, n int) {
	RegisterMetrics()
	stallRounds.WithLabelValues(role).Set(float64(n))
}
