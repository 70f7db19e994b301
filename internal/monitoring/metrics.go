package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector handles planner metrics collection and reporting
type MetricsCollector struct {
	registry *prometheus.Registry

	solves        *prometheus.CounterVec
	solveDuration *prometheus.HistogramVec
	solveNodes    prometheus.Histogram
	plansProduced *prometheus.HistogramVec
	shortRuns     prometheus.Counter
	monitor       *Monitor
}

// NewMetricsCollector creates a collector on its own registry. monitor may be
// nil; when set it mirrors the latest values for the health route.
func NewMetricsCollector(monitor *Monitor) *MetricsCollector {
	registry := prometheus.NewRegistry()

	solves := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "platewise_solves_total",
			Help: "Integer program solves by final status",
		},
		[]string{"status"},
	)

	solveDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "platewise_solve_duration_seconds",
			Help:    "Time taken by a single plan solve",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
		},
		[]string{"status"},
	)

	solveNodes := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "platewise_solve_nodes",
			Help:    "Branch-and-bound nodes explored per solve",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		},
	)

	plansProduced := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "platewise_plans_produced",
			Help:    "Plans produced per multi-plan request",
			Buckets: prometheus.LinearBuckets(0, 1, 11),
		},
		[]string{"requested"},
	)

	shortRuns := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "platewise_plan_runs_short_total",
			Help: "Multi-plan requests that produced fewer plans than requested",
		},
	)

	registry.MustRegister(solves, solveDuration, solveNodes, plansProduced, shortRuns)

	return &MetricsCollector{
		registry:      registry,
		solves:        solves,
		solveDuration: solveDuration,
		solveNodes:    solveNodes,
		plansProduced: plansProduced,
		shortRuns:     shortRuns,
		monitor:       monitor,
	}
}

// ObserveSolve records one solver invocation
func (mc *MetricsCollector) ObserveSolve(status string, duration time.Duration, nodes int) {
	mc.solves.WithLabelValues(status).Inc()
	mc.solveDuration.WithLabelValues(status).Observe(duration.Seconds())
	mc.solveNodes.Observe(float64(nodes))

	if mc.monitor != nil {
		mc.monitor.RecordMetric("last_solve_status", status)
		mc.monitor.RecordMetric("last_solve_ms", duration.Milliseconds())
		mc.monitor.Increment("solves")
	}
}

// ObservePlans records the outcome of one multi-plan request
func (mc *MetricsCollector) ObservePlans(requested, produced int) {
	mc.plansProduced.WithLabelValues(requestedLabel(requested)).Observe(float64(produced))
	if produced < requested {
		mc.shortRuns.Inc()
	}
	if mc.monitor != nil {
		mc.monitor.Increment("plan_runs")
	}
}

// Registry exposes the underlying registry
func (mc *MetricsCollector) Registry() *prometheus.Registry {
	return mc.registry
}

// Handler serves the registry in the Prometheus text format
func (mc *MetricsCollector) Handler() http.Handler {
	return promhttp.HandlerFor(mc.registry, promhttp.HandlerOpts{})
}

// requestedLabel keeps the label set bounded for out-of-range callers
func requestedLabel(n int) string {
	if n > 10 {
		return "10+"
	}
	return strconv.Itoa(n)
}
