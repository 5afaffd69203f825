package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the API.
	Registry = prometheus.NewRegistry()

	// HTTPRequests counts requests by method, path, and status.
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds.
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// PlanRuns counts planning runs by office and terminal status.
	PlanRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "plan_runs_total", Help: "Planning runs by office and solve status."},
		[]string{"office", "status"},
	)
	// PlanSolveDuration tracks solve wall time in seconds.
	PlanSolveDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "plan_solve_duration_seconds", Help: "Solver wall time in seconds.", Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60}},
		[]string{"office", "status"},
	)
	// PlanAssignments tracks assignments selected per run.
	PlanAssignments = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "plan_assignments", Help: "Assignments selected per run.", Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100}},
		[]string{"office"},
	)
	// PlanIterations tracks solver iterations per run.
	PlanIterations = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "plan_solver_iterations", Help: "Solver iterations per run.", Buckets: []float64{100, 1000, 5000, 10000, 20000, 50000}},
		[]string{"office"},
	)
)

// RegisterDefault registers collectors to the package registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(PlanRuns)
		Registry.MustRegister(PlanSolveDuration)
		Registry.MustRegister(PlanAssignments)
		Registry.MustRegister(PlanIterations)
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once
