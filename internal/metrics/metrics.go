// Package metrics exposes lifecycle counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/randalmurphal/teamlead/internal/lifecycle"
	"github.com/randalmurphal/teamlead/internal/task"
)

const namespace = "teamlead"

// Recorder implements lifecycle.Recorder on a private registry.
type Recorder struct {
	registry     *prometheus.Registry
	completions  *prometheus.CounterVec
	tasksCreated *prometheus.CounterVec
	degraded     *prometheus.CounterVec
	analyzed     prometheus.Gauge
}

// New registers the lifecycle collectors plus the Go and process collectors.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		completions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completions_total",
			Help:      "Task completions handled, by branch and decision.",
		}, []string{"branch", "decision"}),
		tasksCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_created_total",
			Help:      "Tasks created by the lifecycle, by creation type.",
		}, []string{"creation_type"}),
		degraded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "degraded_calls_total",
			Help:      "Collaborator calls that failed and were skipped.",
		}, []string{"call"}),
		analyzed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "analyzed_tasks",
			Help:      "Task ids currently held in the analyzed set.",
		}),
	}
	r.registry.MustRegister(
		r.completions,
		r.tasksCreated,
		r.degraded,
		r.analyzed,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

func (r *Recorder) RecordCompletion(branch lifecycle.Branch, decision lifecycle.Decision) {
	r.completions.WithLabelValues(string(branch), string(decision)).Inc()
}

func (r *Recorder) RecordTaskCreated(creationType task.CreationType) {
	r.tasksCreated.WithLabelValues(string(creationType)).Inc()
}

func (r *Recorder) RecordDegraded(call string) {
	r.degraded.WithLabelValues(call).Inc()
}

func (r *Recorder) SetAnalyzed(n int) {
	r.analyzed.Set(float64(n))
}

// Registry returns the private registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
