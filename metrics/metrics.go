// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

// Package metrics exports Prometheus metrics for decision diagram managers
// and value iterations.
package metrics

import (
	"github.com/dalzilio/mtrudd"
	"github.com/dalzilio/mtrudd/solver"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "mtrudd"

// DiagramCollector exports the statistics of a Manager. Values are read
// when the collector is scraped, so scraping must not run concurrently with
// operations on the manager.
type DiagramCollector struct {
	m     *mtrudd.Manager
	descs map[string]*prometheus.Desc
}

type stat struct {
	name  string
	help  string
	gauge bool
	value func(s mtrudd.Statistics) int
}

var stats = []stat{
	{"variables", "Number of declared variables.", true, func(s mtrudd.Statistics) int { return s.Varnum }},
	{"nodes", "Size of the node table.", true, func(s mtrudd.Statistics) int { return s.Nodes }},
	{"free_nodes", "Number of free nodes in the node table.", true, func(s mtrudd.Statistics) int { return s.Free }},
	{"leaves", "Number of numeric leaves.", true, func(s mtrudd.Statistics) int { return s.Leaves }},
	{"produced_nodes_total", "Number of nodes ever produced.", false, func(s mtrudd.Statistics) int { return s.Produced }},
	{"resizes_total", "Number of resizes of the node table.", false, func(s mtrudd.Statistics) int { return s.Resizes }},
	{"gc_total", "Number of garbage collections.", false, func(s mtrudd.Statistics) int { return s.GC }},
	{"cache_hits_total", "Number of hits in the operation caches.", false, func(s mtrudd.Statistics) int { return s.CacheHits }},
	{"cache_misses_total", "Number of misses in the operation caches.", false, func(s mtrudd.Statistics) int { return s.CacheMisses }},
}

// NewDiagramCollector returns a collector for the statistics of m. The label
// manager is set to name on every metric.
func NewDiagramCollector(m *mtrudd.Manager, name string) *DiagramCollector {
	c := &DiagramCollector{m: m, descs: make(map[string]*prometheus.Desc)}
	for _, s := range stats {
		c.descs[s.name] = prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "diagram", s.name),
			s.help, nil, prometheus.Labels{"manager": name})
	}
	return c
}

// Describe returns all descriptions of the collector.
func (c *DiagramCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, s := range stats {
		ch <- c.descs[s.name]
	}
}

// Collect returns the current statistics of the manager.
func (c *DiagramCollector) Collect(ch chan<- prometheus.Metric) {
	st := c.m.Statistics()
	for _, s := range stats {
		kind := prometheus.CounterValue
		if s.gauge {
			kind = prometheus.GaugeValue
		}
		ch <- prometheus.MustNewConstMetric(c.descs[s.name], kind, float64(s.value(st)))
	}
}

// SolverMetrics counts the value iterations and records their number of
// sweeps and duration. It implements solver.Observer.
type SolverMetrics struct {
	Runs       *prometheus.CounterVec
	Iterations *prometheus.HistogramVec
	Duration   *prometheus.HistogramVec
}

var _ solver.Observer = (*SolverMetrics)(nil)

// NewSolverMetrics creates the solver metrics and registers them with reg.
// A nil registerer creates unregistered metrics.
func NewSolverMetrics(reg prometheus.Registerer) *SolverMetrics {
	f := promauto.With(reg)
	return &SolverMetrics{
		Runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solver",
			Name:      "runs_total",
			Help:      "Total number of value iterations by computation and final status.",
		}, []string{"computation", "status"}),
		Iterations: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solver",
			Name:      "iterations",
			Help:      "Number of sweeps of value iterations.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}, []string{"computation", "method"}),
		Duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solver",
			Name:      "duration_seconds",
			Help:      "Duration of value iterations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"computation", "method"}),
	}
}

// Observe records a finished value iteration.
func (sm *SolverMetrics) Observe(r solver.Run) {
	sm.Runs.WithLabelValues(r.Name, r.Status.String()).Inc()
	sm.Iterations.WithLabelValues(r.Name, r.Method.String()).Observe(float64(r.Iterations))
	sm.Duration.WithLabelValues(r.Name, r.Method.String()).Observe(r.Duration.Seconds())
}

// Register registers a collector for manager m, named name, and returns the
// solver metrics, also registered with reg. Use the result with
// solver.WithObserver.
func Register(reg prometheus.Registerer, m *mtrudd.Manager, name string) (*SolverMetrics, error) {
	if err := reg.Register(NewDiagramCollector(m, name)); err != nil {
		return nil, err
	}
	return NewSolverMetrics(reg), nil
}
