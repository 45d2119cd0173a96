// Package prometheus exports phrase-table metrics to Prometheus.
//
//	c, err := prometheus.NewCollector(prom.DefaultRegisterer)
//	tbl, err := probingpt.New(probingpt.WithMetricsCollector(c))
//	http.Handle("/metrics", promhttp.Handler())
package prometheus

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/probingpt"
)

// Namespace prefixes every metric name.
const Namespace = "probingpt"

// Collector implements probingpt.MetricsCollector.
type Collector struct {
	loadLatency   *prom.HistogramVec
	lookupLatency *prom.HistogramVec
	lookups       *prom.CounterVec
	candidates    prom.Histogram
	violations    *prom.CounterVec
}

var _ probingpt.MetricsCollector = (*Collector)(nil)

// NewCollector creates a collector and registers its metrics with reg.
// A nil reg leaves the metrics unregistered.
func NewCollector(reg prom.Registerer) (*Collector, error) {
	c := &Collector{
		loadLatency: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: Namespace,
			Name:      "load_duration_seconds",
			Help:      "Latency of table loads",
			Buckets:   prom.ExponentialBuckets(0.001, 4, 10),
		}, []string{"status"}),
		lookupLatency: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: Namespace,
			Name:      "lookup_duration_seconds",
			Help:      "Latency of span lookups",
			Buckets:   prom.ExponentialBuckets(1e-6, 4, 10),
		}, []string{"outcome"}),
		lookups: prom.NewCounterVec(prom.CounterOpts{
			Namespace: Namespace,
			Name:      "lookups_total",
			Help:      "Span lookups by outcome",
		}, []string{"outcome"}),
		candidates: prom.NewHistogram(prom.HistogramOpts{
			Namespace: Namespace,
			Name:      "lookup_candidates",
			Help:      "Candidates returned per span lookup",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50, 100},
		}),
		violations: prom.NewCounterVec(prom.CounterOpts{
			Namespace: Namespace,
			Name:      "integrity_violations_total",
			Help:      "Records dropped because index and vocabulary disagree",
		}, []string{"kind"}),
	}

	if reg != nil {
		for _, m := range []prom.Collector{c.loadLatency, c.lookupLatency, c.lookups, c.candidates, c.violations} {
			if err := reg.Register(m); err != nil {
				return nil, err
			}
		}
	}
	return c, nil
}

// RecordLoad implements probingpt.MetricsCollector.
func (c *Collector) RecordLoad(d time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	c.loadLatency.WithLabelValues(status).Observe(d.Seconds())
}

// RecordLookup implements probingpt.MetricsCollector.
func (c *Collector) RecordLookup(d time.Duration, candidates int, outcome probingpt.LookupOutcome) {
	label := outcome.String()
	c.lookupLatency.WithLabelValues(label).Observe(d.Seconds())
	c.lookups.WithLabelValues(label).Inc()
	c.candidates.Observe(float64(candidates))
}

// RecordIntegrityViolation implements probingpt.MetricsCollector.
func (c *Collector) RecordIntegrityViolation(kind probingpt.IntegrityViolation) {
	c.violations.WithLabelValues(kind.String()).Inc()
}
