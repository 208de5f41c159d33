package governor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"aegis-hq/aegis/pkg/evaluator"
)

// Metrics holds the pipeline's Prometheus collectors.
type Metrics struct {
	runsTotal       *prometheus.CounterVec
	cacheHitsTotal  prometheus.Counter
	cacheMissTotal  prometheus.Counter
	evaluatorFails  *prometheus.CounterVec
	poolSuccessRate prometheus.Gauge
	runDuration     prometheus.Histogram
	violationsTotal prometheus.Counter
}

// NewMetrics registers the pipeline collectors with the given
// registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		runsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "aegis_governor_runs_total",
			Help: "Pipeline runs by final action and cache outcome.",
		}, []string{"action", "cached"}),
		cacheHitsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "aegis_governor_cache_hits_total",
			Help: "Response cache hits.",
		}),
		cacheMissTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "aegis_governor_cache_misses_total",
			Help: "Response cache misses.",
		}),
		evaluatorFails: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "aegis_governor_evaluator_failures_total",
			Help: "Evaluator failures by kind (timeout or error).",
		}, []string{"kind"}),
		poolSuccessRate: factory.NewGauge(prometheus.GaugeOpts{
			Name: "aegis_governor_pool_success_rate",
			Help: "Fraction of configured evaluators that returned a verdict on the most recent run.",
		}),
		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "aegis_governor_run_duration_seconds",
			Help:    "End-to-end pipeline duration.",
			Buckets: prometheus.DefBuckets,
		}),
		violationsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "aegis_governor_violations_total",
			Help: "Violations reported across policy and evaluator findings.",
		}),
	}
}

func (m *Metrics) observeRun(result *Result) {
	cached := "false"
	if result.Cached {
		cached = "true"
	}
	m.runsTotal.WithLabelValues(string(result.Action), cached).Inc()
	m.runDuration.Observe(result.ProcessingTime.Seconds())
	m.violationsTotal.Add(float64(len(result.Violations)))
}

func (m *Metrics) observeCache(hit bool) {
	if hit {
		m.cacheHitsTotal.Inc()
		return
	}
	m.cacheMissTotal.Inc()
}

func (m *Metrics) observePool(aggregate *evaluator.Aggregate) {
	m.poolSuccessRate.Set(aggregate.SuccessRate)
	for _, failure := range aggregate.Failures {
		kind := "error"
		if failure.TimedOut {
			kind = "timeout"
		}
		m.evaluatorFails.WithLabelValues(kind).Inc()
	}
}
