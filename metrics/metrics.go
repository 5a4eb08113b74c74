package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "timeline_agent"

// Metrics holds the pipeline's collectors. A nil *Metrics records nothing.
type Metrics struct {
	derivations   *prometheus.CounterVec
	ingested      *prometheus.CounterVec
	actions       *prometheus.CounterVec
	postAttempts  *prometheus.CounterVec
	cycleRuns     *prometheus.CounterVec
	cycleDuration *prometheus.HistogramVec
	selected      *prometheus.HistogramVec
}

// New registers the collectors on reg. Tests pass a fresh prometheus.NewRegistry().
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		derivations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichment_derivations_total",
			Help:      "Enrichment sub-derivations by outcome",
		}, []string{"derivation", "result"}), // "ok", "fallback"

		ingested: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingested_posts_total",
			Help:      "Scraped posts handled by the ingest controller",
		}, []string{"outcome"}),

		actions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Dispatched platform actions by kind and outcome",
		}, []string{"kind", "outcome"}),

		postAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "post_attempts_total",
			Help:      "Individual platform posting attempts, retries included",
		}, []string{"kind"}),

		cycleRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycle_runs_total",
			Help:      "Scheduled cycle runs by job and result",
		}, []string{"job", "result"}),

		cycleDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Duration of scheduled cycles in seconds",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~1h
		}, []string{"job"}),

		selected: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "selected_posts",
			Help:      "Number of posts returned per selection call",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 10, 15, 20},
		}, []string{"purpose"}),
	}
}

func (m *Metrics) Derivation(name string, ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "fallback"
	}
	m.derivations.WithLabelValues(name, result).Inc()
}

func (m *Metrics) Ingested(outcome string) {
	if m == nil {
		return
	}
	m.ingested.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Action(kind, outcome string) {
	if m == nil {
		return
	}
	m.actions.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) PostAttempt(kind string) {
	if m == nil {
		return
	}
	m.postAttempts.WithLabelValues(kind).Inc()
}

func (m *Metrics) Cycle(job string, took time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.cycleRuns.WithLabelValues(job, result).Inc()
	m.cycleDuration.WithLabelValues(job).Observe(took.Seconds())
}

func (m *Metrics) Selected(purpose string, n int) {
	if m == nil {
		return
	}
	m.selected.WithLabelValues(purpose).Observe(float64(n))
}
