package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "crod_stock"

// Metrics is nil-safe: every method is a no-op on a nil receiver.
type Metrics struct {
	extractsLoaded  *prometheus.CounterVec
	loadFailures    *prometheus.CounterVec
	invalidDateRows prometheus.Counter
	computations    *prometheus.CounterVec
	memoLookups     *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		extractsLoaded: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extracts_loaded_total",
			Help:      "Stock extracts loaded successfully, by source format.",
		}, []string{"format"}),
		loadFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extract_load_failures_total",
			Help:      "Stock extracts rejected, by failure kind.",
		}, []string{"kind"}),
		invalidDateRows: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invalid_gr_date_rows_total",
			Help:      "Rows kept with an unparseable GR Date.",
		}),
		computations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "computations_total",
			Help:      "Summaries and category breakdowns requested.",
		}, []string{"op"}),
		memoLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "memo_lookups_total",
			Help:      "Memoized result lookups, by operation and result.",
		}, []string{"op", "result"}),
	}
}

func (m *Metrics) ExtractLoaded(format string, invalidDates int) {
	if m == nil {
		return
	}
	m.extractsLoaded.WithLabelValues(format).Inc()
	m.invalidDateRows.Add(float64(invalidDates))
}

// LoadFailed records a rejected extract; kind is "schema", "format" or "other".
func (m *Metrics) LoadFailed(kind string) {
	if m == nil {
		return
	}
	m.loadFailures.WithLabelValues(kind).Inc()
}

func (m *Metrics) MemoHit(op string) {
	if m == nil {
		return
	}
	m.memoLookups.WithLabelValues(op, "hit").Inc()
	m.computations.WithLabelValues(op).Inc()
}

func (m *Metrics) MemoMiss(op string) {
	if m == nil {
		return
	}
	m.memoLookups.WithLabelValues(op, "miss").Inc()
	m.computations.WithLabelValues(op).Inc()
}
