package services

import "github.com/prometheus/client_golang/prometheus"

// ReorderMetrics counts reorder batches and the outcome of every item
type ReorderMetrics struct {
	batches *prometheus.CounterVec
	items   *prometheus.CounterVec
}

// NewReorderMetrics creates the reorder collectors and registers them with
// reg. A nil registerer leaves them unregistered.
func NewReorderMetrics(reg prometheus.Registerer) *ReorderMetrics {
	m := &ReorderMetrics{
		batches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kanban_reorder_batches_total",
				Help: "Number of reorder batches applied",
			},
			[]string{"kind"},
		),
		items: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kanban_reorder_items_total",
				Help: "Number of reorder items by outcome",
			},
			[]string{"kind", "outcome"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.batches, m.items)
	}
	return m
}

func (m *ReorderMetrics) observe(kind string, items, matched, failed int) {
	if m == nil {
		return
	}
	m.batches.WithLabelValues(kind).Inc()
	m.items.WithLabelValues(kind, "matched").Add(float64(matched))
	m.items.WithLabelValues(kind, "unmatched").Add(float64(items - matched - failed))
	m.items.WithLabelValues(kind, "failed").Add(float64(failed))
}
