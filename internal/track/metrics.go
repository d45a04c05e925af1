package track

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts session flush activity. Share one Metrics across all
// sessions registered against the same registry.
type Metrics struct {
	saves     prometheus.Counter
	inserts   prometheus.Counter
	updates   prometheus.Counter
	conflicts prometheus.Counter
}

// NewMetrics creates flush counters and registers them with reg when it is
// non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		saves: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rowtrack_saves_total",
			Help: "Number of successful save operations.",
		}),
		inserts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rowtrack_rows_inserted_total",
			Help: "Number of rows inserted by saves.",
		}),
		updates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rowtrack_rows_updated_total",
			Help: "Number of rows updated by saves.",
		}),
		conflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rowtrack_save_conflicts_total",
			Help: "Saves that failed the affected-row check.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.saves, m.inserts, m.updates, m.conflicts)
	}
	return m
}
