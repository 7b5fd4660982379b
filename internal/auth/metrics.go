package auth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts session transitions. A nil *Metrics is a no-op.
type Metrics struct {
	transitions *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		transitions: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "memberdesk",
			Subsystem: "session",
			Name:      "transitions_total",
			Help:      "Session settles by event and whether they were committed or discarded as stale.",
		}, []string{"event", "result"}),
	}
}

func (m *Metrics) record(kind EventKind, committed bool) {
	if m == nil {
		return
	}
	result := "committed"
	if !committed {
		result = "discarded"
	}
	m.transitions.WithLabelValues(string(kind), result).Inc()
}
