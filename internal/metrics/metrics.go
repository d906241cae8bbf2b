package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Audit counts activity-log writes and renders. A nil *Audit is valid and
// records nothing.
type Audit struct {
	EntriesWritten *prometheus.CounterVec
	EntriesFailed  *prometheus.CounterVec
	RenderFallback prometheus.Counter
}

func NewAudit(reg prometheus.Registerer) *Audit {
	m := &Audit{
		EntriesWritten: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "audit_entries_written_total",
				Help: "Activity log entries persisted, by action kind",
			},
			[]string{"action"},
		),
		EntriesFailed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "audit_entries_failed_total",
				Help: "Activity log writes refused or failed, by reason",
			},
			[]string{"reason"},
		),
		RenderFallback: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "audit_render_fallback_total",
				Help: "Stored entries rendered with raw content because details could not be parsed",
			},
		),
	}

	reg.MustRegister(m.EntriesWritten, m.EntriesFailed, m.RenderFallback)
	return m
}

func (m *Audit) Written(action string) {
	if m == nil {
		return
	}
	m.EntriesWritten.WithLabelValues(action).Inc()
}

func (m *Audit) Failed(reason string) {
	if m == nil {
		return
	}
	m.EntriesFailed.WithLabelValues(reason).Inc()
}

func (m *Audit) Fallback() {
	if m == nil {
		return
	}
	m.RenderFallback.Inc()
}

// Handler serves the default registry for /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
