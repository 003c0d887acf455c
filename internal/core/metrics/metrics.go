package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// outcome 标签取值
const (
	OutcomeOK        = "ok"
	OutcomeDuplicate = "duplicate"
	OutcomeInvalid   = "invalid"
	OutcomeError     = "error"
)

type Auth struct {
	opsTotal *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// New registers the auth collectors on reg. A nil reg leaves them unregistered.
func New(reg prometheus.Registerer) *Auth {
	m := &Auth{
		opsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "auth_operations_total", Help: "Count of auth operations by outcome"},
			[]string{"op", "outcome"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "auth_operation_duration_seconds",
				Help:    "Latency of auth operations, including injected delay",
				Buckets: prometheus.DefBuckets,
			}, []string{"op"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.opsTotal, m.latency)
	}
	return m
}

func (m *Auth) Observe(op, outcome string, start time.Time) {
	if m == nil {
		return
	}
	m.opsTotal.WithLabelValues(op, outcome).Inc()
	m.latency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (m *Auth) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.opsTotal, m.latency}
}
