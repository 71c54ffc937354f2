package lifecycle

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts lifecycle outcomes. All methods are nil-safe so the driver
// can run without a metrics registerer.
type Metrics struct {
	typesRegistered prometheus.Counter
	typeFailures    *prometheus.CounterVec
	hooksRun        *prometheus.CounterVec
	hookFailures    *prometheus.CounterVec
}

// NewMetrics creates the lifecycle counters. A nil registerer yields
// unregistered (but functional) collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		typesRegistered: factory.NewCounter(prometheus.CounterOpts{
			Name: "modkit_types_registered_total",
			Help: "Composite types successfully registered with the host.",
		}),
		typeFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "modkit_type_failures_total",
			Help: "Composite type registration or unregistration failures.",
		}, []string{"phase"}),
		hooksRun: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "modkit_hooks_run_total",
			Help: "Module lifecycle hooks that completed successfully.",
		}, []string{"phase"}),
		hookFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "modkit_hook_failures_total",
			Help: "Module lifecycle hooks that returned an error or panicked.",
		}, []string{"phase"}),
	}
}

func (m *Metrics) typeRegistered() {
	if m != nil {
		m.typesRegistered.Inc()
	}
}

func (m *Metrics) typeFailed(phase string) {
	if m != nil {
		m.typeFailures.WithLabelValues(phase).Inc()
	}
}

func (m *Metrics) hookRan(phase string) {
	if m != nil {
		m.hooksRun.WithLabelValues(phase).Inc()
	}
}

func (m *Metrics) hookFailed(phase string) {
	if m != nil {
		m.hookFailures.WithLabelValues(phase).Inc()
	}
}
