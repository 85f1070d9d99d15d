package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/zerodha/snmp-lama/internal/check"
	"github.com/zerodha/snmp-lama/internal/inventory"
	"github.com/zerodha/snmp-lama/pkg/models"
)

const namespace = "snmp_lama"

// Manager exposes the outcome of every polling cycle as Prometheus gauges.
type Manager struct {
	reg *prometheus.Registry

	state       *prometheus.GaugeVec
	value       *prometheus.GaugeVec
	fetchErrors *prometheus.CounterVec
	lastCycle   *prometheus.GaugeVec
}

// NewManager returns a new metrics manager with its own registry.
func NewManager() *Manager {
	m := &Manager{
		reg: prometheus.NewRegistry(),
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "service_state",
			Help:      "Last evaluated state per service (0=OK, 1=WARNING, 2=CRITICAL, 3=UNKNOWN).",
		}, []string{"target", "service"}),
		value: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "metric",
			Help:      "Numeric values emitted by checks.",
		}, []string{"target", "service", "metric"}),
		fetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_errors_total",
			Help:      "Section walks that failed.",
		}, []string{"target", "section"}),
		lastCycle: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_cycle_timestamp_seconds",
			Help:      "Unix time of the last completed polling cycle.",
		}, []string{"target"}),
	}
	m.reg.MustRegister(m.state, m.value, m.fetchErrors, m.lastCycle)

	return m
}

// ObserveSnapshot starts a new cycle for target: the states and values of the
// previous cycle are dropped and the sections that could not be fetched are
// counted. Call it before ObserveReport and ObserveServices.
func (m *Manager) ObserveSnapshot(target string, snap models.Snapshot) {
	m.state.DeletePartialMatch(prometheus.Labels{"target": target})
	m.value.DeletePartialMatch(prometheus.Labels{"target": target})

	for sec := range snap.Errors {
		m.fetchErrors.WithLabelValues(target, string(sec)).Inc()
	}
	m.lastCycle.WithLabelValues(target).Set(float64(time.Now().Unix()))
}

// ObserveReport records a composite report. Each part is a service named
// after its section; the overall state is the "composite" service.
func (m *Manager) ObserveReport(target string, r check.Report) {
	m.state.WithLabelValues(target, "composite").Set(float64(r.State))
	for _, p := range r.Parts {
		m.observe(target, string(p.Section), p.Result)
	}
	for _, i := range r.Info {
		m.value.WithLabelValues(target, "composite", i.Name).Set(i.Value)
	}
}

// ObserveServices records per-entity results.
func (m *Manager) ObserveServices(target string, svcs []inventory.Service) {
	for _, s := range svcs {
		m.observe(target, s.Name, s.Result)
	}
}

func (m *Manager) observe(target, service string, r models.Result) {
	m.state.WithLabelValues(target, service).Set(float64(r.State))
	for _, mt := range r.Metrics {
		m.value.WithLabelValues(target, service, mt.Name).Set(mt.Value)
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
