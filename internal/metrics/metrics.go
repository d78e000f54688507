package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "conjunto"

// Outcome label values.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Metrics holds the probe collectors. A nil *Metrics records nothing.
type Metrics struct {
	Airdrops      *prometheus.CounterVec
	TxSent        *prometheus.CounterVec
	Confirmation  *prometheus.HistogramVec
	Notifications prometheus.Counter
	ScenarioRuns  *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.NewRegistry())
}

// NewWithRegistry registers the collectors on reg.
func NewWithRegistry(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		Airdrops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "airdrops_total",
			Help:      "Airdrop requests by endpoint and outcome",
		}, []string{"endpoint", "outcome"}),
		TxSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_sent_total",
			Help:      "Transactions submitted by endpoint and outcome",
		}, []string{"endpoint", "outcome"}),
		Confirmation: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "confirmation_seconds",
			Help:      "Time from submission to confirmation",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"endpoint"}),
		Notifications: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "account_notifications_total",
			Help:      "Account change notifications delivered to listeners",
		}),
		ScenarioRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scenario_runs_total",
			Help:      "Scenario runs by name and outcome",
		}, []string{"scenario", "outcome"}),
		gatherer: reg,
	}
	reg.MustRegister(m.Airdrops, m.TxSent, m.Confirmation, m.Notifications, m.ScenarioRuns)
	return m
}

func outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeOK
}

func (m *Metrics) ObserveAirdrop(endpoint string, err error) {
	if m == nil {
		return
	}
	m.Airdrops.WithLabelValues(endpoint, outcome(err)).Inc()
}

func (m *Metrics) ObserveSend(endpoint string, err error) {
	if m == nil {
		return
	}
	m.TxSent.WithLabelValues(endpoint, outcome(err)).Inc()
}

func (m *Metrics) ObserveConfirmation(endpoint string, d time.Duration) {
	if m == nil {
		return
	}
	m.Confirmation.WithLabelValues(endpoint).Observe(d.Seconds())
}

func (m *Metrics) ObserveNotification() {
	if m == nil {
		return
	}
	m.Notifications.Inc()
}

func (m *Metrics) ObserveScenario(name string, err error) {
	if m == nil {
		return
	}
	m.ScenarioRuns.WithLabelValues(name, outcome(err)).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
