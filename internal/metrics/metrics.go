// Package metrics exposes escrow activity as Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

type Metrics struct {
	registry *prometheus.Registry

	operations   *prometheus.CounterVec
	refunds      prometheus.Counter
	raised       prometheus.Gauge
	contributors prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "escrow",
			Name:      "operations_total",
			Help:      "Escrow operations by name and outcome.",
		}, []string{"operation", "outcome"}),
		refunds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "escrow",
			Name:      "refunded_amount_total",
			Help:      "Sum of all refunded amounts.",
		}),
		raised: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "escrow",
			Name:      "raised_amount",
			Help:      "Currently held contributions.",
		}),
		contributors: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "escrow",
			Name:      "contributors",
			Help:      "Distinct identities that have contributed.",
		}),
	}
	m.registry.MustRegister(m.operations, m.refunds, m.raised, m.contributors)
	return m
}

// Observe counts one operation. outcome is "ok" or an error class.
func (m *Metrics) Observe(operation, outcome string) {
	m.operations.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) Refunded(amount decimal.Decimal) {
	m.refunds.Add(amount.InexactFloat64())
}

// SetTotals records the escrow's current raised amount and contributor count.
func (m *Metrics) SetTotals(raised decimal.Decimal, contributors int) {
	m.raised.Set(raised.InexactFloat64())
	m.contributors.Set(float64(contributors))
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
