package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PaymentMetrics are the engine's Prometheus collectors. A nil
// *PaymentMetrics is valid and records nothing.
type PaymentMetrics struct {
	Requests       *prometheus.CounterVec
	Swept          prometheus.Counter
	Pending        prometheus.Gauge
	GatewayLatency *prometheus.HistogramVec
}

func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	m := &PaymentMetrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ppl",
			Name:      "payment_requests_total",
			Help:      "Payment requests by phase and outcome.",
		}, []string{"phase", "outcome"}),
		Swept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ppl",
			Name:      "swept_payments_total",
			Help:      "Pending payments cancelled as stale.",
		}),
		Pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ppl",
			Name:      "pending_payments",
			Help:      "Pending payments waiting for the buyer to return.",
		}),
		GatewayLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ppl",
			Name:      "gateway_call_seconds",
			Help:      "Gateway call latency by operation and outcome.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"op", "outcome"}),
	}
	reg.MustRegister(m.Requests, m.Swept, m.Pending, m.GatewayLatency)
	return m
}

func (m *PaymentMetrics) ObservePhase(phase, outcome string) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(phase, outcome).Inc()
}

// ObserveGateway matches gateway.ObserveFunc.
func (m *PaymentMetrics) ObserveGateway(op, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.GatewayLatency.WithLabelValues(op, outcome).Observe(elapsed.Seconds())
}

func (m *PaymentMetrics) AddSwept(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.Swept.Add(float64(n))
}

func (m *PaymentMetrics) SetPending(n int) {
	if m == nil {
		return
	}
	m.Pending.Set(float64(n))
}
