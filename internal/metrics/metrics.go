// Package metrics exposes Prometheus counters for the order lifecycle.
// A nil *Recorder is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Recorder struct {
	transitions          *prometheus.CounterVec
	paymentsCreated      *prometheus.CounterVec
	paymentConfirmations *prometheus.CounterVec
	settlementsCreated   prometheus.Counter
	settlementAmount     prometheus.Counter
}

func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		return nil
	}
	r := &Recorder{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "makemodel_order_transitions_total",
			Help: "Order status transitions applied.",
		}, []string{"action", "to"}),
		paymentsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "makemodel_payments_created_total",
			Help: "Payments created per method.",
		}, []string{"method"}),
		paymentConfirmations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "makemodel_payment_confirmations_total",
			Help: "Provider confirmations received, by resulting status and outcome.",
		}, []string{"status", "outcome"}),
		settlementsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "makemodel_settlements_created_total",
			Help: "Settlements created for completed orders.",
		}),
		settlementAmount: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "makemodel_settlement_amount_total",
			Help: "Sum of settlement amounts in minor currency units.",
		}),
	}
	reg.MustRegister(r.transitions, r.paymentsCreated, r.paymentConfirmations, r.settlementsCreated, r.settlementAmount)
	return r
}

func (r *Recorder) Transition(action, to string) {
	if r == nil {
		return
	}
	r.transitions.WithLabelValues(action, to).Inc()
}

func (r *Recorder) PaymentCreated(method string) {
	if r == nil {
		return
	}
	r.paymentsCreated.WithLabelValues(method).Inc()
}

// PaymentConfirmation records a provider callback. outcome is "applied" or
// "duplicate".
func (r *Recorder) PaymentConfirmation(status, outcome string) {
	if r == nil {
		return
	}
	r.paymentConfirmations.WithLabelValues(status, outcome).Inc()
}

func (r *Recorder) SettlementCreated(amount int64) {
	if r == nil {
		return
	}
	r.settlementsCreated.Inc()
	r.settlementAmount.Add(float64(amount))
}
