package payout

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeSuccess   = "success"
	outcomeNoPhone   = "no_phone"
	outcomeFlagged   = "member_flagged"
	outcomeGateway   = "gateway_error"
	outcomeConflict  = "conflict"
	outcomeEmpty     = "nothing_to_disburse"
	outcomeDisabled  = "disabled"
	outcomeReconcile = "reconcile_pending"
)

var (
	payoutAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payout_attempts_total",
		Help: "Disbursement attempts by outcome.",
	}, []string{"outcome"})

	payoutDisbursed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payout_disbursed_amount_total",
		Help: "Amount accepted by the payment gateway.",
	})

	gatewayLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "payout_gateway_duration_seconds",
		Help:    "Payment gateway call latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider", "error"})
)
