package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

const (
	resultSuccess = "success"
	resultFailure = "failure"

	// TopupResultCredited marks a fresh credit.
	TopupResultCredited = "credited"
	// TopupResultReplayed marks a verify call for an already credited payment.
	TopupResultReplayed = "replayed"
	// TopupResultRejected marks a verify call that failed before crediting.
	TopupResultRejected = "rejected"
)

// WalletMetrics tracks money movement and gateway latency.
type WalletMetrics struct {
	topups   *prometheus.CounterVec
	debits   *prometheus.CounterVec
	credited prometheus.Counter
	gateway  *prometheus.HistogramVec
	outbox   *prometheus.CounterVec
}

// NewWalletMetrics registers the wallet metrics on reg. A nil registerer yields a
// no-op recorder.
func NewWalletMetrics(reg prometheus.Registerer) *WalletMetrics {
	if reg == nil {
		return &WalletMetrics{}
	}
	topups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wallet_topups_total",
		Help: "Top-up verifications by result.",
	}, []string{"result"})
	debits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wallet_debits_total",
		Help: "Wallet debits by ledger reason.",
	}, []string{"reason"})
	credited := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wallet_credited_amount_sum",
		Help: "Total rupees credited to wallets through top-ups.",
	})
	gateway := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "razorpay_request_duration_seconds",
		Help:    "Latency of Razorpay API calls.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"operation", "outcome"})
	outbox := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_published_total",
		Help: "Outbox publish attempts by result.",
	}, []string{"result"})
	reg.MustRegister(topups, debits, credited, gateway, outbox)
	return &WalletMetrics{
		topups:   topups,
		debits:   debits,
		credited: credited,
		gateway:  gateway,
		outbox:   outbox,
	}
}

// ObserveTopup counts a verify-and-credit outcome; amount is only added for fresh credits.
func (m *WalletMetrics) ObserveTopup(result string, amount decimal.Decimal) {
	if m == nil || m.topups == nil {
		return
	}
	m.topups.WithLabelValues(normalizeLabel(result)).Inc()
	if result == TopupResultCredited && amount.IsPositive() {
		m.credited.Add(amount.InexactFloat64())
	}
}

// IncDebit counts a wallet debit for the given ledger reason.
func (m *WalletMetrics) IncDebit(reason string) {
	if m == nil || m.debits == nil {
		return
	}
	m.debits.WithLabelValues(normalizeLabel(reason)).Inc()
}

// ObserveGateway records one Razorpay call.
func (m *WalletMetrics) ObserveGateway(operation string, duration time.Duration, err error) {
	if m == nil || m.gateway == nil {
		return
	}
	outcome := resultSuccess
	if err != nil {
		outcome = resultFailure
	}
	m.gateway.WithLabelValues(normalizeLabel(operation), outcome).Observe(duration.Seconds())
}

// IncOutboxPublished counts one outbox publish attempt.
func (m *WalletMetrics) IncOutboxPublished(err error) {
	if m == nil || m.outbox == nil {
		return
	}
	result := resultSuccess
	if err != nil {
		result = resultFailure
	}
	m.outbox.WithLabelValues(result).Inc()
}
