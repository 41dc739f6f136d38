package metrics

import (
	"github.com/Dhoini/Entitlement-service/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// EntitlementMetrics is the metrics surface of the reconciliation engine
type EntitlementMetrics interface {
	IncPaymentSubmitted(method string)
	IncPaymentVerified()
	IncPaymentRejected()
	IncEntitlementActivated(planName string)
	IncDuplicateActivation()
	IncClaimsSync(result string)
	ObservePaymentAmount(amount int64, status string)
	SetDriftCases(kind string, count int)
}

type entitlementMetrics struct {
	log              *logger.Logger
	paymentsTotal    *prometheus.CounterVec
	verdictsTotal    *prometheus.CounterVec
	activationsTotal *prometheus.CounterVec
	duplicatesTotal  prometheus.Counter
	syncsTotal       *prometheus.CounterVec
	paymentsAmount   *prometheus.HistogramVec
	driftCases       *prometheus.GaugeVec
}

// NewEntitlementMetrics creates the engine's metrics
func NewEntitlementMetrics(registry *prometheus.Registry, log *logger.Logger) EntitlementMetrics {
	paymentsTotal := promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_submitted_total",
			Help: "The total number of submitted payment claims",
		},
		[]string{"method"},
	)

	verdictsTotal := promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_verdicts_total",
			Help: "The total number of payment verification verdicts",
		},
		[]string{"verdict"},
	)

	activationsTotal := promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "entitlements_activated_total",
			Help: "The total number of activated entitlements",
		},
		[]string{"plan"},
	)

	duplicatesTotal := promauto.With(registry).NewCounter(
		prometheus.CounterOpts{
			Name: "entitlements_duplicate_activations_total",
			Help: "The total number of activations rejected by the dedup key",
		},
	)

	syncsTotal := promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "claims_syncs_total",
			Help: "The total number of claims synchronizations by result",
		},
		[]string{"result"},
	)

	paymentsAmount := promauto.With(registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payments_amount",
			Help:    "Payment amounts distribution in minor currency units",
			Buckets: prometheus.ExponentialBuckets(100, 10, 5),
		},
		[]string{"status"},
	)

	driftCases := promauto.With(registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "reconciliation_drift_cases",
			Help: "Drift cases found by the last reconciliation scan",
		},
		[]string{"kind"},
	)

	return &entitlementMetrics{
		log:              log,
		paymentsTotal:    paymentsTotal,
		verdictsTotal:    verdictsTotal,
		activationsTotal: activationsTotal,
		duplicatesTotal:  duplicatesTotal,
		syncsTotal:       syncsTotal,
		paymentsAmount:   paymentsAmount,
		driftCases:       driftCases,
	}
}

// IncPaymentSubmitted increments the submitted payments counter
func (m *entitlementMetrics) IncPaymentSubmitted(method string) {
	m.paymentsTotal.WithLabelValues(method).Inc()
}

// IncPaymentVerified increments the verified verdicts counter
func (m *entitlementMetrics) IncPaymentVerified() {
	m.verdictsTotal.WithLabelValues("success").Inc()
}

// IncPaymentRejected increments the rejected verdicts counter
func (m *entitlementMetrics) IncPaymentRejected() {
	m.verdictsTotal.WithLabelValues("rejected").Inc()
}

// IncEntitlementActivated increments the activations counter
func (m *entitlementMetrics) IncEntitlementActivated(planName string) {
	m.activationsTotal.WithLabelValues(planName).Inc()
}

// IncDuplicateActivation increments the dedup-rejection counter
func (m *entitlementMetrics) IncDuplicateActivation() {
	m.duplicatesTotal.Inc()
}

// IncClaimsSync increments the sync counter for a result
// (success, partial, failed)
func (m *entitlementMetrics) IncClaimsSync(result string) {
	m.syncsTotal.WithLabelValues(result).Inc()
}

// ObservePaymentAmount records a payment amount
func (m *entitlementMetrics) ObservePaymentAmount(amount int64, status string) {
	m.paymentsAmount.WithLabelValues(status).Observe(float64(amount))
}

// SetDriftCases records the drift case count from the latest scan
func (m *entitlementMetrics) SetDriftCases(kind string, count int) {
	m.driftCases.WithLabelValues(kind).Set(float64(count))
}
