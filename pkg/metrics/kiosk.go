package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// KioskMetrics records settlement and refund counters for the kiosk.
type KioskMetrics struct {
	checkoutDuration *prometheus.HistogramVec
	checkouts        *prometheus.CounterVec
	checkoutFailures *prometheus.CounterVec
	refunds          prometheus.Counter
	utangSpillovers  prometheus.Counter
}

// NewKioskMetrics registers the kiosk metrics on the provided registerer.
func NewKioskMetrics(reg prometheus.Registerer) *KioskMetrics {
	if reg == nil {
		return &KioskMetrics{}
	}
	checkoutDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checkout_duration_seconds",
		Help:    "Duration of settled checkouts in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"payment_method"})
	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkouts_total",
		Help: "Completed checkouts by payment method.",
	}, []string{"payment_method"})
	checkoutFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_failures_total",
		Help: "Failed checkouts by error code.",
	}, []string{"code"})
	refunds := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "refunds_total",
		Help: "Completed refunds.",
	})
	utangSpillovers := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "utang_spillovers_total",
		Help: "Checkouts where the shortfall spilled into utang.",
	})
	reg.MustRegister(checkoutDuration, checkouts, checkoutFailures, refunds, utangSpillovers)
	return &KioskMetrics{
		checkoutDuration: checkoutDuration,
		checkouts:        checkouts,
		checkoutFailures: checkoutFailures,
		refunds:          refunds,
		utangSpillovers:  utangSpillovers,
	}
}

// ObserveCheckout records a settled checkout and its duration.
func (k *KioskMetrics) ObserveCheckout(paymentMethod string, duration time.Duration) {
	if k == nil || k.checkouts == nil {
		return
	}
	label := normalizeLabel(paymentMethod)
	k.checkouts.WithLabelValues(label).Inc()
	k.checkoutDuration.WithLabelValues(label).Observe(duration.Seconds())
}

// IncCheckoutFailure increments the failure counter for the given error code.
func (k *KioskMetrics) IncCheckoutFailure(code string) {
	if k == nil || k.checkoutFailures == nil {
		return
	}
	k.checkoutFailures.WithLabelValues(normalizeLabel(code)).Inc()
}

// IncRefund increments the completed refund counter.
func (k *KioskMetrics) IncRefund() {
	if k == nil || k.refunds == nil {
		return
	}
	k.refunds.Inc()
}

// IncUtangSpillover increments the spillover counter.
func (k *KioskMetrics) IncUtangSpillover() {
	if k == nil || k.utangSpillovers == nil {
		return
	}
	k.utangSpillovers.Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
