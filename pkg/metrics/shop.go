package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Checkout outcomes used as the outcome label.
const (
	OutcomeRecorded    = "recorded"
	OutcomeInvalidCard = "invalid_card"
	OutcomeDeclined    = "declined"
	OutcomeEmptyCart   = "empty_cart"
	OutcomeFailed      = "failed"
	OutcomeHosted      = "hosted"
)

// ShopMetrics records storefront activity.
type ShopMetrics struct {
	checkoutAttempts *prometheus.CounterVec
	orderTotal       prometheus.Histogram
	cartMutations    *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	jobDuration      *prometheus.HistogramVec
}

// NewShopMetrics registers the storefront metrics on the provided registerer.
// A nil registerer yields a recorder whose methods are no-ops.
func NewShopMetrics(reg prometheus.Registerer) *ShopMetrics {
	if reg == nil {
		return &ShopMetrics{}
	}
	checkoutAttempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_attempts_total",
		Help: "Checkout attempts by final outcome.",
	}, []string{"outcome"})
	orderTotal := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "checkout_order_total_cents",
		Help:    "Totals of recorded orders in cents.",
		Buckets: prometheus.ExponentialBuckets(100, 4, 8),
	})
	cartMutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_mutations_total",
		Help: "Cart mutations by operation.",
	}, []string{"op"})
	httpDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency by route pattern.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
	jobDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "scheduled_job_duration_seconds",
		Help:    "Scheduled job runs by job and outcome.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job", "outcome"})
	reg.MustRegister(checkoutAttempts, orderTotal, cartMutations, httpDuration, jobDuration)
	return &ShopMetrics{
		checkoutAttempts: checkoutAttempts,
		orderTotal:       orderTotal,
		cartMutations:    cartMutations,
		httpDuration:     httpDuration,
		jobDuration:      jobDuration,
	}
}

// IncCheckout counts one checkout attempt with the given outcome.
func (m *ShopMetrics) IncCheckout(outcome string) {
	if m == nil || m.checkoutAttempts == nil {
		return
	}
	m.checkoutAttempts.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// ObserveOrderTotal records the total of a recorded order.
func (m *ShopMetrics) ObserveOrderTotal(cents int64) {
	if m == nil || m.orderTotal == nil {
		return
	}
	m.orderTotal.Observe(float64(cents))
}

// IncCartMutation counts a cart change such as add, remove or clear.
func (m *ShopMetrics) IncCartMutation(op string) {
	if m == nil || m.cartMutations == nil {
		return
	}
	m.cartMutations.WithLabelValues(normalizeLabel(op)).Inc()
}

// ObserveRequest records one served HTTP request.
func (m *ShopMetrics) ObserveRequest(method, route string, status int, duration time.Duration) {
	if m == nil || m.httpDuration == nil {
		return
	}
	m.httpDuration.WithLabelValues(method, normalizeLabel(route), strconv.Itoa(status)).Observe(duration.Seconds())
}

// ObserveJob records one scheduled job run.
func (m *ShopMetrics) ObserveJob(job string, ok bool, duration time.Duration) {
	if m == nil || m.jobDuration == nil {
		return
	}
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	m.jobDuration.WithLabelValues(normalizeLabel(job), outcome).Observe(duration.Seconds())
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
