package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	OrdersCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "Orders created, by payment method",
		},
		[]string{"payment_method"},
	)

	ItemTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_item_transitions_total",
			Help: "Applied order item status transitions, by target status",
		},
		[]string{"status"},
	)

	PaymentCallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_callbacks_total",
			Help: "Payment gateway callbacks, by channel and outcome",
		},
		[]string{"channel", "outcome"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method", "status"},
	)
)

var once sync.Once

// Register registers all collectors with the default registry. Safe to call more than once.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(OrdersCreatedTotal)
		prometheus.MustRegister(ItemTransitionsTotal)
		prometheus.MustRegister(PaymentCallbacksTotal)
		prometheus.MustRegister(HTTPRequestDuration)
	})
}
