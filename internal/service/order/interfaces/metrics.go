package interfaces

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "order_service"

// 支付事件的处理结果
const (
	outcomeProcessed = "processed"
	outcomeMalformed = "malformed"
	outcomeFailed    = "failed"
)

var (
	ordersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "orders_created_total",
		Help:      "Orders created through POST /orders whose payment session was opened.",
	})

	paymentEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "payment_events_total",
		Help:      "payment.succeeded messages by outcome.",
	}, []string{"outcome"})

	remoteCallSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "remote_call_seconds",
		Help:      "Latency of calls to the product catalog and payment service.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"target", "outcome"})
)

// ObserveRemoteCall 符合 httpclient.ObserveFunc，在 main 中注入到 HTTP 客户端
func ObserveRemoteCall(target, outcome string, elapsed time.Duration) {
	remoteCallSeconds.WithLabelValues(target, outcome).Observe(elapsed.Seconds())
}
