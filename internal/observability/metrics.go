package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce            sync.Once
	httpDurationHistogram   *prometheus.HistogramVec
	orderTransitionCounter  *prometheus.CounterVec
	profitRecomputeDuration prometheus.Histogram
	defaultProfitGauge      prometheus.Gauge
	idempotencyCounter      *prometheus.CounterVec
	workerRunCounter        *prometheus.CounterVec
)

// Init registers all Prometheus collectors.
func Init() {
	registerOnce.Do(func() {
		httpDurationHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"})

		orderTransitionCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "order_status_transitions_total",
			Help: "Store-confirmed order status transitions",
		}, []string{"from", "to"})

		profitRecomputeDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "profit_recompute_duration_seconds",
			Help:    "Profit aggregation recompute latency",
			Buckets: prometheus.DefBuckets,
		})

		defaultProfitGauge = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "default_calculation_profit",
			Help: "Profit of the default calculation in its target currency",
		})

		idempotencyCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "idempotency_events_total",
			Help: "Idempotency middleware outcomes",
		}, []string{"outcome"})

		workerRunCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_runs_total",
			Help: "Background worker run outcomes",
		}, []string{"worker", "result"})

		prometheus.MustRegister(
			httpDurationHistogram,
			orderTransitionCounter,
			profitRecomputeDuration,
			defaultProfitGauge,
			idempotencyCounter,
			workerRunCounter,
		)
	})
}

func ObserveHTTP(method, path string, status int, duration time.Duration) {
	if httpDurationHistogram == nil {
		return
	}
	httpDurationHistogram.WithLabelValues(method, path, strconv.Itoa(status)).Observe(duration.Seconds())
}

func IncrementOrderTransition(from, to string) {
	if orderTransitionCounter == nil {
		return
	}
	orderTransitionCounter.WithLabelValues(from, to).Inc()
}

func ObserveProfitRecompute(duration time.Duration) {
	if profitRecomputeDuration == nil {
		return
	}
	profitRecomputeDuration.Observe(duration.Seconds())
}

func SetDefaultProfit(value float64) {
	if defaultProfitGauge == nil {
		return
	}
	defaultProfitGauge.Set(value)
}

func IncrementIdempotencyEvent(outcome string) {
	if idempotencyCounter == nil {
		return
	}
	idempotencyCounter.WithLabelValues(outcome).Inc()
}

func IncrementWorkerRun(worker, result string) {
	if workerRunCounter == nil {
		return
	}
	workerRunCounter.WithLabelValues(worker, result).Inc()
}
