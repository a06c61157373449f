package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder exports webhook and order metrics to Prometheus.
type Recorder struct {
	signalsTotal *prometheus.CounterVec
	ordersTotal  *prometheus.CounterVec
	lastPrice    *prometheus.GaugeVec
	latency      *prometheus.HistogramVec
}

// New creates a recorder registered on reg.
func New(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		signalsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alertbridge_signals_total",
				Help: "Total number of webhook signals by parse source and outcome status",
			},
			[]string{"source", "status"},
		),
		ordersTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alertbridge_orders_total",
				Help: "Total number of orders sent to the exchange",
			},
			[]string{"action", "result"},
		),
		lastPrice: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "alertbridge_last_price",
				Help: "Last price seen in a market snapshot",
			},
			[]string{"symbol"},
		),
		latency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "alertbridge_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordSignal counts a handled signal.
func (r *Recorder) RecordSignal(source, status string) {
	r.signalsTotal.WithLabelValues(source, status).Inc()
}

// RecordOrder counts an order attempt, result is "ok" or "failed".
func (r *Recorder) RecordOrder(action, result string) {
	r.ordersTotal.WithLabelValues(action, result).Inc()
}

// RecordLastPrice records the last price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
