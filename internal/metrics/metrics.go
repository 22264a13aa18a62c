package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Metrics exposes engine counters and gauges for Prometheus scraping.
type Metrics struct {
	CyclesTotal     prometheus.Counter
	CycleErrors     prometheus.Counter
	Decisions       *prometheus.CounterVec
	OrdersPlaced    *prometheus.CounterVec
	OrderFailures   prometheus.Counter
	Reconciliations prometheus.Counter
	ZScore          prometheus.Gauge
	Spread          prometheus.Gauge
	CointPValue     prometheus.Gauge
	PositionMode    *prometheus.GaugeVec
	CycleDuration   prometheus.Histogram
}

// New registers the metric set on a fresh registry and returns both.
func New() (*Metrics, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{
		CyclesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "pairs_cycles_total",
			Help: "Decision cycles completed.",
		}),
		CycleErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "pairs_cycle_errors_total",
			Help: "Cycles skipped due to data or statistical errors.",
		}),
		Decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pairs_decisions_total",
			Help: "Evaluator decisions by outcome.",
		}, []string{"decision"}),
		OrdersPlaced: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pairs_orders_placed_total",
			Help: "Orders submitted to the broker by side.",
		}, []string{"side"}),
		OrderFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "pairs_order_failures_total",
			Help: "Order submissions rejected by the broker.",
		}),
		Reconciliations: factory.NewCounter(prometheus.CounterOpts{
			Name: "pairs_reconciliations_total",
			Help: "Reconciliation passes executed.",
		}),
		ZScore: factory.NewGauge(prometheus.GaugeOpts{
			Name: "pairs_spread_zscore",
			Help: "Latest spread z-score.",
		}),
		Spread: factory.NewGauge(prometheus.GaugeOpts{
			Name: "pairs_spread_value",
			Help: "Latest raw spread (price A minus price B).",
		}),
		CointPValue: factory.NewGauge(prometheus.GaugeOpts{
			Name: "pairs_cointegration_pvalue",
			Help: "Latest Engle-Granger p-value for the pair.",
		}),
		PositionMode: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pairs_position_mode",
			Help: "Current position mode, 1 for the active mode and 0 otherwise.",
		}, []string{"mode"}),
		CycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "pairs_cycle_duration_seconds",
			Help:    "Wall time per decision cycle.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	return m, reg
}

// SetPositionMode flips the position gauge so exactly one mode reads 1.
func (m *Metrics) SetPositionMode(mode string) {
	for _, known := range []string{"FLAT", "LONG_SPREAD", "SHORT_SPREAD"} {
		v := 0.0
		if known == mode {
			v = 1.0
		}
		m.PositionMode.WithLabelValues(known).Set(v)
	}
}

// Serve exposes /metrics on addr in a background goroutine. An empty addr
// disables the endpoint.
func Serve(addr string, reg *prometheus.Registry, logger *zap.Logger) {
	if addr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("metrics endpoint listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server stopped", zap.Error(err))
		}
	}()
}
