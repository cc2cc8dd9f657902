package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// MovementsApplied counts committed stock movements by kind.
	MovementsApplied = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stock_movements_applied_total",
			Help: "Total number of stock movements appended to the ledger",
		},
		[]string{"kind"},
	)

	// MovementsRejected counts ledger rejections by reason.
	MovementsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stock_movements_rejected_total",
			Help: "Total number of stock movements rejected by the ledger",
		},
		[]string{"reason"},
	)

	AlertsRaised = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stock_alerts_raised_total",
			Help: "Total number of stock alerts raised after a ledger mutation",
		},
		[]string{"kind"},
	)

	SalesFinalized = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_sales_total",
			Help: "Total number of finalize-sale attempts by outcome",
		},
		[]string{"outcome"},
	)

	LedgerApplyDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stock_ledger_apply_duration_seconds",
			Help:    "Duration of ledger batch applications in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)

var registerOnce sync.Once

// Register adds the collectors to the default registry. Safe to call more
// than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			MovementsApplied,
			MovementsRejected,
			AlertsRaised,
			SalesFinalized,
			LedgerApplyDuration,
		)
	})
}

func Handler() http.Handler {
	return promhttp.Handler()
}
