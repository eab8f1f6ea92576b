// Package metrics exposes Prometheus collectors for the simulation
// kernel. Collectors are package globals registered once via promauto;
// host processes mount Handler() wherever they serve HTTP.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// TicksTotal counts completed simulation ticks.
	TicksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fbasim_ticks_total",
		Help: "Number of simulation ticks completed.",
	})

	// PhaseInvocations counts phase handler invocations by phase.
	PhaseInvocations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fbasim_phase_invocations_total",
		Help: "Number of phase handler invocations.",
	}, []string{"phase"})

	// PhaseErrors counts failed phase handler invocations by phase.
	PhaseErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fbasim_phase_errors_total",
		Help: "Number of phase handler invocations that returned an error or panicked.",
	}, []string{"phase"})

	// EventsPublished counts events published on the bus by kind.
	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fbasim_events_published_total",
		Help: "Number of events published on the event bus.",
	}, []string{"kind"})

	// DeliveryErrors counts handler errors and recovered panics by kind.
	DeliveryErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fbasim_delivery_errors_total",
		Help: "Number of event deliveries that returned an error or panicked.",
	}, []string{"kind"})

	// LedgerPosts counts ledger post attempts by outcome.
	LedgerPosts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fbasim_ledger_posts_total",
		Help: "Number of ledger transaction posts by status.",
	}, []string{"status"})

	// LedgerVerifications counts integrity checks by result.
	LedgerVerifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fbasim_ledger_verifications_total",
		Help: "Number of ledger integrity verifications by result.",
	}, []string{"result"})

	// OrdersPlaced counts accepted supplier orders.
	OrdersPlaced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fbasim_orders_placed_total",
		Help: "Number of supplier orders accepted by the supply chain.",
	})

	// OrdersRejected counts rejected supplier orders by reason.
	OrdersRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fbasim_orders_rejected_total",
		Help: "Number of supplier orders rejected by the supply chain.",
	}, []string{"reason"})

	// Deliveries counts order deliveries by mode (full or partial).
	Deliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fbasim_deliveries_total",
		Help: "Number of order deliveries by mode.",
	}, []string{"mode"})

	// UnitsDelivered counts units of stock delivered to inventory.
	UnitsDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fbasim_units_delivered_total",
		Help: "Total units delivered into inventory.",
	})

	// BlackSwans counts black-swan disruptions by type.
	BlackSwans = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fbasim_black_swans_total",
		Help: "Number of black-swan disruptions started.",
	}, []string{"type"})

	// PendingOrders tracks orders currently awaiting delivery.
	PendingOrders = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fbasim_pending_orders",
		Help: "Number of supplier orders currently in transit.",
	})
)

// Handler returns the HTTP handler serving the Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
