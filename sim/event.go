package sim

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Kind tags an event with its place in the closed event union. Dispatch
// is always by tag, never by probing payload fields at runtime.
type Kind string

const (
	// KindTick is published by the orchestrator once at the top of
	// every tick, before any phase runs.
	KindTick Kind = "tick"

	// KindPlaceOrder is the inbound command consumed by the supply
	// chain: buy Quantity units of Product from Supplier, paying at
	// most PriceCeiling per unit.
	KindPlaceOrder Kind = "place_order"

	// KindInventoryUpdate is published by the supply chain when a
	// delivery lands, carrying the on-hand quantity before and after.
	KindInventoryUpdate Kind = "inventory_update"

	// KindDisruption is published when a black-swan disruption begins,
	// whether sampled or injected.
	KindDisruption Kind = "disruption"
)

// Event is one immutable record on the bus. Identity is (Kind, ID);
// events are never mutated after publication.
type Event interface {
	Kind() Kind
	ID() string
	OccurredAt() time.Time
}

// Header carries the identity fields shared by every event kind.
// Embed it by value; the zero Header is invalid — use NewHeader.
type Header struct {
	EventID   string
	Timestamp time.Time
}

// NewHeader assigns a fresh event id and wall-clock creation time.
func NewHeader() Header {
	return Header{
		EventID:   uuid.NewString(),
		Timestamp: time.Now().UTC(),
	}
}

// ID returns the unique event identifier.
func (h Header) ID() string { return h.EventID }

// OccurredAt returns the wall-clock creation time of the event.
func (h Header) OccurredAt() time.Time { return h.Timestamp }

// TickEvent announces the start of a tick. SimTime is the simulated
// instant (base time advanced by tick × interval × acceleration);
// DemandFactor is the deterministic market factor for this tick.
// Metadata is the run metadata from SimulationConfig, copied per event
// so subscribers can hold it without aliasing the next tick's map.
type TickEvent struct {
	Header
	Tick         int64
	SimTime      time.Time
	DemandFactor float64
	Metadata     map[string]string
}

// Kind returns KindTick.
func (TickEvent) Kind() Kind { return KindTick }

// NewTickEvent builds a tick announcement, copying metadata.
func NewTickEvent(tick int64, simTime time.Time, demandFactor float64, metadata map[string]string) TickEvent {
	var meta map[string]string
	if len(metadata) > 0 {
		meta = make(map[string]string, len(metadata))
		for k, v := range metadata {
			meta[k] = v
		}
	}
	return TickEvent{
		Header:       NewHeader(),
		Tick:         tick,
		SimTime:      simTime,
		DemandFactor: demandFactor,
		Metadata:     meta,
	}
}

// PlaceOrderEvent asks the supply chain to order stock from a supplier.
type PlaceOrderEvent struct {
	Header
	SupplierID   string
	ProductID    string
	Quantity     int64
	PriceCeiling decimal.Decimal
}

// Kind returns KindPlaceOrder.
func (PlaceOrderEvent) Kind() Kind { return KindPlaceOrder }

// NewPlaceOrderEvent builds an order command.
func NewPlaceOrderEvent(supplierID, productID string, quantity int64, priceCeiling decimal.Decimal) PlaceOrderEvent {
	return PlaceOrderEvent{
		Header:       NewHeader(),
		SupplierID:   supplierID,
		ProductID:    productID,
		Quantity:     quantity,
		PriceCeiling: priceCeiling,
	}
}

// InventoryUpdateEvent reports an on-hand quantity change. CommandID is
// the event id of the PlaceOrderEvent that caused the delivery, so
// hosts can correlate deliveries back to orders.
type InventoryUpdateEvent struct {
	Header
	ProductID string
	Previous  int64
	New       int64
	Reason    string
	CommandID string
}

// Kind returns KindInventoryUpdate.
func (InventoryUpdateEvent) Kind() Kind { return KindInventoryUpdate }

// NewInventoryUpdateEvent builds an inventory change notification.
func NewInventoryUpdateEvent(productID string, previous, next int64, reason, commandID string) InventoryUpdateEvent {
	return InventoryUpdateEvent{
		Header:    NewHeader(),
		ProductID: productID,
		Previous:  previous,
		New:       next,
		Reason:    reason,
		CommandID: commandID,
	}
}

// DisruptionEvent announces the start of a black-swan disruption.
// Suppliers is nil when the disruption applies to every supplier.
type DisruptionEvent struct {
	Header
	Type               string
	StartTick          int64
	DurationTicks      int64
	LeadTimeMultiplier float64
	Suppliers          []string
}

// Kind returns KindDisruption.
func (DisruptionEvent) Kind() Kind { return KindDisruption }

// NewDisruptionEvent builds a disruption notification, copying the
// supplier scope slice.
func NewDisruptionEvent(disruptionType string, startTick, durationTicks int64, multiplier float64, suppliers []string) DisruptionEvent {
	var scope []string
	if len(suppliers) > 0 {
		scope = append(scope, suppliers...)
	}
	return DisruptionEvent{
		Header:             NewHeader(),
		Type:               disruptionType,
		StartTick:          startTick,
		DurationTicks:      durationTicks,
		LeadTimeMultiplier: multiplier,
		Suppliers:          scope,
	}
}
