// Package supply implements the stochastic supply-chain process: it
// consumes order commands from the bus, holds them in transit for a
// seeded lead time, and delivers them into an inventory store on later
// ticks. Disruptions, both sampled black swans and the manual knob,
// stretch lead times and throttle fulfillment.
package supply

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	xrand "golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/Bender1011001/FBA-Bench-Enterprise-sub001/sim"
	"github.com/Bender1011001/FBA-Bench-Enterprise-sub001/sim/metrics"
)

// Config controls the stochastic behavior of the supply chain.
type Config struct {
	// Stochastic enables lead-time variance and black-swan sampling.
	// When false the process is fully deterministic given its inputs.
	Stochastic bool
	// LeadTimeStdDev is the standard deviation, in ticks, of the
	// Normal lead-time variance. Zero defaults to 1 when Stochastic.
	LeadTimeStdDev float64
	// BlackSwanProbability is the per-tick chance of a new sampled
	// disruption. Zero disables sampling.
	BlackSwanProbability float64
	// Seed drives every supply-side draw via subsystem-derived
	// streams.
	Seed int64
}

// Validate applies defaults and rejects out-of-range knobs.
func (c *Config) Validate() error {
	if c.LeadTimeStdDev < 0 {
		return fmt.Errorf("lead_time_std_dev must not be negative, got %g", c.LeadTimeStdDev)
	}
	if c.Stochastic && c.LeadTimeStdDev == 0 {
		c.LeadTimeStdDev = 1.0
	}
	if c.BlackSwanProbability < 0 || c.BlackSwanProbability > 1 {
		return fmt.Errorf("black_swan_probability must be in [0, 1], got %g", c.BlackSwanProbability)
	}
	return nil
}

// PendingOrder is an accepted order in transit. CommandID is the event
// id of the PlaceOrderEvent that created it; VarianceTicks is the
// schedule variance accumulated at placement, positive for late.
type PendingOrder struct {
	ID             string
	CommandID      string
	SupplierID     string
	ProductID      string
	Quantity       int64
	UnitPrice      decimal.Decimal
	PriceCeiling   decimal.Decimal
	PlacedTick     int64
	ArrivalTick    int64
	VarianceTicks  int64
	PartialApplied bool
}

// Disruption is the manual disruption knob: while active, new orders
// pick up LeadTimeIncrease extra ticks and due deliveries are
// throttled to FulfillmentRate.
type Disruption struct {
	Active           bool
	LeadTimeIncrease int64
	FulfillmentRate  float64
}

// Process is the supply-chain event processor. It subscribes to tick
// and place_order events, so all of its mutation happens inside bus
// deliveries on the driver goroutine; the mutex exists for host
// goroutines poking SetDisruption and the introspection methods.
type Process struct {
	cfg   Config
	bus   *sim.Bus
	store InventoryStore

	mu          sync.Mutex
	currentTick int64
	suppliers   map[string]Supplier
	pending     []*PendingOrder
	swans       []BlackSwan
	manual      Disruption
	rng         *sim.PartitionedRNG
	variance    distuv.Normal
	subs        []sim.Subscription
}

// NewProcess builds a supply chain over the given bus, store and
// supplier roster. The config is validated with defaults applied.
func NewProcess(cfg Config, bus *sim.Bus, store InventoryStore, suppliers []Supplier) (*Process, error) {
	if bus == nil {
		panic("supply: NewProcess called with nil bus")
	}
	if store == nil {
		panic("supply: NewProcess called with nil store")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid supply config: %w", err)
	}
	roster := make(map[string]Supplier, len(suppliers))
	for _, s := range suppliers {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		if _, ok := roster[s.ID]; ok {
			return nil, fmt.Errorf("duplicate supplier id %q", s.ID)
		}
		roster[s.ID] = s
	}
	rng := sim.NewPartitionedRNG(sim.NewSimulationKey(cfg.Seed))
	p := &Process{
		cfg:       cfg,
		bus:       bus,
		store:     store,
		suppliers: roster,
		rng:       rng,
		variance: distuv.Normal{
			Mu:    0,
			Sigma: cfg.LeadTimeStdDev,
			Src:   xrand.NewSource(uint64(rng.DeriveSeed(sim.SubsystemSupplyVariance))),
		},
	}
	return p, nil
}

// Attach subscribes the process to tick and place_order events. The
// bus must be started.
func (p *Process) Attach() error {
	tickSub, err := p.bus.Subscribe(sim.KindTick, p.handleTick)
	if err != nil {
		return fmt.Errorf("attach supply chain: %w", err)
	}
	orderSub, err := p.bus.Subscribe(sim.KindPlaceOrder, p.handleOrder)
	if err != nil {
		p.bus.Unsubscribe(tickSub)
		return fmt.Errorf("attach supply chain: %w", err)
	}
	p.mu.Lock()
	p.subs = []sim.Subscription{tickSub, orderSub}
	p.mu.Unlock()
	logrus.Infof("supply: attached, %d suppliers, stochastic=%t", len(p.suppliers), p.cfg.Stochastic)
	return nil
}

// Detach removes the process from the bus. Pending orders are kept and
// resume on a later Attach.
func (p *Process) Detach() {
	p.mu.Lock()
	subs := p.subs
	p.subs = nil
	p.mu.Unlock()
	for _, s := range subs {
		p.bus.Unsubscribe(s)
	}
}

// handleTick advances the supply clock, samples disruptions, and
// delivers every order whose arrival tick has come.
func (p *Process) handleTick(ctx context.Context, ev sim.Event) error {
	te, ok := ev.(sim.TickEvent)
	if !ok {
		return fmt.Errorf("supply: tick event has unexpected payload %T", ev)
	}

	p.mu.Lock()
	p.currentTick = te.Tick
	p.pruneExpiredLocked()
	out := p.sampleSwanLocked()
	out = append(out, p.deliverDueLocked()...)
	pendingCount := len(p.pending)
	p.mu.Unlock()

	metrics.PendingOrders.Set(float64(pendingCount))
	for _, o := range out {
		if err := p.bus.Publish(ctx, o); err != nil {
			logrus.Warnf("supply: publish %s: %v", o.Kind(), err)
		}
	}
	return nil
}

// pruneExpiredLocked drops disruptions whose span has passed. Pruning
// is lazy: it only runs at tick boundaries.
func (p *Process) pruneExpiredLocked() {
	active := p.swans[:0]
	for _, s := range p.swans {
		if s.EndTick() > p.currentTick {
			active = append(active, s)
		} else {
			logrus.Infof("supply: disruption %s expired at tick %d", s.Type, p.currentTick)
		}
	}
	p.swans = active
}

// sampleSwanLocked draws at most one new black swan for this tick.
func (p *Process) sampleSwanLocked() []sim.Event {
	if !p.cfg.Stochastic || p.cfg.BlackSwanProbability <= 0 {
		return nil
	}
	rng := p.rng.ForSubsystem(sim.SubsystemSupply)
	if rng.Float64() >= p.cfg.BlackSwanProbability {
		return nil
	}
	swan := sampleSwan(rng, p.currentTick)
	p.swans = append(p.swans, swan)
	metrics.BlackSwans.WithLabelValues(swan.Type).Inc()
	logrus.Warnf("supply: black swan %s at tick %d for %d ticks (lead time x%.1f)",
		swan.Type, swan.StartTick, swan.DurationTicks, swan.LeadTimeMultiplier)
	return []sim.Event{sim.NewDisruptionEvent(swan.Type, swan.StartTick, swan.DurationTicks, swan.LeadTimeMultiplier, swan.Suppliers)}
}

// deliverDueLocked moves due orders into the inventory store. Under an
// active manual disruption with a fulfillment rate below 1, a due
// order delivers floor(quantity × rate) once and re-queues the
// remainder for the next tick at full rate.
func (p *Process) deliverDueLocked() []sim.Event {
	var out []sim.Event
	remaining := p.pending[:0]
	for _, o := range p.pending {
		if o.ArrivalTick > p.currentTick {
			remaining = append(remaining, o)
			continue
		}

		rate := 1.0
		if p.manual.Active && !o.PartialApplied {
			rate = p.manual.FulfillmentRate
		}
		if rate < 1 {
			delivered := int64(math.Floor(float64(o.Quantity) * rate))
			kept := o.Quantity - delivered
			if delivered > 0 {
				prev, next := p.store.Add(o.ProductID, delivered)
				out = append(out, sim.NewInventoryUpdateEvent(o.ProductID, prev, next, "partial_delivery", o.CommandID))
				metrics.UnitsDelivered.Add(float64(delivered))
			}
			metrics.Deliveries.WithLabelValues("partial").Inc()
			logrus.Infof("supply: order %s partially delivered at tick %d: %d of %d units, %d re-queued",
				o.ID, p.currentTick, delivered, o.Quantity, kept)
			o.Quantity = kept
			o.PartialApplied = true
			o.ArrivalTick = p.currentTick + 1
			remaining = append(remaining, o)
			continue
		}

		prev, next := p.store.Add(o.ProductID, o.Quantity)
		out = append(out, sim.NewInventoryUpdateEvent(o.ProductID, prev, next, "delivery", o.CommandID))
		metrics.Deliveries.WithLabelValues("full").Inc()
		metrics.UnitsDelivered.Add(float64(o.Quantity))
		logrus.Infof("supply: order %s delivered at tick %d: %d units of %s (on hand %d)",
			o.ID, p.currentTick, o.Quantity, o.ProductID, next)
	}
	p.pending = remaining
	return out
}

// handleOrder validates an order command and schedules its delivery.
func (p *Process) handleOrder(ctx context.Context, ev sim.Event) error {
	pe, ok := ev.(sim.PlaceOrderEvent)
	if !ok {
		metrics.OrdersRejected.WithLabelValues("malformed").Inc()
		return fmt.Errorf("supply: place_order event has unexpected payload %T", ev)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	supplier, ok := p.suppliers[pe.SupplierID]
	if !ok {
		metrics.OrdersRejected.WithLabelValues("unknown_supplier").Inc()
		logrus.Warnf("supply: order %s dropped: unknown supplier %q", pe.ID(), pe.SupplierID)
		return fmt.Errorf("supply: unknown supplier %q", pe.SupplierID)
	}
	if pe.ProductID == "" {
		metrics.OrdersRejected.WithLabelValues("malformed").Inc()
		logrus.Warnf("supply: order %s dropped: empty product id", pe.ID())
		return fmt.Errorf("supply: order %s has empty product id", pe.ID())
	}
	if pe.Quantity <= 0 {
		metrics.OrdersRejected.WithLabelValues("invalid_quantity").Inc()
		logrus.Warnf("supply: order %s dropped: quantity %d", pe.ID(), pe.Quantity)
		return fmt.Errorf("supply: order %s has non-positive quantity %d", pe.ID(), pe.Quantity)
	}
	// A zero price ceiling means the buyer accepts any quote.
	if pe.PriceCeiling.IsPositive() && supplier.UnitPrice.GreaterThan(pe.PriceCeiling) {
		metrics.OrdersRejected.WithLabelValues("price_ceiling").Inc()
		logrus.Warnf("supply: order %s dropped: supplier %q quotes %s above ceiling %s",
			pe.ID(), supplier.ID, supplier.UnitPrice, pe.PriceCeiling)
		return fmt.Errorf("supply: order %s quote %s exceeds ceiling %s", pe.ID(), supplier.UnitPrice, pe.PriceCeiling)
	}

	arrival, variance := p.arrivalTickLocked(supplier)
	order := &PendingOrder{
		ID:            uuid.NewString(),
		CommandID:     pe.ID(),
		SupplierID:    supplier.ID,
		ProductID:     pe.ProductID,
		Quantity:      pe.Quantity,
		UnitPrice:     supplier.UnitPrice,
		PriceCeiling:  pe.PriceCeiling,
		PlacedTick:    p.currentTick,
		ArrivalTick:   arrival,
		VarianceTicks: variance,
	}
	p.pending = append(p.pending, order)
	metrics.OrdersPlaced.Inc()
	metrics.PendingOrders.Set(float64(len(p.pending)))
	logrus.Infof("supply: order %s accepted: %d units of %s from %s, arrival tick %d",
		order.ID, order.Quantity, order.ProductID, order.SupplierID, order.ArrivalTick)
	return nil
}

// arrivalTickLocked computes when an order placed now lands: base lead
// time, stretched by active disruptions, plus sampled variance, never
// earlier than the next tick. The second return is the total deviation
// from the undisturbed schedule.
func (p *Process) arrivalTickLocked(supplier Supplier) (arrival, variance int64) {
	lead := supplier.LeadTimeTicks

	multiplier := 1.0
	for _, s := range p.swans {
		if s.ActiveAt(p.currentTick) && s.AppliesTo(supplier.ID) {
			multiplier *= s.LeadTimeMultiplier
		}
	}
	swanExtra := int64(math.Round(float64(lead) * (multiplier - 1)))

	var manualExtra int64
	if p.manual.Active {
		manualExtra = p.manual.LeadTimeIncrease
	}

	arrival = p.currentTick + lead + swanExtra + manualExtra + p.sampleLeadTimeVariance()
	if arrival <= p.currentTick {
		arrival = p.currentTick + 1
	}
	return arrival, arrival - (p.currentTick + lead)
}

// sampleLeadTimeVariance draws Normal schedule noise rounded to whole
// ticks. Deterministic runs always get zero.
func (p *Process) sampleLeadTimeVariance() int64 {
	if !p.cfg.Stochastic {
		return 0
	}
	return int64(math.Round(p.variance.Rand()))
}

// SetDisruption flips the manual disruption knob. Deactivating clears
// the lead-time increase and restores full fulfillment. Rates outside
// [0, 1] are clamped.
func (p *Process) SetDisruption(active bool, leadTimeIncrease int64, fulfillmentRate float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !active {
		p.manual = Disruption{FulfillmentRate: 1}
		logrus.Infof("supply: manual disruption cleared at tick %d", p.currentTick)
		return
	}
	if fulfillmentRate > 1 {
		fulfillmentRate = 1
	}
	if fulfillmentRate < 0 {
		fulfillmentRate = 0
	}
	if leadTimeIncrease < 0 {
		leadTimeIncrease = 0
	}
	p.manual = Disruption{Active: true, LeadTimeIncrease: leadTimeIncrease, FulfillmentRate: fulfillmentRate}
	logrus.Warnf("supply: manual disruption active at tick %d: +%d ticks lead time, %.0f%% fulfillment",
		p.currentTick, leadTimeIncrease, fulfillmentRate*100)
}

// TriggerBlackSwan injects a disruption without waiting for the
// sampler, active from the current tick. A nil suppliers slice affects
// every supplier.
func (p *Process) TriggerBlackSwan(ctx context.Context, swanType string, durationTicks int64, multiplier float64, suppliers []string) (BlackSwan, error) {
	if swanType == "" {
		return BlackSwan{}, fmt.Errorf("trigger black swan: type must not be empty")
	}
	if durationTicks < 1 {
		return BlackSwan{}, fmt.Errorf("trigger black swan %q: duration must be at least 1 tick, got %d", swanType, durationTicks)
	}
	if multiplier <= 0 {
		return BlackSwan{}, fmt.Errorf("trigger black swan %q: multiplier must be positive, got %g", swanType, multiplier)
	}

	p.mu.Lock()
	swan := BlackSwan{
		Type:               swanType,
		StartTick:          p.currentTick,
		DurationTicks:      durationTicks,
		LeadTimeMultiplier: multiplier,
		Suppliers:          append([]string(nil), suppliers...),
	}
	p.swans = append(p.swans, swan)
	p.mu.Unlock()

	metrics.BlackSwans.WithLabelValues(swanType).Inc()
	logrus.Warnf("supply: black swan %s injected at tick %d for %d ticks (lead time x%.1f)",
		swanType, swan.StartTick, durationTicks, multiplier)
	ev := sim.NewDisruptionEvent(swan.Type, swan.StartTick, swan.DurationTicks, swan.LeadTimeMultiplier, swan.Suppliers)
	if err := p.bus.Publish(ctx, ev); err != nil {
		logrus.Warnf("supply: publish disruption: %v", err)
	}
	return swan, nil
}

// PendingOrders returns copies of every order in transit, in
// acceptance order.
func (p *Process) PendingOrders() []PendingOrder {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]PendingOrder, len(p.pending))
	for i, o := range p.pending {
		out[i] = *o
	}
	return out
}

// ActiveDisruptions returns copies of the black swans covering the
// current tick.
func (p *Process) ActiveDisruptions() []BlackSwan {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []BlackSwan
	for _, s := range p.swans {
		if s.ActiveAt(p.currentTick) {
			out = append(out, s)
		}
	}
	return out
}

// ManualDisruption returns the state of the manual knob.
func (p *Process) ManualDisruption() Disruption {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.manual
}

// CurrentTick returns the last tick the process observed.
func (p *Process) CurrentTick() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.currentTick
}

// Supplier returns the roster entry for an id.
func (p *Process) Supplier(id string) (Supplier, bool) {
	s, ok := p.suppliers[id]
	return s, ok
}
