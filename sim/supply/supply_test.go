package supply

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/Bender1011001/FBA-Bench-Enterprise-sub001/sim"
)

func testSuppliers() []Supplier {
	return []Supplier{
		{ID: "acme", Name: "Acme Corp", LeadTimeTicks: 2, UnitPrice: decimal.RequireFromString("15.00")},
		{ID: "globex", Name: "Globex", LeadTimeTicks: 4, UnitPrice: decimal.RequireFromString("9.50")},
	}
}

// newSupplyHarness wires a process to a started bus and empty store and
// captures every inventory update it publishes.
func newSupplyHarness(t *testing.T, cfg Config) (*Process, *sim.Bus, *MemoryInventory, *[]sim.InventoryUpdateEvent) {
	t.Helper()
	bus := sim.NewBus()
	bus.Start()
	store := NewMemoryInventory()
	p, err := NewProcess(cfg, bus, store, testSuppliers())
	if err != nil {
		t.Fatalf("NewProcess: %v", err)
	}
	if err := p.Attach(); err != nil {
		t.Fatalf("Attach: %v", err)
	}

	updates := &[]sim.InventoryUpdateEvent{}
	if _, err := bus.Subscribe(sim.KindInventoryUpdate, func(ctx context.Context, ev sim.Event) error {
		*updates = append(*updates, ev.(sim.InventoryUpdateEvent))
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	return p, bus, store, updates
}

func advanceTo(t *testing.T, bus *sim.Bus, tick int64) {
	t.Helper()
	ev := sim.NewTickEvent(tick, time.Unix(0, 0).Add(time.Duration(tick)*time.Hour), 1.0, nil)
	if err := bus.Publish(context.Background(), ev); err != nil {
		t.Fatalf("publish tick %d: %v", tick, err)
	}
}

func placeOrder(t *testing.T, bus *sim.Bus, supplier, product string, qty int64) sim.PlaceOrderEvent {
	t.Helper()
	ev := sim.NewPlaceOrderEvent(supplier, product, qty, decimal.Zero)
	if err := bus.Publish(context.Background(), ev); err != nil {
		t.Fatalf("publish order: %v", err)
	}
	return ev
}

func TestMain(m *testing.M) {
	// Rejection-path tests log deliberately noisy warnings.
	if os.Getenv("DEBUG_TESTS") == "" {
		logrus.SetLevel(logrus.ErrorLevel)
	}
	os.Exit(m.Run())
}

// === Construction Tests ===

func TestNewProcess_Validation(t *testing.T) {
	bus := sim.NewBus()
	store := NewMemoryInventory()

	tests := []struct {
		name      string
		cfg       Config
		suppliers []Supplier
	}{
		{"negative stddev", Config{LeadTimeStdDev: -1}, testSuppliers()},
		{"probability above one", Config{BlackSwanProbability: 1.5}, testSuppliers()},
		{"duplicate supplier", Config{}, []Supplier{testSuppliers()[0], testSuppliers()[0]}},
		{"zero lead time", Config{}, []Supplier{{ID: "x", LeadTimeTicks: 0, UnitPrice: decimal.New(1, 0)}}},
		{"free supplier", Config{}, []Supplier{{ID: "x", LeadTimeTicks: 1, UnitPrice: decimal.Zero}}},
		{"empty supplier id", Config{}, []Supplier{{LeadTimeTicks: 1, UnitPrice: decimal.New(1, 0)}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewProcess(tt.cfg, bus, store, tt.suppliers); err == nil {
				t.Error("invalid construction accepted")
			}
		})
	}
}

func TestNewProcess_NilDependenciesPanic(t *testing.T) {
	store := NewMemoryInventory()
	for _, tt := range []struct {
		name string
		fn   func()
	}{
		{"nil bus", func() { NewProcess(Config{}, nil, store, nil) }},
		{"nil store", func() { NewProcess(Config{}, sim.NewBus(), nil, nil) }},
	} {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("no panic")
				}
			}()
			tt.fn()
		})
	}
}

func TestConfig_StochasticDefaults(t *testing.T) {
	cfg := Config{Stochastic: true}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if cfg.LeadTimeStdDev != 1.0 {
		t.Errorf("LeadTimeStdDev defaulted to %g, want 1.0", cfg.LeadTimeStdDev)
	}
}

func TestProcess_AttachRequiresStartedBus(t *testing.T) {
	bus := sim.NewBus()
	p, err := NewProcess(Config{}, bus, NewMemoryInventory(), testSuppliers())
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Attach(); err == nil {
		t.Error("Attach succeeded on a stopped bus")
	}
}

func TestProcess_DetachStopsProcessing(t *testing.T) {
	p, bus, _, _ := newSupplyHarness(t, Config{})
	advanceTo(t, bus, 0)
	p.Detach()

	placeOrder(t, bus, "acme", "widget-a", 10)
	if got := len(p.PendingOrders()); got != 0 {
		t.Errorf("detached process accepted %d orders", got)
	}
}

// === Order Lifecycle Tests ===

func TestProcess_OrderDeliveredAfterLeadTime(t *testing.T) {
	// BDD: An order placed at tick 0 with a two-tick lead time leaves
	// inventory untouched at tick 1 and lands in full at tick 2.
	p, bus, store, updates := newSupplyHarness(t, Config{})

	advanceTo(t, bus, 0)
	cmd := placeOrder(t, bus, "acme", "widget-a", 50)

	pending := p.PendingOrders()
	if len(pending) != 1 {
		t.Fatalf("pending = %d, want 1", len(pending))
	}
	if pending[0].ArrivalTick != 2 {
		t.Errorf("arrival tick = %d, want 2", pending[0].ArrivalTick)
	}
	if pending[0].PlacedTick != 0 || pending[0].VarianceTicks != 0 {
		t.Errorf("unexpected scheduling: %+v", pending[0])
	}

	advanceTo(t, bus, 1)
	if got := store.OnHand("widget-a"); got != 0 {
		t.Errorf("on hand at tick 1 = %d, want 0", got)
	}
	if len(*updates) != 0 {
		t.Errorf("%d updates before arrival", len(*updates))
	}

	advanceTo(t, bus, 2)
	if got := store.OnHand("widget-a"); got != 50 {
		t.Errorf("on hand at tick 2 = %d, want 50", got)
	}
	if len(*updates) != 1 {
		t.Fatalf("updates = %d, want 1", len(*updates))
	}
	up := (*updates)[0]
	if up.ProductID != "widget-a" || up.Previous != 0 || up.New != 50 {
		t.Errorf("update = %+v", up)
	}
	if up.Reason != "delivery" {
		t.Errorf("reason = %q, want delivery", up.Reason)
	}
	if up.CommandID != cmd.ID() {
		t.Errorf("CommandID = %q, want the order event id %q", up.CommandID, cmd.ID())
	}
	if got := len(p.PendingOrders()); got != 0 {
		t.Errorf("pending after delivery = %d", got)
	}
}

func TestProcess_DeliveryAddsToExistingStock(t *testing.T) {
	_, bus, store, _ := newSupplyHarness(t, Config{})
	store.Set("widget-a", 10)

	advanceTo(t, bus, 0)
	placeOrder(t, bus, "acme", "widget-a", 50)
	advanceTo(t, bus, 1)
	advanceTo(t, bus, 2)

	if got := store.OnHand("widget-a"); got != 60 {
		t.Errorf("on hand = %d, want 60", got)
	}
}

func TestProcess_LateOrderStillDelivers(t *testing.T) {
	// An order whose arrival tick has been passed (the process was
	// detached, or ticks were skipped) delivers on the next tick seen.
	_, bus, store, _ := newSupplyHarness(t, Config{})
	advanceTo(t, bus, 0)
	placeOrder(t, bus, "acme", "widget-a", 5)
	advanceTo(t, bus, 7)
	if got := store.OnHand("widget-a"); got != 5 {
		t.Errorf("on hand = %d, want 5", got)
	}
}

// === Validation Tests ===

func TestProcess_OrderRejections(t *testing.T) {
	// BDD: Bad commands are dropped with a counted delivery failure;
	// nothing is scheduled.
	p, bus, _, _ := newSupplyHarness(t, Config{})
	advanceTo(t, bus, 0)

	publish := func(ev sim.Event) {
		t.Helper()
		if err := bus.Publish(context.Background(), ev); err != nil {
			t.Fatal(err)
		}
	}

	publish(sim.NewPlaceOrderEvent("nonexistent", "widget-a", 10, decimal.Zero))
	publish(sim.NewPlaceOrderEvent("acme", "", 10, decimal.Zero))
	publish(sim.NewPlaceOrderEvent("acme", "widget-a", 0, decimal.Zero))
	publish(sim.NewPlaceOrderEvent("acme", "widget-a", -5, decimal.Zero))
	// Acme quotes 15.00, above a 10.00 ceiling.
	publish(sim.NewPlaceOrderEvent("acme", "widget-a", 10, decimal.RequireFromString("10.00")))

	if got := len(p.PendingOrders()); got != 0 {
		t.Fatalf("%d rejected orders were scheduled", got)
	}
	if got := bus.Stats().Failed[sim.KindPlaceOrder]; got != 5 {
		t.Errorf("failed deliveries = %d, want 5", got)
	}
}

func TestProcess_OrderPriceCeiling(t *testing.T) {
	p, bus, _, _ := newSupplyHarness(t, Config{})
	advanceTo(t, bus, 0)

	// Ceiling at the quote is acceptable.
	ev := sim.NewPlaceOrderEvent("acme", "widget-a", 10, decimal.RequireFromString("15.00"))
	if err := bus.Publish(context.Background(), ev); err != nil {
		t.Fatal(err)
	}
	// Zero ceiling means no ceiling.
	placeOrder(t, bus, "globex", "widget-b", 10)

	orders := p.PendingOrders()
	if len(orders) != 2 {
		t.Fatalf("pending = %d, want 2", len(orders))
	}
	if !orders[0].PriceCeiling.Equal(decimal.RequireFromString("15.00")) {
		t.Errorf("accepted order ceiling = %s, want 15.00", orders[0].PriceCeiling)
	}
	if !orders[1].PriceCeiling.IsZero() {
		t.Errorf("uncapped order ceiling = %s, want 0", orders[1].PriceCeiling)
	}
}

// === Partial Fulfillment Tests ===

func TestProcess_PartialFulfillment(t *testing.T) {
	// BDD: With a 0.5 fulfillment rate, a 50-unit order delivers
	// exactly 25 at its scheduled tick; the remaining 25 land in full
	// one tick later even though the disruption is still active.
	p, bus, store, updates := newSupplyHarness(t, Config{})

	advanceTo(t, bus, 0)
	placeOrder(t, bus, "acme", "widget-a", 50)
	p.SetDisruption(true, 0, 0.5)

	advanceTo(t, bus, 1)
	advanceTo(t, bus, 2)
	if got := store.OnHand("widget-a"); got != 25 {
		t.Fatalf("on hand at scheduled tick = %d, want 25", got)
	}
	pending := p.PendingOrders()
	if len(pending) != 1 {
		t.Fatalf("pending = %d, want the re-queued remainder", len(pending))
	}
	if pending[0].Quantity != 25 || !pending[0].PartialApplied || pending[0].ArrivalTick != 3 {
		t.Errorf("remainder = %+v", pending[0])
	}

	advanceTo(t, bus, 3)
	if got := store.OnHand("widget-a"); got != 50 {
		t.Errorf("on hand after remainder = %d, want 50", got)
	}
	if got := len(p.PendingOrders()); got != 0 {
		t.Errorf("pending after remainder = %d", got)
	}

	if len(*updates) != 2 {
		t.Fatalf("updates = %d, want 2", len(*updates))
	}
	if (*updates)[0].Reason != "partial_delivery" || (*updates)[0].New != 25 {
		t.Errorf("first update = %+v", (*updates)[0])
	}
	if (*updates)[1].Reason != "delivery" || (*updates)[1].New != 50 {
		t.Errorf("second update = %+v", (*updates)[1])
	}
}

func TestProcess_PartialFulfillmentFloorsOddQuantities(t *testing.T) {
	p, bus, store, _ := newSupplyHarness(t, Config{})
	advanceTo(t, bus, 0)
	placeOrder(t, bus, "acme", "widget-a", 3)
	p.SetDisruption(true, 0, 0.5)

	advanceTo(t, bus, 2)
	if got := store.OnHand("widget-a"); got != 1 {
		t.Errorf("floor(3 × 0.5) delivered %d, want 1", got)
	}
	advanceTo(t, bus, 3)
	if got := store.OnHand("widget-a"); got != 3 {
		t.Errorf("total after remainder = %d, want 3", got)
	}
}

func TestProcess_ZeroFulfillmentDeliversNothingOnce(t *testing.T) {
	// BDD: A zero rate delivers zero units without an inventory event,
	// consumes the order's single partial application, and the full
	// quantity lands next tick.
	p, bus, store, updates := newSupplyHarness(t, Config{})
	advanceTo(t, bus, 0)
	placeOrder(t, bus, "acme", "widget-a", 40)
	p.SetDisruption(true, 0, 0)

	advanceTo(t, bus, 2)
	if got := store.OnHand("widget-a"); got != 0 {
		t.Fatalf("on hand = %d, want 0", got)
	}
	if len(*updates) != 0 {
		t.Errorf("zero-unit delivery published %d updates", len(*updates))
	}
	pending := p.PendingOrders()
	if len(pending) != 1 || !pending[0].PartialApplied || pending[0].Quantity != 40 {
		t.Fatalf("remainder = %+v", pending)
	}

	advanceTo(t, bus, 3)
	if got := store.OnHand("widget-a"); got != 40 {
		t.Errorf("on hand after remainder = %d, want 40", got)
	}
}

func TestProcess_FullRateDisruptionDeliversInFull(t *testing.T) {
	p, bus, store, _ := newSupplyHarness(t, Config{})
	advanceTo(t, bus, 0)
	placeOrder(t, bus, "acme", "widget-a", 50)
	p.SetDisruption(true, 0, 1.0)

	advanceTo(t, bus, 2)
	if got := store.OnHand("widget-a"); got != 50 {
		t.Errorf("on hand = %d, want 50 (rate 1.0 is not a partial)", got)
	}
}

// === Manual Disruption Tests ===

func TestProcess_ManualDisruptionExtendsLeadTime(t *testing.T) {
	p, bus, _, _ := newSupplyHarness(t, Config{})
	advanceTo(t, bus, 0)
	p.SetDisruption(true, 3, 1.0)

	placeOrder(t, bus, "acme", "widget-a", 10)
	pending := p.PendingOrders()
	if len(pending) != 1 {
		t.Fatal("order not scheduled")
	}
	if pending[0].ArrivalTick != 5 {
		t.Errorf("arrival = %d, want 5 (lead 2 + increase 3)", pending[0].ArrivalTick)
	}
	if pending[0].VarianceTicks != 3 {
		t.Errorf("variance = %d, want 3", pending[0].VarianceTicks)
	}
}

func TestProcess_SetDisruptionClamps(t *testing.T) {
	p, _, _, _ := newSupplyHarness(t, Config{})

	p.SetDisruption(true, -2, 1.5)
	d := p.ManualDisruption()
	if !d.Active || d.LeadTimeIncrease != 0 || d.FulfillmentRate != 1 {
		t.Errorf("clamped disruption = %+v", d)
	}

	p.SetDisruption(true, 1, -0.5)
	if got := p.ManualDisruption().FulfillmentRate; got != 0 {
		t.Errorf("rate clamped to %g, want 0", got)
	}

	p.SetDisruption(false, 99, 0.1)
	d = p.ManualDisruption()
	if d.Active || d.LeadTimeIncrease != 0 || d.FulfillmentRate != 1 {
		t.Errorf("cleared disruption = %+v", d)
	}
}

// === Black Swan Tests ===

func TestProcess_TriggerBlackSwanExtendsScopedLeadTimes(t *testing.T) {
	// BDD: An injected disruption stretches lead times for the
	// suppliers in scope, leaves the rest alone, and announces itself
	// on the bus.
	p, bus, _, _ := newSupplyHarness(t, Config{})

	var disruptions []sim.DisruptionEvent
	bus.Subscribe(sim.KindDisruption, func(ctx context.Context, ev sim.Event) error {
		disruptions = append(disruptions, ev.(sim.DisruptionEvent))
		return nil
	})

	advanceTo(t, bus, 3)
	swan, err := p.TriggerBlackSwan(context.Background(), "customs_hold", 4, 1.5, []string{"acme"})
	if err != nil {
		t.Fatal(err)
	}
	if swan.StartTick != 3 || swan.EndTick() != 7 {
		t.Errorf("swan span = [%d, %d)", swan.StartTick, swan.EndTick())
	}
	if len(disruptions) != 1 || disruptions[0].Type != "customs_hold" {
		t.Fatalf("disruption events = %+v", disruptions)
	}

	// Acme: lead 2 × 1.5 -> one extra tick. Globex: unaffected.
	placeOrder(t, bus, "acme", "widget-a", 10)
	placeOrder(t, bus, "globex", "widget-b", 10)
	pending := p.PendingOrders()
	if len(pending) != 2 {
		t.Fatal("orders not scheduled")
	}
	if pending[0].ArrivalTick != 6 {
		t.Errorf("acme arrival = %d, want 6 (3 + 2 + 1)", pending[0].ArrivalTick)
	}
	if pending[1].ArrivalTick != 7 {
		t.Errorf("globex arrival = %d, want 7 (3 + 4)", pending[1].ArrivalTick)
	}

	if got := len(p.ActiveDisruptions()); got != 1 {
		t.Errorf("active disruptions = %d", got)
	}
}

func TestProcess_TriggerBlackSwanValidation(t *testing.T) {
	p, _, _, _ := newSupplyHarness(t, Config{})
	ctx := context.Background()
	if _, err := p.TriggerBlackSwan(ctx, "", 2, 1.5, nil); err == nil {
		t.Error("empty type accepted")
	}
	if _, err := p.TriggerBlackSwan(ctx, "x", 0, 1.5, nil); err == nil {
		t.Error("zero duration accepted")
	}
	if _, err := p.TriggerBlackSwan(ctx, "x", 2, 0, nil); err == nil {
		t.Error("zero multiplier accepted")
	}
}

func TestProcess_ConcurrentBlackSwansCompose(t *testing.T) {
	// BDD: Overlapping disruptions multiply: 1.5 × 1.8 = 2.7 on a
	// two-tick lead adds round(2 × 1.7) = 3 ticks.
	p, bus, _, _ := newSupplyHarness(t, Config{})
	advanceTo(t, bus, 0)
	ctx := context.Background()
	if _, err := p.TriggerBlackSwan(ctx, "customs_hold", 5, 1.5, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := p.TriggerBlackSwan(ctx, "port_congestion", 5, 1.8, nil); err != nil {
		t.Fatal(err)
	}

	placeOrder(t, bus, "acme", "widget-a", 10)
	pending := p.PendingOrders()
	if len(pending) != 1 {
		t.Fatal("order not scheduled")
	}
	if pending[0].ArrivalTick != 5 {
		t.Errorf("arrival = %d, want 5 (0 + 2 + 3)", pending[0].ArrivalTick)
	}
	if pending[0].VarianceTicks != 3 {
		t.Errorf("variance = %d, want 3", pending[0].VarianceTicks)
	}
}

func TestProcess_ExpiredSwansArePruned(t *testing.T) {
	p, bus, _, _ := newSupplyHarness(t, Config{})
	advanceTo(t, bus, 1)
	if _, err := p.TriggerBlackSwan(context.Background(), "weather_event", 2, 1.3, nil); err != nil {
		t.Fatal(err)
	}
	if got := len(p.ActiveDisruptions()); got != 1 {
		t.Fatalf("active = %d, want 1", got)
	}

	advanceTo(t, bus, 2)
	if got := len(p.ActiveDisruptions()); got != 1 {
		t.Errorf("active at tick 2 = %d, want 1 (span is [1, 3))", got)
	}

	advanceTo(t, bus, 3)
	if got := len(p.ActiveDisruptions()); got != 0 {
		t.Errorf("active after expiry = %d, want 0", got)
	}

	// Orders placed after expiry run on the base lead time.
	placeOrder(t, bus, "acme", "widget-a", 10)
	if got := p.PendingOrders()[0].ArrivalTick; got != 5 {
		t.Errorf("arrival = %d, want 5 (3 + 2)", got)
	}
}

func TestProcess_ArrivalNeverBeforeNextTick(t *testing.T) {
	// BDD: A disruption multiplier far below one cannot schedule an
	// arrival into the past; the next tick is the floor.
	p, bus, _, _ := newSupplyHarness(t, Config{})
	advanceTo(t, bus, 10)
	// globex lead 4: extra = round(4 × (0.1 − 1)) = −4, arrival would
	// be the current tick.
	if _, err := p.TriggerBlackSwan(context.Background(), "rumor", 3, 0.1, nil); err != nil {
		t.Fatal(err)
	}
	placeOrder(t, bus, "globex", "widget-b", 10)
	if got := p.PendingOrders()[0].ArrivalTick; got != 11 {
		t.Errorf("arrival = %d, want 11 (clamped to current + 1)", got)
	}
}

// === Determinism Tests ===

func TestProcess_IdenticalSeedsIdenticalDeliveries(t *testing.T) {
	// BDD: Two stochastic processes with the same seed, fed the same
	// tick and order sequence, emit identical inventory updates and
	// finish with identical stock and schedules.
	type updateKey struct {
		Product  string
		Previous int64
		New      int64
		Reason   string
	}
	run := func() ([]updateKey, map[string]int64, []int64) {
		bus := sim.NewBus()
		bus.Start()
		store := NewMemoryInventory()
		p, err := NewProcess(Config{
			Stochastic:           true,
			LeadTimeStdDev:       1.5,
			BlackSwanProbability: 0.3,
			Seed:                 2024,
		}, bus, store, testSuppliers())
		if err != nil {
			t.Fatal(err)
		}
		if err := p.Attach(); err != nil {
			t.Fatal(err)
		}
		var updates []updateKey
		bus.Subscribe(sim.KindInventoryUpdate, func(ctx context.Context, ev sim.Event) error {
			up := ev.(sim.InventoryUpdateEvent)
			updates = append(updates, updateKey{up.ProductID, up.Previous, up.New, up.Reason})
			return nil
		})

		for tick := int64(0); tick <= 20; tick++ {
			advanceTo(t, bus, tick)
			if tick == 2 {
				placeOrder(t, bus, "acme", "widget-a", 40)
			}
			if tick == 5 {
				placeOrder(t, bus, "globex", "widget-b", 70)
			}
		}

		var arrivals []int64
		for _, o := range p.PendingOrders() {
			arrivals = append(arrivals, o.ArrivalTick)
		}
		return updates, store.All(), arrivals
	}

	updatesA, stockA, arrivalsA := run()
	updatesB, stockB, arrivalsB := run()

	if len(updatesA) != len(updatesB) {
		t.Fatalf("runs emitted %d and %d updates", len(updatesA), len(updatesB))
	}
	for i := range updatesA {
		if updatesA[i] != updatesB[i] {
			t.Errorf("update %d diverged: %+v vs %+v", i, updatesA[i], updatesB[i])
		}
	}
	for product, qty := range stockA {
		if stockB[product] != qty {
			t.Errorf("stock of %s diverged: %d vs %d", product, qty, stockB[product])
		}
	}
	if len(arrivalsA) != len(arrivalsB) {
		t.Fatalf("pending schedules diverged: %v vs %v", arrivalsA, arrivalsB)
	}
	for i := range arrivalsA {
		if arrivalsA[i] != arrivalsB[i] {
			t.Errorf("arrival %d diverged: %d vs %d", i, arrivalsA[i], arrivalsB[i])
		}
	}
}

func TestProcess_DifferentSeedsDiverge(t *testing.T) {
	// With variance enabled, different seeds should eventually schedule
	// differently. Checked over several orders to avoid flakiness from
	// a single coincident draw.
	arrivals := func(seed int64) []int64 {
		bus := sim.NewBus()
		bus.Start()
		p, err := NewProcess(Config{Stochastic: true, LeadTimeStdDev: 2.0, Seed: seed},
			bus, NewMemoryInventory(), testSuppliers())
		if err != nil {
			t.Fatal(err)
		}
		if err := p.Attach(); err != nil {
			t.Fatal(err)
		}
		advanceTo(t, bus, 0)
		for i := 0; i < 8; i++ {
			placeOrder(t, bus, "globex", "widget-b", 10)
		}
		var out []int64
		for _, o := range p.PendingOrders() {
			out = append(out, o.ArrivalTick)
		}
		return out
	}

	a, b := arrivals(1), arrivals(2)
	same := len(a) == len(b)
	if same {
		for i := range a {
			if a[i] != b[i] {
				same = false
				break
			}
		}
	}
	if same {
		t.Errorf("seeds 1 and 2 produced identical schedules %v", a)
	}
}

// === Inventory Store Tests ===

func TestMemoryInventory_SetAddAll(t *testing.T) {
	m := NewMemoryInventory()
	if got := m.OnHand("widget-a"); got != 0 {
		t.Errorf("empty store on hand = %d", got)
	}

	m.Set("widget-a", 10)
	prev, next := m.Add("widget-a", 5)
	if prev != 10 || next != 15 {
		t.Errorf("Add = (%d, %d), want (10, 15)", prev, next)
	}
	if got := m.OnHand("widget-a"); got != 15 {
		t.Errorf("on hand = %d", got)
	}

	all := m.All()
	all["widget-a"] = 999
	if got := m.OnHand("widget-a"); got != 15 {
		t.Error("mutating All() result reached the store")
	}
}

// === Introspection Tests ===

func TestProcess_CurrentTickTracksTickEvents(t *testing.T) {
	p, bus, _, _ := newSupplyHarness(t, Config{})
	if got := p.CurrentTick(); got != 0 {
		t.Errorf("initial tick = %d", got)
	}
	advanceTo(t, bus, 4)
	if got := p.CurrentTick(); got != 4 {
		t.Errorf("tick = %d, want 4", got)
	}
}

func TestProcess_SupplierLookup(t *testing.T) {
	p, _, _, _ := newSupplyHarness(t, Config{})
	s, ok := p.Supplier("acme")
	if !ok || s.LeadTimeTicks != 2 {
		t.Errorf("Supplier(acme) = (%+v, %t)", s, ok)
	}
	if _, ok := p.Supplier("nonexistent"); ok {
		t.Error("unknown supplier found")
	}
}
