package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	sim "github.com/Bender1011001/FBA-Bench-Enterprise-sub001/sim"
	"github.com/Bender1011001/FBA-Bench-Enterprise-sub001/sim/ledger"
	"github.com/Bender1011001/FBA-Bench-Enterprise-sub001/sim/metrics"
	"github.com/Bender1011001/FBA-Bench-Enterprise-sub001/sim/supply"
	"github.com/Bender1011001/FBA-Bench-Enterprise-sub001/sim/trace"
)

// harness composes the kernel for a CLI run: bus, ledger, inventory,
// supply chain and orchestrator, plus the two phase handlers that turn
// the scripted order book into bus traffic and delivered stock into
// ledger postings.
type harness struct {
	bus   *sim.Bus
	books *ledger.Ledger
	store *supply.MemoryInventory
	chain *supply.Process
	orch  *sim.Orchestrator
	rec   *trace.SimulationTrace

	mu         sync.Mutex
	script     map[int64][]scriptedOrder
	unitPrices map[string]decimal.Decimal // order command id → quoted unit price
	deliveries []delivery
}

// delivery is one inventory update waiting for the finance phase.
type delivery struct {
	commandID string
	product   string
	units     int64
}

// buildHarness wires a scenario into a ready-to-start kernel.
func buildHarness(scn *Scenario, recording bool) (*harness, error) {
	cfg, err := scn.SimulationConfig()
	if err != nil {
		return nil, err
	}
	capital, err := scn.StartingCapital()
	if err != nil {
		return nil, err
	}
	roster, err := scn.SupplierRoster()
	if err != nil {
		return nil, err
	}
	orders, err := scn.ScriptedOrders()
	if err != nil {
		return nil, err
	}

	h := &harness{
		bus:        sim.NewBus(),
		books:      ledger.NewLedger(scn.LedgerStrict()),
		store:      supply.NewMemoryInventory(),
		rec:        trace.NewSimulationTrace(),
		script:     make(map[int64][]scriptedOrder),
		unitPrices: make(map[string]decimal.Decimal),
	}
	h.bus.Start()
	if recording {
		h.bus.StartRecording()
	}

	h.books.InitializeChartOfAccounts()
	if capital > 0 {
		if _, err := h.books.InjectEquity(capital, "starting capital"); err != nil {
			return nil, fmt.Errorf("seed capital: %w", err)
		}
	}

	for product, qty := range scn.Inventory {
		h.store.Set(product, qty)
	}

	h.chain, err = supply.NewProcess(scn.SupplyConfig(), h.bus, h.store, roster)
	if err != nil {
		return nil, err
	}
	if err := h.chain.Attach(); err != nil {
		return nil, err
	}

	if _, err := h.bus.Subscribe(sim.KindInventoryUpdate, h.noteDelivery); err != nil {
		return nil, err
	}

	for _, o := range orders {
		h.script[o.Tick] = append(h.script[o.Tick], o)
	}

	h.orch, err = sim.New(cfg, h.bus, sim.WithLedger(h.books), sim.WithTrace(h.rec))
	if err != nil {
		return nil, err
	}
	if err := h.orch.RegisterPhaseHandler(sim.PhaseOrders, "scripted-orders", h.publishScheduled); err != nil {
		return nil, err
	}
	if err := h.orch.RegisterPhaseHandler(sim.PhaseFinance, "post-purchases", h.postDeliveredPurchases); err != nil {
		return nil, err
	}
	return h, nil
}

// publishScheduled emits the scripted orders due this tick.
func (h *harness) publishScheduled(ctx context.Context, info sim.TickInfo) error {
	h.mu.Lock()
	due := h.script[info.Tick]
	delete(h.script, info.Tick)
	h.mu.Unlock()

	for _, o := range due {
		ev := sim.NewPlaceOrderEvent(o.Supplier, o.Product, o.Quantity, o.PriceCeiling)
		if s, ok := h.chain.Supplier(o.Supplier); ok {
			h.mu.Lock()
			h.unitPrices[ev.ID()] = s.UnitPrice
			h.mu.Unlock()
		}
		if err := h.bus.Publish(ctx, ev); err != nil {
			return fmt.Errorf("publish scripted order: %w", err)
		}
	}
	return nil
}

// noteDelivery queues inventory updates for the next finance phase.
func (h *harness) noteDelivery(ctx context.Context, ev sim.Event) error {
	up, ok := ev.(sim.InventoryUpdateEvent)
	if !ok {
		return fmt.Errorf("inventory_update event has unexpected payload %T", ev)
	}
	h.mu.Lock()
	h.deliveries = append(h.deliveries, delivery{
		commandID: up.CommandID,
		product:   up.ProductID,
		units:     up.New - up.Previous,
	})
	h.mu.Unlock()
	return nil
}

// postDeliveredPurchases books every delivery since the last finance
// phase as an inventory purchase at the order's quoted unit price.
func (h *harness) postDeliveredPurchases(ctx context.Context, info sim.TickInfo) error {
	h.mu.Lock()
	pending := h.deliveries
	h.deliveries = nil
	h.mu.Unlock()

	var lastErr error
	for _, d := range pending {
		h.mu.Lock()
		price, ok := h.unitPrices[d.commandID]
		h.mu.Unlock()
		if !ok {
			logrus.Warnf("harness: delivery for unknown command %s, not booked", d.commandID)
			continue
		}
		value := price.Mul(decimal.NewFromInt(d.units))
		amount, err := ledger.FromDecimal(value)
		if err != nil {
			logrus.Warnf("harness: delivery for command %s not booked: %v", d.commandID, err)
			lastErr = err
			continue
		}
		memo := fmt.Sprintf("%d units of %s at %s", d.units, d.product, price)
		if _, err := h.books.RecordInventoryPurchase(amount, memo); err != nil {
			logrus.Warnf("harness: booking purchase failed: %v", err)
			lastErr = err
		}
	}
	return lastErr
}

// runScenario drives a full run to completion and prints the report.
func runScenario(ctx context.Context, scn *Scenario, recording bool, traceOut, metricsAddr string) error {
	h, err := buildHarness(scn, recording)
	if err != nil {
		return err
	}

	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		go func() {
			logrus.Infof("harness: serving metrics on %s/metrics", metricsAddr)
			if err := http.ListenAndServe(metricsAddr, mux); err != nil {
				logrus.Warnf("harness: metrics server: %v", err)
			}
		}()
	}

	startedAt := time.Now()
	if err := h.orch.Start(ctx); err != nil {
		return err
	}
	<-h.orch.Done()

	h.printReport(time.Since(startedAt))

	if traceOut != "" {
		f, err := os.Create(traceOut)
		if err != nil {
			return fmt.Errorf("trace output: %w", err)
		}
		defer f.Close()
		if err := h.rec.WriteJSON(f); err != nil {
			return fmt.Errorf("write trace: %w", err)
		}
		logrus.Infof("harness: trace written to %s", traceOut)
	}
	return nil
}

// printReport dumps the run summary, the books and the warehouse to
// stdout.
func (h *harness) printReport(wall time.Duration) {
	summary := trace.Summarize(h.rec)

	fmt.Printf("\n=== Simulation complete in %s ===\n", wall.Round(time.Millisecond))
	fmt.Printf("Ticks: %d  Events: %d  Handler errors: %d  Failed verifications: %d  Avg tick: %s\n",
		summary.Ticks, summary.Events, summary.HandlerErrors, summary.FailedVerifications, summary.AvgTickDuration)

	fmt.Println("\n--- Ledger ---")
	for _, acct := range h.books.Accounts() {
		fmt.Printf("%-22s %-10s %12s\n", acct.ID, acct.Class, acct.Balance)
	}
	debit, credit := h.books.TrialBalance()
	fmt.Printf("Trial balance: debits %s / credits %s\n", debit, credit)
	if err := h.books.VerifyIntegrity(); err != nil {
		fmt.Printf("INTEGRITY: %v\n", err)
	} else {
		fmt.Println("Integrity: ok")
	}

	fmt.Println("\n--- Warehouse ---")
	for product, qty := range h.store.All() {
		fmt.Printf("%-22s %8d units\n", product, qty)
	}
	if pending := h.chain.PendingOrders(); len(pending) > 0 {
		fmt.Printf("%d orders still in transit\n", len(pending))
	}

	stats := h.bus.Stats()
	fmt.Println("\n--- Bus ---")
	for _, kind := range []sim.Kind{sim.KindTick, sim.KindPlaceOrder, sim.KindInventoryUpdate, sim.KindDisruption} {
		if stats.Published[kind] == 0 {
			continue
		}
		fmt.Printf("%-18s published %6d  delivered %6d  failed %4d\n",
			kind, stats.Published[kind], stats.Delivered[kind], stats.Failed[kind])
	}
}
