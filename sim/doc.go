// Package sim provides the deterministic event-driven kernel of the
// FBA-Bench marketplace simulation.
//
// # Reading Guide
//
// Start with these three files to understand the kernel:
//   - event.go: the closed event union (tick, place_order, inventory_update, disruption)
//   - bus.go: synchronous typed publish/subscribe with contained handler failures
//   - orchestrator.go: the tick loop, the five fixed phases, and the failure taxonomy
//
// # Architecture
//
// The sim package owns the bus, the event union, the clock and RNG
// abstractions, and the tick/phase orchestrator; domain engines live
// in sub-packages:
//   - sim/ledger/: double-entry accounting with integrity verification
//   - sim/supply/: stochastic supply chain (orders in transit, black swans)
//   - sim/trace/: per-tick audit records and run summaries
//   - sim/metrics/: Prometheus collectors
//
// Everything communicates through the bus: the orchestrator publishes
// one tick event per tick, the supply chain consumes commands and
// publishes inventory updates, and phase handlers registered by the
// host mutate the ledger. Sub-packages never call each other directly.
//
// # Determinism
//
// A run is reproducible from its SimulationConfig alone. All
// randomness flows from the master seed through PartitionedRNG
// subsystem streams (rng.go); real time only paces the loop and never
// feeds a decision. Two identically configured runs produce identical
// event sequences, ledger states and inventory levels.
//
// # Extension Points
//
// Hosts extend the kernel through small interfaces and callbacks:
//   - Handler: bus subscription callback
//   - PhaseFunc: per-phase work registered on the orchestrator
//   - IntegrityChecker: the ledger slice the verify phase needs
//   - Clock: wall pacing, swappable for a ManualClock in tests
//   - supply.InventoryStore: whatever owns on-hand stock
package sim
