package sim

// Phase is one of the five fixed stages executed in order within every
// tick. The sequence is part of the kernel's contract: handlers may
// rely on market state being settled before orders run, orders before
// logistics, and so on, with verification always last.
type Phase int

const (
	// PhaseMarket settles demand and pricing inputs for the tick.
	PhaseMarket Phase = iota
	// PhaseOrders lets agents place and amend orders.
	PhaseOrders
	// PhaseLogistics advances shipments and inventory movement.
	PhaseLogistics
	// PhaseFinance posts the tick's financial activity to the ledger.
	PhaseFinance
	// PhaseVerify audits invariants after all mutation has happened.
	PhaseVerify
)

// Phases is the canonical execution order.
var Phases = []Phase{PhaseMarket, PhaseOrders, PhaseLogistics, PhaseFinance, PhaseVerify}

var phaseNames = map[Phase]string{
	PhaseMarket:    "market",
	PhaseOrders:    "orders",
	PhaseLogistics: "logistics",
	PhaseFinance:   "finance",
	PhaseVerify:    "verify",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return "unknown"
}
