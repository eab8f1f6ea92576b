package sim

import (
	"fmt"
	"hash/fnv"
	"math/rand"
)

// === SimulationKey ===

// SimulationKey uniquely identifies a reproducible simulation run.
// Two runs with the same SimulationKey and identical configuration
// MUST produce identical event schedules and deliveries.
type SimulationKey int64

// NewSimulationKey creates a SimulationKey from a seed value.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

// === Subsystem Constants ===

const (
	// SubsystemMarket is the RNG subsystem for market-side factors
	// computed by the orchestrator. Uses the master seed directly so a
	// bare --seed reproduces the headline demand curve.
	SubsystemMarket = "market"

	// SubsystemSupply is the RNG subsystem for supply-chain draws
	// (black-swan sampling, disruption durations).
	SubsystemSupply = "supply"

	// SubsystemSupplyVariance is the RNG subsystem feeding the
	// lead-time variance sampler. Kept separate from SubsystemSupply so
	// adding or removing variance draws never perturbs black-swan
	// sampling for the same seed.
	SubsystemSupplyVariance = "supply/variance"
)

// SubsystemAgent returns the subsystem name for an embedded agent's
// private generator. Hosts running several agents against one kernel
// derive one isolated stream per agent id.
func SubsystemAgent(id string) string {
	return fmt.Sprintf("agent/%s", id)
}

// === PartitionedRNG ===

// PartitionedRNG provides deterministic, isolated RNG instances per subsystem.
//
// Derivation formula:
//   - For SubsystemMarket: uses the master seed directly
//   - For all other subsystems: masterSeed XOR fnv1a64(subsystemName)
//
// Thread-safety: NOT thread-safe. Must be called from a single goroutine.
type PartitionedRNG struct {
	key        SimulationKey
	subsystems map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from a SimulationKey.
func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{
		key:        key,
		subsystems: make(map[string]*rand.Rand),
	}
}

// ForSubsystem returns a deterministically-seeded RNG for the named subsystem.
// The same subsystem name always returns the same *rand.Rand instance (cached).
// Never returns nil.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if rng, ok := p.subsystems[name]; ok {
		return rng
	}
	rng := rand.New(rand.NewSource(p.DeriveSeed(name)))
	p.subsystems[name] = rng
	return rng
}

// DeriveSeed returns the derived seed for the named subsystem without
// constructing a generator. Samplers that need their own source type
// (e.g. gonum distributions over x/exp/rand) seed themselves from this
// so they stay on the same derivation scheme as everything else.
func (p *PartitionedRNG) DeriveSeed(name string) int64 {
	if name == SubsystemMarket {
		// Market factors use the master seed directly.
		return int64(p.key)
	}
	return int64(p.key) ^ fnv1a64(name)
}

// Key returns the SimulationKey used to create this PartitionedRNG.
func (p *PartitionedRNG) Key() SimulationKey {
	return p.key
}

// fnv1a64 computes a 64-bit FNV-1a hash of the input string.
func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
