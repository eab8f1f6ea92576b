package supply

import "math/rand"

// BlackSwan is a disruption stretching supplier lead times for a span
// of ticks. A nil Suppliers slice means every supplier is affected.
type BlackSwan struct {
	Type               string
	StartTick          int64
	DurationTicks      int64
	LeadTimeMultiplier float64
	Suppliers          []string
}

// EndTick returns the first tick at which the disruption is over.
func (b BlackSwan) EndTick() int64 {
	return b.StartTick + b.DurationTicks
}

// ActiveAt reports whether the disruption covers the given tick.
func (b BlackSwan) ActiveAt(tick int64) bool {
	return tick >= b.StartTick && tick < b.EndTick()
}

// AppliesTo reports whether the disruption affects a supplier.
func (b BlackSwan) AppliesTo(supplierID string) bool {
	if len(b.Suppliers) == 0 {
		return true
	}
	for _, id := range b.Suppliers {
		if id == supplierID {
			return true
		}
	}
	return false
}

// swanSpec is one catalog entry for stochastic disruption sampling.
type swanSpec struct {
	Type        string
	MinDuration int64
	MaxDuration int64
	Multiplier  float64
}

// swanCatalog is the fixed menu of disruption archetypes. Durations
// are sampled uniformly from [MinDuration, MaxDuration].
var swanCatalog = []swanSpec{
	{Type: "customs_hold", MinDuration: 2, MaxDuration: 5, Multiplier: 1.5},
	{Type: "port_congestion", MinDuration: 3, MaxDuration: 8, Multiplier: 1.8},
	{Type: "container_shortage", MinDuration: 2, MaxDuration: 6, Multiplier: 1.4},
	{Type: "factory_shutdown", MinDuration: 5, MaxDuration: 12, Multiplier: 2.5},
	{Type: "weather_event", MinDuration: 1, MaxDuration: 4, Multiplier: 1.3},
}

// sampleSwan draws one disruption from the catalog, started at the
// given tick and applying to every supplier.
func sampleSwan(rng *rand.Rand, startTick int64) BlackSwan {
	spec := swanCatalog[rng.Intn(len(swanCatalog))]
	duration := spec.MinDuration + rng.Int63n(spec.MaxDuration-spec.MinDuration+1)
	return BlackSwan{
		Type:               spec.Type,
		StartTick:          startTick,
		DurationTicks:      duration,
		LeadTimeMultiplier: spec.Multiplier,
	}
}
