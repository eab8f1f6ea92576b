package sim

import (
	"fmt"
	"time"
)

// DefaultBaseTime anchors simulated time when the config leaves
// BaseTime zero. A fixed anchor keeps identically-seeded runs
// identical regardless of when they are launched; hosts that want
// wall-clock anchoring set BaseTime explicitly.
var DefaultBaseTime = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// SimulationConfig is the construction-time policy for a run. Fields
// are fixed once the orchestrator starts.
type SimulationConfig struct {
	// TickInterval is the real-time pacing between ticks. Zero
	// defaults to one second; RunSingleTick ignores pacing entirely.
	TickInterval time.Duration
	// TimeAcceleration scales simulated time per tick: one tick
	// advances SimTime by TickInterval × TimeAcceleration. Zero
	// defaults to 1.
	TimeAcceleration float64
	// MaxTicks stops the run after this many ticks. Zero means
	// unbounded.
	MaxTicks int64
	// Seed is the master seed from which every subsystem stream is
	// derived.
	Seed int64
	// VerifyIntegrityEachTick runs the ledger integrity check in the
	// verify phase of every tick.
	VerifyIntegrityEachTick bool
	// Metadata is attached to every tick event, copied per event.
	Metadata map[string]string
	// BaseTime is the simulated instant of tick zero. Zero defaults
	// to DefaultBaseTime.
	BaseTime time.Time
}

// DefaultSimulationConfig returns a config with every default applied.
func DefaultSimulationConfig() SimulationConfig {
	cfg := SimulationConfig{}
	// Defaults cannot fail validation.
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("sim: default config invalid: %v", err))
	}
	return cfg
}

// Validate applies defaults to zero fields and rejects values no run
// can make sense of.
func (c *SimulationConfig) Validate() error {
	if c.TickInterval < 0 {
		return fmt.Errorf("tick_interval must not be negative, got %v", c.TickInterval)
	}
	if c.TickInterval == 0 {
		c.TickInterval = time.Second
	}
	if c.TimeAcceleration < 0 {
		return fmt.Errorf("time_acceleration must not be negative, got %v", c.TimeAcceleration)
	}
	if c.TimeAcceleration == 0 {
		c.TimeAcceleration = 1.0
	}
	if c.MaxTicks < 0 {
		return fmt.Errorf("max_ticks must not be negative, got %d", c.MaxTicks)
	}
	if c.BaseTime.IsZero() {
		c.BaseTime = DefaultBaseTime
	}
	return nil
}

// SimTimeAt returns the simulated instant for a tick number.
func (c *SimulationConfig) SimTimeAt(tick int64) time.Time {
	elapsed := time.Duration(float64(tick) * float64(c.TickInterval) * c.TimeAcceleration)
	return c.BaseTime.Add(elapsed)
}
