// Package trace collects per-tick audit records during a simulation
// run. This package has no dependencies on sim/ or its subpackages —
// it stores pure data types.
package trace

import "time"

// TickRecord captures the observable outcome of a single tick.
type TickRecord struct {
	Tick            int64         `json:"tick"`
	SimTime         time.Time     `json:"sim_time"`
	WallDuration    time.Duration `json:"wall_duration_ns"`
	EventsPublished int64         `json:"events_published"`
	HandlerErrors   int64         `json:"handler_errors"` // delivery failures + phase handler failures
	VerifyRan       bool          `json:"verify_ran"`
	VerifyPassed    bool          `json:"verify_passed"` // false whenever VerifyRan is false
}
