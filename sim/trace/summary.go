package trace

import "time"

// RunSummary aggregates statistics from a SimulationTrace.
type RunSummary struct {
	Ticks               int           `json:"ticks"`
	Events              int64         `json:"events"`
	HandlerErrors       int64         `json:"handler_errors"`
	FailedVerifications int           `json:"failed_verifications"`
	AvgTickDuration     time.Duration `json:"avg_tick_duration_ns"`
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *RunSummary {
	summary := &RunSummary{}
	if st == nil {
		return summary
	}

	records := st.Records()
	summary.Ticks = len(records)
	if len(records) == 0 {
		return summary
	}

	var totalWall time.Duration
	for _, r := range records {
		summary.Events += r.EventsPublished
		summary.HandlerErrors += r.HandlerErrors
		if r.VerifyRan && !r.VerifyPassed {
			summary.FailedVerifications++
		}
		totalWall += r.WallDuration
	}
	summary.AvgTickDuration = totalWall / time.Duration(len(records))

	return summary
}
