package trace

import (
	"encoding/json"
	"io"
	"sync"
)

// SimulationTrace accumulates tick records for a run. The orchestrator
// appends from its loop goroutine while hosts may read concurrently,
// so access is mutex guarded.
type SimulationTrace struct {
	mu      sync.Mutex
	records []TickRecord
}

// NewSimulationTrace creates an empty trace ready for recording.
func NewSimulationTrace() *SimulationTrace {
	return &SimulationTrace{records: make([]TickRecord, 0)}
}

// Append adds one tick record.
func (st *SimulationTrace) Append(record TickRecord) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.records = append(st.records, record)
}

// Records returns a copy of the recorded ticks in order.
func (st *SimulationTrace) Records() []TickRecord {
	st.mu.Lock()
	defer st.mu.Unlock()
	out := make([]TickRecord, len(st.records))
	copy(out, st.records)
	return out
}

// Len returns the number of recorded ticks.
func (st *SimulationTrace) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.records)
}

// WriteJSON writes the summary and full tick records as indented JSON.
func (st *SimulationTrace) WriteJSON(w io.Writer) error {
	doc := struct {
		Summary *RunSummary  `json:"summary"`
		Ticks   []TickRecord `json:"ticks"`
	}{
		Summary: Summarize(st),
		Ticks:   st.Records(),
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
