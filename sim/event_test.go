package sim

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

// === Event Tests ===

func TestEvent_KindConstants(t *testing.T) {
	// BDD: Every payload type reports its tag from the closed union.
	tests := []struct {
		name string
		ev   Event
		want Kind
	}{
		{"tick", NewTickEvent(1, time.Now(), 1.0, nil), KindTick},
		{"place_order", NewPlaceOrderEvent("s", "p", 1, decimal.Zero), KindPlaceOrder},
		{"inventory_update", NewInventoryUpdateEvent("p", 0, 5, "delivery", "cmd"), KindInventoryUpdate},
		{"disruption", NewDisruptionEvent("customs_hold", 1, 2, 1.5, nil), KindDisruption},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ev.Kind(); got != tt.want {
				t.Errorf("Kind() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewHeader_AssignsIdentity(t *testing.T) {
	// BDD: Each header gets a unique id and a UTC creation timestamp.
	a, b := NewHeader(), NewHeader()
	if a.EventID == "" || b.EventID == "" {
		t.Fatal("NewHeader produced an empty event id")
	}
	if a.EventID == b.EventID {
		t.Errorf("two headers share event id %q", a.EventID)
	}
	if loc := a.Timestamp.Location(); loc != time.UTC {
		t.Errorf("header timestamp location = %v, want UTC", loc)
	}
	if a.Timestamp.IsZero() {
		t.Error("header timestamp is zero")
	}
}

func TestNewTickEvent_CopiesMetadata(t *testing.T) {
	// BDD: Mutating the caller's metadata map after construction does
	// not reach into the published event.
	meta := map[string]string{"run": "alpha"}
	ev := NewTickEvent(3, time.Now(), 1.0, meta)
	meta["run"] = "mutated"
	if got := ev.Metadata["run"]; got != "alpha" {
		t.Errorf("event metadata observed caller mutation: %q", got)
	}
	if ev.Tick != 3 {
		t.Errorf("Tick = %d, want 3", ev.Tick)
	}
}

func TestNewTickEvent_EmptyMetadata(t *testing.T) {
	ev := NewTickEvent(0, time.Now(), 1.0, nil)
	if ev.Metadata != nil {
		t.Errorf("expected nil metadata for empty input, got %v", ev.Metadata)
	}
}

func TestNewDisruptionEvent_CopiesScope(t *testing.T) {
	// BDD: The supplier scope is copied so later mutation of the input
	// slice cannot retarget a published disruption.
	scope := []string{"acme"}
	ev := NewDisruptionEvent("port_congestion", 2, 4, 1.8, scope)
	scope[0] = "globex"
	if got := ev.Suppliers[0]; got != "acme" {
		t.Errorf("disruption scope observed caller mutation: %q", got)
	}
}

func TestNewInventoryUpdateEvent_Fields(t *testing.T) {
	ev := NewInventoryUpdateEvent("widget-a", 10, 60, "delivery", "cmd-1")
	if ev.ProductID != "widget-a" || ev.Previous != 10 || ev.New != 60 {
		t.Errorf("unexpected fields: %+v", ev)
	}
	if ev.Reason != "delivery" || ev.CommandID != "cmd-1" {
		t.Errorf("unexpected provenance fields: %+v", ev)
	}
}
