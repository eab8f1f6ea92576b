package supply

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
)

// Supplier is a source of stock with a quoted unit price and a
// baseline delivery lead time in ticks.
type Supplier struct {
	ID            string
	Name          string
	LeadTimeTicks int64
	UnitPrice     decimal.Decimal
}

// Validate rejects suppliers no order could sensibly target.
func (s *Supplier) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("supplier id must not be empty")
	}
	if s.LeadTimeTicks < 1 {
		return fmt.Errorf("supplier %q: lead_time_ticks must be at least 1, got %d", s.ID, s.LeadTimeTicks)
	}
	if !s.UnitPrice.IsPositive() {
		return fmt.Errorf("supplier %q: unit_price must be positive, got %s", s.ID, s.UnitPrice)
	}
	return nil
}

// InventoryStore is the boundary to whatever owns on-hand stock. The
// supply chain only ever adds delivered units and reads levels; it
// never removes stock.
type InventoryStore interface {
	// OnHand returns the current stock level for a product.
	OnHand(product string) int64
	// Add applies a stock delta and returns the level before and
	// after.
	Add(product string, delta int64) (prev, next int64)
}

// MemoryInventory is the in-memory InventoryStore used by tests and
// the CLI harness.
type MemoryInventory struct {
	mu     sync.RWMutex
	onHand map[string]int64
}

// NewMemoryInventory creates an empty store.
func NewMemoryInventory() *MemoryInventory {
	return &MemoryInventory{onHand: make(map[string]int64)}
}

// OnHand returns the current stock level for a product.
func (m *MemoryInventory) OnHand(product string) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.onHand[product]
}

// Add applies a stock delta and returns the level before and after.
func (m *MemoryInventory) Add(product string, delta int64) (prev, next int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev = m.onHand[product]
	next = prev + delta
	m.onHand[product] = next
	return prev, next
}

// Set overwrites the stock level for a product. Used to seed initial
// inventory before a run.
func (m *MemoryInventory) Set(product string, qty int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onHand[product] = qty
}

// All returns a copy of every stock level keyed by product.
func (m *MemoryInventory) All() map[string]int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]int64, len(m.onHand))
	for k, v := range m.onHand {
		out[k] = v
	}
	return out
}
