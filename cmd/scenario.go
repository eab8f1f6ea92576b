package cmd

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	sim "github.com/Bender1011001/FBA-Bench-Enterprise-sub001/sim"
	"github.com/Bender1011001/FBA-Bench-Enterprise-sub001/sim/ledger"
	"github.com/Bender1011001/FBA-Bench-Enterprise-sub001/sim/supply"
)

// Scenario is the YAML description of a reproducible run: kernel
// configuration, ledger seeding, supplier roster, starting inventory
// and a scripted order book. Scripted orders are harness input fed
// onto the bus at their tick; they stand in for the agents a host
// process would normally embed.
//
// Nil pointer fields mean "not set in YAML" and take defaults; money
// fields are decimal strings so amounts survive parsing exactly.
type Scenario struct {
	Simulation SimulationSpec   `yaml:"simulation"`
	Ledger     LedgerSpec       `yaml:"ledger"`
	Supply     SupplySpec       `yaml:"supply"`
	Suppliers  []SupplierSpec   `yaml:"suppliers"`
	Inventory  map[string]int64 `yaml:"inventory"`
	Orders     []OrderSpec      `yaml:"orders"`
}

// SimulationSpec mirrors sim.SimulationConfig in YAML-friendly types.
type SimulationSpec struct {
	TickInterval            string            `yaml:"tick_interval"` // Go duration string, e.g. "250ms"
	TimeAcceleration        float64           `yaml:"time_acceleration"`
	MaxTicks                int64             `yaml:"max_ticks"`
	Seed                    int64             `yaml:"seed"`
	VerifyIntegrityEachTick *bool             `yaml:"verify_integrity_each_tick"` // nil = true
	Metadata                map[string]string `yaml:"metadata"`
}

// LedgerSpec configures the accounting engine.
type LedgerSpec struct {
	Strict          *bool  `yaml:"strict"`           // nil = true
	StartingCapital string `yaml:"starting_capital"` // decimal dollars, e.g. "50000.00"
}

// SupplySpec configures the supply-chain process.
type SupplySpec struct {
	Stochastic           bool    `yaml:"stochastic"`
	LeadTimeStdDev       float64 `yaml:"lead_time_std_dev"`
	BlackSwanProbability float64 `yaml:"black_swan_probability"`
	Seed                 *int64  `yaml:"seed"` // nil = simulation seed
}

// SupplierSpec is one roster entry.
type SupplierSpec struct {
	ID            string `yaml:"id"`
	Name          string `yaml:"name"`
	LeadTimeTicks int64  `yaml:"lead_time_ticks"`
	UnitPrice     string `yaml:"unit_price"` // decimal dollars
}

// OrderSpec is one scripted order, published during the orders phase
// of its tick.
type OrderSpec struct {
	Tick         int64  `yaml:"tick"`
	Supplier     string `yaml:"supplier"`
	Product      string `yaml:"product"`
	Quantity     int64  `yaml:"quantity"`
	PriceCeiling string `yaml:"price_ceiling"` // decimal dollars; empty = no ceiling
}

// LoadScenario reads and parses a YAML scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	var scn Scenario
	if err := yaml.Unmarshal(data, &scn); err != nil {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}
	return &scn, nil
}

// SimulationConfig translates the simulation section into a validated
// kernel config.
func (s *Scenario) SimulationConfig() (sim.SimulationConfig, error) {
	cfg := sim.SimulationConfig{
		TimeAcceleration:        s.Simulation.TimeAcceleration,
		MaxTicks:                s.Simulation.MaxTicks,
		Seed:                    s.Simulation.Seed,
		VerifyIntegrityEachTick: true,
		Metadata:                s.Simulation.Metadata,
	}
	if s.Simulation.TickInterval != "" {
		d, err := time.ParseDuration(s.Simulation.TickInterval)
		if err != nil {
			return sim.SimulationConfig{}, fmt.Errorf("scenario tick_interval: %w", err)
		}
		cfg.TickInterval = d
	}
	if s.Simulation.VerifyIntegrityEachTick != nil {
		cfg.VerifyIntegrityEachTick = *s.Simulation.VerifyIntegrityEachTick
	}
	if err := cfg.Validate(); err != nil {
		return sim.SimulationConfig{}, fmt.Errorf("scenario simulation config: %w", err)
	}
	return cfg, nil
}

// LedgerStrict reports the strict-mode setting, defaulting to true.
func (s *Scenario) LedgerStrict() bool {
	if s.Ledger.Strict == nil {
		return true
	}
	return *s.Ledger.Strict
}

// StartingCapital parses the seed capital, defaulting to zero when
// unset.
func (s *Scenario) StartingCapital() (ledger.Money, error) {
	if s.Ledger.StartingCapital == "" {
		return 0, nil
	}
	d, err := decimal.NewFromString(s.Ledger.StartingCapital)
	if err != nil {
		return 0, fmt.Errorf("scenario starting_capital: %w", err)
	}
	m, err := ledger.FromDecimal(d)
	if err != nil {
		return 0, fmt.Errorf("scenario starting_capital: %w", err)
	}
	return m, nil
}

// SupplyConfig translates the supply section, inheriting the
// simulation seed when the supply block sets none of its own.
func (s *Scenario) SupplyConfig() supply.Config {
	cfg := supply.Config{
		Stochastic:           s.Supply.Stochastic,
		LeadTimeStdDev:       s.Supply.LeadTimeStdDev,
		BlackSwanProbability: s.Supply.BlackSwanProbability,
		Seed:                 s.Simulation.Seed,
	}
	if s.Supply.Seed != nil {
		cfg.Seed = *s.Supply.Seed
	}
	return cfg
}

// SupplierRoster parses the supplier list into runtime suppliers.
func (s *Scenario) SupplierRoster() ([]supply.Supplier, error) {
	roster := make([]supply.Supplier, 0, len(s.Suppliers))
	for _, spec := range s.Suppliers {
		price, err := decimal.NewFromString(spec.UnitPrice)
		if err != nil {
			return nil, fmt.Errorf("scenario supplier %q unit_price: %w", spec.ID, err)
		}
		roster = append(roster, supply.Supplier{
			ID:            spec.ID,
			Name:          spec.Name,
			LeadTimeTicks: spec.LeadTimeTicks,
			UnitPrice:     price,
		})
	}
	return roster, nil
}

// scriptedOrder is a parsed OrderSpec ready for publication.
type scriptedOrder struct {
	Tick         int64
	Supplier     string
	Product      string
	Quantity     int64
	PriceCeiling decimal.Decimal
}

// ScriptedOrders parses the order book, sorted by tick with the
// original order preserved within a tick.
func (s *Scenario) ScriptedOrders() ([]scriptedOrder, error) {
	orders := make([]scriptedOrder, 0, len(s.Orders))
	for i, spec := range s.Orders {
		if spec.Tick < 0 {
			return nil, fmt.Errorf("scenario order %d: tick must not be negative, got %d", i, spec.Tick)
		}
		o := scriptedOrder{
			Tick:     spec.Tick,
			Supplier: spec.Supplier,
			Product:  spec.Product,
			Quantity: spec.Quantity,
		}
		if spec.PriceCeiling != "" {
			ceiling, err := decimal.NewFromString(spec.PriceCeiling)
			if err != nil {
				return nil, fmt.Errorf("scenario order %d price_ceiling: %w", i, err)
			}
			o.PriceCeiling = ceiling
		}
		orders = append(orders, o)
	}
	sort.SliceStable(orders, func(i, j int) bool { return orders[i].Tick < orders[j].Tick })
	return orders, nil
}
