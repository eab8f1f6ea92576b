package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	// CLI flags for the simulation kernel
	logLevel     string  // Log verbosity level
	scenarioPath string  // Path to a YAML scenario file
	seed         int64   // Master seed for all subsystem RNG streams
	maxTicks     int64   // Number of ticks to run (0 = unbounded)
	tickInterval string  // Real-time pacing between ticks
	acceleration float64 // Simulated time per tick = interval * acceleration
	verify       bool    // Run the ledger integrity check every tick

	// CLI flags for the stochastic supply chain
	stochastic     bool    // Enable lead-time variance and black-swan sampling
	leadTimeStdDev float64 // Std dev (ticks) of lead-time variance
	swanChance     float64 // Per-tick probability of a sampled black swan

	// CLI flags for the host harness
	startingCapital string // Seed capital in decimal dollars
	metricsAddr     string // Listen address for /metrics ("" = disabled)
	record          bool   // Record every published event
	traceOut        string // Write the tick trace as JSON to this path
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "fba-sim",
	Short: "Deterministic event-driven marketplace simulation kernel",
}

// runCmd executes a simulation run from a scenario file or the
// built-in demo scenario, with CLI flags overriding scenario values.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a marketplace simulation",
	RunE: func(cmd *cobra.Command, args []string) error {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		scn := defaultScenario()
		if scenarioPath != "" {
			loaded, err := LoadScenario(scenarioPath)
			if err != nil {
				return err
			}
			scn = loaded
		}
		applyFlagOverrides(cmd, scn)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return runScenario(ctx, scn, record, traceOut, metricsAddr)
	},
}

// applyFlagOverrides copies explicitly-set CLI flags over the scenario.
func applyFlagOverrides(cmd *cobra.Command, scn *Scenario) {
	flags := cmd.Flags()
	if flags.Changed("seed") {
		scn.Simulation.Seed = seed
	}
	if flags.Changed("max-ticks") {
		scn.Simulation.MaxTicks = maxTicks
	}
	if flags.Changed("tick-interval") {
		scn.Simulation.TickInterval = tickInterval
	}
	if flags.Changed("acceleration") {
		scn.Simulation.TimeAcceleration = acceleration
	}
	if flags.Changed("verify") {
		v := verify
		scn.Simulation.VerifyIntegrityEachTick = &v
	}
	if flags.Changed("stochastic") {
		scn.Supply.Stochastic = stochastic
	}
	if flags.Changed("lead-time-stddev") {
		scn.Supply.LeadTimeStdDev = leadTimeStdDev
	}
	if flags.Changed("black-swan-probability") {
		scn.Supply.BlackSwanProbability = swanChance
	}
	if flags.Changed("starting-capital") {
		scn.Ledger.StartingCapital = startingCapital
	}
}

// defaultScenario is the built-in demo: one supplier, a short scripted
// order book, and twenty fast ticks.
func defaultScenario() *Scenario {
	return &Scenario{
		Simulation: SimulationSpec{
			TickInterval: "100ms",
			MaxTicks:     20,
			Seed:         42,
			Metadata:     map[string]string{"scenario": "builtin-demo"},
		},
		Ledger: LedgerSpec{StartingCapital: "50000.00"},
		Supply: SupplySpec{Stochastic: true, LeadTimeStdDev: 1.0, BlackSwanProbability: 0.05},
		Suppliers: []SupplierSpec{
			{ID: "acme", Name: "Acme Wholesale", LeadTimeTicks: 3, UnitPrice: "4.25"},
			{ID: "globex", Name: "Globex Trading", LeadTimeTicks: 5, UnitPrice: "3.80"},
		},
		Inventory: map[string]int64{"widget-a": 100},
		Orders: []OrderSpec{
			{Tick: 2, Supplier: "acme", Product: "widget-a", Quantity: 50, PriceCeiling: "5.00"},
			{Tick: 4, Supplier: "globex", Product: "widget-b", Quantity: 200, PriceCeiling: "4.00"},
			{Tick: 9, Supplier: "acme", Product: "widget-a", Quantity: 25, PriceCeiling: "5.00"},
		},
	}
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	runCmd.Flags().StringVar(&logLevel, "log", "info", "Log level (trace, debug, info, warn, error, fatal, panic)")
	runCmd.Flags().StringVar(&scenarioPath, "scenario", "", "YAML scenario file (empty = built-in demo)")

	// Kernel configs
	runCmd.Flags().Int64Var(&seed, "seed", 42, "Master seed for deterministic runs")
	runCmd.Flags().Int64Var(&maxTicks, "max-ticks", 20, "Number of ticks to run (0 = unbounded)")
	runCmd.Flags().StringVar(&tickInterval, "tick-interval", "100ms", "Real-time pacing between ticks")
	runCmd.Flags().Float64Var(&acceleration, "acceleration", 1.0, "Simulated time per tick = interval * acceleration")
	runCmd.Flags().BoolVar(&verify, "verify", true, "Verify ledger integrity every tick")

	// Supply chain configs
	runCmd.Flags().BoolVar(&stochastic, "stochastic", true, "Enable stochastic lead times and black swans")
	runCmd.Flags().Float64Var(&leadTimeStdDev, "lead-time-stddev", 1.0, "Std dev of lead-time variance in ticks")
	runCmd.Flags().Float64Var(&swanChance, "black-swan-probability", 0.05, "Per-tick probability of a black swan")

	// Harness configs
	runCmd.Flags().StringVar(&startingCapital, "starting-capital", "50000.00", "Seed capital in decimal dollars")
	runCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	runCmd.Flags().BoolVar(&record, "record", false, "Record every published event")
	runCmd.Flags().StringVar(&traceOut, "trace-out", "", "Write the per-tick trace as JSON to this path")

	// Attach `run` as a subcommand to `root`
	rootCmd.AddCommand(runCmd)
}
