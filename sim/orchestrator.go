package sim

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Bender1011001/FBA-Bench-Enterprise-sub001/sim/metrics"
	"github.com/Bender1011001/FBA-Bench-Enterprise-sub001/sim/trace"
)

const (
	// maxConsecutiveFailures is the transient-failure streak that halts the
	// tick loop. Handler errors do not count toward it; only failures to
	// drive the tick itself (for example the bus refusing the tick event).
	maxConsecutiveFailures = 5

	// weekendDemandUplift scales the demand factor on Saturdays and Sundays.
	weekendDemandUplift = 1.15
)

var (
	// ErrNotIdle is returned when an operation requires a not-yet-started
	// orchestrator, such as Start or RegisterPhaseHandler.
	ErrNotIdle = errors.New("sim: orchestrator is not idle")

	// ErrNotRunning is returned by Stop when the loop is not running.
	ErrNotRunning = errors.New("sim: orchestrator is not running")

	// errTickPublishPanic marks a panic that escaped the bus while the tick
	// event itself was being published. Handler panics are contained by the
	// bus, so a panic here means the kernel is broken and the loop must halt.
	errTickPublishPanic = errors.New("sim: panic while publishing tick event")
)

// State describes the orchestrator lifecycle. Transitions are one-way:
// Idle -> Running -> Stopped. A stopped orchestrator cannot be restarted;
// build a new one instead.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// TickInfo is the per-tick context handed to phase handlers. It mirrors the
// contents of the TickEvent published at the start of the same tick.
type TickInfo struct {
	Tick         int64
	SimTime      time.Time
	DemandFactor float64
}

// PhaseFunc is a phase handler. Returned errors are counted and logged but
// never abort the tick; panics are likewise contained.
type PhaseFunc func(ctx context.Context, info TickInfo) error

// IntegrityChecker is the slice of the ledger the orchestrator needs: a
// non-raising integrity check invoked at the end of every tick when
// VerifyIntegrityEachTick is set.
type IntegrityChecker interface {
	VerifyIntegrity() error
}

type phaseHandler struct {
	name string
	fn   PhaseFunc
}

// Orchestrator drives the simulation: it publishes a TickEvent, runs the
// five phases in order, invokes the ledger integrity check, then advances
// the tick counter and sleeps the configured interval. Ticks are numbered
// from zero; a tick that fails to start is retried under the same number
// after a backoff.
type Orchestrator struct {
	cfg   SimulationConfig
	bus   *Bus
	clock Clock
	check IntegrityChecker
	rec   *trace.SimulationTrace

	mu          sync.Mutex
	state       State
	currentTick int64 // next tick to execute == ticks completed
	phases      map[Phase][]phaseHandler
	invocations map[Phase]int64
	phaseErrs   map[Phase]int64
	checkPassed int64
	checkFailed int64
	failStreak  int64
	stoppedAt   time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures an Orchestrator at construction time.
type Option func(*Orchestrator)

// WithClock substitutes the time source, letting tests drive the loop
// deterministically with a ManualClock.
func WithClock(c Clock) Option {
	return func(o *Orchestrator) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithLedger attaches the integrity checker consulted at the end of each
// tick. Without one the verify step is skipped.
func WithLedger(c IntegrityChecker) Option {
	return func(o *Orchestrator) { o.check = c }
}

// WithTrace attaches a trace that receives one record per executed tick.
func WithTrace(t *trace.SimulationTrace) Option {
	return func(o *Orchestrator) { o.rec = t }
}

// New builds an orchestrator over the given bus. The config is validated
// and normalized; a nil bus is a programming error and panics.
func New(cfg SimulationConfig, bus *Bus, opts ...Option) (*Orchestrator, error) {
	if bus == nil {
		panic("sim: orchestrator requires a bus")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := &Orchestrator{
		cfg:         cfg,
		bus:         bus,
		clock:       SystemClock{},
		state:       StateIdle,
		phases:      make(map[Phase][]phaseHandler),
		invocations: make(map[Phase]int64),
		phaseErrs:   make(map[Phase]int64),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// RegisterPhaseHandler adds a handler to one of the five phases. Handlers
// run in registration order within their phase. Registration is only
// allowed before the loop starts.
func (o *Orchestrator) RegisterPhaseHandler(phase Phase, name string, fn PhaseFunc) error {
	if fn == nil {
		panic("sim: nil phase handler")
	}
	if _, ok := phaseNames[phase]; !ok {
		return fmt.Errorf("sim: unknown phase %d", int(phase))
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StateIdle {
		return fmt.Errorf("%w: cannot register %q while %s", ErrNotIdle, name, o.state)
	}
	o.phases[phase] = append(o.phases[phase], phaseHandler{name: name, fn: fn})
	return nil
}

// Start launches the tick loop in a background goroutine. It is only valid
// on an idle orchestrator; calling it again, or after Stop, returns
// ErrNotIdle.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	if o.state != StateIdle {
		o.mu.Unlock()
		return fmt.Errorf("%w: start ignored while %s", ErrNotIdle, o.state)
	}
	runCtx, cancel := context.WithCancel(ctx)
	o.state = StateRunning
	o.cancel = cancel
	o.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"tick_interval":     o.cfg.TickInterval,
		"time_acceleration": o.cfg.TimeAcceleration,
		"max_ticks":         o.cfg.MaxTicks,
		"seed":              o.cfg.Seed,
	}).Info("simulation started")

	go o.run(runCtx)
	return nil
}

// Stop halts a running loop and waits for the in-flight tick to finish.
// It must not be called from a phase handler or bus subscriber, which run
// on the loop goroutine. Stopping an idle or already-stopped orchestrator
// returns ErrNotRunning.
func (o *Orchestrator) Stop() error {
	o.mu.Lock()
	if o.state != StateRunning {
		o.mu.Unlock()
		return fmt.Errorf("%w: stop ignored while %s", ErrNotRunning, o.state)
	}
	cancel := o.cancel
	o.mu.Unlock()

	cancel()
	<-o.done
	return nil
}

// Done returns a channel closed once the loop has fully stopped, whether
// by Stop, context cancellation, MaxTicks, or a fatal error.
func (o *Orchestrator) Done() <-chan struct{} {
	return o.done
}

// RunSingleTick executes exactly one tick synchronously. It is intended
// for tests and scripted debugging and is only valid while the
// orchestrator is idle; the background loop must not be running.
func (o *Orchestrator) RunSingleTick(ctx context.Context) error {
	o.mu.Lock()
	if o.state != StateIdle {
		o.mu.Unlock()
		return fmt.Errorf("%w: single tick ignored while %s", ErrNotIdle, o.state)
	}
	o.mu.Unlock()

	err := o.executeTick(ctx)
	if err != nil {
		if errors.Is(err, errTickPublishPanic) {
			logrus.Errorf("fatal tick failure: %v", err)
			o.markStopped()
			return err
		}
		if o.settleTick(err) {
			o.markStopped()
		}
		return err
	}
	o.settleTick(nil)

	o.mu.Lock()
	tick, max := o.currentTick, o.cfg.MaxTicks
	o.mu.Unlock()
	if max > 0 && tick >= max {
		o.markStopped()
	}
	return nil
}

// run is the loop body. It exits on context cancellation, on reaching
// MaxTicks, on a fatal error, or after maxConsecutiveFailures transient
// failures.
func (o *Orchestrator) run(ctx context.Context) {
	defer o.markStopped()

	for {
		select {
		case <-ctx.Done():
			logrus.Info("simulation loop cancelled")
			return
		default:
		}

		err := o.executeTick(ctx)
		if err != nil && errors.Is(err, errTickPublishPanic) {
			logrus.Errorf("fatal tick failure, halting: %v", err)
			return
		}
		if o.settleTick(err) {
			return
		}

		o.mu.Lock()
		tick, max, streak := o.currentTick, o.cfg.MaxTicks, o.failStreak
		o.mu.Unlock()
		if max > 0 && tick >= max {
			logrus.Infof("reached max ticks (%d), stopping", max)
			return
		}

		// Linear backoff: failed ticks wait proportionally longer before
		// the retry.
		wait := o.cfg.TickInterval * time.Duration(1+streak)
		select {
		case <-ctx.Done():
			logrus.Info("simulation loop cancelled")
			return
		case <-o.clock.After(wait):
		}
	}
}

// settleTick updates the consecutive-failure streak and reports whether
// the loop should halt.
func (o *Orchestrator) settleTick(tickErr error) (halt bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if tickErr == nil {
		o.failStreak = 0
		return false
	}
	o.failStreak++
	logrus.Warnf("tick %d failed (consecutive failures %d): %v", o.currentTick, o.failStreak, tickErr)
	if o.failStreak >= maxConsecutiveFailures {
		logrus.Errorf("halting after %d consecutive tick failures", o.failStreak)
		return true
	}
	return false
}

// executeTick runs one full tick: tick event, the five phases in order,
// then the ledger check. The tick counter only advances when the tick
// event went out, so a failed tick is retried under the same number.
func (o *Orchestrator) executeTick(ctx context.Context) error {
	o.mu.Lock()
	tick := o.currentTick
	o.mu.Unlock()

	simTime := o.cfg.SimTimeAt(tick)
	info := TickInfo{
		Tick:         tick,
		SimTime:      simTime,
		DemandFactor: DemandFactor(o.cfg.Seed, tick, simTime),
	}

	started := o.clock.Now()
	before := o.bus.Stats()

	if err := o.publishTick(ctx, info); err != nil {
		o.appendTrace(tick, simTime, o.clock.Now().Sub(started), before, 0, false, false)
		return err
	}

	var handlerErrs int64
	for _, phase := range Phases {
		o.mu.Lock()
		handlers := append([]phaseHandler(nil), o.phases[phase]...)
		o.mu.Unlock()
		for _, h := range handlers {
			if o.invokeHandler(ctx, phase, h, info) {
				handlerErrs++
			}
		}
	}

	verifyRan, verifyErr := o.verifyLedger(tick)

	metrics.TicksTotal.Inc()
	o.appendTrace(tick, simTime, o.clock.Now().Sub(started), before, handlerErrs, verifyRan, verifyErr == nil)

	o.mu.Lock()
	o.currentTick++
	o.mu.Unlock()
	return nil
}

// publishTick emits the TickEvent that opens the tick. A panic escaping
// the bus here is a kernel bug and is converted into the fatal marker.
func (o *Orchestrator) publishTick(ctx context.Context, info TickInfo) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errTickPublishPanic, r)
		}
	}()
	ev := NewTickEvent(info.Tick, info.SimTime, info.DemandFactor, o.cfg.Metadata)
	if err := o.bus.Publish(ctx, ev); err != nil {
		return fmt.Errorf("publish tick %d: %w", info.Tick, err)
	}
	return nil
}

// invokeHandler runs one phase handler, containing errors and panics.
// It reports whether the handler failed.
func (o *Orchestrator) invokeHandler(ctx context.Context, phase Phase, h phaseHandler, info TickInfo) (failed bool) {
	o.mu.Lock()
	o.invocations[phase]++
	o.mu.Unlock()
	metrics.PhaseInvocations.WithLabelValues(phase.String()).Inc()

	defer func() {
		if r := recover(); r != nil {
			logrus.Errorf("phase %s handler %q panicked on tick %d: %v", phase, h.name, info.Tick, r)
			o.countPhaseError(phase)
			failed = true
		}
	}()
	if err := h.fn(ctx, info); err != nil {
		logrus.Warnf("phase %s handler %q failed on tick %d: %v", phase, h.name, info.Tick, err)
		o.countPhaseError(phase)
		return true
	}
	return false
}

func (o *Orchestrator) countPhaseError(phase Phase) {
	o.mu.Lock()
	o.phaseErrs[phase]++
	o.mu.Unlock()
	metrics.PhaseErrors.WithLabelValues(phase.String()).Inc()
}

// verifyLedger invokes the non-raising integrity check when configured.
// Failures are counted and logged but never abort the tick.
func (o *Orchestrator) verifyLedger(tick int64) (ran bool, err error) {
	if o.check == nil || !o.cfg.VerifyIntegrityEachTick {
		return false, nil
	}
	err = o.check.VerifyIntegrity()
	o.mu.Lock()
	if err == nil {
		o.checkPassed++
	} else {
		o.checkFailed++
	}
	o.mu.Unlock()
	if err == nil {
		metrics.LedgerVerifications.WithLabelValues("pass").Inc()
	} else {
		metrics.LedgerVerifications.WithLabelValues("fail").Inc()
		logrus.Errorf("ledger integrity check failed on tick %d: %v", tick, err)
	}
	return true, err
}

func (o *Orchestrator) appendTrace(tick int64, simTime time.Time, wall time.Duration, before BusStats, handlerErrs int64, verifyRan, verifyPassed bool) {
	if o.rec == nil {
		return
	}
	after := o.bus.Stats()
	o.rec.Append(trace.TickRecord{
		Tick:            tick,
		SimTime:         simTime,
		WallDuration:    wall,
		EventsPublished: sumCounts(after.Published) - sumCounts(before.Published),
		HandlerErrors:   handlerErrs,
		VerifyRan:       verifyRan,
		VerifyPassed:    verifyRan && verifyPassed,
	})
}

// markStopped finalizes the lifecycle. It is idempotent so the run loop,
// RunSingleTick, and Stop can all race to it safely.
func (o *Orchestrator) markStopped() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == StateStopped {
		return
	}
	o.state = StateStopped
	o.stoppedAt = o.clock.Now()
	// Release the run context even when the loop stopped on its own
	// (MaxTicks, fatal error, failure streak); Stop is not the only exit.
	if o.cancel != nil {
		o.cancel()
	}
	close(o.done)
	logrus.WithFields(logrus.Fields{
		"ticks":         o.currentTick,
		"checks_passed": o.checkPassed,
		"checks_failed": o.checkFailed,
	}).Info("simulation stopped")
}

// CurrentTick reports how many ticks have completed, which is also the
// number the next tick will carry.
func (o *Orchestrator) CurrentTick() int64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.currentTick
}

// State reports the lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Running reports whether the loop is active.
func (o *Orchestrator) Running() bool {
	return o.State() == StateRunning
}

// PhaseInvocations returns per-phase handler invocation counts.
func (o *Orchestrator) PhaseInvocations() map[Phase]int64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return copyPhaseCounts(o.invocations)
}

// PhaseErrors returns per-phase handler failure counts.
func (o *Orchestrator) PhaseErrors() map[Phase]int64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return copyPhaseCounts(o.phaseErrs)
}

// LedgerChecks returns how many end-of-tick integrity checks passed and
// failed.
func (o *Orchestrator) LedgerChecks() (passed, failed int64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.checkPassed, o.checkFailed
}

// ConsecutiveFailures returns the current transient-failure streak.
func (o *Orchestrator) ConsecutiveFailures() int64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.failStreak
}

// Config returns the configuration the orchestrator was built with.
func (o *Orchestrator) Config() SimulationConfig {
	return o.cfg
}

// StoppedAt returns when the loop halted, or the zero time if it has not.
func (o *Orchestrator) StoppedAt() time.Time {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stoppedAt
}

// DemandFactor computes the deterministic demand multiplier for a tick: a
// weekday baseline (with a weekend uplift) scaled by seeded noise in
// [0.95, 1.05]. It is a pure function of seed and tick and consumes no
// shared RNG state, so observers may call it freely without perturbing
// the simulation.
func DemandFactor(seed, tick int64, simTime time.Time) float64 {
	base := 1.0
	switch simTime.Weekday() {
	case time.Saturday, time.Sunday:
		base = weekendDemandUplift
	}
	// The hash is reinterpreted unsigned before the remainder: a signed
	// remainder goes negative for half of all hashes and would drag the
	// noise below the band.
	h := uint64(fnv1a64(fmt.Sprintf("demand/%d/%d", seed, tick)))
	noise := 0.95 + 0.1*float64(h%10001)/10000.0
	return base * noise
}

func copyPhaseCounts(src map[Phase]int64) map[Phase]int64 {
	out := make(map[Phase]int64, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

func sumCounts(m map[Kind]int64) int64 {
	var total int64
	for _, v := range m {
		total += v
	}
	return total
}
