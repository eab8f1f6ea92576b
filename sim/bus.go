package sim

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Bender1011001/FBA-Bench-Enterprise-sub001/sim/metrics"
)

// ErrBusNotStarted is returned by Subscribe and Publish before Start
// (or after Stop). Handlers registered on a stopped bus would silently
// miss events, so the bus refuses them outright.
var ErrBusNotStarted = errors.New("event bus not started")

// Handler consumes one event. Returning an error marks the delivery
// failed; the bus logs and counts it and continues with the next
// handler. A panicking handler is recovered and treated the same way.
type Handler func(ctx context.Context, ev Event) error

// Subscription identifies one registered handler so it can be removed
// later. The zero Subscription matches nothing.
type Subscription struct {
	id   string
	kind Kind
}

// Kind returns the event kind this subscription listens for.
func (s Subscription) Kind() Kind { return s.kind }

type subscriber struct {
	id      string
	handler Handler
}

// Bus is a synchronous, typed publish/subscribe dispatcher. Delivery
// happens on the publisher's goroutine, in registration order per
// kind; there is no queue and no backpressure. Publish returns only
// after every handler has run.
//
// All state is guarded by a single RWMutex so host goroutines may
// subscribe and inspect stats while the simulation driver publishes.
type Bus struct {
	mu      sync.RWMutex
	started bool
	subs    map[Kind][]subscriber

	recording bool
	recorded  []Event

	published map[Kind]int64
	delivered map[Kind]int64
	failed    map[Kind]int64
}

// NewBus builds a bus in the stopped state.
func NewBus() *Bus {
	return &Bus{
		subs:      make(map[Kind][]subscriber),
		published: make(map[Kind]int64),
		delivered: make(map[Kind]int64),
		failed:    make(map[Kind]int64),
	}
}

// Start makes the bus accept subscriptions and publishes. Idempotent.
func (b *Bus) Start() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.started {
		return
	}
	b.started = true
	logrus.Debug("bus: started")
}

// Stop makes the bus reject further subscriptions and publishes.
// Existing subscriptions are retained and resume on the next Start.
func (b *Bus) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.started {
		return
	}
	b.started = false
	logrus.Debug("bus: stopped")
}

// Subscribe registers a handler for events of the given kind. Handlers
// for a kind run in the order they were registered.
func (b *Bus) Subscribe(kind Kind, h Handler) (Subscription, error) {
	if h == nil {
		panic("sim: Subscribe called with nil handler")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.started {
		return Subscription{}, fmt.Errorf("subscribe %s: %w", kind, ErrBusNotStarted)
	}
	sub := Subscription{id: uuid.NewString(), kind: kind}
	b.subs[kind] = append(b.subs[kind], subscriber{id: sub.id, handler: h})
	logrus.Debugf("bus: handler %s subscribed to %s", sub.id, kind)
	return sub, nil
}

// Unsubscribe removes a previously registered handler. Unknown or
// already-removed subscriptions are ignored.
func (b *Bus) Unsubscribe(sub Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	handlers := b.subs[sub.kind]
	for i, s := range handlers {
		if s.id == sub.id {
			b.subs[sub.kind] = append(handlers[:i], handlers[i+1:]...)
			logrus.Debugf("bus: handler %s unsubscribed from %s", sub.id, sub.kind)
			return
		}
	}
}

// Publish delivers ev to every handler subscribed to its kind,
// synchronously and in registration order. Handler errors and panics
// are contained: they are logged, counted, and never abort the
// delivery loop. An event with no subscribers is still counted and
// recorded.
func (b *Bus) Publish(ctx context.Context, ev Event) error {
	if ev == nil {
		panic("sim: Publish called with nil event")
	}
	kind := ev.Kind()

	b.mu.Lock()
	if !b.started {
		b.mu.Unlock()
		return fmt.Errorf("publish %s: %w", kind, ErrBusNotStarted)
	}
	b.published[kind]++
	if b.recording {
		b.recorded = append(b.recorded, ev)
	}
	// Snapshot the handler list so handlers may subscribe, unsubscribe
	// or publish without deadlocking. Handlers added mid-delivery see
	// the next event, not this one.
	handlers := make([]subscriber, len(b.subs[kind]))
	copy(handlers, b.subs[kind])
	b.mu.Unlock()

	metrics.EventsPublished.WithLabelValues(string(kind)).Inc()
	for _, sub := range handlers {
		b.deliver(ctx, sub, ev)
	}
	return nil
}

func (b *Bus) deliver(ctx context.Context, sub subscriber, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			logrus.Errorf("bus: handler %s panicked on %s event %s: %v", sub.id, ev.Kind(), ev.ID(), r)
			b.countFailure(ev.Kind())
		}
	}()
	if err := sub.handler(ctx, ev); err != nil {
		logrus.Warnf("bus: handler %s failed on %s event %s: %v", sub.id, ev.Kind(), ev.ID(), err)
		b.countFailure(ev.Kind())
		return
	}
	b.mu.Lock()
	b.delivered[ev.Kind()]++
	b.mu.Unlock()
}

func (b *Bus) countFailure(kind Kind) {
	metrics.DeliveryErrors.WithLabelValues(string(kind)).Inc()
	b.mu.Lock()
	b.failed[kind]++
	b.mu.Unlock()
}

// StartRecording begins capturing published events for later replay or
// inspection. Recording is off by default; unbounded runs should leave
// it off since the buffer grows with every event.
func (b *Bus) StartRecording() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.recording = true
}

// StopRecording stops capturing events. The buffer is retained.
func (b *Bus) StopRecording() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.recording = false
}

// RecordedEvents returns a copy of the events captured so far, in
// publication order.
func (b *Bus) RecordedEvents() []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Event, len(b.recorded))
	copy(out, b.recorded)
	return out
}

// ClearRecorded discards the recording buffer.
func (b *Bus) ClearRecorded() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.recorded = nil
}

// BusStats is a point-in-time snapshot of the bus counters.
type BusStats struct {
	Published map[Kind]int64
	Delivered map[Kind]int64
	Failed    map[Kind]int64
}

// Stats returns copies of the publish, delivery and failure counters.
func (b *Bus) Stats() BusStats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return BusStats{
		Published: copyCounts(b.published),
		Delivered: copyCounts(b.delivered),
		Failed:    copyCounts(b.failed),
	}
}

// SubscriberCount reports how many handlers listen for the given kind.
func (b *Bus) SubscriberCount(kind Kind) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[kind])
}

func copyCounts(m map[Kind]int64) map[Kind]int64 {
	out := make(map[Kind]int64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
