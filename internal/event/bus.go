// Package event provides an in-process publish/subscribe bus with priority
// ordering and one-shot subscriptions.
package event

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/lexide/lexide/internal/logging"
)

// Handler processes a published event.
type Handler func(data any) error

// subscription is one registered handler for an event.
type subscription struct {
	id       uint64
	event    string
	handler  Handler
	priority int
	once     bool
	claimed  atomic.Bool
}

// Option configures a subscription.
type Option func(*subscription)

// WithPriority sets the subscription priority. Higher priorities run first.
func WithPriority(p int) Option {
	return func(s *subscription) { s.priority = p }
}

// WithOnce marks the subscription for removal after its first invocation.
func WithOnce() Option {
	return func(s *subscription) { s.once = true }
}

// BusOption configures a Bus.
type BusOption func(*Bus)

// WithCatchErrors controls failure isolation. When enabled, a handler's
// failure is logged and remaining handlers in the same emission still run.
// When disabled (the default), the first failure aborts the fan-out and
// propagates to the caller.
func WithCatchErrors(catch bool) BusOption {
	return func(b *Bus) { b.catchErrors = catch }
}

// WithMaxSubscribers sets a per-event subscriber guard. Zero means no limit.
func WithMaxSubscribers(n int) BusOption {
	return func(b *Bus) { b.maxSubscribers = n }
}

// WithLogger sets the logger used for caught handler failures.
func WithLogger(l logging.Logger) BusOption {
	return func(b *Bus) { b.log = l }
}

// Bus is an in-process publish/subscribe event bus. Dispatch order is
// strictly priority-descending, ties broken by registration order.
type Bus struct {
	mu             sync.RWMutex
	subs           map[string][]*subscription
	nextID         uint64
	catchErrors    bool
	maxSubscribers int
	log            logging.Logger
}

// NewBus creates an event bus.
func NewBus(opts ...BusOption) *Bus {
	b := &Bus{
		subs: make(map[string][]*subscription),
		log:  logging.NoOp{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// On subscribes handler to the named event and returns an unsubscribe
// function. The unsubscribe function is idempotent.
func (b *Bus) On(eventName string, handler Handler, opts ...Option) (func(), error) {
	if eventName == "" {
		return nil, ErrEmptyEvent
	}
	if handler == nil {
		return nil, ErrNilHandler
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.maxSubscribers > 0 && len(b.subs[eventName]) >= b.maxSubscribers {
		return nil, ErrTooManySubscribers
	}

	b.nextID++
	sub := &subscription{id: b.nextID, event: eventName, handler: handler}
	for _, opt := range opts {
		opt(sub)
	}

	subs := append(b.subs[eventName], sub)
	// Priority descending; equal priorities keep registration order.
	sort.SliceStable(subs, func(i, j int) bool {
		return subs[i].priority > subs[j].priority
	})
	b.subs[eventName] = subs

	id := sub.id
	return func() { b.remove(eventName, id) }, nil
}

// Once subscribes a handler that is removed after its first invocation. The
// claim is atomic, so the handler runs at most once even when emissions race
// on separate goroutines.
func (b *Bus) Once(eventName string, handler Handler, opts ...Option) (func(), error) {
	return b.On(eventName, handler, append(opts, WithOnce())...)
}

// Emit synchronously fans data out to all subscribers in priority order.
// With catchErrors disabled, the first handler failure aborts the remaining
// fan-out and is returned.
func (b *Bus) Emit(eventName string, data any) error {
	return b.dispatch(eventName, data, false)
}

// EmitAsync fans data out with each handler running in its own goroutine and
// waits for all of them to finish before returning. One-shot subscriptions
// are removed exactly as under Emit. With catchErrors disabled, the
// highest-priority failure is returned after the fan-out completes.
func (b *Bus) EmitAsync(eventName string, data any) error {
	return b.dispatch(eventName, data, true)
}

func (b *Bus) dispatch(eventName string, data any, async bool) error {
	b.mu.RLock()
	subs := make([]*subscription, len(b.subs[eventName]))
	copy(subs, b.subs[eventName])
	b.mu.RUnlock()

	if len(subs) == 0 {
		return nil
	}

	// One-shot subscriptions are claimed up front so neither a handler that
	// emits the same event recursively nor a concurrent emission that
	// snapshotted the same list can re-trigger them.
	kept := subs[:0]
	for _, sub := range subs {
		if sub.once {
			if sub.claimed.Swap(true) {
				continue
			}
			b.remove(eventName, sub.id)
		}
		kept = append(kept, sub)
	}
	subs = kept

	if !async {
		for _, sub := range subs {
			if err := b.invoke(eventName, sub, data); err != nil {
				return err
			}
		}
		return nil
	}

	errs := make([]error, len(subs))
	var wg sync.WaitGroup
	for i, sub := range subs {
		wg.Add(1)
		go func(i int, sub *subscription) {
			defer wg.Done()
			errs[i] = b.invoke(eventName, sub, data)
		}(i, sub)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// invoke runs one handler under the bus error policy. The returned error is
// nil when catchErrors is enabled.
func (b *Bus) invoke(eventName string, sub *subscription, data any) error {
	err := sub.handler(data)
	if err == nil {
		return nil
	}
	if b.catchErrors {
		b.log.Warn("event handler failed", "event", eventName, "error", err)
		return nil
	}
	return err
}

// remove deletes a subscription by ID. Safe to call repeatedly.
func (b *Bus) remove(eventName string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[eventName]
	for i, sub := range subs {
		if sub.id == id {
			b.subs[eventName] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(b.subs[eventName]) == 0 {
		delete(b.subs, eventName)
	}
}

// HasSubscribers reports whether any subscription exists for the event.
func (b *Bus) HasSubscribers(eventName string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[eventName]) > 0
}

// SubscriberCount returns the number of subscriptions for the event.
func (b *Bus) SubscriberCount(eventName string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[eventName])
}

// Clear removes all subscriptions for the event, or every subscription when
// eventName is empty.
func (b *Bus) Clear(eventName string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if eventName == "" {
		b.subs = make(map[string][]*subscription)
		return
	}
	delete(b.subs, eventName)
}
