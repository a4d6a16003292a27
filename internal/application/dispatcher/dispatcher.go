package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sourcegraph/conc"

	"github.com/garyjia/po-approval/internal/domain/event"
)

// ErrClosed is returned when dispatching on a closed dispatcher
var ErrClosed = errors.New("dispatcher is closed")

// Dispatcher fans session and order events out to subscribers
type Dispatcher interface {
	// Subscribe registers a handler under a generated name and returns that name
	Subscribe(eventType event.Type, handler Handler) string

	// SubscribeNamed registers a handler under the given name
	SubscribeNamed(eventType event.Type, name string, handler Handler)

	// Unsubscribe removes a handler by name
	Unsubscribe(eventType event.Type, name string)

	// Dispatch runs handlers in registration order and stops at the first error
	Dispatch(ctx context.Context, evt *event.Event) error

	// DispatchAsync runs every handler in its own goroutine and returns immediately
	DispatchAsync(ctx context.Context, evt *event.Event)

	// Subscriptions lists handlers registered for an event type
	Subscriptions(eventType event.Type) []Subscription

	// Close rejects further dispatches and waits for async handlers
	Close() error
}

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

type eventDispatcher struct {
	mu     sync.RWMutex
	subs   map[event.Type][]Subscription
	seq    atomic.Uint64
	logger Logger

	inflight conc.WaitGroup
	closed   atomic.Bool
}

// Option configures the dispatcher
type Option func(*eventDispatcher)

// WithLogger sets a logger for the dispatcher
func WithLogger(logger Logger) Option {
	return func(d *eventDispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDispatcher creates a new event dispatcher
func NewDispatcher(opts ...Option) Dispatcher {
	d := &eventDispatcher{
		subs:   make(map[event.Type][]Subscription),
		logger: nopLogger{},
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

func (d *eventDispatcher) Subscribe(eventType event.Type, handler Handler) string {
	name := fmt.Sprintf("%s#%d", eventType, d.seq.Add(1))
	d.SubscribeNamed(eventType, name, handler)
	return name
}

func (d *eventDispatcher) SubscribeNamed(eventType event.Type, name string, handler Handler) {
	d.mu.Lock()
	d.subs[eventType] = append(d.subs[eventType], Subscription{
		Name:      name,
		EventType: eventType,
		handler:   handler,
	})
	d.mu.Unlock()

	d.logger.Info("Handler registered", "event_type", eventType, "handler_name", name)
}

func (d *eventDispatcher) Unsubscribe(eventType event.Type, name string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	current := d.subs[eventType]
	kept := make([]Subscription, 0, len(current))
	for _, s := range current {
		if s.Name != name {
			kept = append(kept, s)
		}
	}
	d.subs[eventType] = kept
}

func (d *eventDispatcher) snapshot(eventType event.Type) []Subscription {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]Subscription(nil), d.subs[eventType]...)
}

func (d *eventDispatcher) Dispatch(ctx context.Context, evt *event.Event) error {
	if d.closed.Load() {
		return ErrClosed
	}

	for _, s := range d.snapshot(evt.Type) {
		if err := d.run(ctx, evt, s); err != nil {
			d.logger.Error("Handler error",
				"event_type", evt.Type,
				"event_id", evt.ID,
				"handler_name", s.Name,
				"error", err,
			)
			return fmt.Errorf("handler %s failed: %w", s.Name, err)
		}
	}

	return nil
}

func (d *eventDispatcher) DispatchAsync(ctx context.Context, evt *event.Event) {
	if d.closed.Load() {
		d.logger.Error("Dropping event, dispatcher is closed", "event_type", evt.Type, "event_id", evt.ID)
		return
	}

	for _, s := range d.snapshot(evt.Type) {
		s := s
		d.inflight.Go(func() {
			if err := d.run(ctx, evt, s); err != nil {
				d.logger.Error("Async handler error",
					"event_type", evt.Type,
					"event_id", evt.ID,
					"handler_name", s.Name,
					"error", err,
				)
			}
		})
	}
}

func (d *eventDispatcher) Subscriptions(eventType event.Type) []Subscription {
	subs := d.snapshot(eventType)
	for i := range subs {
		subs[i].handler = nil
	}
	return subs
}

func (d *eventDispatcher) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}

	d.inflight.Wait()
	d.logger.Info("Dispatcher closed")
	return nil
}

// run invokes a handler and turns a panic into an error
func (d *eventDispatcher) run(ctx context.Context, evt *event.Event, s Subscription) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()

	return s.handler(ctx, evt)
}
