package event

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/menusync/backend/internal/domain/shared"
)

// ErrBusStopped is returned when publishing to a stopped bus
var ErrBusStopped = errors.New("event: bus is stopped")

// BusConfig holds event bus settings
type BusConfig struct {
	// BufferSize is the capacity of the async dispatch queue
	BufferSize int
	// HandlerTimeout bounds a single handler invocation
	HandlerTimeout time.Duration
}

// DefaultBusConfig returns default bus settings
func DefaultBusConfig() BusConfig {
	return BusConfig{
		BufferSize:     256,
		HandlerTimeout: 10 * time.Second,
	}
}

// InMemoryEventBus implements EventBus with in-process pub/sub. Events are
// dispatched from a single background goroutine so handlers never block the
// publisher; a full queue falls back to synchronous dispatch rather than
// dropping the event.
type InMemoryEventBus struct {
	config   BusConfig
	registry *HandlerRegistry
	logger   *zap.Logger

	queue   chan shared.DomainEvent
	running atomic.Bool
	wg      sync.WaitGroup
	stop    chan struct{}
}

// NewInMemoryEventBus creates a new in-memory event bus
func NewInMemoryEventBus(config BusConfig, logger *zap.Logger) *InMemoryEventBus {
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultBusConfig().BufferSize
	}
	if config.HandlerTimeout <= 0 {
		config.HandlerTimeout = DefaultBusConfig().HandlerTimeout
	}
	return &InMemoryEventBus{
		config:   config,
		registry: NewHandlerRegistry(),
		logger:   logger,
		queue:    make(chan shared.DomainEvent, config.BufferSize),
		stop:     make(chan struct{}),
	}
}

// Publish hands events to the dispatch queue. Before Start (and after Stop)
// events are dispatched inline so tests and startup code see effects
// immediately.
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	for _, evt := range events {
		if !b.running.Load() {
			b.dispatch(ctx, evt)
			continue
		}
		select {
		case b.queue <- evt:
		default:
			// Queue full; dispatch inline instead of dropping
			b.dispatch(ctx, evt)
		}
	}
	return nil
}

// Subscribe registers a handler for specific event types
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	// If handler specifies its own event types, use those
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	b.registry.Register(handler, eventTypes...)
	b.logger.Debug("handler subscribed",
		zap.Strings("event_types", eventTypes),
	)
}

// Unsubscribe removes a handler
func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.registry.Unregister(handler)
	b.logger.Debug("handler unsubscribed")
}

// Start launches the background dispatch loop
func (b *InMemoryEventBus) Start(ctx context.Context) error {
	if !b.running.CompareAndSwap(false, true) {
		return nil
	}
	b.wg.Add(1)
	go b.dispatchLoop()
	b.logger.Info("event bus started",
		zap.Int("buffer_size", b.config.BufferSize),
	)
	return nil
}

// Stop drains the queue and stops the dispatch loop
func (b *InMemoryEventBus) Stop(ctx context.Context) error {
	if !b.running.CompareAndSwap(true, false) {
		return nil
	}
	close(b.stop)
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	b.logger.Info("event bus stopped")
	return nil
}

func (b *InMemoryEventBus) dispatchLoop() {
	defer b.wg.Done()
	for {
		select {
		case evt := <-b.queue:
			b.dispatch(context.Background(), evt)
		case <-b.stop:
			// Drain whatever is still queued
			for {
				select {
				case evt := <-b.queue:
					b.dispatch(context.Background(), evt)
				default:
					return
				}
			}
		}
	}
}

// dispatch delivers one event to all registered handlers. Handler errors
// are logged and never stop delivery to the remaining handlers.
func (b *InMemoryEventBus) dispatch(ctx context.Context, evt shared.DomainEvent) {
	handlers := b.registry.GetHandlers(evt.EventType())
	for _, handler := range handlers {
		if err := b.dispatchToHandler(ctx, handler, evt); err != nil {
			b.logger.Error("handler failed to process event",
				zap.String("event_type", evt.EventType()),
				zap.String("event_id", evt.EventID().String()),
				zap.Error(err),
			)
		}
	}
}

// dispatchToHandler safely dispatches an event to a handler with a timeout
func (b *InMemoryEventBus) dispatchToHandler(ctx context.Context, handler shared.EventHandler, evt shared.DomainEvent) (err error) {
	ctx, cancel := context.WithTimeout(ctx, b.config.HandlerTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("handler panicked",
				zap.String("event_type", evt.EventType()),
				zap.Any("panic", r),
			)
		}
	}()

	return handler.Handle(ctx, evt)
}

// Ensure InMemoryEventBus implements EventBus
var _ shared.EventBus = (*InMemoryEventBus)(nil)
