// Package event provides the in-process message bus that decouples the
// transport from its consumers.
//
// The bus is owned by whoever constructs it, not by the process: wiring
// is explicit, and a subscription registered after a message was
// published never sees that message. Delivery order per subscription
// matches publish order.
package event

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/calclabs/mathstream/pkg/mathstream/wire"
)

// Handler consumes bus messages.
type Handler interface {
	Handle(ctx context.Context, msg wire.Message) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, msg wire.Message) error

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, msg wire.Message) error {
	return f(ctx, msg)
}

// Bus provides pub/sub distribution of decoded wire messages.
type Bus interface {
	// Publish delivers a message to all matching subscribers.
	Publish(ctx context.Context, msg wire.Message) error

	// Subscribe creates a subscription for specific message kinds.
	Subscribe(kinds []wire.Kind, handler Handler) Subscription

	// SubscribeAll subscribes to every message.
	SubscribeAll(handler Handler) Subscription

	// Close shuts down the bus and all subscriptions.
	Close() error
}

// Subscription represents an active subscription.
type Subscription interface {
	// Unsubscribe removes the subscription.
	Unsubscribe()

	// Pause temporarily stops delivery.
	Pause()

	// Resume continues delivery after pause.
	Resume()

	// IsPaused returns true if the subscription is paused.
	IsPaused() bool
}

// BusConfig configures bus behavior.
type BusConfig struct {
	// BufferSize is the channel buffer size per subscription.
	// Default: 64
	BufferSize int

	// NonBlocking makes Publish non-blocking (drops messages if a
	// subscription buffer is full). Default: false (blocking).
	NonBlocking bool

	// OnDrop is called when a message is dropped (non-blocking mode).
	OnDrop func(msg wire.Message, subscriberID string)

	// OnError is called when a handler returns an error.
	OnError func(msg wire.Message, subscriberID string, err error)
}

// DefaultBusConfig provides reasonable defaults.
var DefaultBusConfig = BusConfig{
	BufferSize: 64,
}

// LocalBus is an in-memory Bus implementation.
type LocalBus struct {
	config BusConfig

	mu            sync.RWMutex
	subscriptions map[string]*subscription
	byKind        map[wire.Kind]map[string]*subscription
	wildcards     map[string]*subscription

	nextID  atomic.Int64
	closed  atomic.Bool
	closeCh chan struct{}
}

// NewBus creates a new local bus.
func NewBus(config BusConfig) *LocalBus {
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultBusConfig.BufferSize
	}

	return &LocalBus{
		config:        config,
		subscriptions: make(map[string]*subscription),
		byKind:        make(map[wire.Kind]map[string]*subscription),
		wildcards:     make(map[string]*subscription),
		closeCh:       make(chan struct{}),
	}
}

// subscription is an internal subscription implementation.
type subscription struct {
	id       string
	kinds    []wire.Kind
	handler  Handler
	messages chan wire.Message
	paused   atomic.Bool
	done     chan struct{}
	bus      *LocalBus
}

// Publish delivers a message to all matching subscribers.
func (b *LocalBus) Publish(ctx context.Context, msg wire.Message) error {
	if b.closed.Load() {
		return &BusError{Kind: msg.Kind, Message: "bus is closed"}
	}

	b.mu.RLock()
	subs := b.matching(msg.Kind)
	b.mu.RUnlock()

	for _, sub := range subs {
		if sub.paused.Load() {
			continue
		}

		if b.config.NonBlocking {
			select {
			case sub.messages <- msg:
			default:
				if b.config.OnDrop != nil {
					b.config.OnDrop(msg, sub.id)
				}
			}
		} else {
			select {
			case sub.messages <- msg:
			case <-ctx.Done():
				return ctx.Err()
			case <-b.closeCh:
				return &BusError{Kind: msg.Kind, Message: "bus closed during publish"}
			}
		}
	}

	return nil
}

// Subscribe creates a subscription for specific message kinds.
func (b *LocalBus) Subscribe(kinds []wire.Kind, handler Handler) Subscription {
	return b.subscribe(kinds, handler)
}

// SubscribeAll subscribes to every message.
func (b *LocalBus) SubscribeAll(handler Handler) Subscription {
	return b.subscribe(nil, handler)
}

func (b *LocalBus) subscribe(kinds []wire.Kind, handler Handler) *subscription {
	if b.closed.Load() {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &subscription{
		id:       fmt.Sprintf("sub-%d", b.nextID.Add(1)),
		kinds:    kinds,
		handler:  handler,
		messages: make(chan wire.Message, b.config.BufferSize),
		done:     make(chan struct{}),
		bus:      b,
	}

	b.subscriptions[sub.id] = sub

	if len(kinds) == 0 {
		b.wildcards[sub.id] = sub
	} else {
		for _, k := range kinds {
			if b.byKind[k] == nil {
				b.byKind[k] = make(map[string]*subscription)
			}
			b.byKind[k][sub.id] = sub
		}
	}

	go sub.process()

	return sub
}

// matching returns all subscriptions interested in a message kind.
func (b *LocalBus) matching(kind wire.Kind) []*subscription {
	subs := make([]*subscription, 0)

	if kindSubs, ok := b.byKind[kind]; ok {
		for _, sub := range kindSubs {
			subs = append(subs, sub)
		}
	}

	for _, sub := range b.wildcards {
		subs = append(subs, sub)
	}

	return subs
}

// Close shuts down the bus.
func (b *LocalBus) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil // Already closed
	}

	close(b.closeCh)

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.subscriptions {
		close(sub.done)
	}

	return nil
}

// process handles messages for a subscription.
func (s *subscription) process() {
	for {
		select {
		case msg := <-s.messages:
			if s.paused.Load() {
				continue
			}

			if err := s.handler.Handle(context.Background(), msg); err != nil && s.bus.config.OnError != nil {
				s.bus.config.OnError(msg, s.id, err)
			}

		case <-s.done:
			return
		}
	}
}

// Unsubscribe removes the subscription.
func (s *subscription) Unsubscribe() {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()

	if _, ok := s.bus.subscriptions[s.id]; !ok {
		return
	}

	delete(s.bus.subscriptions, s.id)
	delete(s.bus.wildcards, s.id)

	for _, k := range s.kinds {
		if kindSubs, ok := s.bus.byKind[k]; ok {
			delete(kindSubs, s.id)
		}
	}

	close(s.done)
}

// Pause temporarily stops delivery.
func (s *subscription) Pause() {
	s.paused.Store(true)
}

// Resume continues delivery after pause.
func (s *subscription) Resume() {
	s.paused.Store(false)
}

// IsPaused returns true if the subscription is paused.
func (s *subscription) IsPaused() bool {
	return s.paused.Load()
}
