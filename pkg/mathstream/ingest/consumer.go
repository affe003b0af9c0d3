package ingest

import (
	"context"

	"github.com/calclabs/mathstream/pkg/mathstream/event"
	"github.com/calclabs/mathstream/pkg/mathstream/wire"
)

// Requester is the outbound side of the transport, as seen by the
// consumer. It requests the backlog on attach.
type Requester interface {
	IsConnected() bool
	Send(msg wire.OutboundFrame)
}

// Consumer feeds a Log from the event bus. It listens for backlog and
// query event messages and, exactly once on attach, requests the backlog
// if the transport is connected. There is no periodic re-sync.
type Consumer struct {
	log *Log
	sub event.Subscription
}

// Attach subscribes log to bus and issues the one-time backlog request.
// Call Detach when the consuming view goes away; leaving the
// subscription behind leaks a handler.
func Attach(bus event.Bus, requester Requester, log *Log) *Consumer {
	c := &Consumer{log: log}

	c.sub = bus.Subscribe(
		[]wire.Kind{wire.KindInitialEvents, wire.KindQueryEvent},
		event.HandlerFunc(c.handle),
	)

	if requester != nil && requester.IsConnected() {
		requester.Send(wire.GetInitialEvents())
	}

	return c
}

// Detach removes the bus subscription. The log keeps its contents.
func (c *Consumer) Detach() {
	if c.sub != nil {
		c.sub.Unsubscribe()
		c.sub = nil
	}
}

func (c *Consumer) handle(_ context.Context, msg wire.Message) error {
	switch msg.Kind {
	case wire.KindInitialEvents:
		// A backlog frame without an array is ignored. Only an explicit
		// array, including an empty one, replaces the log.
		if msg.Backlog != nil {
			c.log.ReplaceAll(msg.Backlog)
		}
	case wire.KindQueryEvent:
		if msg.Event != nil {
			c.log.Add(*msg.Event)
		}
	}
	return nil
}
