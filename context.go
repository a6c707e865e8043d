package replcraft

import (
	"context"
	"encoding/json"
	"sync"
)

// Context is a server-managed logical scope (typically one structure). It is a
// filtered view over the client's global bus (only events tagged with its id
// reach its listeners) plus a request path that stamps its id onto every
// request it sends.
//
// Contexts are created by the server: either seeded by the authentication
// response or pushed via a contextOpened event. A context is disposed when the
// server reports it closed; disposal is permanent and a disposed context
// rejects any new request.
type Context struct {
	client *Client
	id     int
	bus    *bus

	mu       sync.Mutex
	disposed bool
	subs     []*Subscription // global-bus listeners, removed on disposal
}

func newContext(c *Client, id int) *Context {
	sc := &Context{client: c, id: id, bus: newBus()}

	sc.subs = []*Subscription{
		c.bus.subscribe(topicBlockUpdate, func(v any) {
			ev := v.(BlockUpdateEvent)
			if ev.ContextID != sc.id {
				return
			}
			sc.bus.publish(topicBlockUpdate, ev)
		}),
		c.bus.subscribe(topicTransact, func(v any) {
			ev := v.(TransactEvent)
			if ev.ContextID != sc.id {
				return
			}
			sc.bus.publish(topicTransact, ev)
		}),
		c.bus.subscribe(topicContextClosed, func(v any) {
			ev := v.(ContextClosedEvent)
			if ev.ID != sc.id {
				return
			}
			sc.dispose(ev.Cause)
		}),
	}

	return sc
}

// ID returns the server-assigned context id.
func (sc *Context) ID() int {
	return sc.id
}

// Disposed reports whether the server has closed this context.
func (sc *Context) Disposed() bool {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.disposed
}

// dispose flips the context to its terminal state and detaches it from the
// global bus. Invoked only by the contextClosed listener matching this id.
func (sc *Context) dispose(cause string) {
	sc.mu.Lock()
	if sc.disposed {
		sc.mu.Unlock()
		return
	}
	sc.disposed = true
	subs := sc.subs
	sc.subs = nil
	sc.mu.Unlock()

	sc.bus.publish(topicContextClosed, ContextClosedEvent{ID: sc.id, Cause: cause})

	for _, s := range subs {
		s.Unsubscribe()
	}
}

// Request sends an action through this context, blocking until the response
// arrives or ctx expires. It fails immediately if the context is disposed or
// the connection is closed. Most callers want the typed operation catalogue
// instead.
func (sc *Context) Request(ctx context.Context, action string, args map[string]any) (json.RawMessage, error) {
	merged := make(map[string]any, len(args)+1)
	for k, v := range args {
		merged[k] = v
	}
	merged["action"] = action
	return sc.client.request(ctx, sc, merged)
}

func (sc *Context) call(ctx context.Context, args map[string]any) (json.RawMessage, error) {
	return sc.client.request(ctx, sc, args)
}

// Close asks the server to close this context. The context is not disposed
// until the matching contextClosed event arrives.
func (sc *Context) Close(ctx context.Context) error {
	_, err := sc.call(ctx, map[string]any{"action": "close_context"})
	return err
}

// OnBlockUpdate registers a listener for block updates inside this context.
func (sc *Context) OnBlockUpdate(fn func(BlockUpdateEvent)) *Subscription {
	return sc.bus.subscribe(topicBlockUpdate, func(ev any) { fn(ev.(BlockUpdateEvent)) })
}

// OnTransact registers a listener for player transactions inside this context.
func (sc *Context) OnTransact(fn func(TransactEvent)) *Subscription {
	return sc.bus.subscribe(topicTransact, func(ev any) { fn(ev.(TransactEvent)) })
}

// OnClosed registers a listener invoked when the server closes this context.
func (sc *Context) OnClosed(fn func(ContextClosedEvent)) *Subscription {
	return sc.bus.subscribe(topicContextClosed, func(ev any) { fn(ev.(ContextClosedEvent)) })
}

// OnFuelExhausted registers a listener for fuel exhaustion of requests that
// originated from this context.
func (sc *Context) OnFuelExhausted(fn func(FuelEvent)) *Subscription {
	return sc.bus.subscribe(topicOutOfFuel, func(ev any) { fn(ev.(FuelEvent)) })
}
