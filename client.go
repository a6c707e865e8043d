package replcraft

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type connState int

const (
	stateDisconnected connState = iota
	stateConnecting
	stateOpen
	stateClosed
)

// result carries the resolution of a logical request: the full response frame
// on success, or the failure.
type result struct {
	payload json.RawMessage
	err     error
}

// completion is the single-resolution endpoint of one logical request. The
// fuel retry queue may resubmit a request under fresh correlation ids, but its
// completion resolves exactly once; later deliveries are dropped.
type completion struct {
	ch   chan result
	once sync.Once

	mu        sync.Mutex
	abandoned bool
}

func newCompletion() *completion {
	return &completion{ch: make(chan result, 1)}
}

func (c *completion) deliver(r result) {
	c.once.Do(func() { c.ch <- r })
}

// abandon marks the caller as gone so the retry queue stops resubmitting.
func (c *completion) abandon() {
	c.mu.Lock()
	c.abandoned = true
	c.mu.Unlock()
}

func (c *completion) isAbandoned() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.abandoned
}

// pendingRequest is one in-flight logical request awaiting its response.
// args holds the original action arguments (without id/contextId) so the fuel
// retry queue can resubmit the request under a fresh correlation id.
type pendingRequest struct {
	id   string
	args map[string]any
	sctx *Context
	comp *completion
}

// Client is the main entry point for interacting with a ReplCraft server.
// One client owns at most one physical connection at a time; a dropped
// connection invalidates all in-flight work and the client does not reconnect.
type Client struct {
	cfg     Config
	opts    clientOptions
	logger  zerolog.Logger
	onError ErrorHandler

	mu           sync.Mutex
	state        connState
	transport    transport
	endpoint     string
	scope        string
	hbStop       chan struct{}
	disconnectFn func(error)

	// Correlation table for the request multiplexer. Ids are a per-connection
	// integer counter; an id is never reused while the connection is alive.
	pendingMu sync.Mutex
	pending   map[string]*pendingRequest
	nextID    uint64

	bus *bus

	ctxMu    sync.Mutex
	contexts map[int]*Context
	root     *Context

	dispatch *dispatcher
	retry    *retryQueue
}

// NewClient creates a new ReplCraft client with the given configuration.
// The onError handler is called for SDK-level errors that cannot be returned
// to a direct caller (e.g., inbound parse failures, write failures).
// The client is not connected until Connect() is called.
func NewClient(cfg Config, onError ErrorHandler, opts ...Option) (*Client, error) {
	resolved, err := resolveConfig(cfg)
	if err != nil {
		return nil, err
	}

	if onError == nil {
		return nil, errors.New("ErrorHandler must not be nil")
	}

	o := clientDefaults()
	for _, opt := range opts {
		opt(&o)
	}

	c := &Client{
		cfg:      resolved,
		opts:     o,
		logger:   o.logger,
		onError:  onError,
		pending:  make(map[string]*pendingRequest),
		bus:      newBus(),
		contexts: make(map[int]*Context),
	}
	c.dispatch = newDispatcher()
	c.retry = newRetryQueue(c)
	return c, nil
}

// Connect establishes the WebSocket connection to the host carried in the
// structure token (or the configured Host override) and authenticates.
//
// Connect is idempotent while connected: connecting again to the same host
// returns immediately, and connecting to a different host on the same client
// fails.
func (c *Client) Connect(ctx context.Context) error {
	host := c.cfg.Host
	if host == "" {
		payload, err := parseToken(c.cfg.Token)
		if err != nil {
			return err
		}
		host = payload.Host
	}
	return c.connect(ctx, endpointURL(host))
}

// ConnectTo connects to an explicit host (bare "host:port" or full ws URL),
// ignoring the host carried in the token. Mostly useful against development
// servers.
func (c *Client) ConnectTo(ctx context.Context, host string) error {
	return c.connect(ctx, endpointURL(host))
}

func (c *Client) connect(ctx context.Context, url string) error {
	c.mu.Lock()
	switch c.state {
	case stateOpen, stateConnecting:
		if c.endpoint == url {
			c.mu.Unlock()
			return nil // join the existing connection
		}
		cur := c.endpoint
		c.mu.Unlock()
		return errClosed(fmt.Sprintf("already connected to %s, refusing %s", cur, url))
	case stateClosed:
		c.mu.Unlock()
		return errClosed("client is closed")
	}

	t := newWSConn(url, c.opts.dialTimeout)
	t.setMessageHandler(c.handleInbound)
	t.onDisconnect(c.handleDisconnect)

	c.state = stateConnecting
	c.endpoint = url
	c.transport = t
	c.mu.Unlock()

	if err := t.connect(ctx); err != nil {
		c.mu.Lock()
		c.state = stateDisconnected
		c.endpoint = ""
		c.transport = nil
		c.mu.Unlock()
		return err
	}

	c.mu.Lock()
	c.state = stateOpen
	c.mu.Unlock()
	c.pendingMu.Lock()
	c.nextID = 0
	c.pendingMu.Unlock()

	raw, err := c.request(ctx, nil, map[string]any{
		"action": "authenticate",
		"token":  c.cfg.Token,
	})
	if err != nil {
		t.close()
		c.teardown()
		return err
	}

	var auth struct {
		Scope   string `json:"scope"`
		Context *int   `json:"context"`
	}
	if err := json.Unmarshal(raw, &auth); err != nil {
		t.close()
		c.teardown()
		return fmt.Errorf("parse authenticate response: %w", err)
	}

	c.mu.Lock()
	c.scope = auth.Scope
	hbStop := make(chan struct{})
	c.hbStop = hbStop
	c.mu.Unlock()

	if auth.Context != nil {
		sc := c.adoptContext(*auth.Context)
		c.ctxMu.Lock()
		c.root = sc
		c.ctxMu.Unlock()
	}

	go c.heartbeatLoop(hbStop)

	c.logger.Info().
		Str("endpoint", url).
		Str("scope", auth.Scope).
		Msg("connected")

	return nil
}

// Close shuts down the connection. Every pending request fails with a
// "connection closed" error. The client cannot be reconnected afterwards.
func (c *Client) Close() error {
	t, already := c.teardown()
	if already {
		return nil
	}
	if t != nil {
		return t.close()
	}
	return nil
}

// teardown moves the client to the terminal Closed state and bulk-fails all
// in-flight work. It returns the live transport (not yet closed) and whether
// the client was already closed.
func (c *Client) teardown() (transport, bool) {
	c.mu.Lock()
	if c.state == stateClosed {
		c.mu.Unlock()
		return nil, true
	}
	c.state = stateClosed
	if c.hbStop != nil {
		close(c.hbStop)
		c.hbStop = nil
	}
	t := c.transport
	c.mu.Unlock()

	c.failAllPending(errClosed("connection closed"))
	c.retry.shutdown()
	c.dispatch.stop()
	return t, false
}

// handleDisconnect is invoked by the transport when the connection drops for
// any reason other than a client-initiated Close.
func (c *Client) handleDisconnect(err error) {
	c.logger.Warn().Err(err).Msg("connection lost")

	_, already := c.teardown()
	if already {
		return
	}

	c.mu.Lock()
	fn := c.disconnectFn
	c.mu.Unlock()
	if fn != nil {
		fn(err)
	}
}

// OnDisconnect registers a callback invoked when the connection drops.
func (c *Client) OnDisconnect(fn func(error)) {
	c.mu.Lock()
	c.disconnectFn = fn
	c.mu.Unlock()
}

// Scope returns the authorization scope granted on authentication.
func (c *Client) Scope() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scope
}

// RootContext returns the context seeded by the authentication response, or
// nil if the token was not structure-scoped.
func (c *Client) RootContext() *Context {
	c.ctxMu.Lock()
	defer c.ctxMu.Unlock()
	return c.root
}

// LookupContext returns the live context with the given id, if one is
// registered.
func (c *Client) LookupContext(id int) (*Context, bool) {
	c.ctxMu.Lock()
	defer c.ctxMu.Unlock()
	sc, ok := c.contexts[id]
	return sc, ok
}

// SetFuelRetry toggles transparent retry of requests that fail with
// "out of fuel". Disabled by default: exhaustion rejects the caller like any
// other error. While enabled, the failed request enters a FIFO retry queue
// after a fixed delay instead of rejecting, and the caller's result does not
// settle until a resubmission succeeds or fails with a different error.
func (c *Client) SetFuelRetry(enabled bool) {
	c.retry.setEnabled(enabled)
}

// Global event subscriptions. Context-scoped variants live on *Context.

// OnContextOpened registers a listener for contexts pushed open by the server.
func (c *Client) OnContextOpened(fn func(ContextOpenedEvent)) *Subscription {
	return c.bus.subscribe(topicContextOpened, func(ev any) { fn(ev.(ContextOpenedEvent)) })
}

// OnContextClosed registers a listener for server-closed contexts.
func (c *Client) OnContextClosed(fn func(ContextClosedEvent)) *Subscription {
	return c.bus.subscribe(topicContextClosed, func(ev any) { fn(ev.(ContextClosedEvent)) })
}

// OnBlockUpdate registers a listener for block updates across all contexts.
func (c *Client) OnBlockUpdate(fn func(BlockUpdateEvent)) *Subscription {
	return c.bus.subscribe(topicBlockUpdate, func(ev any) { fn(ev.(BlockUpdateEvent)) })
}

// OnTransact registers a listener for player transactions across all contexts.
func (c *Client) OnTransact(fn func(TransactEvent)) *Subscription {
	return c.bus.subscribe(topicTransact, func(ev any) { fn(ev.(TransactEvent)) })
}

// OnFuelExhausted registers a listener for fuel exhaustion notifications.
func (c *Client) OnFuelExhausted(fn func(FuelEvent)) *Subscription {
	return c.bus.subscribe(topicOutOfFuel, func(ev any) { fn(ev.(FuelEvent)) })
}

// request emits one logical request and blocks until its response arrives or
// ctx expires. sctx, when non-nil, is stamped onto the request as contextId.
func (c *Client) request(ctx context.Context, sctx *Context, args map[string]any) (json.RawMessage, error) {
	p, err := c.register(sctx, args, nil)
	if err != nil {
		return nil, err
	}
	if err := c.transmit(p); err != nil {
		return nil, err
	}

	select {
	case res := <-p.comp.ch:
		return res.payload, res.err
	case <-ctx.Done():
		p.comp.abandon()
		c.unregister(p.id)
		return nil, ctx.Err()
	}
}

// fire emits a request without waiting for its response. The response still
// flows through normal id matching and is discarded.
func (c *Client) fire(args map[string]any) error {
	p, err := c.register(nil, args, nil)
	if err != nil {
		return err
	}
	return c.transmit(p)
}

// register allocates the next correlation id and installs a pending
// completion. It fails without any network I/O if no connection is open or
// the originating context is disposed. comp may carry an existing completion
// (retry resubmission); nil allocates a fresh one.
func (c *Client) register(sctx *Context, args map[string]any, comp *completion) (*pendingRequest, error) {
	if sctx != nil && sctx.Disposed() {
		return nil, errClosed(fmt.Sprintf("context %d is disposed", sctx.id))
	}

	c.mu.Lock()
	open := c.state == stateOpen
	c.mu.Unlock()
	if !open {
		return nil, errClosed("client is not connected")
	}

	if comp == nil {
		comp = newCompletion()
	}

	c.pendingMu.Lock()
	id := formatID(c.nextID)
	c.nextID++
	p := &pendingRequest{id: id, args: args, sctx: sctx, comp: comp}
	c.pending[id] = p
	c.pendingMu.Unlock()

	return p, nil
}

func (c *Client) unregister(id string) (*pendingRequest, bool) {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	p, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	return p, ok
}

// transmit serializes and writes a registered request. On failure the pending
// completion is removed; the caller owns delivering the error.
func (c *Client) transmit(p *pendingRequest) error {
	contextID := -1
	if p.sctx != nil {
		contextID = p.sctx.id
	}

	data, err := marshalRequest(p.args, p.id, contextID)
	if err != nil {
		c.unregister(p.id)
		return err
	}

	c.mu.Lock()
	t := c.transport
	c.mu.Unlock()
	if t == nil {
		c.unregister(p.id)
		return errClosed("client is not connected")
	}

	if err := t.send(data); err != nil {
		c.unregister(p.id)
		c.onError(SDKError{Kind: FaultWrite, Cause: err, Timestamp: time.Now()})
		return err
	}
	return nil
}

// handleInbound is called by the transport for each inbound frame. Response
// matching and push routing are independent: a frame that resolves a pending
// completion is still offered to the event router. Responses resolve on the
// read loop; push routing moves to the dispatch goroutine so listeners can
// block (or issue requests) without stalling response matching.
func (c *Client) handleInbound(data []byte) {
	env, err := parseEnvelope(data)
	if err != nil {
		c.onError(SDKError{Kind: FaultParse, Cause: err, Raw: data, Timestamp: time.Now()})
		return
	}

	if env.OK != nil && env.ID != "" {
		if p, ok := c.unregister(string(env.ID)); ok {
			c.resolve(p, env, data)
		}
	}

	c.dispatch.enqueue(func() { c.dispatchPush(env, data) })
}

// resolve settles one pending request from its matched response. Fuel
// exhaustion is special-cased: the notification fires on the global bus and
// the originating context's bus regardless of the retry toggle, and with
// retry enabled the request is re-queued instead of rejecting the caller.
func (c *Client) resolve(p *pendingRequest, env envelope, data []byte) {
	if *env.OK {
		p.comp.deliver(result{payload: data})
		return
	}

	kind := ErrorKind(env.Error)
	if kind == KindOutOfFuel {
		action, _ := p.args["action"].(string)
		ev := FuelEvent{Action: action, Context: p.sctx, Message: env.Message}
		c.dispatch.enqueue(func() {
			c.bus.publish(topicOutOfFuel, ev)
			if p.sctx != nil {
				p.sctx.bus.publish(topicOutOfFuel, ev)
			}
		})
		if c.retry.enabledNow() {
			c.retry.schedule(p)
			return
		}
	}

	p.comp.deliver(result{err: &Error{Kind: kind, Message: env.Message}})
}

// failAllPending clears the correlation table atomically and fails every
// entry. This is the only path by which a pending request fails without the
// server deliberately answering it.
func (c *Client) failAllPending(err error) {
	c.pendingMu.Lock()
	pend := c.pending
	c.pending = make(map[string]*pendingRequest)
	c.pendingMu.Unlock()

	for _, p := range pend {
		p.comp.deliver(result{err: err})
	}
}

func (c *Client) heartbeatLoop(stop chan struct{}) {
	ticker := time.NewTicker(c.opts.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := c.fire(map[string]any{"action": "heartbeat"}); err != nil {
				c.logger.Debug().Err(err).Msg("heartbeat failed")
				return
			}
		}
	}
}

// adoptContext returns the registered context for id, constructing and
// registering it if needed.
func (c *Client) adoptContext(id int) *Context {
	c.ctxMu.Lock()
	defer c.ctxMu.Unlock()
	if sc, ok := c.contexts[id]; ok {
		return sc
	}
	sc := newContext(c, id)
	c.contexts[id] = sc
	return sc
}

func (c *Client) removeContext(id int) {
	c.ctxMu.Lock()
	defer c.ctxMu.Unlock()
	delete(c.contexts, id)
}
