package replcraft

import "context"

// Interaction causes reported on contextOpened events.
const (
	CauseItemInteractBlock = "itemInteractBlock"
	CauseItemInteractAir   = "itemInteractAir"
	CauseItemAttackBlock   = "itemAttackBlock"
	CauseItemAttackAir     = "itemAttackAir"
)

// Block update causes.
const (
	CausePoll    = "poll"
	CausePlace   = "place"
	CauseBreak   = "break"
	CauseBurn    = "burn"
	CauseExplode = "explode"
)

// ContextOpenedEvent announces a context pushed open by the server, for
// example after a player interacts with a bound item.
type ContextOpenedEvent struct {
	Context *Context
	Cause   string
}

// ContextClosedEvent announces that the server closed a context. The matching
// *Context, if one is registered, disposes itself when this event fires.
type ContextClosedEvent struct {
	ID    int
	Cause string
}

// BlockUpdateEvent reports a block change inside a watched or polled region.
type BlockUpdateEvent struct {
	Cause     string
	Block     string
	X, Y, Z   int
	ContextID int
}

// TransactEvent reports a pending player transaction. Application logic should
// invoke exactly one of Accept or Deny; invoking neither leaves the
// transaction pending server-side indefinitely.
//
// Accept and Deny wait for the server's response and are safe to call from
// inside a listener. While a listener blocks, delivery of later events pauses.
type TransactEvent struct {
	Player     string
	PlayerUUID string
	Amount     float64
	Query      string
	ContextID  int

	respond func(ctx context.Context, accept bool) error
}

// Accept approves the transaction by issuing a follow-up request referencing
// its nonce.
func (t TransactEvent) Accept(ctx context.Context) error {
	return t.respond(ctx, true)
}

// Deny declines the transaction.
func (t TransactEvent) Deny(ctx context.Context) error {
	return t.respond(ctx, false)
}

// FuelEvent reports that a request failed with "out of fuel". It fires whether
// or not fuel retry is enabled; the retry toggle only decides whether the
// failed request is re-queued or rejected.
type FuelEvent struct {
	// Action is the action of the request that exhausted fuel.
	Action string
	// Context is the request's originating context, or nil for client-level
	// requests.
	Context *Context
	// Message is the server's human-readable error message.
	Message string
}
