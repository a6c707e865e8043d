package replcraft

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// retryEntry is one fuel-exhausted request queued for resubmission. The id is
// local to the SDK, used only to correlate log lines across retries.
type retryEntry struct {
	id string
	p  *pendingRequest
}

// retryQueue transparently re-attempts requests that failed with
// "out of fuel". Entries drain strictly in FIFO order through a single
// consumer goroutine woken by the filled signal; there is no retry cap and no
// backoff growth. A request blocks for as long as fuel never replenishes,
// surfacing only through FuelEvent notifications.
type retryQueue struct {
	c *Client

	mu      sync.Mutex
	enabled bool
	started bool
	closed  bool
	entries []*retryEntry

	filled chan struct{}
	done   chan struct{}
}

func newRetryQueue(c *Client) *retryQueue {
	return &retryQueue{
		c:      c,
		filled: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

func (q *retryQueue) setEnabled(enabled bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.enabled = enabled
	if enabled && !q.started {
		q.started = true
		go q.consume()
	}
}

// enabledNow reports the toggle alone: a request intercepted while the client
// shuts down still flows through add(), which fails it with the same
// "connection closed" error as every other in-flight request.
func (q *retryQueue) enabledNow() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.enabled
}

// schedule queues p for resubmission after the configured delay, leaving time
// for the fuel notification to reach application code and for out-of-band
// replenishment.
func (q *retryQueue) schedule(p *pendingRequest) {
	time.AfterFunc(q.c.opts.retryDelay, func() {
		q.add(p)
	})
}

func (q *retryQueue) add(p *pendingRequest) {
	e := &retryEntry{id: uuid.New().String(), p: p}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		p.comp.deliver(result{err: errClosed("connection closed")})
		return
	}
	q.entries = append(q.entries, e)
	q.mu.Unlock()

	action, _ := p.args["action"].(string)
	q.c.logger.Debug().
		Str("retry_id", e.id).
		Str("action", action).
		Msg("request queued after fuel exhaustion")

	select {
	case q.filled <- struct{}{}:
	default:
	}
}

func (q *retryQueue) consume() {
	for {
		select {
		case <-q.done:
			return
		case <-q.filled:
			q.drain()
		}
	}
}

func (q *retryQueue) drain() {
	for {
		q.mu.Lock()
		if len(q.entries) == 0 {
			q.mu.Unlock()
			return
		}
		e := q.entries[0]
		q.entries = q.entries[1:]
		q.mu.Unlock()

		q.resubmit(e)
	}
}

// resubmit re-registers the request under a fresh correlation id, reusing the
// original completion so the eventual resolution reaches the original caller.
// A resubmission that exhausts fuel again re-enters the queue through the
// normal response path; a request whose caller has given up is dropped.
func (q *retryQueue) resubmit(e *retryEntry) {
	p := e.p

	if p.comp.isAbandoned() {
		q.c.logger.Debug().
			Str("retry_id", e.id).
			Msg("dropping retry for cancelled request")
		return
	}

	np, err := q.c.register(p.sctx, p.args, p.comp)
	if err != nil {
		p.comp.deliver(result{err: err})
		return
	}

	q.c.logger.Debug().
		Str("retry_id", e.id).
		Str("request_id", np.id).
		Msg("resubmitting request")

	if err := q.c.transmit(np); err != nil {
		p.comp.deliver(result{err: err})
	}
}

// shutdown fails every queued entry and stops the consumer. Entries still
// sitting in their pre-queue delay fail on arrival.
func (q *retryQueue) shutdown() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	entries := q.entries
	q.entries = nil
	q.mu.Unlock()

	close(q.done)

	for _, e := range entries {
		e.p.comp.deliver(result{err: errClosed("connection closed")})
	}
}
