package replcraft

import (
	"sync"

	evbus "github.com/asaskevich/EventBus"
)

// Event topics. Used for both the global bus and per-context buses.
const (
	topicContextOpened = "contextOpened"
	topicContextClosed = "contextClosed"
	topicBlockUpdate   = "block update"
	topicTransact      = "transact"
	topicOutOfFuel     = "out of fuel"
)

var busTopics = []string{
	topicContextOpened,
	topicContextClosed,
	topicBlockUpdate,
	topicTransact,
	topicOutOfFuel,
}

// bus layers handle-based subscriptions over EventBus. One fan-out handler per
// topic is registered on the inner bus; listeners are tracked in an owned list
// so that Unsubscribe removes exactly one registration, not the first handler
// that happens to share a code pointer. Delivery is synchronous on the
// publishing goroutine; the client publishes from its dispatch goroutine, so
// listeners run off the read loop and still see events in arrival order.
type bus struct {
	inner evbus.Bus

	mu   sync.Mutex
	subs map[string][]*Subscription
}

func newBus() *bus {
	b := &bus{
		inner: evbus.New(),
		subs:  make(map[string][]*Subscription),
	}
	for _, topic := range busTopics {
		topic := topic
		b.inner.Subscribe(topic, func(ev any) {
			b.fanout(topic, ev)
		})
	}
	return b
}

// subscribe registers fn for topic and returns a handle that removes exactly
// this registration.
func (b *bus) subscribe(topic string, fn func(ev any)) *Subscription {
	s := &Subscription{bus: b, topic: topic, fn: fn}
	b.mu.Lock()
	b.subs[topic] = append(b.subs[topic], s)
	b.mu.Unlock()
	return s
}

func (b *bus) publish(topic string, ev any) {
	b.inner.Publish(topic, ev)
}

func (b *bus) fanout(topic string, ev any) {
	b.mu.Lock()
	subs := make([]*Subscription, len(b.subs[topic]))
	copy(subs, b.subs[topic])
	b.mu.Unlock()

	for _, s := range subs {
		s.fn(ev)
	}
}

func (b *bus) remove(s *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	list := b.subs[s.topic]
	for i, cur := range list {
		if cur == s {
			b.subs[s.topic] = append(list[:i], list[i+1:]...)
			return
		}
	}
}

// Subscription is a handle to a single listener registration. Unsubscribe
// removes the listener; it is safe to call more than once.
type Subscription struct {
	bus   *bus
	topic string
	fn    func(ev any)
	once  sync.Once
}

// Unsubscribe removes the listener from its bus.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.bus.remove(s)
	})
}
