package events

// Handler receives a published event.
type Handler func(Event)

type subscription struct {
	id      int
	all     bool
	kind    Kind
	handler Handler
}

// Bus dispatches events synchronously, in subscription order, on the
// publisher's goroutine. Events published from inside a handler are
// delivered before the outer Publish returns.
type Bus struct {
	subs   []subscription
	nextID int
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers h for events of the given kind. The returned function
// removes the subscription.
func (b *Bus) Subscribe(kind Kind, h Handler) func() {
	return b.add(subscription{kind: kind, handler: h})
}

// SubscribeAll registers h for every event.
func (b *Bus) SubscribeAll(h Handler) func() {
	return b.add(subscription{all: true, handler: h})
}

func (b *Bus) add(s subscription) func() {
	b.nextID++
	s.id = b.nextID
	b.subs = append(b.subs, s)
	id := s.id
	return func() {
		for i, sub := range b.subs {
			if sub.id == id {
				b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers ev to every matching subscriber.
func (b *Bus) Publish(ev Event) {
	// Snapshot so handlers may subscribe or unsubscribe while dispatching.
	subs := make([]subscription, len(b.subs))
	copy(subs, b.subs)
	for _, s := range subs {
		if s.all || s.kind == ev.Kind {
			s.handler(ev)
		}
	}
}
