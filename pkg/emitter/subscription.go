package emitter

import "sync"

// Subscription removes one handler. Unsubscribe may be called any number of times.
type Subscription struct {
	event  string
	once   sync.Once
	cancel func()
}

func (s *Subscription) Event() string {
	return s.event
}

func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(s.cancel)
}

// Bag holds the subscriptions of one mounted component so that they are released
// together when it unmounts.
type Bag struct {
	mu   sync.Mutex
	subs []*Subscription
}

func (b *Bag) Add(subs ...*Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.subs = append(b.subs, subs...)
}

func (b *Bag) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.subs)
}

// Close unsubscribes everything in the bag and empties it.
func (b *Bag) Close() {
	b.mu.Lock()
	subs := b.subs
	b.subs = nil
	b.mu.Unlock()

	for _, s := range subs {
		s.Unsubscribe()
	}
}
