package chat

import "sync"

// Listener receives every published snapshot of a Store.
type Listener func(messages []Message)

// Store keeps the ordered conversation of a single page view. Every change
// produces a new slice and is published to subscribers in mutation order.
//
// Listeners run synchronously on the mutating goroutine and must not mutate
// the store they are subscribed to; reading via Snapshot is fine.
type Store struct {
	pubMu sync.Mutex

	mu        sync.RWMutex
	messages  []Message
	listeners []subscription
	nextID    int
}

type subscription struct {
	id int
	fn Listener
}

// NewStore returns a Store seeded with the supplied messages.
func NewStore(initial ...Message) *Store {
	return &Store{messages: append([]Message(nil), initial...)}
}

// Snapshot returns a copy of the current messages.
func (s *Store) Snapshot() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Message(nil), s.messages...)
}

// Len reports the number of messages.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// Append adds messages at the end in a single publish.
func (s *Store) Append(msgs ...Message) {
	if len(msgs) == 0 {
		return
	}
	s.Update(func(prev []Message) []Message {
		next := make([]Message, 0, len(prev)+len(msgs))
		next = append(next, prev...)
		return append(next, msgs...)
	})
}

// Update replaces the messages with fn(previous) and publishes the result.
// fn receives a copy and may return it unchanged; a publish happens either way.
func (s *Store) Update(fn func(prev []Message) []Message) {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()

	s.mu.Lock()
	next := fn(append([]Message(nil), s.messages...))
	s.messages = next
	listeners := append([]subscription(nil), s.listeners...)
	s.mu.Unlock()

	for _, sub := range listeners {
		sub.fn(append([]Message(nil), next...))
	}
}

// Subscribe registers l for future publishes. The returned func removes it.
func (s *Store) Subscribe(l Listener) (cancel func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners = append(s.listeners, subscription{id: id, fn: l})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, sub := range s.listeners {
				if sub.id == id {
					s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// ReplaceByID returns a new slice in which the message with id is replaced by
// fn(message). When id is absent the input is returned untouched and ok is false.
func ReplaceByID(messages []Message, id string, fn func(Message) Message) ([]Message, bool) {
	for i, msg := range messages {
		if msg.ID != id {
			continue
		}
		next := append([]Message(nil), messages...)
		next[i] = fn(msg)
		return next, true
	}
	return messages, false
}

// SetText is an Update func that sets the text of the message with id.
func SetText(id, text string) func([]Message) []Message {
	return func(prev []Message) []Message {
		next, _ := ReplaceByID(prev, id, func(m Message) Message { return m.WithText(text) })
		return next
	}
}
