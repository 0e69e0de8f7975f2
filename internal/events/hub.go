package events

import (
	"context"
	"sync"
)

// Filter selects the events a subscriber receives. Empty fields match all.
type Filter struct {
	Collection string
	EntityID   string
}

func (f Filter) Match(e Event) bool {
	if f.Collection != "" && f.Collection != e.Collection {
		return false
	}
	if f.EntityID != "" && f.EntityID != e.EntityID {
		return false
	}
	return true
}

type subscriber struct {
	ch     chan Event
	filter Filter
}

// Hub fans events out to in-process subscribers. Slow subscribers lose
// events rather than block the publisher.
type Hub struct {
	mu     sync.RWMutex
	subs   map[*subscriber]struct{}
	buffer int
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 64
	}
	return &Hub{subs: make(map[*subscriber]struct{}), buffer: buffer}
}

// Subscribe returns a channel of matching events and a cancel func that
// closes it.
func (h *Hub) Subscribe(f Filter) (<-chan Event, func()) {
	s := &subscriber{ch: make(chan Event, h.buffer), filter: f}

	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return s.ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, s)
			h.mu.Unlock()
			close(s.ch)
		})
	}
}

func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *Hub) Publish(_ context.Context, events ...Event) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for s := range h.subs {
		for _, e := range events {
			if !s.filter.Match(e) {
				continue
			}
			select {
			case s.ch <- e:
			default:
			}
		}
	}
	return nil
}
