// Package stream fans contract events out to the owner's live subscribers.
package stream

import (
	"context"
	"sync"
	"time"
)

type Kind string

const (
	ContractCreated Kind = "contract.created"
	ContractDeleted Kind = "contract.deleted"
)

// Event is one change to an owner's contract list.
type Event struct {
	Kind       Kind      `json:"kind"`
	OwnerID    string    `json:"-"`
	ContractID string    `json:"contract_id"`
	Title      string    `json:"title,omitempty"`
	At         time.Time `json:"at"`
}

type subscriber struct {
	owner string
	ch    chan Event
}

// Stream fans out events to subscribers of the event's owner (SSE clients).
type Stream struct {
	mu   sync.RWMutex
	subs map[int]subscriber
	next int
}

func New() *Stream {
	return &Stream{subs: make(map[int]subscriber)}
}

// Subscribe registers a subscriber for owner's events. The channel is closed
// when ctx ends.
func (s *Stream) Subscribe(ctx context.Context, owner string) <-chan Event {
	ch := make(chan Event, 16)

	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = subscriber{owner: owner, ch: ch}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, id)
		close(ch)
		s.mu.Unlock()
	}()

	return ch
}

// Publish delivers evt to the owner's subscribers. Slow subscribers miss events.
func (s *Stream) Publish(evt Event) {
	if evt.At.IsZero() {
		evt.At = time.Now().UTC()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sub := range s.subs {
		if sub.owner != evt.OwnerID {
			continue
		}
		select {
		case sub.ch <- evt:
		default:
		}
	}
}

// Subscribers returns the number of open subscriptions.
func (s *Stream) Subscribers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}
