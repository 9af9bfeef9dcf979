package memory

import (
	"context"
	"sync"

	"github.com/Strob0t/ClawCouncil/internal/domain/event"
	"github.com/Strob0t/ClawCouncil/internal/port/eventstore"
)

// EventStore implements eventstore.Store as an append-only slice.
type EventStore struct {
	mu     sync.RWMutex
	events []event.RoundEvent
	seen   map[string]bool
}

// NewEventStore creates an empty EventStore.
func NewEventStore() *EventStore {
	return &EventStore{seen: make(map[string]bool)}
}

func (s *EventStore) Append(_ context.Context, ev *event.RoundEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seen[ev.ID] {
		return nil
	}
	s.seen[ev.ID] = true
	s.events = append(s.events, *ev)
	return nil
}

func (s *EventStore) LoadByRound(_ context.Context, roundID int64, filter eventstore.Filter) ([]event.RoundEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []event.RoundEvent{}
	for i := range s.events {
		ev := &s.events[i]
		if ev.RoundID == roundID && filter.Match(ev) {
			out = append(out, *ev)
		}
	}
	return out, nil
}
