// Package eventstore defines the port interface for the append-only round event log.
package eventstore

import (
	"context"
	"time"

	"github.com/Strob0t/ClawCouncil/internal/domain/event"
)

// Filter narrows the events returned by LoadByRound.
type Filter struct {
	Types []event.Type `json:"types,omitempty"`
	After *time.Time   `json:"after,omitempty"`
}

// Store is the port interface for appending and loading round events.
type Store interface {
	// Append persists a new event. Appending an event ID twice is a no-op.
	Append(ctx context.Context, ev *event.RoundEvent) error

	// LoadByRound returns the round's events in append order.
	LoadByRound(ctx context.Context, roundID int64, filter Filter) ([]event.RoundEvent, error)
}

// Match reports whether ev passes f. Shared by store implementations that
// filter in memory.
func (f Filter) Match(ev *event.RoundEvent) bool {
	if f.After != nil && !ev.CreatedAt.After(*f.After) {
		return false
	}
	if len(f.Types) == 0 {
		return true
	}
	for _, t := range f.Types {
		if ev.Type == t {
			return true
		}
	}
	return false
}
