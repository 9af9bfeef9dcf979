package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Strob0t/ClawCouncil/internal/domain/event"
	"github.com/Strob0t/ClawCouncil/internal/port/eventstore"
)

// EventStore implements eventstore.Store using PostgreSQL (append-only).
type EventStore struct {
	pool *pgxpool.Pool
}

// NewEventStore creates a new EventStore backed by the given connection pool.
func NewEventStore(pool *pgxpool.Pool) *EventStore {
	return &EventStore{pool: pool}
}

// Append inserts a new event into the round_events table. Redelivered
// events (same ID) are ignored.
func (s *EventStore) Append(ctx context.Context, ev *event.RoundEvent) error {
	var agentID *int64
	if ev.AgentID != 0 {
		agentID = &ev.AgentID
	}
	payload := ev.Payload
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO round_events (id, round_id, agent_id, event_type, payload, request_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO NOTHING`,
		ev.ID, ev.RoundID, agentID, string(ev.Type), payload, ev.RequestID, ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// LoadByRound returns the round's events ordered by append sequence.
func (s *EventStore) LoadByRound(ctx context.Context, roundID int64, filter eventstore.Filter) ([]event.RoundEvent, error) {
	var (
		where = []string{"round_id = $1"}
		args  = []any{roundID}
	)
	if len(filter.Types) > 0 {
		types := make([]string, 0, len(filter.Types))
		for _, t := range filter.Types {
			types = append(types, string(t))
		}
		args = append(args, types)
		where = append(where, fmt.Sprintf("event_type = ANY($%d)", len(args)))
	}
	if filter.After != nil {
		args = append(args, *filter.After)
		where = append(where, fmt.Sprintf("created_at > $%d", len(args)))
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id::text, event_type, round_id, COALESCE(agent_id, 0), payload, request_id, created_at
		 FROM round_events WHERE `+strings.Join(where, " AND ")+` ORDER BY seq`, args...)
	if err != nil {
		return nil, fmt.Errorf("load events of round %d: %w", roundID, err)
	}
	events, err := collect(rows, func(row scannable) (event.RoundEvent, error) {
		var ev event.RoundEvent
		err := row.Scan(&ev.ID, &ev.Type, &ev.RoundID, &ev.AgentID, &ev.Payload, &ev.RequestID, &ev.CreatedAt)
		return ev, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan events: %w", err)
	}
	return orEmpty(events), nil
}
