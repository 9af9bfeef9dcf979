package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Strob0t/ClawCouncil/internal/domain/agent"
	"github.com/Strob0t/ClawCouncil/internal/domain/scoring"
)

const scoreEventColumns = `id, agent_id, round_id, reason, points, created_at`

func scanScoreEvent(row scannable) (scoring.Event, error) {
	var e scoring.Event
	err := row.Scan(&e.ID, &e.AgentID, &e.RoundID, &e.Reason, &e.Points, &e.CreatedAt)
	return e, err
}

func (s *Store) ListScoreEventsByRound(ctx context.Context, roundID int64) ([]scoring.Event, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+scoreEventColumns+` FROM score_events WHERE round_id = $1 ORDER BY id`, roundID)
	if err != nil {
		return nil, fmt.Errorf("list score events of round %d: %w", roundID, err)
	}
	events, err := collect(rows, scanScoreEvent)
	if err != nil {
		return nil, fmt.Errorf("scan score events: %w", err)
	}
	return orEmpty(events), nil
}

func (s *Store) ParticipationCounts(ctx context.Context) (map[int64]int, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT agent_id, COUNT(DISTINCT round_id) FROM score_events
		 WHERE reason = $1 GROUP BY agent_id`, string(scoring.ReasonParticipation))
	if err != nil {
		return nil, fmt.Errorf("participation counts: %w", err)
	}
	return scanAgentInts(rows)
}

func (s *Store) LoadLedger(ctx context.Context) ([]agent.Agent, map[int64]int, error) {
	var (
		agents []agent.Agent
		sums   map[int64]int
	)
	err := s.readTx(ctx, func(tx pgx.Tx) error {
		var err error
		if agents, err = listAgents(ctx, tx); err != nil {
			return err
		}
		rows, err := tx.Query(ctx, `SELECT agent_id, SUM(points) FROM score_events GROUP BY agent_id`)
		if err != nil {
			return fmt.Errorf("ledger sums: %w", err)
		}
		sums, err = scanAgentInts(rows)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return agents, sums, nil
}

// scanAgentInts reads (agent_id, bigint) rows into a map.
func scanAgentInts(rows pgx.Rows) (map[int64]int, error) {
	defer rows.Close()
	out := make(map[int64]int)
	for rows.Next() {
		var (
			id int64
			n  int64
		)
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("scan agent aggregate: %w", err)
		}
		out[id] = int(n)
	}
	return out, rows.Err()
}
