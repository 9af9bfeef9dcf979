package postgres

import (
	"context"
	"fmt"

	"github.com/Strob0t/ClawCouncil/internal/domain"
	"github.com/Strob0t/ClawCouncil/internal/domain/agent"
)

const agentColumns = `id, name, key_hash, total_score, created_at`

func scanAgent(row scannable) (agent.Agent, error) {
	var a agent.Agent
	err := row.Scan(&a.ID, &a.Name, &a.KeyHash, &a.TotalScore, &a.CreatedAt)
	return a, err
}

func (s *Store) CreateAgent(ctx context.Context, name, keyHash string) (*agent.Agent, error) {
	a, err := scanAgent(s.pool.QueryRow(ctx,
		`INSERT INTO agents (name, key_hash) VALUES ($1, $2)
		 RETURNING `+agentColumns, name, keyHash))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: agent name %q is already taken", domain.ErrConflict, name)
		}
		return nil, fmt.Errorf("create agent: %w", err)
	}
	return &a, nil
}

func (s *Store) GetAgent(ctx context.Context, id int64) (*agent.Agent, error) {
	a, err := scanAgent(s.pool.QueryRow(ctx,
		`SELECT `+agentColumns+` FROM agents WHERE id = $1`, id))
	if err != nil {
		return nil, notFoundWrap(err, "get agent %d", id)
	}
	return &a, nil
}

func (s *Store) GetAgentByKeyHash(ctx context.Context, keyHash string) (*agent.Agent, error) {
	a, err := scanAgent(s.pool.QueryRow(ctx,
		`SELECT `+agentColumns+` FROM agents WHERE key_hash = $1`, keyHash))
	if err != nil {
		return nil, notFoundWrap(err, "get agent by key")
	}
	return &a, nil
}

func (s *Store) ListAgents(ctx context.Context) ([]agent.Agent, error) {
	return listAgents(ctx, s.pool)
}

func listAgents(ctx context.Context, q querier) ([]agent.Agent, error) {
	rows, err := q.Query(ctx, `SELECT `+agentColumns+` FROM agents ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	agents, err := collect(rows, scanAgent)
	if err != nil {
		return nil, fmt.Errorf("scan agents: %w", err)
	}
	return orEmpty(agents), nil
}
