package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Strob0t/ClawCouncil/internal/domain"
	"github.com/Strob0t/ClawCouncil/internal/domain/round"
)

const roundColumns = `id, prompt, phase, created_by, created_at, closed_at`

func scanRound(row scannable) (round.Round, error) {
	var (
		r     round.Round
		phase string
	)
	if err := row.Scan(&r.ID, &r.Prompt, &phase, &r.CreatedBy, &r.CreatedAt, &r.ClosedAt); err != nil {
		return r, err
	}
	p, err := round.ParsePhase(phase)
	if err != nil {
		return r, fmt.Errorf("round %d: %w", r.ID, err)
	}
	r.Phase = p
	return r, nil
}

func scanProposal(row scannable) (round.Proposal, error) {
	var p round.Proposal
	err := row.Scan(&p.ID, &p.RoundID, &p.AgentID, &p.AgentName, &p.Content, &p.SubmittedAt, &p.VoteCount)
	return p, err
}

func scanCritique(row scannable) (round.Critique, error) {
	var c round.Critique
	err := row.Scan(&c.ID, &c.RoundID, &c.AgentID, &c.AgentName, &c.ProposalID, &c.Content, &c.SubmittedAt)
	return c, err
}

func scanVote(row scannable) (round.Vote, error) {
	var v round.Vote
	err := row.Scan(&v.ID, &v.RoundID, &v.AgentID, &v.ProposalID, &v.SubmittedAt)
	return v, err
}

func (s *Store) CreateRound(ctx context.Context, prompt string, createdBy int64) (*round.Round, error) {
	r, err := scanRound(s.pool.QueryRow(ctx,
		`INSERT INTO rounds (prompt, phase, created_by) VALUES ($1, $2, $3)
		 RETURNING `+roundColumns, prompt, round.PhaseProposal.String(), createdBy))
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("create round: agent %d: %w", createdBy, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("create round: %w", err)
	}
	return &r, nil
}

func (s *Store) GetRound(ctx context.Context, id int64) (*round.Round, error) {
	r, err := scanRound(s.pool.QueryRow(ctx, `SELECT `+roundColumns+` FROM rounds WHERE id = $1`, id))
	if err != nil {
		return nil, notFoundWrap(err, "get round %d", id)
	}
	return &r, nil
}

func (s *Store) ListRounds(ctx context.Context) ([]round.Round, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+roundColumns+` FROM rounds ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list rounds: %w", err)
	}
	rounds, err := collect(rows, scanRound)
	if err != nil {
		return nil, fmt.Errorf("scan rounds: %w", err)
	}
	return orEmpty(rounds), nil
}

func (s *Store) LoadSnapshot(ctx context.Context, roundID int64) (*round.Snapshot, error) {
	var snap *round.Snapshot
	err := s.readTx(ctx, func(tx pgx.Tx) error {
		var err error
		snap, err = loadSnapshot(ctx, tx, roundID, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// loadSnapshot reads a round and all of its submissions. With forUpdate the
// round row is locked until the surrounding transaction ends.
func loadSnapshot(ctx context.Context, q querier, roundID int64, forUpdate bool) (*round.Snapshot, error) {
	query := `SELECT ` + roundColumns + ` FROM rounds WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	r, err := scanRound(q.QueryRow(ctx, query, roundID))
	if err != nil {
		return nil, notFoundWrap(err, "load round %d", roundID)
	}
	snap := &round.Snapshot{Round: r}

	rows, err := q.Query(ctx,
		`SELECT p.id, p.round_id, p.agent_id, a.name, p.content, p.submitted_at, p.vote_count
		 FROM proposals p JOIN agents a ON a.id = p.agent_id
		 WHERE p.round_id = $1 ORDER BY p.id`, roundID)
	if err != nil {
		return nil, fmt.Errorf("load proposals of round %d: %w", roundID, err)
	}
	if snap.Proposals, err = collect(rows, scanProposal); err != nil {
		return nil, fmt.Errorf("scan proposals: %w", err)
	}

	rows, err = q.Query(ctx,
		`SELECT c.id, c.round_id, c.agent_id, a.name, c.proposal_id, c.content, c.submitted_at
		 FROM critiques c JOIN agents a ON a.id = c.agent_id
		 WHERE c.round_id = $1 ORDER BY c.id`, roundID)
	if err != nil {
		return nil, fmt.Errorf("load critiques of round %d: %w", roundID, err)
	}
	if snap.Critiques, err = collect(rows, scanCritique); err != nil {
		return nil, fmt.Errorf("scan critiques: %w", err)
	}

	rows, err = q.Query(ctx,
		`SELECT id, round_id, agent_id, proposal_id, submitted_at
		 FROM votes WHERE round_id = $1 ORDER BY id`, roundID)
	if err != nil {
		return nil, fmt.Errorf("load votes of round %d: %w", roundID, err)
	}
	if snap.Votes, err = collect(rows, scanVote); err != nil {
		return nil, fmt.Errorf("scan votes: %w", err)
	}
	return snap, nil
}
