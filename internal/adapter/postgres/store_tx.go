package postgres

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Strob0t/ClawCouncil/internal/domain"
	"github.com/Strob0t/ClawCouncil/internal/domain/round"
	"github.com/Strob0t/ClawCouncil/internal/domain/scoring"
	"github.com/Strob0t/ClawCouncil/internal/port/database"
)

// InRound locks the round row with SELECT ... FOR UPDATE, hands fn the
// snapshot read under that lock and commits only if fn succeeds.
func (s *Store) InRound(ctx context.Context, roundID int64, fn func(context.Context, *round.Snapshot, database.RoundTx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	snap, err := loadSnapshot(ctx, tx, roundID, true)
	if err != nil {
		return err
	}
	if err := fn(ctx, snap, &roundTx{tx: tx, roundID: roundID}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit round %d: %w", roundID, err)
	}
	return nil
}

// roundTx implements database.RoundTx on an open pgx transaction.
type roundTx struct {
	tx      pgx.Tx
	roundID int64
}

// insertErr classifies a failed submission insert.
func insertErr(err error, what string) error {
	switch {
	case isUniqueViolation(err):
		return fmt.Errorf("%w: duplicate %s", domain.ErrDuplicateSubmission, what)
	case isForeignKeyViolation(err):
		return fmt.Errorf("insert %s: referenced record: %w", what, domain.ErrNotFound)
	default:
		return fmt.Errorf("insert %s: %w", what, err)
	}
}

func (t *roundTx) InsertProposal(ctx context.Context, agentID int64, content string) (*round.Proposal, error) {
	p, err := scanProposal(t.tx.QueryRow(ctx,
		`WITH ins AS (
		     INSERT INTO proposals (round_id, agent_id, content) VALUES ($1, $2, $3)
		     RETURNING id, round_id, agent_id, content, submitted_at, vote_count)
		 SELECT ins.id, ins.round_id, ins.agent_id, a.name, ins.content, ins.submitted_at, ins.vote_count
		 FROM ins JOIN agents a ON a.id = ins.agent_id`,
		t.roundID, agentID, content))
	if err != nil {
		return nil, insertErr(err, "proposal")
	}
	return &p, nil
}

func (t *roundTx) InsertCritique(ctx context.Context, agentID, proposalID int64, content string) (*round.Critique, error) {
	c, err := scanCritique(t.tx.QueryRow(ctx,
		`WITH ins AS (
		     INSERT INTO critiques (round_id, agent_id, proposal_id, content) VALUES ($1, $2, $3, $4)
		     RETURNING id, round_id, agent_id, proposal_id, content, submitted_at)
		 SELECT ins.id, ins.round_id, ins.agent_id, a.name, ins.proposal_id, ins.content, ins.submitted_at
		 FROM ins JOIN agents a ON a.id = ins.agent_id`,
		t.roundID, agentID, proposalID, content))
	if err != nil {
		return nil, insertErr(err, "critique")
	}
	return &c, nil
}

func (t *roundTx) InsertVote(ctx context.Context, agentID, proposalID int64) (*round.Vote, error) {
	v, err := scanVote(t.tx.QueryRow(ctx,
		`INSERT INTO votes (round_id, agent_id, proposal_id) VALUES ($1, $2, $3)
		 RETURNING id, round_id, agent_id, proposal_id, submitted_at`,
		t.roundID, agentID, proposalID))
	if err != nil {
		return nil, insertErr(err, "vote")
	}
	return &v, nil
}

func (t *roundTx) SetPhase(ctx context.Context, phase round.Phase, closedAt *time.Time) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE rounds SET phase = $2, closed_at = COALESCE($3, closed_at) WHERE id = $1`,
		t.roundID, phase.String(), closedAt)
	return execExpectOne(tag, err, "set phase of round %d", t.roundID)
}

func (t *roundTx) SetVoteCounts(ctx context.Context, counts map[int64]int) error {
	ids := make([]int64, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	b := &pgx.Batch{}
	for _, id := range ids {
		b.Queue(`UPDATE proposals SET vote_count = $3 WHERE id = $1 AND round_id = $2`, id, t.roundID, counts[id])
	}
	br := t.tx.SendBatch(ctx, b)
	for _, id := range ids {
		tag, err := br.Exec()
		if err := execExpectOne(tag, err, "set vote count of proposal %d", id); err != nil {
			_ = br.Close()
			return err
		}
	}
	return br.Close()
}

func (t *roundTx) AppendScoreEvents(ctx context.Context, events []scoring.Event) ([]scoring.Event, error) {
	out := make([]scoring.Event, 0, len(events))
	totals := make(map[int64]int)
	for _, e := range events {
		if e.RoundID != t.roundID {
			return nil, fmt.Errorf("score event for round %d appended in round %d", e.RoundID, t.roundID)
		}
		err := t.tx.QueryRow(ctx,
			`INSERT INTO score_events (agent_id, round_id, reason, points, created_at)
			 VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`,
			e.AgentID, e.RoundID, string(e.Reason), e.Points, e.CreatedAt,
		).Scan(&e.ID, &e.CreatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return nil, fmt.Errorf("%w: round %d already scored", domain.ErrAlreadyClosed, t.roundID)
			}
			return nil, fmt.Errorf("insert score event: %w", err)
		}
		totals[e.AgentID] += e.Points
		out = append(out, e)
	}

	// Lock agent rows in ID order so concurrent closes cannot deadlock.
	ids := make([]int64, 0, len(totals))
	for id := range totals {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		tag, err := t.tx.Exec(ctx,
			`UPDATE agents SET total_score = total_score + $2 WHERE id = $1`, id, totals[id])
		if err := execExpectOne(tag, err, "add score to agent %d", id); err != nil {
			return nil, err
		}
	}
	return out, nil
}
