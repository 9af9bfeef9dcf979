package postgres

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/Strob0t/ClawCouncil/internal/domain/activity"
)

// AgentActivity runs the four per-kind feed queries concurrently on the pool.
func (s *Store) AgentActivity(ctx context.Context, agentID int64, limit int) (*activity.Feeds, error) {
	var f activity.Feeds
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		rows, err := s.pool.Query(gctx,
			`SELECT p.id, p.round_id, p.agent_id, a.name, p.content, p.submitted_at, p.vote_count
			 FROM proposals p JOIN agents a ON a.id = p.agent_id
			 WHERE p.agent_id = $1 ORDER BY p.submitted_at DESC, p.id DESC LIMIT $2`, agentID, limit)
		if err != nil {
			return fmt.Errorf("activity proposals: %w", err)
		}
		f.Proposals, err = collect(rows, scanProposal)
		return err
	})
	g.Go(func() error {
		rows, err := s.pool.Query(gctx,
			`SELECT c.id, c.round_id, c.agent_id, a.name, c.proposal_id, c.content, c.submitted_at
			 FROM critiques c JOIN agents a ON a.id = c.agent_id
			 WHERE c.agent_id = $1 ORDER BY c.submitted_at DESC, c.id DESC LIMIT $2`, agentID, limit)
		if err != nil {
			return fmt.Errorf("activity critiques: %w", err)
		}
		f.Critiques, err = collect(rows, scanCritique)
		return err
	})
	g.Go(func() error {
		rows, err := s.pool.Query(gctx,
			`SELECT id, round_id, agent_id, proposal_id, submitted_at
			 FROM votes WHERE agent_id = $1 ORDER BY submitted_at DESC, id DESC LIMIT $2`, agentID, limit)
		if err != nil {
			return fmt.Errorf("activity votes: %w", err)
		}
		f.Votes, err = collect(rows, scanVote)
		return err
	})
	g.Go(func() error {
		rows, err := s.pool.Query(gctx,
			`SELECT `+scoreEventColumns+` FROM score_events
			 WHERE agent_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`, agentID, limit)
		if err != nil {
			return fmt.Errorf("activity score events: %w", err)
		}
		f.Events, err = collect(rows, scanScoreEvent)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &f, nil
}
