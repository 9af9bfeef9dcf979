// Package service implements the council's use cases on top of ports.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	cfotel "github.com/Strob0t/ClawCouncil/internal/adapter/otel"
	"github.com/Strob0t/ClawCouncil/internal/domain"
	"github.com/Strob0t/ClawCouncil/internal/domain/event"
	"github.com/Strob0t/ClawCouncil/internal/domain/round"
	"github.com/Strob0t/ClawCouncil/internal/domain/scoring"
	"github.com/Strob0t/ClawCouncil/internal/domain/transition"
	"github.com/Strob0t/ClawCouncil/internal/port/database"
	"github.com/Strob0t/ClawCouncil/internal/port/messagequeue"
)

// RoundConfig holds the game parameters.
type RoundConfig struct {
	Limits round.Limits
	Points scoring.Points
}

// RoundService runs submissions and phase transitions. Every write goes
// through one database unit of work that holds the round lock while the
// guard runs.
type RoundService struct {
	store   database.Store
	events  *EventPublisher
	scores  *ScoreService
	cfg     RoundConfig
	metrics *cfotel.Metrics
	now     func() time.Time
}

// NewRoundService creates a new RoundService.
func NewRoundService(store database.Store, events *EventPublisher, scores *ScoreService, cfg RoundConfig) *RoundService {
	return &RoundService{
		store:  store,
		events: events,
		scores: scores,
		cfg:    cfg,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// SetMetrics attaches metric instruments.
func (s *RoundService) SetMetrics(m *cfotel.Metrics) {
	s.metrics = m
}

// Create opens a new round in the proposal phase.
func (s *RoundService) Create(ctx context.Context, agentID int64, req round.CreateRequest) (*round.Round, error) {
	if err := req.Validate(s.cfg.Limits); err != nil {
		return nil, err
	}
	r, err := s.store.CreateRound(ctx, req.Prompt, agentID)
	if err != nil {
		return nil, fmt.Errorf("create round: %w", err)
	}
	if s.metrics != nil {
		s.metrics.RoundsCreated.Add(ctx, 1)
	}
	slog.InfoContext(ctx, "round created", "round_id", r.ID)
	s.events.Publish(ctx, event.TypeRoundCreated, r.ID, agentID, map[string]string{"prompt": r.Prompt})
	return r, nil
}

// List returns all rounds, newest first.
func (s *RoundService) List(ctx context.Context) ([]round.Round, error) {
	return s.store.ListRounds(ctx)
}

// State returns the full read model of a round.
func (s *RoundService) State(ctx context.Context, roundID int64) (*round.State, error) {
	snap, err := s.store.LoadSnapshot(ctx, roundID)
	if err != nil {
		return nil, err
	}
	return round.NewState(snap), nil
}

// Proposals lists the round's proposals.
func (s *RoundService) Proposals(ctx context.Context, roundID int64) ([]round.Proposal, error) {
	st, err := s.State(ctx, roundID)
	if err != nil {
		return nil, err
	}
	return st.Proposals, nil
}

// Proposal returns one proposal of the round.
func (s *RoundService) Proposal(ctx context.Context, roundID, proposalID int64) (*round.Proposal, error) {
	snap, err := s.store.LoadSnapshot(ctx, roundID)
	if err != nil {
		return nil, err
	}
	p := snap.Proposal(proposalID)
	if p == nil {
		return nil, fmt.Errorf("proposal %d in round %d: %w", proposalID, roundID, domain.ErrNotFound)
	}
	return p, nil
}

// Critiques lists the round's critiques.
func (s *RoundService) Critiques(ctx context.Context, roundID int64) ([]round.Critique, error) {
	st, err := s.State(ctx, roundID)
	if err != nil {
		return nil, err
	}
	return st.Critiques, nil
}

// Votes lists the round's votes.
func (s *RoundService) Votes(ctx context.Context, roundID int64) ([]round.Vote, error) {
	st, err := s.State(ctx, roundID)
	if err != nil {
		return nil, err
	}
	return st.Votes, nil
}

// SubmitProposal records the agent's proposal for the round.
func (s *RoundService) SubmitProposal(ctx context.Context, roundID, agentID int64, req round.ProposalRequest) (*round.Proposal, error) {
	if err := req.Validate(s.cfg.Limits); err != nil {
		return nil, err
	}
	var p *round.Proposal
	err := s.inRound(ctx, "propose", roundID, agentID, func(ctx context.Context, snap *round.Snapshot, tx database.RoundTx) error {
		if err := round.CheckPropose(snap, agentID); err != nil {
			return err
		}
		var err error
		p, err = tx.InsertProposal(ctx, agentID, req.Content)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.submitted(ctx, roundID, agentID, event.SubmissionPayload{Kind: "proposal", ID: p.ID})
	return p, nil
}

// SubmitCritique records the agent's critique of another agent's proposal.
func (s *RoundService) SubmitCritique(ctx context.Context, roundID, agentID int64, req round.CritiqueRequest) (*round.Critique, error) {
	if err := req.Validate(s.cfg.Limits); err != nil {
		return nil, err
	}
	var c *round.Critique
	err := s.inRound(ctx, "critique", roundID, agentID, func(ctx context.Context, snap *round.Snapshot, tx database.RoundTx) error {
		if _, err := round.CheckCritique(snap, agentID, req.ProposalID); err != nil {
			return err
		}
		var err error
		c, err = tx.InsertCritique(ctx, agentID, req.ProposalID, req.Content)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.submitted(ctx, roundID, agentID, event.SubmissionPayload{Kind: "critique", ID: c.ID, ProposalID: c.ProposalID})
	return c, nil
}

// CastVote records the agent's single vote in the round.
func (s *RoundService) CastVote(ctx context.Context, roundID, agentID int64, req round.VoteRequest) (*round.Vote, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var v *round.Vote
	err := s.inRound(ctx, "vote", roundID, agentID, func(ctx context.Context, snap *round.Snapshot, tx database.RoundTx) error {
		if _, err := round.CheckVote(snap, agentID, req.ProposalID); err != nil {
			return err
		}
		var err error
		v, err = tx.InsertVote(ctx, agentID, req.ProposalID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.submitted(ctx, roundID, agentID, event.SubmissionPayload{Kind: "vote", ID: v.ID, ProposalID: v.ProposalID})
	return v, nil
}

// Advance moves the round to its next phase. Closing tallies the votes and
// writes the vote counts, the score events and the agent totals in the same
// unit of work as the phase change.
func (s *RoundService) Advance(ctx context.Context, roundID, agentID int64) (*transition.Outcome, error) {
	start := time.Now()
	var out *transition.Outcome
	err := s.inRound(ctx, "advance", roundID, agentID, func(ctx context.Context, snap *round.Snapshot, tx database.RoundTx) error {
		o, err := transition.Decide(snap, s.cfg.Points)
		if err != nil {
			return err
		}
		if o.NewPhase != round.PhaseClosed {
			if err := tx.SetPhase(ctx, o.NewPhase, nil); err != nil {
				return err
			}
			out = o
			return nil
		}

		now := s.now()
		if err := tx.SetVoteCounts(ctx, o.Score.VoteCounts); err != nil {
			return err
		}
		if _, err := tx.AppendScoreEvents(ctx, o.Score.Events(roundID, now)); err != nil {
			return err
		}
		if err := tx.SetPhase(ctx, round.PhaseClosed, &now); err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordAdvance(ctx, out, time.Since(start))
	slog.InfoContext(ctx, "round advanced", "round_id", roundID,
		"from", out.PreviousPhase.String(), "to", out.NewPhase.String())

	payload := messagequeue.AdvancedPayload{
		PreviousPhase: out.PreviousPhase.String(),
		NewPhase:      out.NewPhase.String(),
		Message:       out.Message,
	}
	if out.NewPhase == round.PhaseClosed {
		s.scores.InvalidateLeaderboard(ctx)
		s.events.Publish(ctx, event.TypeRoundClosed, roundID, agentID, payload)
	} else {
		s.events.Publish(ctx, event.TypeRoundAdvanced, roundID, agentID, payload)
	}
	return out, nil
}

// inRound runs fn in the round's unit of work under a span and counts
// rejected writes.
func (s *RoundService) inRound(ctx context.Context, op string, roundID, agentID int64, fn func(context.Context, *round.Snapshot, database.RoundTx) error) error {
	ctx, span := cfotel.StartRoundSpan(ctx, op, roundID, agentID)
	err := s.store.InRound(ctx, roundID, fn)
	cfotel.EndSpan(span, err)
	if err != nil {
		if reason := rejectReason(err); reason != "" {
			s.metrics.Rejected(ctx, op, reason)
			slog.DebugContext(ctx, "write rejected", "op", op, "round_id", roundID, "reason", reason, "error", err)
		}
		return err
	}
	return nil
}

func (s *RoundService) submitted(ctx context.Context, roundID, agentID int64, payload event.SubmissionPayload) {
	s.metrics.Submission(ctx, payload.Kind)
	slog.InfoContext(ctx, "submission accepted", "round_id", roundID, "kind", payload.Kind, "id", payload.ID)
	s.events.Publish(ctx, event.TypeSubmissionCreated, roundID, agentID, payload)
}

func (s *RoundService) recordAdvance(ctx context.Context, out *transition.Outcome, took time.Duration) {
	if s.metrics == nil {
		return
	}
	phase := metric.WithAttributes(attribute.String("to", out.NewPhase.String()))
	s.metrics.Advances.Add(ctx, 1, phase)
	s.metrics.AdvanceLatency.Record(ctx, took.Seconds(), phase)
	if out.Score == nil {
		return
	}
	s.metrics.RoundsClosed.Add(ctx, 1)
	total := 0
	for _, a := range out.Score.Awards {
		total += a.Points
	}
	s.metrics.PointsAwarded.Add(ctx, int64(total))
}

// rejectReason names the guard that refused a write, or "" for
// unclassified failures.
func rejectReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrWrongPhase):
		return "wrong_phase"
	case errors.Is(err, domain.ErrDuplicateSubmission):
		return "duplicate"
	case errors.Is(err, domain.ErrSelfReference):
		return "self_reference"
	case errors.Is(err, domain.ErrQuorumNotMet):
		return "quorum_not_met"
	case errors.Is(err, domain.ErrAlreadyClosed):
		return "already_closed"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	default:
		return ""
	}
}
