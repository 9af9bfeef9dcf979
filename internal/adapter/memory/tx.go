package memory

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/Strob0t/ClawCouncil/internal/domain"
	"github.com/Strob0t/ClawCouncil/internal/domain/round"
	"github.com/Strob0t/ClawCouncil/internal/domain/scoring"
)

// roundTx buffers the writes of one InRound call. The round lock is held
// for its whole lifetime, so the snapshot plus the pending rows are the
// complete view of the round.
type roundTx struct {
	store   *Store
	roundID int64
	snap    *round.Snapshot

	proposals  []round.Proposal
	critiques  []round.Critique
	votes      []round.Vote
	events     []scoring.Event
	phase      *round.Phase
	closedAt   *time.Time
	voteCounts map[int64]int
}

func (t *roundTx) agentName(agentID int64) (string, error) {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	a, ok := t.store.agents[agentID]
	if !ok {
		return "", fmt.Errorf("agent %d: %w", agentID, domain.ErrNotFound)
	}
	return a.Name, nil
}

func (t *roundTx) stamp() (int64, time.Time) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	return t.store.nextID(), t.store.now()
}

func (t *roundTx) hasProposal(proposalID int64) bool {
	if t.snap.Proposal(proposalID) != nil {
		return true
	}
	for i := range t.proposals {
		if t.proposals[i].ID == proposalID {
			return true
		}
	}
	return false
}

func (t *roundTx) InsertProposal(_ context.Context, agentID int64, content string) (*round.Proposal, error) {
	name, err := t.agentName(agentID)
	if err != nil {
		return nil, fmt.Errorf("insert proposal: %w", err)
	}
	for _, p := range slices.Concat(t.snap.Proposals, t.proposals) {
		if p.AgentID == agentID {
			return nil, fmt.Errorf("%w: duplicate proposal", domain.ErrDuplicateSubmission)
		}
	}
	id, now := t.stamp()
	p := round.Proposal{ID: id, RoundID: t.roundID, AgentID: agentID, AgentName: name, Content: content, SubmittedAt: now}
	t.proposals = append(t.proposals, p)
	return &p, nil
}

func (t *roundTx) InsertCritique(_ context.Context, agentID, proposalID int64, content string) (*round.Critique, error) {
	name, err := t.agentName(agentID)
	if err != nil {
		return nil, fmt.Errorf("insert critique: %w", err)
	}
	if !t.hasProposal(proposalID) {
		return nil, fmt.Errorf("insert critique: proposal %d: %w", proposalID, domain.ErrNotFound)
	}
	for _, c := range slices.Concat(t.snap.Critiques, t.critiques) {
		if c.AgentID == agentID && c.ProposalID == proposalID {
			return nil, fmt.Errorf("%w: duplicate critique", domain.ErrDuplicateSubmission)
		}
	}
	id, now := t.stamp()
	c := round.Critique{ID: id, RoundID: t.roundID, AgentID: agentID, AgentName: name, ProposalID: proposalID, Content: content, SubmittedAt: now}
	t.critiques = append(t.critiques, c)
	return &c, nil
}

func (t *roundTx) InsertVote(_ context.Context, agentID, proposalID int64) (*round.Vote, error) {
	if _, err := t.agentName(agentID); err != nil {
		return nil, fmt.Errorf("insert vote: %w", err)
	}
	if !t.hasProposal(proposalID) {
		return nil, fmt.Errorf("insert vote: proposal %d: %w", proposalID, domain.ErrNotFound)
	}
	for _, v := range slices.Concat(t.snap.Votes, t.votes) {
		if v.AgentID == agentID {
			return nil, fmt.Errorf("%w: duplicate vote", domain.ErrDuplicateSubmission)
		}
	}
	id, now := t.stamp()
	v := round.Vote{ID: id, RoundID: t.roundID, AgentID: agentID, ProposalID: proposalID, SubmittedAt: now}
	t.votes = append(t.votes, v)
	return &v, nil
}

func (t *roundTx) SetPhase(_ context.Context, phase round.Phase, closedAt *time.Time) error {
	t.phase = &phase
	if closedAt != nil {
		at := closedAt.UTC()
		t.closedAt = &at
	}
	return nil
}

func (t *roundTx) SetVoteCounts(_ context.Context, counts map[int64]int) error {
	for id := range counts {
		if !t.hasProposal(id) {
			return fmt.Errorf("set vote count of proposal %d: %w", id, domain.ErrNotFound)
		}
	}
	t.voteCounts = make(map[int64]int, len(counts))
	for id, n := range counts {
		t.voteCounts[id] = n
	}
	return nil
}

func (t *roundTx) AppendScoreEvents(_ context.Context, events []scoring.Event) ([]scoring.Event, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	out := make([]scoring.Event, 0, len(events))
	for _, e := range events {
		if e.RoundID != t.roundID {
			return nil, fmt.Errorf("score event for round %d appended in round %d", e.RoundID, t.roundID)
		}
		if _, ok := t.store.agents[e.AgentID]; !ok {
			return nil, fmt.Errorf("insert score event: agent %d: %w", e.AgentID, domain.ErrNotFound)
		}
		if t.store.scoredLocked(e.RoundID, e.AgentID, e.Reason) || containsAward(t.events, e) || containsAward(out, e) {
			return nil, fmt.Errorf("%w: round %d already scored", domain.ErrAlreadyClosed, t.roundID)
		}
		e.ID = t.store.nextID()
		if e.CreatedAt.IsZero() {
			e.CreatedAt = t.store.now()
		}
		out = append(out, e)
	}
	t.events = append(t.events, out...)
	return out, nil
}

func containsAward(events []scoring.Event, e scoring.Event) bool {
	for i := range events {
		if events[i].AgentID == e.AgentID && events[i].Reason == e.Reason {
			return true
		}
	}
	return false
}

// scoredLocked reports whether the ledger already holds the award. Caller
// holds mu.
func (s *Store) scoredLocked(roundID, agentID int64, reason scoring.Reason) bool {
	for i := range s.events {
		e := &s.events[i]
		if e.RoundID == roundID && e.AgentID == agentID && e.Reason == reason {
			return true
		}
	}
	return false
}

// commit applies every buffered write in one critical section.
func (t *roundTx) commit() error {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rounds[t.roundID]
	if !ok {
		return fmt.Errorf("commit round %d: %w", t.roundID, domain.ErrNotFound)
	}
	s.proposals = append(s.proposals, t.proposals...)
	s.critiques = append(s.critiques, t.critiques...)
	s.votes = append(s.votes, t.votes...)
	for i := range s.proposals {
		p := &s.proposals[i]
		if n, ok := t.voteCounts[p.ID]; ok && p.RoundID == t.roundID {
			p.VoteCount = n
		}
	}
	for _, e := range t.events {
		s.agents[e.AgentID].TotalScore += e.Points
	}
	s.events = append(s.events, t.events...)
	if t.phase != nil {
		r.Phase = *t.phase
	}
	if t.closedAt != nil {
		at := *t.closedAt
		r.ClosedAt = &at
	}
	return nil
}
