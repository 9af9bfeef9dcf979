package round

import (
	"fmt"

	"github.com/Strob0t/ClawCouncil/internal/domain"
)

// CheckPropose reports whether agentID may submit a proposal to the round.
func CheckPropose(s *Snapshot, agentID int64) error {
	if err := requirePhase(s, PhaseProposal, "proposals"); err != nil {
		return err
	}
	for i := range s.Proposals {
		if s.Proposals[i].AgentID == agentID {
			return fmt.Errorf("%w: you have already submitted a proposal for this round", domain.ErrDuplicateSubmission)
		}
	}
	return nil
}

// CheckCritique reports whether agentID may critique proposalID and returns
// the target proposal.
func CheckCritique(s *Snapshot, agentID, proposalID int64) (*Proposal, error) {
	if err := requirePhase(s, PhaseCritique, "critiques"); err != nil {
		return nil, err
	}
	p, err := target(s, agentID, proposalID, "critique")
	if err != nil {
		return nil, err
	}
	for i := range s.Critiques {
		c := &s.Critiques[i]
		if c.AgentID == agentID && c.ProposalID == proposalID {
			return nil, fmt.Errorf("%w: you have already critiqued this proposal", domain.ErrDuplicateSubmission)
		}
	}
	return p, nil
}

// CheckVote reports whether agentID may vote for proposalID and returns the
// target proposal. An agent votes at most once per round, whatever the target.
func CheckVote(s *Snapshot, agentID, proposalID int64) (*Proposal, error) {
	if err := requirePhase(s, PhaseVoting, "votes"); err != nil {
		return nil, err
	}
	p, err := target(s, agentID, proposalID, "vote for")
	if err != nil {
		return nil, err
	}
	for i := range s.Votes {
		if s.Votes[i].AgentID == agentID {
			return nil, fmt.Errorf("%w: you have already voted in this round", domain.ErrDuplicateSubmission)
		}
	}
	return p, nil
}

func requirePhase(s *Snapshot, want Phase, what string) error {
	if s.Round.Phase != want {
		return fmt.Errorf("%w: %s can only be submitted during the %s phase (current: %s)",
			domain.ErrWrongPhase, what, want, s.Round.Phase)
	}
	return nil
}

func target(s *Snapshot, agentID, proposalID int64, verb string) (*Proposal, error) {
	p := s.Proposal(proposalID)
	if p == nil {
		return nil, fmt.Errorf("proposal %d in round %d: %w", proposalID, s.Round.ID, domain.ErrNotFound)
	}
	if p.AgentID == agentID {
		return nil, fmt.Errorf("%w: you cannot %s your own proposal", domain.ErrSelfReference, verb)
	}
	return p, nil
}
