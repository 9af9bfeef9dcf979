// Package transition implements the round phase state machine:
// proposal -> critique -> voting -> closed, each step gated by a quorum
// precondition. Closing a round runs the scoring tally.
package transition

import (
	"fmt"
	"slices"
	"strings"

	"github.com/Strob0t/ClawCouncil/internal/domain"
	"github.com/Strob0t/ClawCouncil/internal/domain/round"
	"github.com/Strob0t/ClawCouncil/internal/domain/scoring"
)

// MinProposals is the quorum for leaving the proposal phase.
const MinProposals = 2

// Outcome is a decided transition. Score is set only when closing.
type Outcome struct {
	RoundID       int64           `json:"round_id"`
	PreviousPhase round.Phase     `json:"previous_phase"`
	NewPhase      round.Phase     `json:"new_phase"`
	Message       string          `json:"message"`
	Score         *scoring.Result `json:"-"`
}

// Decide computes the next transition for the round in s without mutating
// it. A returned error means the round must stay where it is.
func Decide(s *round.Snapshot, pts scoring.Points) (*Outcome, error) {
	out := &Outcome{RoundID: s.Round.ID, PreviousPhase: s.Round.Phase}

	switch s.Round.Phase {
	case round.PhaseProposal:
		if n := len(s.Proposals); n < MinProposals {
			return nil, fmt.Errorf("%w: need at least %d proposals (have %d)", domain.ErrQuorumNotMet, MinProposals, n)
		}
		out.NewPhase = round.PhaseCritique
		out.Message = fmt.Sprintf("Advanced to critique phase with %d proposals.", len(s.Proposals))

	case round.PhaseCritique:
		if missing := MissingCritics(s); len(missing) > 0 {
			return nil, fmt.Errorf("%w: the following agents have not submitted a critique yet: %s",
				domain.ErrQuorumNotMet, strings.Join(missing, ", "))
		}
		out.NewPhase = round.PhaseVoting
		out.Message = "Advanced to voting phase."

	case round.PhaseVoting:
		if len(s.Votes) == 0 {
			return nil, fmt.Errorf("%w: no votes have been cast yet", domain.ErrQuorumNotMet)
		}
		res := scoring.Tally(s.Proposals, s.Votes, s.Critiques, pts)
		out.NewPhase = round.PhaseClosed
		out.Score = &res
		out.Message = closeMessage(s, &res)

	case round.PhaseClosed:
		return nil, fmt.Errorf("round %d: %w", s.Round.ID, domain.ErrAlreadyClosed)

	default:
		return nil, fmt.Errorf("round %d has invalid phase %s", s.Round.ID, s.Round.Phase)
	}
	return out, nil
}

// MissingCritics returns the names of proposing agents with no critique in
// the round, sorted.
func MissingCritics(s *round.Snapshot) []string {
	critics := s.Critics()
	names := s.AgentNames()
	var missing []string
	for id := range s.Proposers() {
		if !critics[id] {
			missing = append(missing, nameOf(names, id))
		}
	}
	slices.Sort(missing)
	return missing
}

func closeMessage(s *round.Snapshot, res *scoring.Result) string {
	if len(res.WinningAgents) == 0 {
		return "Round closed. No votes were cast; participation points awarded."
	}
	names := s.AgentNames()
	winners := make([]string, 0, len(res.WinningAgents))
	for _, id := range res.WinningAgents {
		winners = append(winners, nameOf(names, id))
	}
	slices.Sort(winners)
	return fmt.Sprintf("Round closed. Winner(s): %s. Scores awarded.", strings.Join(winners, ", "))
}

func nameOf(names map[int64]string, id int64) string {
	if n := names[id]; n != "" {
		return n
	}
	return fmt.Sprintf("agent %d", id)
}
