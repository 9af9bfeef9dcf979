// Package scoring tallies a round's votes, selects its winners and computes
// the point awards written to the score-event ledger when the round closes.
package scoring

import (
	"slices"
	"time"

	"github.com/Strob0t/ClawCouncil/internal/domain/round"
)

// Reason classifies a score event.
type Reason string

const (
	ReasonParticipation Reason = "participation"
	ReasonWin           Reason = "win"
	ReasonCritiqueBonus Reason = "critique_bonus"
)

// Valid reports whether r is a known reason.
func (r Reason) Valid() bool {
	switch r {
	case ReasonParticipation, ReasonWin, ReasonCritiqueBonus:
		return true
	default:
		return false
	}
}

// Points holds the fixed value of each award.
type Points struct {
	Participation int `yaml:"participation"`
	Win           int `yaml:"win"`
	CritiqueBonus int `yaml:"critique_bonus"`
}

// DefaultPoints returns the standard award values.
func DefaultPoints() Points {
	return Points{Participation: 10, Win: 25, CritiqueBonus: 5}
}

// Award is one pending ledger entry.
type Award struct {
	AgentID int64  `json:"agent_id"`
	Reason  Reason `json:"reason"`
	Points  int    `json:"points"`
}

// Event is an immutable ledger entry.
type Event struct {
	ID        int64     `json:"id"`
	AgentID   int64     `json:"agent_id"`
	RoundID   int64     `json:"round_id"`
	Reason    Reason    `json:"reason"`
	Points    int       `json:"points"`
	CreatedAt time.Time `json:"created_at"`
}

// Result is the outcome of tallying one round.
type Result struct {
	VoteCounts       map[int64]int `json:"vote_counts"` // proposal ID -> votes
	MaxVotes         int           `json:"max_votes"`
	WinningProposals []int64       `json:"winning_proposals"`
	WinningAgents    []int64       `json:"winning_agents"`
	Awards           []Award       `json:"awards"`
}

// Tally counts votes per proposal, keeps every proposal tied at the maximum
// as a winner and computes the awards. Awards are ordered by reason, then
// agent ID. A maximum of zero selects no winners.
func Tally(proposals []round.Proposal, votes []round.Vote, critiques []round.Critique, pts Points) Result {
	counts := make(map[int64]int, len(proposals))
	for i := range proposals {
		counts[proposals[i].ID] = 0
	}
	for i := range votes {
		if _, ok := counts[votes[i].ProposalID]; ok {
			counts[votes[i].ProposalID]++
		}
	}

	maxVotes := 0
	for _, n := range counts {
		maxVotes = max(maxVotes, n)
	}

	res := Result{VoteCounts: counts, MaxVotes: maxVotes}

	proposers := make(map[int64]bool, len(proposals))
	winners := make(map[int64]bool)
	for i := range proposals {
		p := &proposals[i]
		proposers[p.AgentID] = true
		if maxVotes > 0 && counts[p.ID] == maxVotes {
			res.WinningProposals = append(res.WinningProposals, p.ID)
			winners[p.AgentID] = true
		}
	}
	critics := make(map[int64]bool, len(critiques))
	for i := range critiques {
		critics[critiques[i].AgentID] = true
	}

	slices.Sort(res.WinningProposals)
	res.WinningAgents = sortedKeys(winners)

	for _, id := range sortedKeys(proposers) {
		res.Awards = append(res.Awards, Award{AgentID: id, Reason: ReasonParticipation, Points: pts.Participation})
	}
	for _, id := range res.WinningAgents {
		res.Awards = append(res.Awards, Award{AgentID: id, Reason: ReasonWin, Points: pts.Win})
	}
	for _, id := range sortedKeys(proposers) {
		if critics[id] {
			res.Awards = append(res.Awards, Award{AgentID: id, Reason: ReasonCritiqueBonus, Points: pts.CritiqueBonus})
		}
	}
	return res
}

// Events turns the awards into ledger entries for roundID stamped at now.
func (r *Result) Events(roundID int64, now time.Time) []Event {
	events := make([]Event, 0, len(r.Awards))
	for _, a := range r.Awards {
		events = append(events, Event{
			AgentID:   a.AgentID,
			RoundID:   roundID,
			Reason:    a.Reason,
			Points:    a.Points,
			CreatedAt: now,
		})
	}
	return events
}

// Totals sums award points per agent.
func (r *Result) Totals() map[int64]int {
	totals := make(map[int64]int)
	for _, a := range r.Awards {
		totals[a.AgentID] += a.Points
	}
	return totals
}

func sortedKeys(set map[int64]bool) []int64 {
	keys := make([]int64, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
