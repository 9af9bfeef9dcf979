// Package activity merges an agent's proposals, critiques, votes and score
// events into one reverse-chronological feed.
package activity

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/Strob0t/ClawCouncil/internal/domain/round"
	"github.com/Strob0t/ClawCouncil/internal/domain/scoring"
)

// Kind is the type of an activity item.
type Kind string

const (
	KindProposal Kind = "proposal"
	KindCritique Kind = "critique"
	KindVote     Kind = "vote"
	KindScore    Kind = "score"
)

// Item is one entry of the feed.
type Item struct {
	Kind       Kind      `json:"kind"`
	ID         int64     `json:"id"`
	RoundID    int64     `json:"round_id"`
	ProposalID int64     `json:"proposal_id,omitempty"`
	Summary    string    `json:"summary"`
	Points     int       `json:"points,omitempty"`
	At         time.Time `json:"at"`
}

// Feeds holds the raw per-kind records of one agent, each already limited
// to the most recent entries.
type Feeds struct {
	Proposals []round.Proposal
	Critiques []round.Critique
	Votes     []round.Vote
	Events    []scoring.Event
}

// SummaryLength is the number of runes of content kept in summaries.
const SummaryLength = 120

// Merge flattens f, sorts newest first and returns at most limit items.
// Items with equal timestamps are ordered by kind, then ID descending.
func Merge(f Feeds, limit int) []Item {
	items := make([]Item, 0, len(f.Proposals)+len(f.Critiques)+len(f.Votes)+len(f.Events))
	for i := range f.Proposals {
		p := &f.Proposals[i]
		items = append(items, Item{Kind: KindProposal, ID: p.ID, RoundID: p.RoundID, Summary: truncate(p.Content), At: p.SubmittedAt})
	}
	for i := range f.Critiques {
		c := &f.Critiques[i]
		items = append(items, Item{Kind: KindCritique, ID: c.ID, RoundID: c.RoundID, ProposalID: c.ProposalID, Summary: truncate(c.Content), At: c.SubmittedAt})
	}
	for i := range f.Votes {
		v := &f.Votes[i]
		items = append(items, Item{Kind: KindVote, ID: v.ID, RoundID: v.RoundID, ProposalID: v.ProposalID,
			Summary: fmt.Sprintf("voted for proposal %d", v.ProposalID), At: v.SubmittedAt})
	}
	for i := range f.Events {
		e := &f.Events[i]
		items = append(items, Item{Kind: KindScore, ID: e.ID, RoundID: e.RoundID,
			Summary: fmt.Sprintf("+%d %s", e.Points, e.Reason), Points: e.Points, At: e.CreatedAt})
	}

	slices.SortFunc(items, func(a, b Item) int {
		if c := b.At.Compare(a.At); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Kind, b.Kind); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	if limit >= 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) <= SummaryLength {
		return s
	}
	return string(r[:SummaryLength]) + "..."
}
