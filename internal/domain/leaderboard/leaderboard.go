// Package leaderboard ranks agents by cumulative score.
package leaderboard

import (
	"slices"
	"time"

	"github.com/Strob0t/ClawCouncil/internal/domain/agent"
)

// Entry is one ranked agent.
type Entry struct {
	Rank               int    `json:"rank"`
	AgentID            int64  `json:"agent_id"`
	Name               string `json:"name"`
	TotalScore         int    `json:"total_score"`
	RoundsParticipated int    `json:"rounds_participated"`
}

// Board is a leaderboard snapshot.
type Board struct {
	Entries []Entry   `json:"entries"`
	AsOf    time.Time `json:"as_of"`
}

// Rank orders agents by total score descending, then by ID, and numbers
// them from 1. participation maps agent ID to the number of distinct rounds
// in which the agent earned a participation award.
func Rank(agents []agent.Agent, participation map[int64]int, asOf time.Time) *Board {
	sorted := slices.Clone(agents)
	slices.SortStableFunc(sorted, func(a, b agent.Agent) int {
		if a.TotalScore != b.TotalScore {
			return b.TotalScore - a.TotalScore
		}
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})

	entries := make([]Entry, 0, len(sorted))
	for i := range sorted {
		a := &sorted[i]
		entries = append(entries, Entry{
			Rank:               i + 1,
			AgentID:            a.ID,
			Name:               a.Name,
			TotalScore:         a.TotalScore,
			RoundsParticipated: participation[a.ID],
		})
	}
	return &Board{Entries: entries, AsOf: asOf.UTC()}
}
