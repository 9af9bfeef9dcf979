package leaderboard_test

import (
	"testing"
	"time"

	"github.com/Strob0t/ClawCouncil/internal/domain/agent"
	"github.com/Strob0t/ClawCouncil/internal/domain/leaderboard"
)

func TestRank(t *testing.T) {
	agents := []agent.Agent{
		{ID: 3, Name: "c", TotalScore: 15},
		{ID: 1, Name: "a", TotalScore: 40},
		{ID: 2, Name: "b", TotalScore: 15},
		{ID: 4, Name: "d"},
	}
	asOf := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("x", 3600))
	b := leaderboard.Rank(agents, map[int64]int{1: 2, 2: 1, 3: 1}, asOf)

	wantIDs := []int64{1, 2, 3, 4}
	if len(b.Entries) != len(wantIDs) {
		t.Fatalf("entries = %d", len(b.Entries))
	}
	for i, id := range wantIDs {
		e := b.Entries[i]
		if e.AgentID != id || e.Rank != i+1 {
			t.Errorf("entry %d = %+v, want agent %d rank %d", i, e, id, i+1)
		}
	}
	if b.Entries[0].RoundsParticipated != 2 || b.Entries[3].RoundsParticipated != 0 {
		t.Errorf("participation not carried: %+v", b.Entries)
	}
	if b.AsOf.Location() != time.UTC {
		t.Error("as_of must be UTC")
	}
	if agents[0].ID != 3 {
		t.Error("input slice must not be reordered")
	}
}

func TestRank_Empty(t *testing.T) {
	b := leaderboard.Rank(nil, nil, time.Now())
	if b.Entries == nil || len(b.Entries) != 0 {
		t.Fatalf("entries = %#v", b.Entries)
	}
}
