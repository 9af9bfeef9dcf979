package activity_test

import (
	"strings"
	"testing"
	"time"

	"github.com/Strob0t/ClawCouncil/internal/domain/activity"
	"github.com/Strob0t/ClawCouncil/internal/domain/round"
	"github.com/Strob0t/ClawCouncil/internal/domain/scoring"
)

func TestMerge(t *testing.T) {
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	f := activity.Feeds{
		Proposals: []round.Proposal{{ID: 1, RoundID: 1, Content: "first", SubmittedAt: base}},
		Critiques: []round.Critique{{ID: 2, RoundID: 1, ProposalID: 5, Content: "meh", SubmittedAt: base.Add(time.Minute)}},
		Votes:     []round.Vote{{ID: 3, RoundID: 1, ProposalID: 5, SubmittedAt: base.Add(2 * time.Minute)}},
		Events: []scoring.Event{
			{ID: 4, RoundID: 1, Reason: scoring.ReasonParticipation, Points: 10, CreatedAt: base.Add(3 * time.Minute)},
			{ID: 5, RoundID: 1, Reason: scoring.ReasonWin, Points: 25, CreatedAt: base.Add(3 * time.Minute)},
		},
	}

	items := activity.Merge(f, 10)
	if len(items) != 5 {
		t.Fatalf("items = %d", len(items))
	}
	wantKinds := []activity.Kind{activity.KindScore, activity.KindScore, activity.KindVote, activity.KindCritique, activity.KindProposal}
	for i, k := range wantKinds {
		if items[i].Kind != k {
			t.Errorf("item %d kind = %s, want %s", i, items[i].Kind, k)
		}
	}
	// Same timestamp: higher ID first.
	if items[0].ID != 5 {
		t.Errorf("tie order: got ID %d first", items[0].ID)
	}
	if items[0].Summary != "+25 win" {
		t.Errorf("summary = %q", items[0].Summary)
	}

	if got := activity.Merge(f, 2); len(got) != 2 {
		t.Errorf("limit 2: got %d", len(got))
	}
}

func TestMerge_TruncatesContent(t *testing.T) {
	long := strings.Repeat("x", activity.SummaryLength+10)
	items := activity.Merge(activity.Feeds{Proposals: []round.Proposal{{ID: 1, Content: long}}}, 5)
	if !strings.HasSuffix(items[0].Summary, "...") {
		t.Errorf("summary not truncated: %d runes", len(items[0].Summary))
	}
}
