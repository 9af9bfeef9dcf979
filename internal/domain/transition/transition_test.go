package transition_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/Strob0t/ClawCouncil/internal/domain"
	"github.com/Strob0t/ClawCouncil/internal/domain/round"
	"github.com/Strob0t/ClawCouncil/internal/domain/scoring"
	"github.com/Strob0t/ClawCouncil/internal/domain/transition"
)

func twoProposals(phase round.Phase) *round.Snapshot {
	return &round.Snapshot{
		Round: round.Round{ID: 1, Prompt: "Scoring test", Phase: phase},
		Proposals: []round.Proposal{
			{ID: 1, RoundID: 1, AgentID: 1, AgentName: "A"},
			{ID: 2, RoundID: 1, AgentID: 2, AgentName: "B"},
		},
	}
}

func TestDecide_ProposalQuorum(t *testing.T) {
	for _, n := range []int{0, 1} {
		s := twoProposals(round.PhaseProposal)
		s.Proposals = s.Proposals[:n]
		_, err := transition.Decide(s, scoring.DefaultPoints())
		if !errors.Is(err, domain.ErrQuorumNotMet) {
			t.Fatalf("%d proposals: got %v, want ErrQuorumNotMet", n, err)
		}
		if s.Round.Phase != round.PhaseProposal {
			t.Fatalf("phase changed to %s", s.Round.Phase)
		}
	}

	out, err := transition.Decide(twoProposals(round.PhaseProposal), scoring.DefaultPoints())
	if err != nil {
		t.Fatal(err)
	}
	if out.PreviousPhase != round.PhaseProposal || out.NewPhase != round.PhaseCritique {
		t.Errorf("got %s -> %s", out.PreviousPhase, out.NewPhase)
	}
	if out.Message != "Advanced to critique phase with 2 proposals." {
		t.Errorf("message = %q", out.Message)
	}
}

func TestDecide_CritiqueCoverage(t *testing.T) {
	s := twoProposals(round.PhaseCritique)
	s.Critiques = []round.Critique{{ID: 1, AgentID: 1, AgentName: "A", ProposalID: 2}}

	_, err := transition.Decide(s, scoring.DefaultPoints())
	if !errors.Is(err, domain.ErrQuorumNotMet) {
		t.Fatalf("got %v", err)
	}
	if !strings.Contains(err.Error(), "have not submitted a critique yet: B") {
		t.Errorf("message should name B: %q", err)
	}

	s.Critiques = append(s.Critiques, round.Critique{ID: 2, AgentID: 2, AgentName: "B", ProposalID: 1})
	out, err := transition.Decide(s, scoring.DefaultPoints())
	if err != nil {
		t.Fatal(err)
	}
	if out.NewPhase != round.PhaseVoting || out.Score != nil {
		t.Errorf("got %+v", out)
	}
}

func TestMissingCritics_Sorted(t *testing.T) {
	s := twoProposals(round.PhaseCritique)
	s.Proposals = append(s.Proposals, round.Proposal{ID: 3, AgentID: 3, AgentName: "Aardvark"})
	got := transition.MissingCritics(s)
	want := []string{"A", "Aardvark", "B"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestDecide_VotingNeedsAVote(t *testing.T) {
	_, err := transition.Decide(twoProposals(round.PhaseVoting), scoring.DefaultPoints())
	if !errors.Is(err, domain.ErrQuorumNotMet) {
		t.Fatalf("got %v", err)
	}
}

func TestDecide_Close(t *testing.T) {
	s := twoProposals(round.PhaseVoting)
	s.Critiques = []round.Critique{
		{ID: 1, AgentID: 1, AgentName: "A", ProposalID: 2},
		{ID: 2, AgentID: 2, AgentName: "B", ProposalID: 1},
	}
	s.Votes = []round.Vote{{ID: 1, AgentID: 2, ProposalID: 1}}

	out, err := transition.Decide(s, scoring.DefaultPoints())
	if err != nil {
		t.Fatal(err)
	}
	if out.NewPhase != round.PhaseClosed || out.Score == nil {
		t.Fatalf("got %+v", out)
	}
	if out.Message != "Round closed. Winner(s): A. Scores awarded." {
		t.Errorf("message = %q", out.Message)
	}
	totals := out.Score.Totals()
	if totals[1] != 40 || totals[2] != 15 {
		t.Errorf("totals = %v", totals)
	}
}

func TestDecide_CloseTieNamesBoth(t *testing.T) {
	s := twoProposals(round.PhaseVoting)
	s.Votes = []round.Vote{{ID: 1, AgentID: 1, ProposalID: 2}, {ID: 2, AgentID: 2, ProposalID: 1}}
	out, err := transition.Decide(s, scoring.DefaultPoints())
	if err != nil {
		t.Fatal(err)
	}
	if out.Message != "Round closed. Winner(s): A, B. Scores awarded." {
		t.Errorf("message = %q", out.Message)
	}
}

func TestDecide_AlreadyClosed(t *testing.T) {
	_, err := transition.Decide(twoProposals(round.PhaseClosed), scoring.DefaultPoints())
	if !errors.Is(err, domain.ErrAlreadyClosed) {
		t.Fatalf("got %v", err)
	}
}

func TestDecide_InvalidPhase(t *testing.T) {
	s := twoProposals(0)
	if _, err := transition.Decide(s, scoring.DefaultPoints()); err == nil {
		t.Fatal("expected error for invalid phase")
	}
}
