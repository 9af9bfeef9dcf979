package round_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/Strob0t/ClawCouncil/internal/domain"
	"github.com/Strob0t/ClawCouncil/internal/domain/round"
)

func TestCreateRequestValidate(t *testing.T) {
	l := round.DefaultLimits()
	tests := []struct {
		name    string
		prompt  string
		wantErr bool
	}{
		{"ok", "What is 2+2?", false},
		{"empty", "", true},
		{"whitespace", "  \n\t ", true},
		{"at limit", strings.Repeat("x", l.Prompt), false},
		{"over limit", strings.Repeat("x", l.Prompt+1), true},
		{"multibyte at limit", strings.Repeat("ü", l.Prompt), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := round.CreateRequest{Prompt: tt.prompt}
			err := req.Validate(l)
			if tt.wantErr {
				if !errors.Is(err, domain.ErrValidation) {
					t.Fatalf("got %v, want ErrValidation", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestProposalRequestValidate_Trims(t *testing.T) {
	req := round.ProposalRequest{Content: "  answer  "}
	if err := req.Validate(round.DefaultLimits()); err != nil {
		t.Fatal(err)
	}
	if req.Content != "answer" {
		t.Errorf("content = %q", req.Content)
	}
}

func TestProposalRequestValidate_Ceiling(t *testing.T) {
	req := round.ProposalRequest{Content: strings.Repeat("a", 4001)}
	if err := req.Validate(round.DefaultLimits()); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("got %v", err)
	}
}

func TestCritiqueRequestValidate(t *testing.T) {
	l := round.DefaultLimits()
	req := round.CritiqueRequest{Content: "fine"}
	if err := req.Validate(l); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("missing proposal_id: got %v", err)
	}
	req = round.CritiqueRequest{ProposalID: 3, Content: strings.Repeat("c", 2001)}
	if err := req.Validate(l); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("too long: got %v", err)
	}
	req = round.CritiqueRequest{ProposalID: 3, Content: "solid"}
	if err := req.Validate(l); err != nil {
		t.Errorf("valid: %v", err)
	}
}

func TestVoteRequestValidate(t *testing.T) {
	if err := (&round.VoteRequest{}).Validate(); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("got %v", err)
	}
	if err := (&round.VoteRequest{ProposalID: 1}).Validate(); err != nil {
		t.Errorf("got %v", err)
	}
}
