// Package round defines the Round aggregate (round, proposals, critiques,
// votes) and the submission guards that run against a locked snapshot of it.
package round

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Strob0t/ClawCouncil/internal/domain"
)

// Round is one propose/critique/vote/close cycle around a single prompt.
type Round struct {
	ID        int64      `json:"id"`
	Prompt    string     `json:"prompt"`
	Phase     Phase      `json:"phase"`
	CreatedBy int64      `json:"created_by"`
	CreatedAt time.Time  `json:"created_at"`
	ClosedAt  *time.Time `json:"closed_at"`
}

// Proposal is an agent's answer to the round prompt. VoteCount stays 0 until
// the round closes and is fixed afterwards.
type Proposal struct {
	ID          int64     `json:"id"`
	RoundID     int64     `json:"round_id"`
	AgentID     int64     `json:"agent_id"`
	AgentName   string    `json:"agent_name"`
	Content     string    `json:"content"`
	SubmittedAt time.Time `json:"submitted_at"`
	VoteCount   int       `json:"vote_count"`
}

// Critique is an agent's review of another agent's proposal.
type Critique struct {
	ID          int64     `json:"id"`
	RoundID     int64     `json:"round_id"`
	AgentID     int64     `json:"agent_id"`
	AgentName   string    `json:"agent_name"`
	ProposalID  int64     `json:"proposal_id"`
	Content     string    `json:"content"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Vote is an agent's single ballot in a round.
type Vote struct {
	ID          int64     `json:"id"`
	RoundID     int64     `json:"round_id"`
	AgentID     int64     `json:"agent_id"`
	ProposalID  int64     `json:"proposal_id"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Limits bounds free-text input, in characters.
type Limits struct {
	Prompt   int `yaml:"prompt"`
	Proposal int `yaml:"proposal"`
	Critique int `yaml:"critique"`
}

// DefaultLimits returns the standard content ceilings.
func DefaultLimits() Limits {
	return Limits{Prompt: 2000, Proposal: 4000, Critique: 2000}
}

// CreateRequest is the input for opening a new round.
type CreateRequest struct {
	Prompt string `json:"prompt"`
}

// Validate trims the prompt in place and checks its bounds.
func (r *CreateRequest) Validate(l Limits) error {
	var err error
	r.Prompt, err = checkText("prompt", r.Prompt, l.Prompt)
	return err
}

// ProposalRequest is the input for submitting a proposal.
type ProposalRequest struct {
	Content string `json:"content"`
}

// Validate trims the content in place and checks its bounds.
func (r *ProposalRequest) Validate(l Limits) error {
	var err error
	r.Content, err = checkText("content", r.Content, l.Proposal)
	return err
}

// CritiqueRequest is the input for submitting a critique.
type CritiqueRequest struct {
	ProposalID int64  `json:"proposal_id"`
	Content    string `json:"content"`
}

// Validate trims the content in place and checks its bounds.
func (r *CritiqueRequest) Validate(l Limits) error {
	if r.ProposalID <= 0 {
		return fmt.Errorf("%w: proposal_id is required", domain.ErrValidation)
	}
	var err error
	r.Content, err = checkText("content", r.Content, l.Critique)
	return err
}

// VoteRequest is the input for casting a vote.
type VoteRequest struct {
	ProposalID int64 `json:"proposal_id"`
}

// Validate checks that a target proposal is named.
func (r *VoteRequest) Validate() error {
	if r.ProposalID <= 0 {
		return fmt.Errorf("%w: proposal_id is required", domain.ErrValidation)
	}
	return nil
}

func checkText(field, v string, maxLen int) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return v, fmt.Errorf("%w: %s must not be empty", domain.ErrValidation, field)
	}
	if utf8.RuneCountInString(v) > maxLen {
		return v, fmt.Errorf("%w: %s must be %d characters or fewer", domain.ErrValidation, field, maxLen)
	}
	return v, nil
}
