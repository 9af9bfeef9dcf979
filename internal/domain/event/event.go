// Package event defines the round events published to the message bus and
// the websocket hub.
package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Type identifies the kind of round event.
type Type string

const (
	TypeRoundCreated      Type = "round.created"
	TypeRoundAdvanced     Type = "round.advanced"
	TypeRoundClosed       Type = "round.closed"
	TypeSubmissionCreated Type = "submission.created"
)

// SubjectPrefix is the NATS subject namespace of all round events.
const SubjectPrefix = "council.rounds."

var subjects = map[Type]string{
	TypeRoundCreated:      SubjectPrefix + "created",
	TypeRoundAdvanced:     SubjectPrefix + "advanced",
	TypeRoundClosed:       SubjectPrefix + "closed",
	TypeSubmissionCreated: SubjectPrefix + "submission",
}

// Subject returns the NATS subject the event type is published on.
func (t Type) Subject() string {
	if s, ok := subjects[t]; ok {
		return s
	}
	return SubjectPrefix + "unknown"
}

// Valid reports whether t is a known event type.
func (t Type) Valid() bool {
	_, ok := subjects[t]
	return ok
}

// ParseTypes converts names such as "round.closed" to event types and
// rejects unknown ones.
func ParseTypes(names []string) ([]Type, error) {
	types := make([]Type, 0, len(names))
	for _, n := range names {
		t := Type(n)
		if !t.Valid() {
			return nil, fmt.Errorf("unknown event type %q", n)
		}
		types = append(types, t)
	}
	return types, nil
}

// RoundEvent is one immutable notification about a round.
type RoundEvent struct {
	ID        string          `json:"id"`
	Type      Type            `json:"type"`
	RoundID   int64           `json:"round_id"`
	AgentID   int64           `json:"agent_id,omitempty"`
	Payload   json.RawMessage `json:"payload"`
	RequestID string          `json:"request_id,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// New builds an event with a fresh ID and payload marshaled to JSON.
func New(t Type, roundID, agentID int64, payload any) (*RoundEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", t, err)
	}
	return &RoundEvent{
		ID:        uuid.NewString(),
		Type:      t,
		RoundID:   roundID,
		AgentID:   agentID,
		Payload:   data,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// SubmissionPayload describes a new proposal, critique or vote.
type SubmissionPayload struct {
	Kind       string `json:"kind"`
	ID         int64  `json:"id"`
	ProposalID int64  `json:"proposal_id,omitempty"`
}
