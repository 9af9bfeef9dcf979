package messagequeue

import (
	"github.com/Strob0t/ClawCouncil/internal/domain/event"
)

// Payload schemas per round event type. Types without an entry carry an
// arbitrary JSON object.
var payloadSchemas = map[event.Type]func() any{
	event.TypeSubmissionCreated: func() any { return &event.SubmissionPayload{} },
	event.TypeRoundAdvanced:     func() any { return &AdvancedPayload{} },
	event.TypeRoundClosed:       func() any { return &AdvancedPayload{} },
}

// AdvancedPayload is the schema for round.advanced and round.closed events.
type AdvancedPayload struct {
	PreviousPhase string `json:"previous_phase"`
	NewPhase      string `json:"new_phase"`
	Message       string `json:"message"`
}
