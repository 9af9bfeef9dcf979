package messagequeue

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Strob0t/ClawCouncil/internal/domain/event"
)

// Validate checks whether data is a well-formed round event whose type
// matches the subject it arrived on. Subjects outside the round namespace
// only need to be valid JSON.
func Validate(subject string, data []byte) error {
	if !json.Valid(data) {
		return fmt.Errorf("invalid JSON on subject %s", subject)
	}
	if !strings.HasPrefix(subject, event.SubjectPrefix) {
		return nil
	}

	var ev event.RoundEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return fmt.Errorf("schema validation failed for %s: %w", subject, err)
	}
	if ev.Type.Subject() != subject {
		return fmt.Errorf("event type %q does not belong on subject %s", ev.Type, subject)
	}
	if ev.RoundID <= 0 {
		return fmt.Errorf("event on %s has no round_id", subject)
	}

	newPayload, ok := payloadSchemas[ev.Type]
	if !ok || len(ev.Payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(ev.Payload, newPayload()); err != nil {
		return fmt.Errorf("payload validation failed for %s: %w", subject, err)
	}
	return nil
}
