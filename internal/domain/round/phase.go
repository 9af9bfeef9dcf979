package round

import (
	"fmt"
)

// Phase is the current stage of a round. The zero value is not a valid
// phase; values only enter the system through the constants below or
// ParsePhase.
type Phase uint8

const (
	PhaseProposal Phase = iota + 1
	PhaseCritique
	PhaseVoting
	PhaseClosed
)

// Phases lists every phase in lifecycle order.
var Phases = []Phase{PhaseProposal, PhaseCritique, PhaseVoting, PhaseClosed}

// String returns the wire name of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseProposal:
		return "proposal"
	case PhaseCritique:
		return "critique"
	case PhaseVoting:
		return "voting"
	case PhaseClosed:
		return "closed"
	default:
		return fmt.Sprintf("phase(%d)", uint8(p))
	}
}

// Valid reports whether p is one of the four lifecycle phases.
func (p Phase) Valid() bool {
	return p >= PhaseProposal && p <= PhaseClosed
}

// Next returns the phase that follows p. ok is false for closed.
func (p Phase) Next() (next Phase, ok bool) {
	switch p {
	case PhaseProposal:
		return PhaseCritique, true
	case PhaseCritique:
		return PhaseVoting, true
	case PhaseVoting:
		return PhaseClosed, true
	default:
		return p, false
	}
}

// ParsePhase converts a wire name to a Phase.
func ParsePhase(s string) (Phase, error) {
	for _, p := range Phases {
		if p.String() == s {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown phase %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (p Phase) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("invalid phase %d", uint8(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Phase) UnmarshalText(b []byte) error {
	parsed, err := ParsePhase(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
