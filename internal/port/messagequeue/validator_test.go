package messagequeue

import (
	"strings"
	"testing"
)

func TestValidate_RoundAdvanced(t *testing.T) {
	data := []byte(`{"id":"e1","type":"round.advanced","round_id":3,"payload":{"previous_phase":"proposal","new_phase":"critique","message":"ok"}}`)
	if err := Validate("council.rounds.advanced", data); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_Submission(t *testing.T) {
	data := []byte(`{"id":"e2","type":"submission.created","round_id":3,"agent_id":1,"payload":{"kind":"vote","id":9,"proposal_id":4}}`)
	if err := Validate("council.rounds.submission", data); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_InvalidJSON(t *testing.T) {
	err := Validate("council.rounds.created", []byte(`{not json`))
	if err == nil || !strings.Contains(err.Error(), "invalid JSON") {
		t.Fatalf("got %v", err)
	}
}

func TestValidate_SubjectMismatch(t *testing.T) {
	data := []byte(`{"id":"e1","type":"round.closed","round_id":3}`)
	if err := Validate("council.rounds.created", data); err == nil {
		t.Fatal("expected mismatch error")
	}
}

func TestValidate_MissingRound(t *testing.T) {
	data := []byte(`{"id":"e1","type":"round.created"}`)
	if err := Validate("council.rounds.created", data); err == nil {
		t.Fatal("expected error for missing round_id")
	}
}

func TestValidate_BadPayload(t *testing.T) {
	data := []byte(`{"id":"e1","type":"submission.created","round_id":1,"payload":{"id":"nine"}}`)
	if err := Validate("council.rounds.submission", data); err == nil {
		t.Fatal("expected payload type error")
	}
}

func TestValidate_ForeignSubject(t *testing.T) {
	if err := Validate("other.subject", []byte(`{"anything":true}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
