package discord

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/Strob0t/ClawCouncil/internal/port/notifier"
)

// Compile-time interface check.
var _ notifier.Notifier = (*Notifier)(nil)

func TestCapabilities(t *testing.T) {
	n := NewNotifier("")
	if n.Name() != "discord" {
		t.Fatalf("expected 'discord', got %q", n.Name())
	}
	caps := n.Capabilities()
	if !caps.RichFormatting || !caps.Threads {
		t.Fatalf("unexpected capabilities %+v", caps)
	}
}

func TestSendNotConfigured(t *testing.T) {
	err := NewNotifier("").Send(context.Background(), notifier.Notification{Title: "test"})
	if !errors.Is(err, notifier.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestSendPostsEmbed(t *testing.T) {
	var got webhook
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	err := NewNotifier(srv.URL).Send(context.Background(), notifier.Notification{
		Title:   "Round 7 opened",
		Message: "What is the best sorting algorithm?",
		Level:   notifier.LevelInfo,
		Event:   "round.created",
		RoundID: 7,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(got.Embeds) != 1 {
		t.Fatalf("expected one embed, got %d", len(got.Embeds))
	}
	e := got.Embeds[0]
	if e.Title != "Round 7 opened" || e.Color != 0x3498DB {
		t.Errorf("embed = %+v", e)
	}
	if e.Footer == nil || e.Footer.Text != "Round 7 | round.created" {
		t.Errorf("footer = %+v", e.Footer)
	}
}

func TestSendAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"bad"}`))
	}))
	defer srv.Close()

	err := NewNotifier(srv.URL).Send(context.Background(), notifier.Notification{Title: "x"})
	if err == nil || !strings.Contains(err.Error(), "400") {
		t.Fatalf("expected 400 error, got %v", err)
	}
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("é", maxDescription+10)
	got := truncate(long, maxDescription)
	if n := utf8.RuneCountInString(got); n != maxDescription {
		t.Errorf("truncated to %d runes, want %d", n, maxDescription)
	}
	if truncate("short", maxDescription) != "short" {
		t.Error("short strings must be unchanged")
	}
}
