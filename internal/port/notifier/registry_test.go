package notifier_test

import (
	"context"
	"slices"
	"testing"

	"github.com/Strob0t/ClawCouncil/internal/port/notifier"
)

type stubNotifier struct{ url string }

func (s *stubNotifier) Name() string                        { return "stub" }
func (s *stubNotifier) Capabilities() notifier.Capabilities { return notifier.Capabilities{} }
func (s *stubNotifier) Send(context.Context, notifier.Notification) error {
	return nil
}

func TestRegistry(t *testing.T) {
	notifier.Register("registry-test", func(cfg map[string]string) (notifier.Notifier, error) {
		return &stubNotifier{url: cfg["webhook_url"]}, nil
	})

	if !slices.Contains(notifier.Available(), "registry-test") {
		t.Fatalf("Available() = %v, want registry-test", notifier.Available())
	}

	n, err := notifier.New("registry-test", map[string]string{"webhook_url": "https://hook.test"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := n.(*stubNotifier).url; got != "https://hook.test" {
		t.Errorf("factory config not passed through, got %q", got)
	}

	if _, err := notifier.New("missing", nil); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestRegisterDuplicatePanics(t *testing.T) {
	factory := func(map[string]string) (notifier.Notifier, error) { return &stubNotifier{}, nil }
	notifier.Register("dup-test", factory)

	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	notifier.Register("dup-test", factory)
}
