package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Strob0t/ClawCouncil/internal/domain/event"
	"github.com/Strob0t/ClawCouncil/internal/port/messagequeue"
	"github.com/Strob0t/ClawCouncil/internal/port/notifier"
)

// DefaultNotifyEvents are forwarded when no event list is configured.
var DefaultNotifyEvents = []event.Type{event.TypeRoundCreated, event.TypeRoundClosed}

// NotificationService forwards selected round events to chat notifiers. It
// is registered as an event listener and sends in the background.
type NotificationService struct {
	notifiers []notifier.Notifier
	events    map[event.Type]bool
	timeout   time.Duration
	wg        sync.WaitGroup
}

// NewNotificationService creates a NotificationService. An empty events list
// selects DefaultNotifyEvents.
func NewNotificationService(notifiers []notifier.Notifier, events []event.Type, timeout time.Duration) *NotificationService {
	if len(events) == 0 {
		events = DefaultNotifyEvents
	}
	enabled := make(map[event.Type]bool, len(events))
	for _, e := range events {
		enabled[e] = true
	}
	return &NotificationService{
		notifiers: notifiers,
		events:    enabled,
		timeout:   timeout,
	}
}

// BroadcastEvent turns an enabled round event into a notification and sends
// it without blocking the caller.
func (s *NotificationService) BroadcastEvent(ctx context.Context, ev *event.RoundEvent) {
	if len(s.notifiers) == 0 || !s.events[ev.Type] {
		return
	}
	n, err := roundNotification(ev)
	if err != nil {
		slog.WarnContext(ctx, "build notification", "type", ev.Type, "round_id", ev.RoundID, "error", err)
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()
		s.Notify(sendCtx, n)
	}()
}

// Notify sends a notification to all registered notifiers.
// Errors are logged but do not interrupt delivery to other notifiers.
func (s *NotificationService) Notify(ctx context.Context, n notifier.Notification) {
	for _, provider := range s.notifiers {
		if err := provider.Send(ctx, n); err != nil {
			slog.WarnContext(ctx, "notification send failed",
				"provider", provider.Name(),
				"title", n.Title,
				"error", err,
			)
			continue
		}
		slog.DebugContext(ctx, "notification sent", "provider", provider.Name(), "title", n.Title)
	}
}

// Wait blocks until in-flight notifications are done.
func (s *NotificationService) Wait() {
	s.wg.Wait()
}

// NotifierCount returns the number of registered notifiers.
func (s *NotificationService) NotifierCount() int {
	return len(s.notifiers)
}

func roundNotification(ev *event.RoundEvent) (notifier.Notification, error) {
	n := notifier.Notification{
		Level:   notifier.LevelInfo,
		Event:   string(ev.Type),
		RoundID: ev.RoundID,
	}

	switch ev.Type {
	case event.TypeRoundCreated:
		var p struct {
			Prompt string `json:"prompt"`
		}
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return n, err
		}
		n.Title = fmt.Sprintf("Round %d opened", ev.RoundID)
		n.Message = p.Prompt

	case event.TypeRoundAdvanced, event.TypeRoundClosed:
		var p messagequeue.AdvancedPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return n, err
		}
		n.Title = fmt.Sprintf("Round %d moved to %s", ev.RoundID, p.NewPhase)
		if ev.Type == event.TypeRoundClosed {
			n.Title = fmt.Sprintf("Round %d closed", ev.RoundID)
			n.Level = notifier.LevelSuccess
		}
		n.Message = p.Message

	case event.TypeSubmissionCreated:
		var p event.SubmissionPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return n, err
		}
		n.Title = fmt.Sprintf("New %s in round %d", p.Kind, ev.RoundID)
		n.Message = fmt.Sprintf("Agent %d submitted %s %d.", ev.AgentID, p.Kind, p.ID)

	default:
		return n, fmt.Errorf("no notification for event type %q", ev.Type)
	}
	return n, nil
}
