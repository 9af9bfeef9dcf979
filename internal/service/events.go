package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	cfotel "github.com/Strob0t/ClawCouncil/internal/adapter/otel"
	"github.com/Strob0t/ClawCouncil/internal/domain/event"
	"github.com/Strob0t/ClawCouncil/internal/logger"
	"github.com/Strob0t/ClawCouncil/internal/port/broadcast"
	"github.com/Strob0t/ClawCouncil/internal/port/eventstore"
	"github.com/Strob0t/ClawCouncil/internal/port/messagequeue"
	"github.com/Strob0t/ClawCouncil/internal/resilience"
)

// EventPublisher fans round events out to the event log and live clients.
// With a queue attached, events travel through the bus and are delivered by
// the relay; without one, or while the bus is unavailable, they are
// delivered in process. Publishing never fails the write that caused it.
type EventPublisher struct {
	log       eventstore.Store
	listeners []broadcast.Broadcaster
	queue     messagequeue.Queue
	breaker   *resilience.Breaker
}

// NewEventPublisher creates a publisher delivering locally. hub may be nil.
func NewEventPublisher(log eventstore.Store, hub broadcast.Broadcaster) *EventPublisher {
	p := &EventPublisher{log: log}
	if hub != nil {
		p.listeners = append(p.listeners, hub)
	}
	return p
}

// AddListener registers another receiver of delivered events. Call it before
// the first Publish.
func (p *EventPublisher) AddListener(b broadcast.Broadcaster) {
	p.listeners = append(p.listeners, b)
}

// UseQueue routes events through q, guarded by b.
func (p *EventPublisher) UseQueue(q messagequeue.Queue, b *resilience.Breaker) {
	p.queue = q
	p.breaker = b
}

// Publish builds an event and sends it on its way.
func (p *EventPublisher) Publish(ctx context.Context, t event.Type, roundID, agentID int64, payload any) {
	ev, err := event.New(t, roundID, agentID, payload)
	if err != nil {
		slog.ErrorContext(ctx, "build round event", "type", t, "error", err)
		return
	}
	ev.RequestID = logger.RequestID(ctx)

	if p.queue == nil {
		p.deliver(ctx, ev)
		return
	}

	data, err := json.Marshal(ev)
	if err != nil {
		slog.ErrorContext(ctx, "marshal round event", "type", t, "error", err)
		return
	}
	ctx, span := cfotel.StartPublishSpan(ctx, string(t), roundID)
	err = p.breaker.Execute(ctx, func(ctx context.Context) error {
		return p.queue.Publish(ctx, t.Subject(), data)
	})
	cfotel.EndSpan(span, err)
	if err != nil {
		slog.WarnContext(ctx, "event bus unavailable, delivering locally", "type", t, "round_id", roundID, "error", err)
		p.deliver(ctx, ev)
	}
}

// StartRelay consumes round events from the queue and delivers them. It is
// a no-op without a queue. The returned function stops the relay.
func (p *EventPublisher) StartRelay(ctx context.Context) (func(), error) {
	if p.queue == nil {
		return func() {}, nil
	}
	stop, err := p.queue.Subscribe(ctx, messagequeue.SubjectAllRounds, p.handle)
	if err != nil {
		return nil, fmt.Errorf("start event relay: %w", err)
	}
	slog.InfoContext(ctx, "event relay started", "subject", messagequeue.SubjectAllRounds)
	return stop, nil
}

func (p *EventPublisher) handle(ctx context.Context, subject string, data []byte) error {
	var ev event.RoundEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return fmt.Errorf("decode event on %s: %w", subject, err)
	}
	if err := p.log.Append(ctx, &ev); err != nil {
		return err
	}
	p.fanOut(ctx, &ev)
	return nil
}

func (p *EventPublisher) deliver(ctx context.Context, ev *event.RoundEvent) {
	if err := p.log.Append(ctx, ev); err != nil {
		slog.ErrorContext(ctx, "append round event", "type", ev.Type, "round_id", ev.RoundID, "error", err)
	}
	p.fanOut(ctx, ev)
}

func (p *EventPublisher) fanOut(ctx context.Context, ev *event.RoundEvent) {
	for _, l := range p.listeners {
		l.BroadcastEvent(ctx, ev)
	}
}
