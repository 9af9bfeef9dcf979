package memory_test

import (
	"context"
	"testing"

	"github.com/Strob0t/ClawCouncil/internal/adapter/memory"
	"github.com/Strob0t/ClawCouncil/internal/domain/event"
	"github.com/Strob0t/ClawCouncil/internal/port/eventstore"
)

func TestEventStore_AppendIdempotent(t *testing.T) {
	s := memory.NewEventStore()
	ctx := context.Background()

	created, _ := event.New(event.TypeRoundCreated, 1, 7, map[string]string{"prompt": "p"})
	closed, _ := event.New(event.TypeRoundClosed, 1, 0, nil)
	other, _ := event.New(event.TypeRoundCreated, 2, 7, nil)

	for _, ev := range []*event.RoundEvent{created, created, closed, other} {
		if err := s.Append(ctx, ev); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	all, err := s.LoadByRound(ctx, 1, eventstore.Filter{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(all) != 2 || all[0].ID != created.ID || all[1].ID != closed.ID {
		t.Fatalf("unexpected events: %+v", all)
	}

	onlyClosed, _ := s.LoadByRound(ctx, 1, eventstore.Filter{Types: []event.Type{event.TypeRoundClosed}})
	if len(onlyClosed) != 1 || onlyClosed[0].Type != event.TypeRoundClosed {
		t.Fatalf("filter failed: %+v", onlyClosed)
	}

	none, _ := s.LoadByRound(ctx, 99, eventstore.Filter{})
	if none == nil || len(none) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", none)
	}
}
