package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Strob0t/ClawCouncil/internal/adapter/memory"
	"github.com/Strob0t/ClawCouncil/internal/domain/agent"
	"github.com/Strob0t/ClawCouncil/internal/domain/event"
	"github.com/Strob0t/ClawCouncil/internal/domain/round"
	"github.com/Strob0t/ClawCouncil/internal/domain/scoring"
	"github.com/Strob0t/ClawCouncil/internal/port/database"
	"github.com/Strob0t/ClawCouncil/internal/service"
)

// recordingHub collects broadcast events.
type recordingHub struct {
	mu     sync.Mutex
	events []event.RoundEvent
}

func (h *recordingHub) BroadcastEvent(_ context.Context, ev *event.RoundEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, *ev)
}

func (h *recordingHub) types() []event.Type {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]event.Type, 0, len(h.events))
	for i := range h.events {
		out = append(out, h.events[i].Type)
	}
	return out
}

// failingStore wraps the memory store with error hooks.
type failingStore struct {
	*memory.Store

	listAgentsErr error
	inRoundErr    error
	listAgentsN   int
	mu            sync.Mutex
}

func (s *failingStore) ListAgents(ctx context.Context) ([]agent.Agent, error) {
	s.mu.Lock()
	s.listAgentsN++
	s.mu.Unlock()
	if s.listAgentsErr != nil {
		return nil, s.listAgentsErr
	}
	return s.Store.ListAgents(ctx)
}

func (s *failingStore) InRound(ctx context.Context, roundID int64, fn func(context.Context, *round.Snapshot, database.RoundTx) error) error {
	if s.inRoundErr != nil {
		return s.inRoundErr
	}
	return s.Store.InRound(ctx, roundID, fn)
}

type fixture struct {
	store  *failingStore
	log    *memory.EventStore
	hub    *recordingHub
	pub    *service.EventPublisher
	agents *service.AgentService
	rounds *service.RoundService
	scores *service.ScoreService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := &failingStore{Store: memory.NewStore()}
	log := memory.NewEventStore()
	hub := &recordingHub{}
	scores := service.NewScoreService(store, log, newMapCache(), time.Minute)
	pub := service.NewEventPublisher(log, hub)
	agents := service.NewAgentService(store, service.ActivityLimits{Default: 20, Max: 100})
	agents.SetLeaderboardInvalidator(scores.InvalidateLeaderboard)
	return &fixture{
		store:  store,
		log:    log,
		hub:    hub,
		pub:    pub,
		agents: agents,
		rounds: service.NewRoundService(store, pub, scores, service.RoundConfig{
			Limits: round.DefaultLimits(),
			Points: scoring.DefaultPoints(),
		}),
		scores: scores,
	}
}

func (f *fixture) register(t *testing.T, name string) *agent.Registration {
	t.Helper()
	reg, err := f.agents.Register(context.Background(), agent.RegisterRequest{Name: name})
	if err != nil {
		t.Fatalf("register %s: %v", name, err)
	}
	return reg
}

func (f *fixture) newRound(t *testing.T, by int64) *round.Round {
	t.Helper()
	r, err := f.rounds.Create(context.Background(), by, round.CreateRequest{Prompt: "Scoring test"})
	if err != nil {
		t.Fatalf("create round: %v", err)
	}
	return r
}

func (f *fixture) propose(t *testing.T, roundID, agentID int64, content string) *round.Proposal {
	t.Helper()
	p, err := f.rounds.SubmitProposal(context.Background(), roundID, agentID, round.ProposalRequest{Content: content})
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	return p
}

func (f *fixture) critique(t *testing.T, roundID, agentID, proposalID int64) {
	t.Helper()
	_, err := f.rounds.SubmitCritique(context.Background(), roundID, agentID,
		round.CritiqueRequest{ProposalID: proposalID, Content: "needs more detail"})
	if err != nil {
		t.Fatalf("critique: %v", err)
	}
}

func (f *fixture) vote(t *testing.T, roundID, agentID, proposalID int64) {
	t.Helper()
	if _, err := f.rounds.CastVote(context.Background(), roundID, agentID, round.VoteRequest{ProposalID: proposalID}); err != nil {
		t.Fatalf("vote: %v", err)
	}
}

func (f *fixture) advance(t *testing.T, roundID, agentID int64) {
	t.Helper()
	if _, err := f.rounds.Advance(context.Background(), roundID, agentID); err != nil {
		t.Fatalf("advance: %v", err)
	}
}

// mapCache is an in-memory cache.Cache.
type mapCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMapCache() *mapCache { return &mapCache{data: make(map[string][]byte)} }

func (m *mapCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *mapCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *mapCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
