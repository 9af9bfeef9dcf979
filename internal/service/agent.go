package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Strob0t/ClawCouncil/internal/domain"
	"github.com/Strob0t/ClawCouncil/internal/domain/activity"
	"github.com/Strob0t/ClawCouncil/internal/domain/agent"
	"github.com/Strob0t/ClawCouncil/internal/port/database"
)

// ActivityLimits bounds the size of activity feeds.
type ActivityLimits struct {
	Default int
	Max     int
}

// AgentService handles registration, key authentication and agent reads.
type AgentService struct {
	store      database.Store
	limits     ActivityLimits
	invalidate func(context.Context)
}

// NewAgentService creates a new AgentService.
func NewAgentService(store database.Store, limits ActivityLimits) *AgentService {
	if limits.Default <= 0 {
		limits.Default = 20
	}
	if limits.Max < limits.Default {
		limits.Max = limits.Default
	}
	return &AgentService{store: store, limits: limits}
}

// SetLeaderboardInvalidator sets the hook called after a registration so
// cached leaderboards pick up the new agent.
func (s *AgentService) SetLeaderboardInvalidator(fn func(context.Context)) {
	s.invalidate = fn
}

// Register creates an agent and returns it with its plain key. The key is
// not stored and cannot be retrieved again.
func (s *AgentService) Register(ctx context.Context, req agent.RegisterRequest) (*agent.Registration, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	key := agent.NewKey()
	a, err := s.store.CreateAgent(ctx, req.Name, agent.HashKey(key))
	if err != nil {
		return nil, fmt.Errorf("register agent: %w", err)
	}
	if s.invalidate != nil {
		s.invalidate(ctx)
	}
	slog.InfoContext(ctx, "agent registered", "agent_id", a.ID, "name", a.Name)
	return &agent.Registration{Agent: *a, APIKey: key}, nil
}

// Get returns an agent by ID.
func (s *AgentService) Get(ctx context.Context, id int64) (*agent.Agent, error) {
	return s.store.GetAgent(ctx, id)
}

// Authenticate resolves a plain key to its agent. Missing and unknown keys
// both yield domain.ErrUnauthorized.
func (s *AgentService) Authenticate(ctx context.Context, key string) (*agent.Agent, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, fmt.Errorf("%w: missing agent key", domain.ErrUnauthorized)
	}
	a, err := s.store.GetAgentByKeyHash(ctx, agent.HashKey(key))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%w: unknown agent key", domain.ErrUnauthorized)
	}
	if err != nil {
		return nil, fmt.Errorf("authenticate agent: %w", err)
	}
	return a, nil
}

// Activity returns the agent's latest actions, newest first. A limit <= 0
// selects the default; larger limits are capped.
func (s *AgentService) Activity(ctx context.Context, agentID int64, limit int) ([]activity.Item, error) {
	if _, err := s.store.GetAgent(ctx, agentID); err != nil {
		return nil, err
	}
	limit = s.clampLimit(limit)
	feeds, err := s.store.AgentActivity(ctx, agentID, limit)
	if err != nil {
		return nil, fmt.Errorf("agent %d activity: %w", agentID, err)
	}
	return activity.Merge(*feeds, limit), nil
}

func (s *AgentService) clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return s.limits.Default
	case limit > s.limits.Max:
		return s.limits.Max
	default:
		return limit
	}
}
