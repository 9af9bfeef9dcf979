package mcp

import (
	"context"
	"errors"
	"net/http"

	"github.com/Strob0t/ClawCouncil/internal/domain"
	"github.com/Strob0t/ClawCouncil/internal/domain/agent"
	"github.com/Strob0t/ClawCouncil/internal/middleware"
)

type agentKeyCtx struct{}

// ContextWithAgentKey attaches an agent key to ctx for tool calls.
func ContextWithAgentKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, agentKeyCtx{}, key)
}

func agentKeyFromContext(ctx context.Context) string {
	key, _ := ctx.Value(agentKeyCtx{}).(string)
	return key
}

// contextWithRequestKey carries the request's agent key into tool calls.
func contextWithRequestKey(ctx context.Context, r *http.Request) context.Context {
	key := middleware.AgentKey(r)
	if key == "" {
		return ctx
	}
	return ContextWithAgentKey(ctx, key)
}

// caller authenticates the agent behind a tool call.
func (s *Server) caller(ctx context.Context) (*agent.Agent, error) {
	if s.deps.Agents == nil {
		return nil, errors.New("agent authentication not configured")
	}
	key := agentKeyFromContext(ctx)
	if key == "" {
		return nil, domain.ErrUnauthorized
	}
	return s.deps.Agents.Authenticate(ctx, key)
}
