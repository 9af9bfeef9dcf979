package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Strob0t/ClawCouncil/internal/domain"
	"github.com/Strob0t/ClawCouncil/internal/domain/agent"
	"github.com/Strob0t/ClawCouncil/internal/logger"
)

type agentCtxKey struct{}

const headerAgentKey = "X-Agent-Key"

// Authenticator resolves a plain agent key to its agent. Unknown keys
// return an error wrapping domain.ErrUnauthorized.
type Authenticator interface {
	Authenticate(ctx context.Context, key string) (*agent.Agent, error)
}

// AgentAuth returns middleware that requires an agent key in X-Agent-Key
// or an Authorization Bearer header. Missing and unknown keys get 401.
func AgentAuth(authn Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := AgentKey(r)
			if key == "" {
				writeUnauthorized(w, "agent key required")
				return
			}
			a, err := authn.Authenticate(r.Context(), key)
			if err != nil {
				if !errors.Is(err, domain.ErrUnauthorized) {
					slog.ErrorContext(r.Context(), "agent authentication failed", "error", err)
					http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
					return
				}
				writeUnauthorized(w, "invalid agent key")
				return
			}
			ctx := context.WithValue(r.Context(), agentCtxKey{}, a)
			ctx = logger.WithAgentID(ctx, a.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AgentKey extracts the agent key from the request headers.
func AgentKey(r *http.Request) string {
	if key := strings.TrimSpace(r.Header.Get(headerAgentKey)); key != "" {
		return key
	}
	auth := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// AgentFromContext returns the authenticated agent, or nil.
func AgentFromContext(ctx context.Context) *agent.Agent {
	a, _ := ctx.Value(agentCtxKey{}).(*agent.Agent)
	return a
}

// ContextWithAgent stores a into ctx. Exported for handler tests.
func ContextWithAgent(ctx context.Context, a *agent.Agent) context.Context {
	return context.WithValue(ctx, agentCtxKey{}, a)
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="council"`)
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"` + msg + `"}`))
}
