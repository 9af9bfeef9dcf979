package http

import (
	"context"
	"net/http"
	"time"

	"github.com/Strob0t/ClawCouncil/internal/adapter/ws"
	"github.com/Strob0t/ClawCouncil/internal/domain/event"
	"github.com/Strob0t/ClawCouncil/internal/domain/round"
	"github.com/Strob0t/ClawCouncil/internal/middleware"
	"github.com/Strob0t/ClawCouncil/internal/port/eventstore"
	"github.com/Strob0t/ClawCouncil/internal/port/messagequeue"
	"github.com/Strob0t/ClawCouncil/internal/resilience"
	"github.com/Strob0t/ClawCouncil/internal/service"
)

const defaultBodyLimit = 1 << 20 // 1 MB

// Pinger reports storage reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	Agents    *service.AgentService
	Rounds    *service.RoundService
	Scores    *service.ScoreService
	Hub       *ws.Hub
	Store     Pinger
	Queue     messagequeue.Queue  // nil when the event bus is disabled
	Breaker   *resilience.Breaker // guards Queue
	BodyLimit int64
}

func (h *Handlers) bodyLimit() int64 {
	if h.BodyLimit > 0 {
		return h.BodyLimit
	}
	return defaultBodyLimit
}

// ---------------------------------------------------------------------------
// Agents
// ---------------------------------------------------------------------------

// RegisterAgent handles POST /api/v1/agents.
func (h *Handlers) RegisterAgent(w http.ResponseWriter, r *http.Request) {
	handleCreate(h.bodyLimit(), h.Agents.Register)(w, r)
}

// GetAgentActivity handles GET /api/v1/agents/{id}/activity.
func (h *Handlers) GetAgentActivity(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	limit, ok := queryInt(w, r, "limit")
	if !ok {
		return
	}
	items, err := h.Agents.Activity(r.Context(), id, limit)
	if err != nil {
		writeDomainError(w, r, err, "agent not found")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// ---------------------------------------------------------------------------
// Rounds
// ---------------------------------------------------------------------------

// CreateRound handles POST /api/v1/rounds.
func (h *Handlers) CreateRound(w http.ResponseWriter, r *http.Request) {
	caller := middleware.AgentFromContext(r.Context())
	handleCreate(h.bodyLimit(), func(ctx context.Context, req round.CreateRequest) (*round.Round, error) {
		return h.Rounds.Create(ctx, caller.ID, req)
	})(w, r)
}

// GetProposal handles GET /api/v1/rounds/{id}/proposals/{proposalID}.
func (h *Handlers) GetProposal(w http.ResponseWriter, r *http.Request) {
	roundID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	proposalID, ok := pathID(w, r, "proposalID")
	if !ok {
		return
	}
	p, err := h.Rounds.Proposal(r.Context(), roundID, proposalID)
	if err != nil {
		writeDomainError(w, r, err, "proposal not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// AdvanceRound handles POST /api/v1/rounds/{id}/advance.
func (h *Handlers) AdvanceRound(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	caller := middleware.AgentFromContext(r.Context())
	out, err := h.Rounds.Advance(r.Context(), id, caller.ID)
	if err != nil {
		writeDomainError(w, r, err, "round not found")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// submit creates a handler for a write by the authenticated agent against
// the round in the URL.
func submit[Req any, Res any](h *Handlers, fn func(ctx context.Context, roundID, agentID int64, req Req) (*Res, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roundID, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		req, ok := readJSON[Req](w, r, h.bodyLimit())
		if !ok {
			return
		}
		caller := middleware.AgentFromContext(r.Context())
		res, err := fn(r.Context(), roundID, caller.ID, req)
		if err != nil {
			writeDomainError(w, r, err, "round or proposal not found")
			return
		}
		writeJSON(w, http.StatusCreated, res)
	}
}

// ListRoundEvents handles GET /api/v1/rounds/{id}/events. Repeated type
// parameters select event types; after takes an RFC 3339 timestamp.
func (h *Handlers) ListRoundEvents(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var filter eventstore.Filter
	for _, raw := range r.URL.Query()["type"] {
		t := event.Type(raw)
		if !t.Valid() {
			writeError(w, http.StatusBadRequest, "unknown event type "+raw)
			return
		}
		filter.Types = append(filter.Types, t)
	}
	if raw := r.URL.Query().Get("after"); raw != "" {
		after, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "after must be an RFC 3339 timestamp")
			return
		}
		filter.After = &after
	}
	events, err := h.Scores.RoundEvents(r.Context(), id, filter)
	if err != nil {
		writeDomainError(w, r, err, "round not found")
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// ---------------------------------------------------------------------------
// Leaderboard
// ---------------------------------------------------------------------------

// GetLeaderboard handles GET /api/v1/leaderboard.
func (h *Handlers) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	board, err := h.Scores.Leaderboard(r.Context())
	if err != nil {
		writeInternalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

// AuditLedger handles GET /api/v1/leaderboard/audit.
func (h *Handlers) AuditLedger(w http.ResponseWriter, r *http.Request) {
	report, err := h.Scores.Audit(r.Context())
	if err != nil {
		writeInternalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// ---------------------------------------------------------------------------
// Health
// ---------------------------------------------------------------------------

type healthResponse struct {
	Status        string `json:"status"`
	Storage       string `json:"storage"`
	EventBus      string `json:"event_bus"`
	Breaker       string `json:"breaker,omitempty"`
	WSConnections int    `json:"ws_connections"`
}

// Health handles GET /health. Storage failure answers 503; an unavailable
// event bus only degrades the status since events fall back to local
// delivery.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Storage: "ok", EventBus: "disabled"}
	status := http.StatusOK

	if h.Store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.Store.Ping(ctx); err != nil {
			resp.Storage = "unavailable"
			resp.Status = "unavailable"
			status = http.StatusServiceUnavailable
		}
	}
	if h.Queue != nil {
		resp.EventBus = "connected"
		if !h.Queue.IsConnected() {
			resp.EventBus = "disconnected"
			if status == http.StatusOK {
				resp.Status = "degraded"
			}
		}
	}
	if h.Breaker != nil {
		resp.Breaker = h.Breaker.State().String()
	}
	if h.Hub != nil {
		resp.WSConnections = h.Hub.ConnectionCount()
	}
	writeJSON(w, status, resp)
}
