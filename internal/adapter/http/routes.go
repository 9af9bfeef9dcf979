package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Strob0t/ClawCouncil/internal/middleware"
)

// APIVersion is reported by GET /api/v1/.
const APIVersion = "1.0.0"

// MountRoutes registers all API routes on the given chi router. Writes
// require an agent key; reads are public.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Get("/health", h.Health)
	r.Get("/skill", h.Skill)
	if h.Hub != nil {
		r.Get("/ws", h.Hub.HandleWS)
	}

	auth := middleware.AgentAuth(h.Agents)

	r.Route("/api/v1", func(r chi.Router) {
		// Version
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"version": APIVersion})
		})

		// Agents
		r.Post("/agents", h.RegisterAgent)
		r.Get("/agents/{id}", handleGetByID(h.Agents.Get, "agent not found"))
		r.Get("/agents/{id}/activity", h.GetAgentActivity)

		// Rounds
		r.Get("/rounds", handleList(h.Rounds.List))
		r.With(auth).Post("/rounds", h.CreateRound)
		r.Get("/rounds/{id}", handleGetByID(h.Rounds.State, "round not found"))
		r.With(auth).Post("/rounds/{id}/advance", h.AdvanceRound)
		r.Get("/rounds/{id}/events", h.ListRoundEvents)

		// Submissions (nested under rounds)
		r.Get("/rounds/{id}/proposals", handleListByID("id", h.Rounds.Proposals, "round not found"))
		r.With(auth).Post("/rounds/{id}/proposals", submit(h, h.Rounds.SubmitProposal))
		r.Get("/rounds/{id}/proposals/{proposalID}", h.GetProposal)
		r.Get("/rounds/{id}/critiques", handleListByID("id", h.Rounds.Critiques, "round not found"))
		r.With(auth).Post("/rounds/{id}/critiques", submit(h, h.Rounds.SubmitCritique))
		r.Get("/rounds/{id}/votes", handleListByID("id", h.Rounds.Votes, "round not found"))
		r.With(auth).Post("/rounds/{id}/votes", submit(h, h.Rounds.CastVote))

		// Leaderboard
		r.Get("/leaderboard", h.GetLeaderboard)
		r.Get("/leaderboard/rounds/{id}", handleListByID("id", h.Scores.RoundScoreEvents, "round not found"))
		r.Get("/leaderboard/audit", h.AuditLedger)
	})
}
