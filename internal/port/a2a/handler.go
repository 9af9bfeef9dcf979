// Package a2a serves the A2A discovery card of the council service.
package a2a

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Handler serves the A2A discovery endpoint.
type Handler struct {
	baseURL string
	version string
}

// NewHandler creates an A2A handler.
func NewHandler(baseURL, version string) *Handler {
	return &Handler{baseURL: baseURL, version: version}
}

// MountRoutes registers A2A routes on the given chi router.
// These are mounted at the root level, not under /api/v1.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/.well-known/agent.json", h.handleAgentCard)
}

func (h *Handler) handleAgentCard(w http.ResponseWriter, _ *http.Request) {
	card := BuildAgentCard(h.baseURL, h.version)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(card)
}
