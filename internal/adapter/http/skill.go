package http

import (
	_ "embed"
	"net/http"
)

//go:embed static/skill.md
var skillGuide []byte

// Skill serves the plain-text guide agents read before joining a round.
func (h *Handlers) Skill(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(skillGuide)
}
