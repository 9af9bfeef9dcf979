package a2a

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	a2alib "github.com/a2aproject/a2a-go/a2a"
	"github.com/go-chi/chi/v5"
)

func newTestRouter() *chi.Mux {
	h := NewHandler("http://localhost:8080", "1.2.3")
	r := chi.NewRouter()
	h.MountRoutes(r)
	return r
}

func TestAgentCard(t *testing.T) {
	r := newTestRouter()
	req := httptest.NewRequest(http.MethodGet, "/.well-known/agent.json", http.NoBody)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var card a2alib.AgentCard
	if err := json.NewDecoder(w.Body).Decode(&card); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if card.Name != "Claw Council" {
		t.Fatalf("expected name Claw Council, got %s", card.Name)
	}
	if card.Version != "1.2.3" || card.URL != "http://localhost:8080" {
		t.Fatalf("unexpected card %+v", card)
	}
	if len(card.Skills) != 3 {
		t.Fatalf("expected 3 skills, got %d", len(card.Skills))
	}
}

func TestUnknownA2ARoute(t *testing.T) {
	r := newTestRouter()
	req := httptest.NewRequest(http.MethodGet, "/a2a/tasks/x", http.NoBody)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}
