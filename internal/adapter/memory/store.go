// Package memory implements the database and event store ports in process
// memory. It backs the "memory" storage driver and the service tests, and
// gives each round the same lock-then-write semantics as the Postgres store.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/Strob0t/ClawCouncil/internal/domain"
	"github.com/Strob0t/ClawCouncil/internal/domain/activity"
	"github.com/Strob0t/ClawCouncil/internal/domain/agent"
	"github.com/Strob0t/ClawCouncil/internal/domain/round"
	"github.com/Strob0t/ClawCouncil/internal/domain/scoring"
	"github.com/Strob0t/ClawCouncil/internal/port/database"
)

// Store implements database.Store. All tables live behind mu; roundLocks
// serialize units of work per round without blocking other rounds.
type Store struct {
	mu         sync.RWMutex
	seq        int64
	agents     map[int64]*agent.Agent
	byName     map[string]int64
	byKeyHash  map[string]int64
	rounds     map[int64]*round.Round
	proposals  []round.Proposal
	critiques  []round.Critique
	votes      []round.Vote
	events     []scoring.Event
	roundLocks map[int64]*sync.Mutex

	now func() time.Time
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		agents:     make(map[int64]*agent.Agent),
		byName:     make(map[string]int64),
		byKeyHash:  make(map[string]int64),
		rounds:     make(map[int64]*round.Round),
		roundLocks: make(map[int64]*sync.Mutex),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the time source. Intended for tests.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

// nextID returns a fresh ID. IDs are shared across tables and never reused,
// like a sequence that survives rollbacks. Caller holds mu.
func (s *Store) nextID() int64 {
	s.seq++
	return s.seq
}

func (s *Store) Ping(context.Context) error { return nil }

// --- Agents ---

func (s *Store) CreateAgent(_ context.Context, name, keyHash string) (*agent.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byName[name]; taken {
		return nil, fmt.Errorf("%w: agent name %q is already taken", domain.ErrConflict, name)
	}
	if _, taken := s.byKeyHash[keyHash]; taken {
		return nil, fmt.Errorf("%w: agent key collision", domain.ErrConflict)
	}
	a := &agent.Agent{ID: s.nextID(), Name: name, KeyHash: keyHash, CreatedAt: s.now()}
	s.agents[a.ID] = a
	s.byName[name] = a.ID
	s.byKeyHash[keyHash] = a.ID
	cp := *a
	return &cp, nil
}

func (s *Store) GetAgent(_ context.Context, id int64) (*agent.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.agents[id]
	if !ok {
		return nil, fmt.Errorf("get agent %d: %w", id, domain.ErrNotFound)
	}
	cp := *a
	return &cp, nil
}

func (s *Store) GetAgentByKeyHash(_ context.Context, keyHash string) (*agent.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byKeyHash[keyHash]
	if !ok {
		return nil, fmt.Errorf("get agent by key: %w", domain.ErrNotFound)
	}
	cp := *s.agents[id]
	return &cp, nil
}

func (s *Store) ListAgents(context.Context) ([]agent.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listAgentsLocked(), nil
}

func (s *Store) listAgentsLocked() []agent.Agent {
	out := make([]agent.Agent, 0, len(s.agents))
	for _, a := range s.agents {
		out = append(out, *a)
	}
	slices.SortFunc(out, func(a, b agent.Agent) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// --- Rounds ---

func (s *Store) CreateRound(_ context.Context, prompt string, createdBy int64) (*round.Round, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.agents[createdBy]; !ok {
		return nil, fmt.Errorf("create round: agent %d: %w", createdBy, domain.ErrNotFound)
	}
	r := &round.Round{
		ID:        s.nextID(),
		Prompt:    prompt,
		Phase:     round.PhaseProposal,
		CreatedBy: createdBy,
		CreatedAt: s.now(),
	}
	s.rounds[r.ID] = r
	return copyRound(r), nil
}

func (s *Store) GetRound(_ context.Context, id int64) (*round.Round, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rounds[id]
	if !ok {
		return nil, fmt.Errorf("get round %d: %w", id, domain.ErrNotFound)
	}
	return copyRound(r), nil
}

func (s *Store) ListRounds(context.Context) ([]round.Round, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]round.Round, 0, len(s.rounds))
	for _, r := range s.rounds {
		out = append(out, *copyRound(r))
	}
	slices.SortFunc(out, func(a, b round.Round) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return out, nil
}

func (s *Store) LoadSnapshot(_ context.Context, roundID int64) (*round.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked(roundID)
}

func (s *Store) snapshotLocked(roundID int64) (*round.Snapshot, error) {
	r, ok := s.rounds[roundID]
	if !ok {
		return nil, fmt.Errorf("load round %d: %w", roundID, domain.ErrNotFound)
	}
	snap := &round.Snapshot{Round: *copyRound(r)}
	for i := range s.proposals {
		if s.proposals[i].RoundID == roundID {
			snap.Proposals = append(snap.Proposals, s.proposals[i])
		}
	}
	for i := range s.critiques {
		if s.critiques[i].RoundID == roundID {
			snap.Critiques = append(snap.Critiques, s.critiques[i])
		}
	}
	for i := range s.votes {
		if s.votes[i].RoundID == roundID {
			snap.Votes = append(snap.Votes, s.votes[i])
		}
	}
	return snap, nil
}

func copyRound(r *round.Round) *round.Round {
	cp := *r
	if r.ClosedAt != nil {
		t := *r.ClosedAt
		cp.ClosedAt = &t
	}
	return &cp
}

// --- Unit of work ---

func (s *Store) roundLock(roundID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.roundLocks[roundID]
	if !ok {
		l = &sync.Mutex{}
		s.roundLocks[roundID] = l
	}
	return l
}

// InRound holds the round's lock while fn runs. Writes are buffered in the
// transaction and applied under the table lock only when fn succeeds.
func (s *Store) InRound(ctx context.Context, roundID int64, fn func(context.Context, *round.Snapshot, database.RoundTx) error) error {
	lock := s.roundLock(roundID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.RLock()
	snap, err := s.snapshotLocked(roundID)
	s.mu.RUnlock()
	if err != nil {
		return err
	}

	tx := &roundTx{store: s, roundID: roundID, snap: snap}
	if err := fn(ctx, snap, tx); err != nil {
		return err
	}
	return tx.commit()
}

// --- Score ledger ---

func (s *Store) ListScoreEventsByRound(_ context.Context, roundID int64) ([]scoring.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []scoring.Event{}
	for i := range s.events {
		if s.events[i].RoundID == roundID {
			out = append(out, s.events[i])
		}
	}
	return out, nil
}

func (s *Store) ParticipationCounts(context.Context) (map[int64]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[[2]int64]bool)
	out := make(map[int64]int)
	for i := range s.events {
		e := &s.events[i]
		if e.Reason != scoring.ReasonParticipation {
			continue
		}
		k := [2]int64{e.AgentID, e.RoundID}
		if !seen[k] {
			seen[k] = true
			out[e.AgentID]++
		}
	}
	return out, nil
}

func (s *Store) LoadLedger(context.Context) ([]agent.Agent, map[int64]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listAgentsLocked(), scoring.SumByAgent(s.events), nil
}

// --- Activity ---

func (s *Store) AgentActivity(_ context.Context, agentID int64, limit int) (*activity.Feeds, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var f activity.Feeds
	for i := range s.proposals {
		if s.proposals[i].AgentID == agentID {
			f.Proposals = append(f.Proposals, s.proposals[i])
		}
	}
	for i := range s.critiques {
		if s.critiques[i].AgentID == agentID {
			f.Critiques = append(f.Critiques, s.critiques[i])
		}
	}
	for i := range s.votes {
		if s.votes[i].AgentID == agentID {
			f.Votes = append(f.Votes, s.votes[i])
		}
	}
	for i := range s.events {
		if s.events[i].AgentID == agentID {
			f.Events = append(f.Events, s.events[i])
		}
	}
	// Rows are stored in insertion order, so the newest are at the end.
	f.Proposals = newest(f.Proposals, limit)
	f.Critiques = newest(f.Critiques, limit)
	f.Votes = newest(f.Votes, limit)
	f.Events = newest(f.Events, limit)
	return &f, nil
}

func newest[T any](items []T, limit int) []T {
	if limit >= 0 && len(items) > limit {
		items = items[len(items)-limit:]
	}
	slices.Reverse(items)
	return items
}
