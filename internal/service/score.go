package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/Strob0t/ClawCouncil/internal/domain/agent"
	"github.com/Strob0t/ClawCouncil/internal/domain/event"
	"github.com/Strob0t/ClawCouncil/internal/domain/leaderboard"
	"github.com/Strob0t/ClawCouncil/internal/domain/scoring"
	"github.com/Strob0t/ClawCouncil/internal/port/cache"
	"github.com/Strob0t/ClawCouncil/internal/port/database"
	"github.com/Strob0t/ClawCouncil/internal/port/eventstore"
)

const leaderboardKey = "leaderboard:v1"

// AuditReport is the result of re-deriving every agent's score from the
// ledger.
type AuditReport struct {
	Entries    []scoring.AuditEntry `json:"entries"`
	Mismatches int                  `json:"mismatches"`
	Consistent bool                 `json:"consistent"`
	CheckedAt  time.Time            `json:"checked_at"`
}

// ScoreService serves the read-only score projections: leaderboard, round
// ledgers, the round event log and the ledger audit.
type ScoreService struct {
	store  database.Store
	events eventstore.Store
	cache  cache.Cache
	ttl    time.Duration
	group  singleflight.Group
	gen    atomic.Int64
	now    func() time.Time
}

// NewScoreService creates a new ScoreService. c may be nil to disable
// leaderboard caching.
func NewScoreService(store database.Store, events eventstore.Store, c cache.Cache, ttl time.Duration) *ScoreService {
	return &ScoreService{
		store:  store,
		events: events,
		cache:  c,
		ttl:    ttl,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Leaderboard returns agents ranked by total score. Concurrent misses share
// one fill.
func (s *ScoreService) Leaderboard(ctx context.Context) (*leaderboard.Board, error) {
	if s.cache != nil {
		board, ok, err := cache.GetJSON[leaderboard.Board](ctx, s.cache, leaderboardKey)
		if err != nil {
			slog.WarnContext(ctx, "leaderboard cache read failed", "error", err)
		} else if ok {
			return &board, nil
		}
	}

	gen := s.gen.Load()
	v, err, _ := s.group.Do(leaderboardKey+":"+strconv.FormatInt(gen, 10), func() (any, error) {
		return s.fillLeaderboard(context.WithoutCancel(ctx), gen)
	})
	if err != nil {
		return nil, err
	}
	return v.(*leaderboard.Board), nil
}

func (s *ScoreService) fillLeaderboard(ctx context.Context, gen int64) (*leaderboard.Board, error) {
	var (
		agents        []agent.Agent
		participation map[int64]int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		agents, err = s.store.ListAgents(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		participation, err = s.store.ParticipationCounts(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load leaderboard: %w", err)
	}

	board := leaderboard.Rank(agents, participation, s.now())
	// A close that committed while we were reading bumped gen; storing now
	// would pin pre-close totals.
	if s.cache != nil && s.gen.Load() == gen {
		if err := cache.SetJSON(ctx, s.cache, leaderboardKey, board, s.ttl); err != nil {
			slog.WarnContext(ctx, "leaderboard cache write failed", "error", err)
		}
	}
	return board, nil
}

// InvalidateLeaderboard drops the cached leaderboard.
func (s *ScoreService) InvalidateLeaderboard(ctx context.Context) {
	s.gen.Add(1)
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, leaderboardKey); err != nil {
		slog.WarnContext(ctx, "leaderboard cache invalidation failed", "error", err)
	}
}

// RoundScoreEvents returns the ledger entries of one round.
func (s *ScoreService) RoundScoreEvents(ctx context.Context, roundID int64) ([]scoring.Event, error) {
	if _, err := s.store.GetRound(ctx, roundID); err != nil {
		return nil, err
	}
	return s.store.ListScoreEventsByRound(ctx, roundID)
}

// RoundEvents returns the round's event log.
func (s *ScoreService) RoundEvents(ctx context.Context, roundID int64, filter eventstore.Filter) ([]event.RoundEvent, error) {
	if _, err := s.store.GetRound(ctx, roundID); err != nil {
		return nil, err
	}
	return s.events.LoadByRound(ctx, roundID, filter)
}

// Audit compares every agent's cached total with its ledger sum.
func (s *ScoreService) Audit(ctx context.Context) (*AuditReport, error) {
	agents, sums, err := s.store.LoadLedger(ctx)
	if err != nil {
		return nil, fmt.Errorf("audit ledger: %w", err)
	}
	report := &AuditReport{Entries: scoring.Audit(agents, sums), CheckedAt: s.now()}
	for i := range report.Entries {
		if !report.Entries[i].Consistent {
			report.Mismatches++
		}
	}
	report.Consistent = report.Mismatches == 0
	if !report.Consistent {
		slog.ErrorContext(ctx, "score ledger mismatch", "agents", report.Mismatches)
	}
	return report, nil
}
