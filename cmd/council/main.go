package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	cfhttp "github.com/Strob0t/ClawCouncil/internal/adapter/http"
	cfmcp "github.com/Strob0t/ClawCouncil/internal/adapter/mcp"
	"github.com/Strob0t/ClawCouncil/internal/adapter/memory"
	cfnats "github.com/Strob0t/ClawCouncil/internal/adapter/nats"
	"github.com/Strob0t/ClawCouncil/internal/adapter/natskv"
	cfotel "github.com/Strob0t/ClawCouncil/internal/adapter/otel"
	"github.com/Strob0t/ClawCouncil/internal/adapter/postgres"
	"github.com/Strob0t/ClawCouncil/internal/adapter/ristretto"
	"github.com/Strob0t/ClawCouncil/internal/adapter/tiered"
	"github.com/Strob0t/ClawCouncil/internal/adapter/ws"
	"github.com/Strob0t/ClawCouncil/internal/config"
	"github.com/Strob0t/ClawCouncil/internal/domain/event"
	"github.com/Strob0t/ClawCouncil/internal/domain/round"
	"github.com/Strob0t/ClawCouncil/internal/domain/scoring"
	"github.com/Strob0t/ClawCouncil/internal/logger"
	"github.com/Strob0t/ClawCouncil/internal/middleware"
	"github.com/Strob0t/ClawCouncil/internal/port/a2a"
	"github.com/Strob0t/ClawCouncil/internal/port/cache"
	"github.com/Strob0t/ClawCouncil/internal/port/database"
	"github.com/Strob0t/ClawCouncil/internal/port/eventstore"
	"github.com/Strob0t/ClawCouncil/internal/port/notifier"
	"github.com/Strob0t/ClawCouncil/internal/resilience"
	"github.com/Strob0t/ClawCouncil/internal/service"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if len(os.Args) > 1 && os.Args[1] == "admin" {
		if err := runAdmin(os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		return
	}

	if err := run(os.Args[1:]); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags, err := config.ParseFlags(args)
	if err != nil {
		return err
	}
	cfg, cfgPath, err := config.LoadWithCLI(flags)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, logCloser := logger.New(cfg.Logging)
	defer logCloser.Close()
	slog.SetDefault(log)

	slog.Info("config loaded",
		"file", cfgPath,
		"port", cfg.Server.Port,
		"storage", cfg.Storage.Driver,
		"nats", cfg.NATS.Enabled,
		"log_level", cfg.Logging.Level,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Observability ---

	shutdownOTEL, err := cfotel.Setup(ctx, cfg.OTEL, version)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTEL(sctx); err != nil {
			slog.Warn("otel shutdown", "error", err)
		}
	}()
	metrics, err := cfotel.NewMetrics()
	if err != nil {
		return fmt.Errorf("otel metrics: %w", err)
	}

	// --- Infrastructure ---

	storage, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer storage.close()

	var (
		queue   *cfnats.Queue
		breaker *resilience.Breaker
		l2      cache.Cache
	)
	if cfg.NATS.Enabled {
		queue, err = cfnats.Connect(ctx, cfg.NATS.URL, cfg.NATS.Stream)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		defer func() {
			if err := queue.Drain(); err != nil {
				slog.Warn("nats drain", "error", err)
			}
		}()
		breaker = resilience.NewBreaker("nats", cfg.Breaker.MaxFailures, cfg.Breaker.Timeout)

		kv, err := queue.KeyValue(ctx, cfg.Cache.L2Bucket, cfg.Cache.L2TTL)
		if err != nil {
			return fmt.Errorf("nats kv: %w", err)
		}
		l2 = natskv.New(kv)
	}

	l1, err := ristretto.New(cfg.Cache.L1MaxSizeMB)
	if err != nil {
		return fmt.Errorf("l1 cache: %w", err)
	}
	defer l1.Close()
	leaderboardCache := tiered.New(l1, l2, cfg.Cache.LeaderboardTTL)

	// --- Services ---

	hub := ws.NewHub(originPatterns(cfg.Server.CORSOrigin)...)
	defer hub.Close()

	publisher := service.NewEventPublisher(storage.events, hub)
	if queue != nil {
		publisher.UseQueue(queue, breaker)
	}
	notify, err := newNotificationService(cfg.Notify)
	if err != nil {
		return err
	}
	if notify.NotifierCount() > 0 {
		publisher.AddListener(notify)
		defer notify.Wait()
		slog.Info("round notifications enabled", "notifiers", notify.NotifierCount())
	}

	stopRelay, err := publisher.StartRelay(ctx)
	if err != nil {
		return err
	}
	defer stopRelay()

	agentSvc := service.NewAgentService(storage.store, service.ActivityLimits{
		Default: cfg.Limits.ActivityDefault,
		Max:     cfg.Limits.ActivityMax,
	})
	scoreSvc := service.NewScoreService(storage.store, storage.events, leaderboardCache, cfg.Cache.LeaderboardTTL)
	agentSvc.SetLeaderboardInvalidator(scoreSvc.InvalidateLeaderboard)
	roundSvc := service.NewRoundService(storage.store, publisher, scoreSvc, service.RoundConfig{
		Limits: roundLimits(cfg.Limits),
		Points: scoringPoints(cfg.Scoring),
	})
	roundSvc.SetMetrics(metrics)

	// --- MCP ---

	if cfg.MCP.Enabled {
		mcpSrv := cfmcp.NewServer(cfmcp.ServerConfig{
			Addr:    cfg.MCP.Addr,
			Name:    "claw-council",
			Version: version,
		}, cfmcp.ServerDeps{Agents: agentSvc, Rounds: roundSvc, Scores: scoreSvc})
		if err := mcpSrv.Start(); err != nil {
			return err
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := mcpSrv.Stop(sctx); err != nil {
				slog.Warn("mcp shutdown", "error", err)
			}
		}()
	}

	// --- HTTP ---

	handlers := &cfhttp.Handlers{
		Agents:    agentSvc,
		Rounds:    roundSvc,
		Scores:    scoreSvc,
		Hub:       hub,
		Store:     storage.store,
		Breaker:   breaker,
		BodyLimit: cfg.Server.MaxBodyBytes,
	}
	if queue != nil {
		handlers.Queue = queue
	}

	limiter := middleware.NewRateLimiter(cfg.Rate.RequestsPerSecond, cfg.Rate.Burst)
	stopCleanup := limiter.StartCleanup(cfg.Rate.CleanupInterval, cfg.Rate.MaxIdleTime)
	defer stopCleanup()

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(cfotel.HTTPMiddleware(cfg.OTEL.ServiceName))
	r.Use(cfhttp.Logger)
	r.Use(chimw.Recoverer)
	r.Use(cfhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(cfhttp.SecurityHeaders)
	r.Use(limiter.Handler)

	a2a.NewHandler(cfg.Server.BaseURL, version).MountRoutes(r)
	cfhttp.MountRoutes(r, handlers)

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", addr, "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// storageBackend bundles the entity store and event log of one driver.
type storageBackend struct {
	store  database.Store
	events eventstore.Store
	close  func()
}

func openStorage(ctx context.Context, cfg *config.Config) (*storageBackend, error) {
	switch cfg.Storage.Driver {
	case "memory":
		slog.Warn("using in-memory storage; data is lost on exit")
		return &storageBackend{
			store:  memory.NewStore(),
			events: memory.NewEventStore(),
			close:  func() {},
		}, nil
	case "postgres":
		pool, err := postgres.NewPool(ctx, cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		slog.Info("postgres connected")
		if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
		slog.Info("migrations applied")
		return &storageBackend{
			store:  postgres.NewStore(pool),
			events: postgres.NewEventStore(pool),
			close:  pool.Close,
		}, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// newNotificationService builds a notifier for every configured webhook.
func newNotificationService(cfg config.Notify) (*service.NotificationService, error) {
	events, err := event.ParseTypes(cfg.Events)
	if err != nil {
		return nil, fmt.Errorf("notify.events: %w", err)
	}

	webhooks := []struct{ provider, url string }{
		{"slack", cfg.SlackWebhookURL},
		{"discord", cfg.DiscordWebhookURL},
	}
	var notifiers []notifier.Notifier
	for _, w := range webhooks {
		if w.url == "" {
			continue
		}
		n, err := notifier.New(w.provider, map[string]string{"webhook_url": w.url})
		if err != nil {
			return nil, err
		}
		notifiers = append(notifiers, n)
	}
	return service.NewNotificationService(notifiers, events, cfg.Timeout), nil
}

func roundLimits(l config.Limits) round.Limits {
	return round.Limits{Prompt: l.PromptChars, Proposal: l.ProposalChars, Critique: l.CritiqueChars}
}

func scoringPoints(s config.Scoring) scoring.Points {
	return scoring.Points{Participation: s.Participation, Win: s.Win, CritiqueBonus: s.CritiqueBonus}
}

// originPatterns turns the comma-separated CORS origins into websocket
// origin patterns (host[:port]). "*" allows any origin.
func originPatterns(origins string) []string {
	var patterns []string
	for o := range strings.SplitSeq(origins, ",") {
		o = strings.TrimSpace(o)
		switch {
		case o == "":
			continue
		case o == "*":
			return []string{"*"}
		}
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			o = u.Host
		}
		patterns = append(patterns, o)
	}
	return patterns
}
