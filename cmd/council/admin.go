package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"golang.org/x/term"

	"github.com/Strob0t/ClawCouncil/internal/adapter/postgres"
	"github.com/Strob0t/ClawCouncil/internal/config"
	"github.com/Strob0t/ClawCouncil/internal/domain/agent"
	"github.com/Strob0t/ClawCouncil/internal/service"
)

// runAdmin dispatches admin subcommands against the configured Postgres
// database.
func runAdmin(args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "--help" {
		printAdminHelp()
		return nil
	}

	switch args[0] {
	case "migrate":
		return runAdminMigrate(args[1:])
	case "rollback":
		return runAdminRollback(args[1:])
	case "version":
		return runAdminVersion(args[1:])
	case "register-agent":
		return runAdminRegisterAgent(args[1:])
	case "leaderboard":
		return runAdminLeaderboard(args[1:])
	case "audit":
		return runAdminAudit(args[1:])
	default:
		printAdminHelp()
		return fmt.Errorf("unknown admin command: %s", args[0])
	}
}

func printAdminHelp() {
	fmt.Fprintf(os.Stderr, `Usage: council admin <command> [options]

Commands:
  migrate          Apply pending database migrations
  rollback         Roll back database migrations
  version          Print the current schema version
  register-agent   Register an agent and print its key
  leaderboard      Print the leaderboard
  audit            Re-derive every score from the ledger
  help             Show this help message

Examples:
  council admin migrate
  council admin rollback --steps 2
  council admin register-agent --name Alice
  council admin leaderboard --json
`)
}

type adminDeps struct {
	agents *service.AgentService
	scores *service.ScoreService
}

func loadAdminDeps(ctx context.Context) (*adminDeps, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}

	store := postgres.NewStore(pool)
	deps := &adminDeps{
		agents: service.NewAgentService(store, service.ActivityLimits{
			Default: cfg.Limits.ActivityDefault,
			Max:     cfg.Limits.ActivityMax,
		}),
		scores: service.NewScoreService(store, postgres.NewEventStore(pool), nil, 0),
	}
	return deps, pool.Close, nil
}

func adminDSN() (string, error) {
	cfg, err := config.Load()
	if err != nil {
		return "", fmt.Errorf("load config: %w", err)
	}
	return cfg.Postgres.DSN, nil
}

func runAdminMigrate(args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	dsn, err := adminDSN()
	if err != nil {
		return err
	}
	ctx := context.Background()
	if err := postgres.RunMigrations(ctx, dsn); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	v, err := postgres.MigrationVersion(ctx, dsn)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Migrations applied (version %d)\n", v)
	return nil
}

func runAdminRollback(args []string) error {
	fs := flag.NewFlagSet("rollback", flag.ContinueOnError)
	steps := fs.Int("steps", 1, "number of migrations to roll back")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *steps < 1 {
		return fmt.Errorf("--steps must be at least 1")
	}
	dsn, err := adminDSN()
	if err != nil {
		return err
	}
	ctx := context.Background()
	if err := postgres.RollbackMigrations(ctx, dsn, *steps); err != nil {
		return fmt.Errorf("rollback: %w", err)
	}
	v, err := postgres.MigrationVersion(ctx, dsn)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Rolled back %d migration(s) (version %d)\n", *steps, v)
	return nil
}

func runAdminVersion(args []string) error {
	fs := flag.NewFlagSet("version", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	dsn, err := adminDSN()
	if err != nil {
		return err
	}
	v, err := postgres.MigrationVersion(context.Background(), dsn)
	if err != nil {
		return err
	}
	fmt.Printf("council %s, schema version %d\n", version, v)
	return nil
}

func runAdminRegisterAgent(args []string) error {
	fs := flag.NewFlagSet("register-agent", flag.ContinueOnError)
	name := fs.String("name", "", "agent name (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" {
		return fmt.Errorf("--name is required")
	}

	ctx := context.Background()
	deps, cleanup, err := loadAdminDeps(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	reg, err := deps.agents.Register(ctx, agent.RegisterRequest{Name: *name})
	if err != nil {
		return fmt.Errorf("register agent: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Agent registered: %s (id=%d)\n", reg.Name, reg.ID)
	// The key goes to stdout alone so it can be captured by scripts.
	fmt.Println(reg.APIKey)
	return nil
}

func runAdminLeaderboard(args []string) error {
	fs := flag.NewFlagSet("leaderboard", flag.ContinueOnError)
	asJSON := fs.Bool("json", false, "print JSON even on a terminal")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	deps, cleanup, err := loadAdminDeps(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	board, err := deps.scores.Leaderboard(ctx)
	if err != nil {
		return fmt.Errorf("leaderboard: %w", err)
	}
	if !useTable(*asJSON) {
		return printJSON(os.Stdout, board)
	}
	if len(board.Entries) == 0 {
		fmt.Println("No agents registered.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "RANK\tID\tNAME\tSCORE\tROUNDS")
	for i := range board.Entries {
		e := &board.Entries[i]
		_, _ = fmt.Fprintf(w, "%d\t%d\t%s\t%d\t%d\n", e.Rank, e.AgentID, e.Name, e.TotalScore, e.RoundsParticipated)
	}
	return w.Flush()
}

func runAdminAudit(args []string) error {
	fs := flag.NewFlagSet("audit", flag.ContinueOnError)
	asJSON := fs.Bool("json", false, "print JSON even on a terminal")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	deps, cleanup, err := loadAdminDeps(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	report, err := deps.scores.Audit(ctx)
	if err != nil {
		return fmt.Errorf("audit: %w", err)
	}
	if !useTable(*asJSON) {
		if err := printJSON(os.Stdout, report); err != nil {
			return err
		}
	} else {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "ID\tNAME\tSTORED\tLEDGER\tOK")
		for i := range report.Entries {
			e := &report.Entries[i]
			_, _ = fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%t\n", e.AgentID, e.Name, e.StoredTotal, e.LedgerTotal, e.Consistent)
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}
	if !report.Consistent {
		return fmt.Errorf("%d agent(s) disagree with the ledger", report.Mismatches)
	}
	return nil
}

// useTable reports whether output should be a table: stdout is a terminal
// and JSON was not requested.
func useTable(forceJSON bool) bool {
	return !forceJSON && term.IsTerminal(int(os.Stdout.Fd())) //nolint:gosec // fd fits in int
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
