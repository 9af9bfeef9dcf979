// Package database defines the database store port (interface).
package database

import (
	"context"
	"time"

	"github.com/Strob0t/ClawCouncil/internal/domain/activity"
	"github.com/Strob0t/ClawCouncil/internal/domain/agent"
	"github.com/Strob0t/ClawCouncil/internal/domain/round"
	"github.com/Strob0t/ClawCouncil/internal/domain/scoring"
)

// Store is the port interface for database operations.
type Store interface {
	// Agents
	CreateAgent(ctx context.Context, name, keyHash string) (*agent.Agent, error)
	GetAgent(ctx context.Context, id int64) (*agent.Agent, error)
	GetAgentByKeyHash(ctx context.Context, keyHash string) (*agent.Agent, error)
	ListAgents(ctx context.Context) ([]agent.Agent, error)

	// Rounds
	CreateRound(ctx context.Context, prompt string, createdBy int64) (*round.Round, error)
	GetRound(ctx context.Context, id int64) (*round.Round, error)
	ListRounds(ctx context.Context) ([]round.Round, error)
	LoadSnapshot(ctx context.Context, roundID int64) (*round.Snapshot, error)

	// InRound runs fn inside one unit of work holding an exclusive lock on
	// the round. fn receives the snapshot as of lock acquisition. Writes made
	// through tx become visible atomically when fn returns nil and are
	// discarded otherwise. A missing round yields domain.ErrNotFound.
	InRound(ctx context.Context, roundID int64, fn func(ctx context.Context, snap *round.Snapshot, tx RoundTx) error) error

	// Score ledger
	ListScoreEventsByRound(ctx context.Context, roundID int64) ([]scoring.Event, error)
	// LoadLedger returns every agent together with its ledger sum (agent ID
	// -> points), both read at one consistent point in time.
	LoadLedger(ctx context.Context) ([]agent.Agent, map[int64]int, error)
	ParticipationCounts(ctx context.Context) (map[int64]int, error)

	// AgentActivity returns up to limit of the agent's most recent records
	// of each kind.
	AgentActivity(ctx context.Context, agentID int64, limit int) (*activity.Feeds, error)

	Ping(ctx context.Context) error
}

// RoundTx is the write side of a round unit of work. Insert methods map
// storage-level uniqueness violations to domain.ErrDuplicateSubmission.
type RoundTx interface {
	InsertProposal(ctx context.Context, agentID int64, content string) (*round.Proposal, error)
	InsertCritique(ctx context.Context, agentID, proposalID int64, content string) (*round.Critique, error)
	InsertVote(ctx context.Context, agentID, proposalID int64) (*round.Vote, error)

	// SetPhase moves the round to phase. closedAt is only set when closing.
	SetPhase(ctx context.Context, phase round.Phase, closedAt *time.Time) error

	// SetVoteCounts writes the denormalized vote tally (proposal ID -> votes).
	SetVoteCounts(ctx context.Context, counts map[int64]int) error

	// AppendScoreEvents appends events to the ledger and adds their points
	// to each agent's cached total.
	AppendScoreEvents(ctx context.Context, events []scoring.Event) ([]scoring.Event, error)
}
