// Package mcp exposes the council to AI agents over the Model Context
// Protocol (streamable HTTP transport).
package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/Strob0t/ClawCouncil/internal/domain/agent"
	"github.com/Strob0t/ClawCouncil/internal/domain/leaderboard"
	"github.com/Strob0t/ClawCouncil/internal/domain/round"
	"github.com/Strob0t/ClawCouncil/internal/domain/transition"
)

// ServerConfig configures the MCP listener.
type ServerConfig struct {
	Addr    string
	Name    string
	Version string
}

// AgentAuthenticator resolves an agent key to its agent.
type AgentAuthenticator interface {
	Authenticate(ctx context.Context, key string) (*agent.Agent, error)
}

// RoundRunner is the subset of the round service the tools call.
type RoundRunner interface {
	List(ctx context.Context) ([]round.Round, error)
	State(ctx context.Context, roundID int64) (*round.State, error)
	Create(ctx context.Context, agentID int64, req round.CreateRequest) (*round.Round, error)
	SubmitProposal(ctx context.Context, roundID, agentID int64, req round.ProposalRequest) (*round.Proposal, error)
	SubmitCritique(ctx context.Context, roundID, agentID int64, req round.CritiqueRequest) (*round.Critique, error)
	CastVote(ctx context.Context, roundID, agentID int64, req round.VoteRequest) (*round.Vote, error)
	Advance(ctx context.Context, roundID, agentID int64) (*transition.Outcome, error)
}

// LeaderboardReader returns the current leaderboard.
type LeaderboardReader interface {
	Leaderboard(ctx context.Context) (*leaderboard.Board, error)
}

// ServerDeps holds the services behind the tools. Nil dependencies make
// the tools that need them return an error result.
type ServerDeps struct {
	Agents AgentAuthenticator
	Rounds RoundRunner
	Scores LeaderboardReader
}

// Server is the MCP server.
type Server struct {
	cfg        ServerConfig
	deps       ServerDeps
	mcpServer  *mcpserver.MCPServer
	httpServer *http.Server
	listener   net.Listener
}

// NewServer creates an MCP server with all tools and resources registered.
func NewServer(cfg ServerConfig, deps ServerDeps) *Server {
	s := &Server{
		cfg:  cfg,
		deps: deps,
		mcpServer: mcpserver.NewMCPServer(cfg.Name, cfg.Version,
			mcpserver.WithToolCapabilities(false),
			mcpserver.WithResourceCapabilities(false, false),
			mcpserver.WithRecovery(),
		),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

// Handler returns the streamable HTTP handler. Agent keys from request
// headers are carried into tool calls.
func (s *Server) Handler() http.Handler {
	return mcpserver.NewStreamableHTTPServer(s.mcpServer,
		mcpserver.WithHTTPContextFunc(contextWithRequestKey),
	)
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("mcp listen %s: %w", s.cfg.Addr, err)
	}
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("mcp server error", "error", err)
		}
	}()
	slog.Info("mcp server started", "addr", ln.Addr().String())
	return nil
}

// Stop shuts the listener down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("mcp shutdown: %w", err)
	}
	slog.Info("mcp server stopped")
	return nil
}
