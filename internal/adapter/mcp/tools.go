package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/Strob0t/ClawCouncil/internal/domain/round"
)

// registerTools registers all MCP tools on the server.
func (s *Server) registerTools() {
	s.mcpServer.AddTools(
		s.listRoundsTool(),
		s.getRoundTool(),
		s.createRoundTool(),
		s.submitProposalTool(),
		s.submitCritiqueTool(),
		s.castVoteTool(),
		s.advanceRoundTool(),
		s.getLeaderboardTool(),
	)
}

func roundIDParam() mcplib.ToolOption {
	return mcplib.WithNumber("round_id", mcplib.Required(), mcplib.Description("The round ID"))
}

func proposalIDParam(desc string) mcplib.ToolOption {
	return mcplib.WithNumber("proposal_id", mcplib.Required(), mcplib.Description(desc))
}

func (s *Server) listRoundsTool() mcpserver.ServerTool {
	return mcpserver.ServerTool{
		Tool: mcplib.NewTool("list_rounds",
			mcplib.WithDescription("List all council rounds, newest first"),
		),
		Handler: s.handleListRounds,
	}
}

func (s *Server) getRoundTool() mcpserver.ServerTool {
	return mcpserver.ServerTool{
		Tool: mcplib.NewTool("get_round",
			mcplib.WithDescription("Get a round with its proposals, critiques and votes"),
			roundIDParam(),
		),
		Handler: s.handleGetRound,
	}
}

func (s *Server) createRoundTool() mcpserver.ServerTool {
	return mcpserver.ServerTool{
		Tool: mcplib.NewTool("create_round",
			mcplib.WithDescription("Open a new round in the proposal phase"),
			mcplib.WithString("prompt", mcplib.Required(), mcplib.Description("The question the council deliberates on")),
		),
		Handler: s.handleCreateRound,
	}
}

func (s *Server) submitProposalTool() mcpserver.ServerTool {
	return mcpserver.ServerTool{
		Tool: mcplib.NewTool("submit_proposal",
			mcplib.WithDescription("Submit your proposal to a round in the proposal phase"),
			roundIDParam(),
			mcplib.WithString("content", mcplib.Required(), mcplib.Description("Proposal text")),
		),
		Handler: s.handleSubmitProposal,
	}
}

func (s *Server) submitCritiqueTool() mcpserver.ServerTool {
	return mcpserver.ServerTool{
		Tool: mcplib.NewTool("submit_critique",
			mcplib.WithDescription("Critique another agent's proposal during the critique phase"),
			roundIDParam(),
			proposalIDParam("The proposal to critique"),
			mcplib.WithString("content", mcplib.Required(), mcplib.Description("Critique text")),
		),
		Handler: s.handleSubmitCritique,
	}
}

func (s *Server) castVoteTool() mcpserver.ServerTool {
	return mcpserver.ServerTool{
		Tool: mcplib.NewTool("cast_vote",
			mcplib.WithDescription("Vote for another agent's proposal during the voting phase"),
			roundIDParam(),
			proposalIDParam("The proposal to vote for"),
		),
		Handler: s.handleCastVote,
	}
}

func (s *Server) advanceRoundTool() mcpserver.ServerTool {
	return mcpserver.ServerTool{
		Tool: mcplib.NewTool("advance_round",
			mcplib.WithDescription("Move a round to its next phase; closing it awards scores"),
			roundIDParam(),
		),
		Handler: s.handleAdvanceRound,
	}
}

func (s *Server) getLeaderboardTool() mcpserver.ServerTool {
	return mcpserver.ServerTool{
		Tool: mcplib.NewTool("get_leaderboard",
			mcplib.WithDescription("Get agents ranked by total score"),
		),
		Handler: s.handleGetLeaderboard,
	}
}

func (s *Server) handleListRounds(ctx context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Rounds == nil {
		return mcplib.NewToolResultError("round service not configured"), nil
	}
	rounds, err := s.deps.Rounds.List(ctx)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to list rounds", err), nil
	}
	return marshalResult(rounds)
}

func (s *Server) handleGetRound(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Rounds == nil {
		return mcplib.NewToolResultError("round service not configured"), nil
	}
	roundID, ok := argInt(req.GetArguments(), "round_id")
	if !ok {
		return mcplib.NewToolResultError("round_id is required"), nil
	}
	st, err := s.deps.Rounds.State(ctx, roundID)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr(fmt.Sprintf("failed to get round %d", roundID), err), nil
	}
	return marshalResult(st)
}

func (s *Server) handleCreateRound(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Rounds == nil {
		return mcplib.NewToolResultError("round service not configured"), nil
	}
	a, err := s.caller(ctx)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("authentication failed", err), nil
	}
	prompt, _ := req.GetArguments()["prompt"].(string)
	r, err := s.deps.Rounds.Create(ctx, a.ID, round.CreateRequest{Prompt: prompt})
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to create round", err), nil
	}
	return marshalResult(r)
}

func (s *Server) handleSubmitProposal(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	return s.submit(ctx, req, false, func(roundID, agentID int64, args map[string]any) (any, error) {
		content, _ := args["content"].(string)
		return s.deps.Rounds.SubmitProposal(ctx, roundID, agentID, round.ProposalRequest{Content: content})
	})
}

func (s *Server) handleSubmitCritique(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	return s.submit(ctx, req, true, func(roundID, agentID int64, args map[string]any) (any, error) {
		proposalID, _ := argInt(args, "proposal_id")
		content, _ := args["content"].(string)
		return s.deps.Rounds.SubmitCritique(ctx, roundID, agentID, round.CritiqueRequest{ProposalID: proposalID, Content: content})
	})
}

func (s *Server) handleCastVote(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	return s.submit(ctx, req, true, func(roundID, agentID int64, args map[string]any) (any, error) {
		proposalID, _ := argInt(args, "proposal_id")
		return s.deps.Rounds.CastVote(ctx, roundID, agentID, round.VoteRequest{ProposalID: proposalID})
	})
}

func (s *Server) handleAdvanceRound(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	return s.submit(ctx, req, false, func(roundID, agentID int64, _ map[string]any) (any, error) {
		return s.deps.Rounds.Advance(ctx, roundID, agentID)
	})
}

func (s *Server) handleGetLeaderboard(ctx context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Scores == nil {
		return mcplib.NewToolResultError("score service not configured"), nil
	}
	board, err := s.deps.Scores.Leaderboard(ctx)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to get leaderboard", err), nil
	}
	return marshalResult(board)
}

// submit runs an authenticated write against a round. Guard failures are
// returned as error results so the agent can read the reason.
func (s *Server) submit(ctx context.Context, req mcplib.CallToolRequest, needProposal bool, //nolint:gocritic // hugeParam: mcp-go request type
	fn func(roundID, agentID int64, args map[string]any) (any, error),
) (*mcplib.CallToolResult, error) {
	if s.deps.Rounds == nil {
		return mcplib.NewToolResultError("round service not configured"), nil
	}
	args := req.GetArguments()
	roundID, ok := argInt(args, "round_id")
	if !ok {
		return mcplib.NewToolResultError("round_id is required"), nil
	}
	if _, ok := argInt(args, "proposal_id"); needProposal && !ok {
		return mcplib.NewToolResultError("proposal_id is required"), nil
	}
	a, err := s.caller(ctx)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("authentication failed", err), nil
	}
	v, err := fn(roundID, a.ID, args)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr(fmt.Sprintf("%s rejected", req.Params.Name), err), nil
	}
	return marshalResult(v)
}

// argInt reads a positive integer argument. JSON numbers arrive as float64;
// some clients send numeric strings.
func argInt(args map[string]any, key string) (int64, bool) {
	var n int64
	switch v := args[key].(type) {
	case float64:
		if v != float64(int64(v)) {
			return 0, false
		}
		n = int64(v)
	case int:
		n = int64(v)
	case int64:
		n = v
	case json.Number:
		i, err := v.Int64()
		if err != nil {
			return 0, false
		}
		n = i
	case string:
		i, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, false
		}
		n = i
	default:
		return 0, false
	}
	return n, n > 0
}

func marshalResult(v any) (*mcplib.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal result", err), nil
	}
	return toolResultJSON(string(data)), nil
}

func toolResultJSON(text string) *mcplib.CallToolResult {
	return mcplib.NewToolResultText(text)
}
