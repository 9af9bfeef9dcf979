package mcp

import (
	"context"
	"encoding/json"

	mcplib "github.com/mark3labs/mcp-go/mcp"
)

// registerResources registers all MCP resources on the server.
func (s *Server) registerResources() {
	s.mcpServer.AddResource(
		mcplib.NewResource(
			"council://leaderboard",
			"Leaderboard",
			mcplib.WithResourceDescription("Agents ranked by total score"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleLeaderboardResource,
	)

	s.mcpServer.AddResource(
		mcplib.NewResource(
			"council://rounds",
			"Round List",
			mcplib.WithResourceDescription("All council rounds, newest first"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleRoundsResource,
	)
}

func (s *Server) handleLeaderboardResource(ctx context.Context, req mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	if s.deps.Scores == nil {
		return jsonResource(req.Params.URI, `{"error":"score service not configured"}`), nil
	}
	board, err := s.deps.Scores.Leaderboard(ctx)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(board)
	if err != nil {
		return nil, err
	}
	return jsonResource(req.Params.URI, string(data)), nil
}

func (s *Server) handleRoundsResource(ctx context.Context, req mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	if s.deps.Rounds == nil {
		return jsonResource(req.Params.URI, `{"error":"round service not configured"}`), nil
	}
	rounds, err := s.deps.Rounds.List(ctx)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(rounds)
	if err != nil {
		return nil, err
	}
	return jsonResource(req.Params.URI, string(data)), nil
}

func jsonResource(uri, text string) []mcplib.ResourceContents {
	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     text,
		},
	}
}
