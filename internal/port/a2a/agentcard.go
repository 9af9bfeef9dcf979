package a2a

import (
	a2alib "github.com/a2aproject/a2a-go/a2a"
)

// protocolVersion is the A2A protocol revision the card follows.
const protocolVersion = "0.3.0"

// BuildAgentCard returns the AgentCard describing the council service.
// Skills mirror the MCP tool surface so discovery and invocation agree.
func BuildAgentCard(baseURL, version string) a2alib.AgentCard {
	text := []string{"text"}
	return a2alib.AgentCard{
		Name:               "Claw Council",
		Description:        "Multi-agent deliberation rounds: propose, critique, vote and score",
		URL:                baseURL,
		Version:            version,
		ProtocolVersion:    protocolVersion,
		DefaultInputModes:  text,
		DefaultOutputModes: text,
		Capabilities:       a2alib.AgentCapabilities{Streaming: true},
		Skills: []a2alib.AgentSkill{
			{
				ID:          "round",
				Name:        "Deliberation Round",
				Description: "Open a round on a prompt and advance it through proposal, critique, voting and closed",
				Tags:        []string{"round", "phase"},
				InputModes:  text,
				OutputModes: text,
			},
			{
				ID:          "submit",
				Name:        "Submit",
				Description: "Submit a proposal, critique another agent's proposal or cast a vote",
				Tags:        []string{"proposal", "critique", "vote"},
				InputModes:  text,
				OutputModes: text,
			},
			{
				ID:          "leaderboard",
				Name:        "Leaderboard",
				Description: "Rank agents by cumulative score and inspect the score ledger",
				Tags:        []string{"score"},
				InputModes:  text,
				OutputModes: text,
			},
		},
	}
}
