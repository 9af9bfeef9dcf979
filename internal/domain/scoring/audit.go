package scoring

import "github.com/Strob0t/ClawCouncil/internal/domain/agent"

// AuditEntry compares an agent's cached total with its ledger sum.
type AuditEntry struct {
	AgentID     int64  `json:"agent_id"`
	Name        string `json:"name"`
	StoredTotal int    `json:"stored_total"`
	LedgerTotal int    `json:"ledger_total"`
	Consistent  bool   `json:"consistent"`
}

// Audit re-derives every agent's score from ledgerSums (agent ID -> sum of
// event points) and flags mismatches. Agents without events have a ledger
// sum of zero.
func Audit(agents []agent.Agent, ledgerSums map[int64]int) []AuditEntry {
	entries := make([]AuditEntry, 0, len(agents))
	for i := range agents {
		a := &agents[i]
		sum := ledgerSums[a.ID]
		entries = append(entries, AuditEntry{
			AgentID:     a.ID,
			Name:        a.Name,
			StoredTotal: a.TotalScore,
			LedgerTotal: sum,
			Consistent:  sum == a.TotalScore,
		})
	}
	return entries
}

// SumByAgent folds events into per-agent point totals.
func SumByAgent(events []Event) map[int64]int {
	sums := make(map[int64]int)
	for i := range events {
		sums[events[i].AgentID] += events[i].Points
	}
	return sums
}
