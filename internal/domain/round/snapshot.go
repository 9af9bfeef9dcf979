package round

// Snapshot is the full content of one round as seen by a single unit of
// work. Slices are ordered by ID.
type Snapshot struct {
	Round     Round      `json:"round"`
	Proposals []Proposal `json:"proposals"`
	Critiques []Critique `json:"critiques"`
	Votes     []Vote     `json:"votes"`
}

// State is the public read model of a round.
type State struct {
	Snapshot
	ParticipantCount int `json:"participant_count"`
}

// NewState builds the read model from a snapshot. Nil slices become empty
// so the JSON form is stable.
func NewState(s *Snapshot) *State {
	st := &State{Snapshot: *s}
	if st.Proposals == nil {
		st.Proposals = []Proposal{}
	}
	if st.Critiques == nil {
		st.Critiques = []Critique{}
	}
	if st.Votes == nil {
		st.Votes = []Vote{}
	}
	st.ParticipantCount = len(s.Proposers())
	return st
}

// Proposal returns the proposal with the given ID, or nil.
func (s *Snapshot) Proposal(id int64) *Proposal {
	for i := range s.Proposals {
		if s.Proposals[i].ID == id {
			return &s.Proposals[i]
		}
	}
	return nil
}

// Proposers returns the set of agents with a proposal in the round.
func (s *Snapshot) Proposers() map[int64]bool {
	set := make(map[int64]bool, len(s.Proposals))
	for i := range s.Proposals {
		set[s.Proposals[i].AgentID] = true
	}
	return set
}

// Critics returns the set of agents with at least one critique in the round.
func (s *Snapshot) Critics() map[int64]bool {
	set := make(map[int64]bool, len(s.Critiques))
	for i := range s.Critiques {
		set[s.Critiques[i].AgentID] = true
	}
	return set
}

// AgentNames maps the authors of proposals and critiques to their names.
func (s *Snapshot) AgentNames() map[int64]string {
	names := make(map[int64]string, len(s.Proposals))
	for i := range s.Proposals {
		names[s.Proposals[i].AgentID] = s.Proposals[i].AgentName
	}
	for i := range s.Critiques {
		names[s.Critiques[i].AgentID] = s.Critiques[i].AgentName
	}
	return names
}
