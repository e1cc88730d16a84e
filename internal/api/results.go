package api

type GetResultsRequest struct {
	// ElectionID defaults to the active election.
	ElectionID string `json:"electionId,omitempty"`
	Office     string `json:"office"`

	// Round defaults to the office's live round.
	Round int `json:"round,omitempty"`
}

type Standing struct {
	CandidateID string `json:"candidateId"`
	Name        string `json:"name"`
	PhotoURL    string `json:"photoUrl,omitempty"`
	Votes       int    `json:"votes"`
	Rank        int    `json:"rank"`
	Elected     bool   `json:"elected"`
}

type Standings struct {
	ElectionID    string     `json:"electionId"`
	Office        string     `json:"office"`
	Label         string     `json:"label"`
	Round         int        `json:"round"`
	BallotsCast   int        `json:"ballotsCast"`
	RequiredVotes int        `json:"requiredVotes"`
	Candidates    []Standing `json:"candidates"`
}

type GetOverviewRequest struct {
	ElectionID string `json:"electionId,omitempty"`
}

type Overview struct {
	ElectionID  string      `json:"electionId"`
	Offices     []Standings `json:"offices"`
	TotalVoters int         `json:"totalVoters"`
	Turnout     int         `json:"turnout"`
}
