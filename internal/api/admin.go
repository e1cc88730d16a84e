package api

import "time"

type AdminLoginRequest struct {
	Password string `json:"password"`
}

type AdminLoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type ListElectionsResponse struct {
	ActiveElectionID string   `json:"activeElectionId"`
	Elections        []string `json:"elections"`
}

type ElectionRequest struct {
	ElectionID string `json:"electionId"`
}

// Settings is an election's configuration. Maps are keyed by office code.
type Settings struct {
	ElectionID        string         `json:"electionId,omitempty"`
	MaxVotesPerOffice map[string]int `json:"maxVotesPerOffice"`
	RoundPerOffice    map[string]int `json:"roundPerOffice"`
	VotingStart       *time.Time     `json:"votingStart,omitempty"`
	VotingEnd         *time.Time     `json:"votingEnd,omitempty"`

	// WindowStatus is "open", "not_started" or "closed". Ignored on update.
	WindowStatus string `json:"windowStatus,omitempty"`
}

// ImportRequest carries a roster file, or names a Google Sheet when Format is
// "sheets".
type ImportRequest struct {
	ElectionID    string `json:"electionId,omitempty"`
	Format        string `json:"format"`
	Data          []byte `json:"data,omitempty"`
	SpreadsheetID string `json:"spreadsheetId,omitempty"`
	Range         string `json:"range,omitempty"`

	// DefaultRound applies to candidate rows without a round.
	DefaultRound int `json:"defaultRound,omitempty"`
}

type ImportResponse struct {
	Imported int      `json:"imported"`
	Skipped  []string `json:"skipped,omitempty"`
}

type Candidate struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Office       string      `json:"office"`
	Round        int         `json:"round"`
	PhotoURL     string      `json:"photoUrl,omitempty"`
	Bio          string      `json:"bio,omitempty"`
	Birthdate    string      `json:"birthdate,omitempty"`
	Age          int         `json:"age,omitempty"`
	VoteCount    int         `json:"voteCount"`
	VotesByRound map[int]int `json:"votesByRound,omitempty"`
}

type ListCandidatesRequest struct {
	ElectionID string `json:"electionId,omitempty"`
	Office     string `json:"office,omitempty"`
	Round      int    `json:"round,omitempty"`
}

type ListCandidatesResponse struct {
	Candidates []Candidate `json:"candidates"`
}

type AddCandidateRequest struct {
	ElectionID string `json:"electionId,omitempty"`
	Name       string `json:"name"`
	Office     string `json:"office"`
	Round      int    `json:"round,omitempty"`
	PhotoURL   string `json:"photoUrl,omitempty"`
	Bio        string `json:"bio,omitempty"`
	Birthdate  string `json:"birthdate,omitempty"`
}

// UpdateCandidateRequest changes displayed details. Empty fields are kept.
type UpdateCandidateRequest struct {
	ElectionID  string `json:"electionId,omitempty"`
	CandidateID string `json:"candidateId"`
	Name        string `json:"name,omitempty"`
	Bio         string `json:"bio,omitempty"`
	PhotoURL    string `json:"photoUrl,omitempty"`
}

type UploadPhotoRequest struct {
	ElectionID  string `json:"electionId,omitempty"`
	CandidateID string `json:"candidateId"`
	Filename    string `json:"filename"`
	Data        []byte `json:"data"`
}

type DeleteRequest struct {
	ElectionID string `json:"electionId,omitempty"`
	ID         string `json:"id"`
}

type Voter struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Phone        string     `json:"phone"`
	Birthdate    string     `json:"birthdate"`
	Participated []string   `json:"participated,omitempty"`
	VotedAt      *time.Time `json:"votedAt,omitempty"`
	Rehearsal    bool       `json:"rehearsal,omitempty"`
}

type ListVotersResponse struct {
	Voters []Voter `json:"voters"`
}

type AddVoterRequest struct {
	ElectionID string `json:"electionId,omitempty"`
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Birthdate  string `json:"birthdate"`
	Rehearsal  bool   `json:"rehearsal,omitempty"`
}

type ResetRequest struct {
	ElectionID string `json:"electionId,omitempty"`
	Candidates bool   `json:"candidates"`
	Voters     bool   `json:"voters"`
	VotesOnly  bool   `json:"votesOnly"`
}

type ResetResponse struct {
	CandidatesDeleted int `json:"candidatesDeleted"`
	VotersDeleted     int `json:"votersDeleted"`
	CandidatesReset   int `json:"candidatesReset"`
	VotersReset       int `json:"votersReset"`
}
