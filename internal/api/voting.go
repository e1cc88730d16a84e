package api

import "time"

// RequestCodeRequest identifies a voter of the active election. A login code
// is sent to the phone on their roster entry.
type RequestCodeRequest struct {
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Birthdate string `json:"birthdate"`
}

type RequestCodeResponse struct {
	VerificationID string    `json:"verificationId"`
	ExpiresAt      time.Time `json:"expiresAt"`
}

// VoterLoginRequest confirms the code sent by RequestCode.
type VoterLoginRequest struct {
	VerificationID string `json:"verificationId"`
	Code           string `json:"code"`
}

type VoterLoginResponse struct {
	Token      string    `json:"token"`
	ExpiresAt  time.Time `json:"expiresAt"`
	ElectionID string    `json:"electionId"`
	VoterName  string    `json:"voterName"`

	// PendingOffices lists the offices still on this voter's ballot.
	PendingOffices []string `json:"pendingOffices"`

	Rehearsal bool `json:"rehearsal,omitempty"`
}

type Empty struct{}

// BallotCandidate is a candidate as shown on the ballot.
type BallotCandidate struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	PhotoURL string `json:"photoUrl,omitempty"`
	Bio      string `json:"bio,omitempty"`
	Age      int    `json:"age,omitempty"`

	// Initial is the Hangul initial consonant used to group names.
	Initial string `json:"initial"`
}

// OfficeBallot is the ballot page of one office.
type OfficeBallot struct {
	Office     string            `json:"office"`
	Label      string            `json:"label"`
	Round      int               `json:"round"`
	MaxVotes   int               `json:"maxVotes"`
	Candidates []BallotCandidate `json:"candidates"`
}

// BallotView is the state of a voting session.
type BallotView struct {
	State   string        `json:"state"`
	Step    int           `json:"step"`
	Steps   int           `json:"steps"`
	Offices []string      `json:"offices"`
	Current *OfficeBallot `json:"current,omitempty"`

	// Selected maps each office to the chosen candidate IDs.
	Selected map[string][]string `json:"selected"`

	Rehearsal bool `json:"rehearsal,omitempty"`
}

type SelectRequest struct {
	CandidateID string `json:"candidateId"`
	Selected    bool   `json:"selected"`
}

type SubmitResponse struct {
	SubmittedOffices []string       `json:"submittedOffices"`
	Rounds           map[string]int `json:"rounds"`
	Votes            int            `json:"votes"`
	Rehearsal        bool           `json:"rehearsal,omitempty"`
}
