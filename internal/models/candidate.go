package models

// Candidate is a person standing for one office in one round.
// Candidates are created by roster import or by an administrator, and their
// counters are only ever changed by the ballot engine.
type Candidate struct {
	// ID is the document ID within the election's candidates collection.
	ID string `json:"-"`

	// Name is the candidate's full name as printed on the ballot.
	Name string `json:"name"`

	// Office is the office the candidate stands for.
	Office Office `json:"office"`

	// Round is the round this candidate record is eligible in. A candidate
	// carried over to a runoff gets a new record with a higher round.
	Round int `json:"round"`

	// PhotoURL is a public image URL, either uploaded or imported.
	PhotoURL string `json:"photoUrl,omitempty"`

	// Bio is free text shown under the candidate's name.
	Bio string `json:"bio,omitempty"`

	// Birthdate is optional and only used to display age.
	// Accepted forms: YYYYMMDD, YYMMDD, YYYY, with or without separators.
	Birthdate string `json:"birthdate,omitempty"`

	// VoteCount is the cumulative number of votes across all rounds.
	VoteCount int `json:"voteCount"`

	// VotesByRound is the authoritative per-round tally.
	VotesByRound map[int]int `json:"votesByRound,omitempty"`
}

// AddVote records one vote in the candidate's own round.
func (c *Candidate) AddVote() {
	if c.VotesByRound == nil {
		c.VotesByRound = make(map[int]int)
	}
	c.VotesByRound[c.Round]++
	c.VoteCount++
}

// Votes returns the votes received in round.
func (c Candidate) Votes(round int) int {
	return c.VotesByRound[round]
}

// Consistent reports whether VoteCount equals the sum of VotesByRound.
func (c Candidate) Consistent() bool {
	sum := 0
	for _, n := range c.VotesByRound {
		sum += n
	}
	return sum == c.VoteCount
}

// ResetVotes clears every counter.
func (c *Candidate) ResetVotes() {
	c.VoteCount = 0
	c.VotesByRound = nil
}
