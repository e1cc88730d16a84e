package models

import "time"

// Voter is a member of an election's voting roster.
type Voter struct {
	// ID is the document ID within the election's voters collection.
	ID string `json:"-"`

	// Name, Phone and Birthdate together identify the voter at login.
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Birthdate string `json:"birthdate"`

	// Participated marks each "<office>_<round>" the voter has cast a ballot for.
	Participated map[string]bool `json:"participated,omitempty"`

	// HasVoted is set on any successful ballot.
	// Deprecated: use Participated, which is scoped per office and round.
	HasVoted bool `json:"hasVoted"`

	// VotedAt is the time of the voter's most recent ballot.
	VotedAt *time.Time `json:"votedAt"`

	// Rehearsal marks an administrative test voter. When rehearsal mode is
	// enabled the voter may vote any number of times and their participation
	// is never recorded. Their votes still count.
	Rehearsal bool `json:"rehearsal,omitempty"`
}

// HasParticipated reports whether the voter already voted for office in round.
func (v Voter) HasParticipated(office Office, round int) bool {
	return v.Participated[ParticipationKey(office, round)]
}

// MarkParticipated records a ballot for each office at its live round.
func (v *Voter) MarkParticipated(settings ElectionSettings, offices []Office, at time.Time) {
	if v.Participated == nil {
		v.Participated = make(map[string]bool, len(offices))
	}
	for _, o := range offices {
		v.Participated[ParticipationKey(o, settings.Round(o))] = true
	}
	v.HasVoted = true
	t := at
	v.VotedAt = &t
}

// ResetParticipation forgets every ballot the voter has cast.
func (v *Voter) ResetParticipation() {
	v.Participated = nil
	v.HasVoted = false
	v.VotedAt = nil
}
