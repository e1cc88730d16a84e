// Package models defines the core domain models for officevote.
//
// # Models
//
//   - SystemPointer: the deployment-wide pointer to the active election
//   - ElectionSettings: per-election vote caps, live rounds and voting window
//   - Candidate: a person standing for one office in one round, with tallies
//   - Voter: a member of the voting roster and the ballots they have cast
//
// Every model is stored as a JSON document. Document IDs live in the document
// path, not in the body, so ID fields are tagged `json:"-"` and filled in by
// the code that loaded them.
//
// # Offices and rounds
//
// An office is voted on in numbered rounds. Settings name the round that is
// currently live for each office, and only candidates whose Round matches it
// can receive votes. A voter's participation is keyed by "<office>_<round>"
// (see ParticipationKey), so a new round for an office lets everyone vote for
// that office again without touching the other offices.
//
// # Counters
//
// Candidate.VotesByRound is the authoritative per-round tally and
// Candidate.VoteCount is the cumulative rollup. The two are only changed
// together through Candidate.AddVote.
package models
