// Package tally computes standings and election thresholds from stored votes.
package tally

import "github.com/mmynk/officevote/internal/models"

// IsElected reports whether votes out of ballotsCast meets the office's threshold.
//
// Rules:
// - Elder: at least two thirds of ballots cast (votes*3 >= ballots*2)
// - Other offices: more than half of ballots cast (votes*2 > ballots)
// - Nobody is elected when no ballots were cast
//
// ballotsCast is the number of voters who submitted a ballot for the office
// round, not the number of votes: one ballot may select several candidates.
func IsElected(office models.Office, votes, ballotsCast int) bool {
	if ballotsCast <= 0 {
		return false
	}
	if office == models.OfficeElder {
		return votes*3 >= ballotsCast*2
	}
	return votes*2 > ballotsCast
}

// RequiredVotes returns the smallest vote count that is elected.
// It returns 0 when no ballots were cast.
func RequiredVotes(office models.Office, ballotsCast int) int {
	if ballotsCast <= 0 {
		return 0
	}
	if office == models.OfficeElder {
		// ceil(2b/3)
		return (2*ballotsCast + 2) / 3
	}
	// floor(b/2)+1
	return ballotsCast/2 + 1
}
