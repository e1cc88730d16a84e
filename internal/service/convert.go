package service

import (
	"fmt"
	"sort"
	"time"

	"github.com/mmynk/officevote/internal/api"
	"github.com/mmynk/officevote/internal/models"
	"github.com/mmynk/officevote/internal/roster"
)

func toSettings(electionID string, s models.ElectionSettings) *api.Settings {
	out := &api.Settings{
		ElectionID:        electionID,
		MaxVotesPerOffice: make(map[string]int, len(s.MaxVotesPerOffice)),
		RoundPerOffice:    make(map[string]int, len(s.RoundPerOffice)),
		WindowStatus:      s.WindowStatus(time.Now()).String(),
	}
	for o, n := range s.MaxVotesPerOffice {
		out.MaxVotesPerOffice[string(o)] = n
	}
	for o, n := range s.RoundPerOffice {
		out.RoundPerOffice[string(o)] = n
	}
	if w := s.VotingWindow; w != nil {
		out.VotingStart, out.VotingEnd = w.Start, w.End
	}
	return out
}

// fromSettings accepts office codes or Korean labels as map keys.
func fromSettings(in *api.Settings) (models.ElectionSettings, error) {
	s := models.ElectionSettings{
		MaxVotesPerOffice: make(map[models.Office]int, len(in.MaxVotesPerOffice)),
		RoundPerOffice:    make(map[models.Office]int, len(in.RoundPerOffice)),
	}
	for k, n := range in.MaxVotesPerOffice {
		o, err := models.ParseOffice(k)
		if err != nil {
			return s, fmt.Errorf("maxVotesPerOffice: %w", err)
		}
		s.MaxVotesPerOffice[o] = n
	}
	for k, n := range in.RoundPerOffice {
		o, err := models.ParseOffice(k)
		if err != nil {
			return s, fmt.Errorf("roundPerOffice: %w", err)
		}
		s.RoundPerOffice[o] = n
	}
	if in.VotingStart != nil || in.VotingEnd != nil {
		s.VotingWindow = &models.VotingWindow{Start: in.VotingStart, End: in.VotingEnd}
	}
	return s, nil
}

func toCandidate(c models.Candidate, now time.Time) api.Candidate {
	age, _ := roster.AgeFromBirthdate(c.Birthdate, now)
	return api.Candidate{
		ID:           c.ID,
		Name:         c.Name,
		Office:       string(c.Office),
		Round:        c.Round,
		PhotoURL:     c.PhotoURL,
		Bio:          c.Bio,
		Birthdate:    c.Birthdate,
		Age:          age,
		VoteCount:    c.VoteCount,
		VotesByRound: c.VotesByRound,
	}
}

func toVoter(v models.Voter) api.Voter {
	out := api.Voter{
		ID:        v.ID,
		Name:      v.Name,
		Phone:     v.Phone,
		Birthdate: v.Birthdate,
		VotedAt:   v.VotedAt,
		Rehearsal: v.Rehearsal,
	}
	for k, done := range v.Participated {
		if done {
			out.Participated = append(out.Participated, k)
		}
	}
	sort.Strings(out.Participated)
	return out
}
