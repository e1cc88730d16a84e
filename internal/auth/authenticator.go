package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mmynk/officevote/internal/election"
	"github.com/mmynk/officevote/internal/models"
	"github.com/mmynk/officevote/internal/roster"
	"github.com/mmynk/officevote/internal/storage"
)

var ErrInvalidCredentials = errors.New("no voter matches the given name, phone and birthdate")

// Authenticator resolves voter login details to a roster entry.
type Authenticator interface {
	// Authenticate returns the voter of electionID matching every credential.
	// Returns ErrInvalidCredentials if none does.
	Authenticate(ctx context.Context, electionID, name, phone, birthdate string) (*models.Voter, error)
}

// RosterAuthenticator matches login details against the stored voter roster.
// Phone numbers and birthdates are normalized the same way imports store them,
// so "01012345678" matches "010-1234-5678".
type RosterAuthenticator struct {
	store storage.Store
}

// NewRosterAuthenticator creates a RosterAuthenticator.
func NewRosterAuthenticator(store storage.Store) *RosterAuthenticator {
	return &RosterAuthenticator{store: store}
}

func (a *RosterAuthenticator) Authenticate(ctx context.Context, electionID, name, phone, birthdate string) (*models.Voter, error) {
	name = strings.TrimSpace(name)
	phone = roster.NormalizePhone(phone)
	birthdate = roster.NormalizeBirthdate(birthdate)
	if name == "" || phone == "" || birthdate == "" {
		return nil, ErrInvalidCredentials
	}

	docs, err := a.store.Query(ctx, election.VotersPath(electionID),
		storage.Where("name", storage.Eq, name),
		storage.Where("phone", storage.Eq, phone),
		storage.Where("birthdate", storage.Eq, birthdate),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to look up voter: %w", err)
	}
	if len(docs) == 0 {
		return nil, ErrInvalidCredentials
	}

	var v models.Voter
	if err := docs[0].Decode(&v); err != nil {
		return nil, fmt.Errorf("failed to decode voter %s: %w", docs[0].ID(), err)
	}
	v.ID = docs[0].ID()
	return &v, nil
}
