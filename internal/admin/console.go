// Package admin implements the administrative operations on an election:
// roster imports, candidate and voter edits, photo uploads, settings and resets.
//
// Nothing here touches vote counters except ResetElection. Counters are
// otherwise owned by the ballot engine.
package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/officevote/internal/election"
	"github.com/mmynk/officevote/internal/filestorage"
	"github.com/mmynk/officevote/internal/models"
	"github.com/mmynk/officevote/internal/storage"
)

var (
	ErrInvalidCandidate = errors.New("invalid candidate")
	ErrInvalidVoter     = errors.New("invalid voter")
	ErrNotImage         = errors.New("file is not an image")
	ErrPhotoTooLarge    = errors.New("photo is too large")
	ErrPhotosDisabled   = errors.New("photo storage is not configured")
)

// MaxPhotoSize is the largest accepted photo upload.
const MaxPhotoSize = 5 << 20

// Progress is called after every committed batch with the number of writes
// done so far and the total.
type Progress func(done, total int)

// Console performs administrative operations.
type Console struct {
	store  storage.Store
	dir    *election.Directory
	photos filestorage.FileStorage
	newID  func() string
}

// NewConsole creates a Console. photos may be nil, in which case photo
// uploads fail with ErrPhotosDisabled.
func NewConsole(store storage.Store, dir *election.Directory, photos filestorage.FileStorage) *Console {
	return &Console{
		store:  store,
		dir:    dir,
		photos: photos,
		newID:  uuid.NewString,
	}
}

// Directory returns the election directory the console works on.
func (c *Console) Directory() *election.Directory {
	return c.dir
}

// writeBatches commits writes in chunks of storage.MaxBatchSize. A failure
// leaves earlier chunks committed.
func (c *Console) writeBatches(ctx context.Context, writes []storage.Write, progress Progress) error {
	for start := 0; start < len(writes); start += storage.MaxBatchSize {
		end := min(start+storage.MaxBatchSize, len(writes))
		if err := c.store.BatchWrite(ctx, writes[start:end]); err != nil {
			return fmt.Errorf("failed to write batch %d-%d of %d: %w", start, end, len(writes), err)
		}
		if progress != nil {
			progress(end, len(writes))
		}
	}
	return nil
}

// ImportCandidates stores new candidates with zeroed counters and fresh IDs.
// Candidates without a round get their office's live round.
func (c *Console) ImportCandidates(ctx context.Context, electionID string, candidates []models.Candidate, progress Progress) (int, error) {
	settings, err := c.dir.Settings(ctx, electionID)
	if err != nil {
		return 0, err
	}
	writes := make([]storage.Write, 0, len(candidates))
	for _, cand := range candidates {
		if cand.Round == 0 && cand.Office.Valid() {
			cand.Round = settings.Round(cand.Office)
		}
		if err := validateCandidate(cand); err != nil {
			return 0, err
		}
		cand.ResetVotes()
		w, err := storage.SetWrite(election.CandidatePath(electionID, c.newID()), cand)
		if err != nil {
			return 0, err
		}
		writes = append(writes, w)
	}
	if err := c.writeBatches(ctx, writes, progress); err != nil {
		return 0, err
	}
	slog.Info("Candidates imported", "election_id", electionID, "count", len(writes))
	return len(writes), nil
}

// ImportVoters stores new voters with no participation recorded.
func (c *Console) ImportVoters(ctx context.Context, electionID string, voters []models.Voter, progress Progress) (int, error) {
	writes := make([]storage.Write, 0, len(voters))
	for _, v := range voters {
		if err := validateVoter(v); err != nil {
			return 0, err
		}
		v.ResetParticipation()
		w, err := storage.SetWrite(election.VoterPath(electionID, c.newID()), v)
		if err != nil {
			return 0, err
		}
		writes = append(writes, w)
	}
	if err := c.writeBatches(ctx, writes, progress); err != nil {
		return 0, err
	}
	slog.Info("Voters imported", "election_id", electionID, "count", len(writes))
	return len(writes), nil
}

func validateCandidate(c models.Candidate) error {
	switch {
	case strings.TrimSpace(c.Name) == "":
		return fmt.Errorf("%w: missing name", ErrInvalidCandidate)
	case !c.Office.Valid():
		return fmt.Errorf("%w: unknown office %q", ErrInvalidCandidate, c.Office)
	case c.Round <= 0:
		return fmt.Errorf("%w: round must be positive", ErrInvalidCandidate)
	}
	return nil
}

func validateVoter(v models.Voter) error {
	if strings.TrimSpace(v.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidVoter)
	}
	if v.Phone == "" && v.Birthdate == "" {
		return fmt.Errorf("%w: %s has neither phone nor birthdate", ErrInvalidVoter, v.Name)
	}
	return nil
}

// ListCandidates returns the election's candidates in document ID order.
// An empty office lists every office; a zero round lists every round.
func (c *Console) ListCandidates(ctx context.Context, electionID string, office models.Office, round int) ([]models.Candidate, error) {
	cands, err := c.dir.Candidates(ctx, electionID, office)
	if err != nil || round <= 0 {
		return cands, err
	}
	out := cands[:0]
	for _, cand := range cands {
		if cand.Round == round {
			out = append(out, cand)
		}
	}
	return out, nil
}

// AddCandidate creates one candidate. A zero round means the office's live round.
func (c *Console) AddCandidate(ctx context.Context, electionID string, cand models.Candidate) (models.Candidate, error) {
	if cand.Round == 0 && cand.Office.Valid() {
		settings, err := c.dir.Settings(ctx, electionID)
		if err != nil {
			return models.Candidate{}, err
		}
		cand.Round = settings.Round(cand.Office)
	}
	cand.Name = strings.TrimSpace(cand.Name)
	if err := validateCandidate(cand); err != nil {
		return models.Candidate{}, err
	}
	cand.ResetVotes()
	cand.ID = c.newID()

	w, err := storage.SetWrite(election.CandidatePath(electionID, cand.ID), cand)
	if err != nil {
		return models.Candidate{}, err
	}
	if err := c.store.BatchWrite(ctx, []storage.Write{w}); err != nil {
		return models.Candidate{}, fmt.Errorf("failed to add candidate: %w", err)
	}
	slog.Info("Candidate added", "election_id", electionID, "candidate_id", cand.ID, "office", cand.Office, "round", cand.Round)
	return cand, nil
}

// DeleteCandidate removes a candidate, forfeiting its votes. Ballots already
// holding the candidate fail with a CandidateNotFoundError on submit.
func (c *Console) DeleteCandidate(ctx context.Context, electionID, candidateID string) error {
	return c.deleteDoc(ctx, election.CandidatePath(electionID, candidateID), "candidate")
}

// DeleteVoter removes a voter from the roster.
func (c *Console) DeleteVoter(ctx context.Context, electionID, voterID string) error {
	return c.deleteDoc(ctx, election.VoterPath(electionID, voterID), "voter")
}

func (c *Console) deleteDoc(ctx context.Context, path, kind string) error {
	if err := storage.ValidatePath(path); err != nil {
		return err
	}
	err := c.store.RunTransaction(ctx, func(ctx context.Context, tx storage.Txn) error {
		if _, err := tx.Get(ctx, path); err != nil {
			return err
		}
		tx.Delete(path)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s %s: %w", kind, storage.DocID(path), err)
	}
	slog.Info("Document deleted", "kind", kind, "path", path)
	return nil
}

// ListVoters returns the election's voters in document ID order.
func (c *Console) ListVoters(ctx context.Context, electionID string) ([]models.Voter, error) {
	docs, err := c.store.Query(ctx, election.VotersPath(electionID))
	if err != nil {
		return nil, fmt.Errorf("failed to list voters: %w", err)
	}
	out := make([]models.Voter, 0, len(docs))
	for _, d := range docs {
		var v models.Voter
		if err := d.Decode(&v); err != nil {
			return nil, fmt.Errorf("failed to decode voter %s: %w", d.ID(), err)
		}
		v.ID = d.ID()
		out = append(out, v)
	}
	return out, nil
}

// AddVoter creates one voter.
func (c *Console) AddVoter(ctx context.Context, electionID string, v models.Voter) (models.Voter, error) {
	v.Name = strings.TrimSpace(v.Name)
	if err := validateVoter(v); err != nil {
		return models.Voter{}, err
	}
	v.ResetParticipation()
	v.ID = c.newID()

	w, err := storage.SetWrite(election.VoterPath(electionID, v.ID), v)
	if err != nil {
		return models.Voter{}, err
	}
	if err := c.store.BatchWrite(ctx, []storage.Write{w}); err != nil {
		return models.Voter{}, fmt.Errorf("failed to add voter: %w", err)
	}
	slog.Info("Voter added", "election_id", electionID, "voter_id", v.ID, "rehearsal", v.Rehearsal)
	return v, nil
}

// UpdateSettings validates and stores an election's settings.
func (c *Console) UpdateSettings(ctx context.Context, electionID string, s models.ElectionSettings) (models.ElectionSettings, error) {
	if err := c.dir.SaveSettings(ctx, electionID, s); err != nil {
		return models.ElectionSettings{}, err
	}
	slog.Info("Settings updated", "election_id", electionID)
	return c.dir.Settings(ctx, electionID)
}

// candidateUpdate reads a candidate and writes back the result of fn in one
// transaction, so concurrent vote increments are not lost.
func (c *Console) candidateUpdate(ctx context.Context, electionID, candidateID string, fn func(*models.Candidate)) (models.Candidate, error) {
	path := election.CandidatePath(electionID, candidateID)
	if err := storage.ValidatePath(path); err != nil {
		return models.Candidate{}, err
	}
	var cand models.Candidate
	err := c.store.RunTransaction(ctx, func(ctx context.Context, tx storage.Txn) error {
		doc, err := tx.Get(ctx, path)
		if err != nil {
			return err
		}
		cand = models.Candidate{}
		if err := doc.Decode(&cand); err != nil {
			return err
		}
		fn(&cand)
		return tx.Set(path, cand)
	})
	if err != nil {
		return models.Candidate{}, fmt.Errorf("failed to update candidate %s: %w", candidateID, err)
	}
	cand.ID = candidateID
	return cand, nil
}

// UpdateCandidateProfile changes a candidate's displayed details. Empty
// fields are left as they are.
func (c *Console) UpdateCandidateProfile(ctx context.Context, electionID, candidateID, name, bio, photoURL string) (models.Candidate, error) {
	return c.candidateUpdate(ctx, electionID, candidateID, func(cand *models.Candidate) {
		if name = strings.TrimSpace(name); name != "" {
			cand.Name = name
		}
		if bio != "" {
			cand.Bio = bio
		}
		if photoURL != "" {
			cand.PhotoURL = photoURL
		}
	})
}

// CreateElection adds an election to the directory.
func (c *Console) CreateElection(ctx context.Context, id string) error {
	return c.dir.Create(ctx, id)
}

// SwitchElection makes id the active election.
func (c *Console) SwitchElection(ctx context.Context, id string) error {
	return c.dir.Switch(ctx, id)
}

// ListElections returns every election and the active one.
func (c *Console) ListElections(ctx context.Context) (models.SystemPointer, error) {
	return c.dir.Pointer(ctx)
}

func since(start time.Time) string {
	return time.Since(start).Round(time.Millisecond).String()
}
