// Package election manages the active-election pointer, the list of elections
// and each election's settings.
package election

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/mmynk/officevote/internal/models"
	"github.com/mmynk/officevote/internal/storage"
)

const (
	// DefaultElectionID is the election created on first use.
	DefaultElectionID = "default-2026"

	// SystemPath is the document holding the SystemPointer.
	SystemPath = "settings/system"
)

var (
	ErrElectionExists    = errors.New("election already exists")
	ErrUnknownElection   = errors.New("unknown election")
	ErrInvalidElectionID = errors.New("invalid election id")
)

// Election IDs are path segments, so slashes are not allowed. Korean names are.
var idPattern = regexp.MustCompile(`^[^/\s][^/]{0,62}[^/\s]$|^[^/\s]$`)

// SettingsPath returns the path of an election's settings document.
func SettingsPath(electionID string) string {
	return storage.Join("elections", electionID, "settings", "config")
}

// CandidatesPath returns the collection holding an election's candidates.
func CandidatesPath(electionID string) string {
	return storage.Join("elections", electionID, "candidates")
}

// CandidatePath returns the path of one candidate document.
func CandidatePath(electionID, candidateID string) string {
	return storage.Join(CandidatesPath(electionID), candidateID)
}

// VotersPath returns the collection holding an election's voters.
func VotersPath(electionID string) string {
	return storage.Join("elections", electionID, "voters")
}

// VoterPath returns the path of one voter document.
func VoterPath(electionID, voterID string) string {
	return storage.Join(VotersPath(electionID), voterID)
}

// ValidateID checks that id can be used as an election ID.
func ValidateID(id string) error {
	if !idPattern.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrInvalidElectionID, id)
	}
	return nil
}

// Directory reads and updates the election pointer and settings.
type Directory struct {
	store storage.Store
}

// NewDirectory creates a Directory on store.
func NewDirectory(store storage.Store) *Directory {
	return &Directory{store: store}
}

// Pointer returns the system pointer, creating it with the default election
// if it does not exist yet.
func (d *Directory) Pointer(ctx context.Context) (models.SystemPointer, error) {
	doc, err := d.store.Get(ctx, SystemPath)
	if err == nil {
		return decodePointer(doc)
	}
	if !storage.IsNotFound(err) {
		return models.SystemPointer{}, fmt.Errorf("failed to read election pointer: %w", err)
	}

	var p models.SystemPointer
	err = d.store.RunTransaction(ctx, func(ctx context.Context, tx storage.Txn) error {
		var err error
		p, err = readPointer(ctx, tx)
		if err != nil {
			return err
		}
		return tx.Set(SystemPath, p)
	})
	if err != nil {
		return models.SystemPointer{}, fmt.Errorf("failed to initialize election pointer: %w", err)
	}
	slog.Info("Initialized election pointer", "active_election_id", p.ActiveElectionID)
	return p, nil
}

// Active returns the ID of the active election.
func (d *Directory) Active(ctx context.Context) (string, error) {
	p, err := d.Pointer(ctx)
	if err != nil {
		return "", err
	}
	return p.ActiveElectionID, nil
}

// Resolve returns electionID if set, or the active election otherwise.
// A set ID must name a known election.
func (d *Directory) Resolve(ctx context.Context, electionID string) (string, error) {
	p, err := d.Pointer(ctx)
	if err != nil {
		return "", err
	}
	if electionID == "" {
		return p.ActiveElectionID, nil
	}
	if !p.Has(electionID) {
		return "", fmt.Errorf("%w: %s", ErrUnknownElection, electionID)
	}
	return electionID, nil
}

// List returns every election in creation order.
func (d *Directory) List(ctx context.Context) ([]string, error) {
	p, err := d.Pointer(ctx)
	if err != nil {
		return nil, err
	}
	return p.ElectionList, nil
}

// Create adds a new election and writes its default settings. The active
// election does not change.
func (d *Directory) Create(ctx context.Context, id string) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	err := d.store.RunTransaction(ctx, func(ctx context.Context, tx storage.Txn) error {
		p, err := readPointer(ctx, tx)
		if err != nil {
			return err
		}
		if p.Has(id) {
			return fmt.Errorf("%w: %s", ErrElectionExists, id)
		}
		_, err = tx.Get(ctx, SettingsPath(id))
		exists := err == nil
		if err != nil && !storage.IsNotFound(err) {
			return err
		}

		p.ElectionList = append(p.ElectionList, id)
		if err := tx.Set(SystemPath, p); err != nil {
			return err
		}
		if exists {
			// Settings left behind by an older deployment are kept.
			return nil
		}
		return tx.Set(SettingsPath(id), models.DefaultSettings())
	})
	if err != nil {
		return err
	}
	slog.Info("Election created", "election_id", id)
	return nil
}

// Switch makes id the active election.
func (d *Directory) Switch(ctx context.Context, id string) error {
	err := d.store.RunTransaction(ctx, func(ctx context.Context, tx storage.Txn) error {
		p, err := readPointer(ctx, tx)
		if err != nil {
			return err
		}
		if !p.Has(id) {
			return fmt.Errorf("%w: %s", ErrUnknownElection, id)
		}
		p.ActiveElectionID = id
		return tx.Set(SystemPath, p)
	})
	if err != nil {
		return err
	}
	slog.Info("Active election switched", "election_id", id)
	return nil
}

// Settings returns the settings of electionID with defaults applied.
func (d *Directory) Settings(ctx context.Context, electionID string) (models.ElectionSettings, error) {
	doc, err := d.store.Get(ctx, SettingsPath(electionID))
	if storage.IsNotFound(err) {
		return models.DefaultSettings(), nil
	}
	if err != nil {
		return models.ElectionSettings{}, fmt.Errorf("failed to read settings: %w", err)
	}
	return decodeSettings(doc)
}

// SaveSettings validates and stores the settings of electionID.
func (d *Directory) SaveSettings(ctx context.Context, electionID string, s models.ElectionSettings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	s.ApplyDefaults()
	w, err := storage.SetWrite(SettingsPath(electionID), s)
	if err != nil {
		return err
	}
	if err := d.store.BatchWrite(ctx, []storage.Write{w}); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// LoadSettings reads settings inside a transaction, applying defaults when the
// document is missing.
func LoadSettings(ctx context.Context, tx storage.Txn, electionID string) (models.ElectionSettings, error) {
	doc, err := tx.Get(ctx, SettingsPath(electionID))
	if storage.IsNotFound(err) {
		return models.DefaultSettings(), nil
	}
	if err != nil {
		return models.ElectionSettings{}, err
	}
	return decodeSettings(doc)
}

// Candidates returns every candidate of electionID, with IDs set, in
// document ID order. When office is set only that office's candidates are
// returned.
func (d *Directory) Candidates(ctx context.Context, electionID string, office models.Office) ([]models.Candidate, error) {
	var filters []storage.Filter
	if office != "" {
		filters = append(filters, storage.Where("office", storage.Eq, string(office)))
	}
	docs, err := d.store.Query(ctx, CandidatesPath(electionID), filters...)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	out := make([]models.Candidate, 0, len(docs))
	for _, doc := range docs {
		var c models.Candidate
		if err := doc.Decode(&c); err != nil {
			return nil, fmt.Errorf("failed to decode candidate %s: %w", doc.ID(), err)
		}
		c.ID = doc.ID()
		out = append(out, c)
	}
	return out, nil
}

func readPointer(ctx context.Context, tx storage.Txn) (models.SystemPointer, error) {
	doc, err := tx.Get(ctx, SystemPath)
	if storage.IsNotFound(err) {
		return models.SystemPointer{
			ActiveElectionID: DefaultElectionID,
			ElectionList:     []string{DefaultElectionID},
		}, nil
	}
	if err != nil {
		return models.SystemPointer{}, err
	}
	return decodePointer(doc)
}

func decodePointer(doc storage.Doc) (models.SystemPointer, error) {
	var p models.SystemPointer
	if err := doc.Decode(&p); err != nil {
		return p, fmt.Errorf("failed to decode election pointer: %w", err)
	}
	if p.ActiveElectionID == "" {
		p.ActiveElectionID = DefaultElectionID
	}
	if len(p.ElectionList) == 0 {
		p.ElectionList = []string{p.ActiveElectionID}
	}
	return p, nil
}

func decodeSettings(doc storage.Doc) (models.ElectionSettings, error) {
	var s models.ElectionSettings
	if err := doc.Decode(&s); err != nil {
		return s, fmt.Errorf("failed to decode settings: %w", err)
	}
	s.ApplyDefaults()
	return s, nil
}
