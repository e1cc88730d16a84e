package roster

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/mmynk/officevote/internal/models"
)

// CandidateRecord is one row of a candidate roster.
type CandidateRecord struct {
	Name      string `csv:"name"`
	Office    string `csv:"office"`
	Round     string `csv:"round"`
	Photo     string `csv:"photo"`
	Bio       string `csv:"bio"`
	Birthdate string `csv:"birthdate"`
}

// VoterRecord is one row of a voter roster.
type VoterRecord struct {
	Name      string `csv:"name"`
	Phone     string `csv:"phone"`
	Birthdate string `csv:"birthdate"`
	Rehearsal string `csv:"rehearsal"`
}

// RowError describes a skipped row. Line is 1-based and counts the header.
type RowError struct {
	Line   int
	Reason string
}

func (e RowError) String() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

// decodeRows maps the header and decodes every row into out. It returns the
// source line number of each decoded record.
func decodeRows(rows [][]string, out any, required ...string) ([]int, error) {
	if len(rows) == 0 {
		return nil, ErrEmptyRoster
	}
	header := canonicalHeader(rows[0])
	for _, col := range required {
		if !contains(header, col) {
			return nil, fmt.Errorf("roster is missing a %q column", col)
		}
	}

	var lines []int
	var body [][]string
	for i, row := range rows[1:] {
		if len(dropBlank([][]string{row})) == 0 {
			continue
		}
		lines = append(lines, i+2)
		body = append(body, row)
	}
	if err := gocsv.UnmarshalCSV(newRowsReader(header, body), out); err != nil {
		return nil, fmt.Errorf("failed to decode roster: %w", err)
	}
	return lines, nil
}

func contains(s []string, v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

// ParseCandidates converts roster rows into candidates. The first row is the
// header. Rows without a round get defaultRound; a zero defaultRound leaves
// Round unset so the importer can use the office's live round. Rows that
// cannot be used are reported and skipped.
func ParseCandidates(rows [][]string, defaultRound int) ([]models.Candidate, []RowError, error) {
	var records []*CandidateRecord
	lines, err := decodeRows(rows, &records, colName, colOffice)
	if err != nil {
		return nil, nil, err
	}
	if defaultRound < 0 {
		defaultRound = 0
	}

	var out []models.Candidate
	var skipped []RowError
	for i, r := range records {
		name := strings.TrimSpace(r.Name)
		if name == "" {
			skipped = append(skipped, RowError{Line: lines[i], Reason: "missing name"})
			continue
		}
		office, err := models.ParseOffice(r.Office)
		if err != nil {
			skipped = append(skipped, RowError{Line: lines[i], Reason: err.Error()})
			continue
		}
		round := defaultRound
		if s := strings.TrimSpace(r.Round); s != "" {
			n, err := strconv.Atoi(Digits(s))
			if err != nil || n <= 0 {
				skipped = append(skipped, RowError{Line: lines[i], Reason: fmt.Sprintf("invalid round %q", s)})
				continue
			}
			round = n
		}
		out = append(out, models.Candidate{
			Name:      name,
			Office:    office,
			Round:     round,
			PhotoURL:  DriveImageURL(r.Photo),
			Bio:       strings.TrimSpace(r.Bio),
			Birthdate: NormalizeBirthdate(r.Birthdate),
		})
	}
	return out, skipped, nil
}

// ParseVoters converts roster rows into voters. Phone numbers and birthdates
// are normalized the same way login input is.
func ParseVoters(rows [][]string) ([]models.Voter, []RowError, error) {
	var records []*VoterRecord
	lines, err := decodeRows(rows, &records, colName, colPhone, colBirthdate)
	if err != nil {
		return nil, nil, err
	}

	var out []models.Voter
	var skipped []RowError
	for i, r := range records {
		v := models.Voter{
			Name:      strings.TrimSpace(r.Name),
			Phone:     NormalizePhone(r.Phone),
			Birthdate: NormalizeBirthdate(r.Birthdate),
			Rehearsal: parseBool(r.Rehearsal),
		}
		switch {
		case v.Name == "":
			skipped = append(skipped, RowError{Line: lines[i], Reason: "missing name"})
		case v.Phone == "" && v.Birthdate == "":
			skipped = append(skipped, RowError{Line: lines[i], Reason: "missing phone and birthdate"})
		default:
			out = append(out, v)
		}
	}
	return out, skipped, nil
}
