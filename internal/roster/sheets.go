package roster

import (
	"context"
	"fmt"
	"os"

	"google.golang.org/api/option"
	sheetsv4 "google.golang.org/api/sheets/v4"
)

// DefaultSheetRange reads the first sheet's first 26 columns.
const DefaultSheetRange = "A:Z"

// SheetsSource reads roster rows from Google Sheets with a service account.
type SheetsSource struct {
	srv *sheetsv4.Service
}

// NewSheetsSource creates a read-only Sheets client from a service account
// JSON key file.
func NewSheetsSource(ctx context.Context, credentialsFile string) (*SheetsSource, error) {
	if _, err := os.Stat(credentialsFile); err != nil {
		return nil, fmt.Errorf("service account json: %w", err)
	}
	srv, err := sheetsv4.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(sheetsv4.SpreadsheetsReadonlyScope),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	return &SheetsSource{srv: srv}, nil
}

// Rows returns the cells of readRange as strings.
func (s *SheetsSource) Rows(ctx context.Context, spreadsheetID, readRange string) ([][]string, error) {
	if readRange == "" {
		readRange = DefaultSheetRange
	}
	resp, err := s.srv.Spreadsheets.Values.Get(spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read spreadsheet %s: %w", spreadsheetID, err)
	}
	return stringRows(resp.Values), nil
}

func stringRows(values [][]interface{}) [][]string {
	rows := make([][]string, len(values))
	for i, row := range values {
		rows[i] = make([]string, len(row))
		for j, cell := range row {
			if cell != nil {
				rows[i][j] = fmt.Sprint(cell)
			}
		}
	}
	return rows
}
