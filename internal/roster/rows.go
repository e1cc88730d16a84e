// Package roster reads candidate and voter rosters from CSV, XLSX and Google Sheets.
//
// Every source is first turned into rows of strings. The header row is mapped
// to canonical column names (English or Korean headers are accepted) and the
// rows are then decoded with gocsv into record structs.
package roster

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"
)

// Format names a roster file format.
type Format string

const (
	FormatCSV    Format = "csv"
	FormatXLSX   Format = "xlsx"
	FormatSheets Format = "sheets"
)

// ParseFormat accepts a format name or a file extension.
func ParseFormat(s string) (Format, error) {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".") {
	case "csv", "txt":
		return FormatCSV, nil
	case "xlsx", "xlsm":
		return FormatXLSX, nil
	case "sheets", "gsheet":
		return FormatSheets, nil
	}
	return "", fmt.Errorf("unsupported roster format %q", s)
}

var ErrEmptyRoster = errors.New("roster has no header row")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadRows reads every row of a CSV or XLSX file. CSV files that are not valid
// UTF-8 are decoded as EUC-KR, which is what Korean Excel exports by default.
func ReadRows(format Format, data []byte) ([][]string, error) {
	switch format {
	case FormatCSV:
		return readCSV(data)
	case FormatXLSX:
		return readXLSX(data)
	}
	return nil, fmt.Errorf("cannot read %s roster from a file", format)
}

func readCSV(data []byte) ([][]string, error) {
	var in io.Reader
	if utf8.Valid(data) {
		in = bytes.NewReader(bytes.TrimPrefix(data, utf8BOM))
	} else {
		in = transform.NewReader(bytes.NewReader(data), korean.EUCKR.NewDecoder())
	}
	r := csv.NewReader(in)
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	return rows, nil
}

func readXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyRoster
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	return rows, nil
}

// rowsReader feeds prepared rows to gocsv. Rows are padded to the header width
// because spreadsheet exports drop trailing empty cells.
type rowsReader struct {
	rows [][]string
	next int
}

func newRowsReader(header []string, body [][]string) *rowsReader {
	rows := make([][]string, 0, len(body)+1)
	rows = append(rows, header)
	for _, row := range body {
		if len(row) < len(header) {
			padded := make([]string, len(header))
			copy(padded, row)
			row = padded
		}
		rows = append(rows, row[:len(header)])
	}
	return &rowsReader{rows: rows}
}

func (r *rowsReader) Read() ([]string, error) {
	if r.next >= len(r.rows) {
		return nil, io.EOF
	}
	row := r.rows[r.next]
	r.next++
	return row, nil
}

func (r *rowsReader) ReadAll() ([][]string, error) {
	rest := r.rows[r.next:]
	r.next = len(r.rows)
	return rest, nil
}

// dropBlank removes rows whose cells are all empty.
func dropBlank(rows [][]string) [][]string {
	out := rows[:0]
	for _, row := range rows {
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				out = append(out, row)
				break
			}
		}
	}
	return out
}
