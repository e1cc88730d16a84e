package roster

import (
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/korean"

	"github.com/mmynk/officevote/internal/models"
)

func TestReadRowsCSV(t *testing.T) {
	t.Run("utf-8 with BOM", func(t *testing.T) {
		data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("이름,직분\n김철수,장로\n")...)
		rows, err := ReadRows(FormatCSV, data)
		if err != nil {
			t.Fatalf("ReadRows failed: %v", err)
		}
		if len(rows) != 2 || rows[0][0] != "이름" || rows[1][1] != "장로" {
			t.Errorf("Unexpected rows: %q", rows)
		}
	})

	t.Run("euc-kr", func(t *testing.T) {
		encoded, err := korean.EUCKR.NewEncoder().String("이름,직분\n박영희,권사\n")
		if err != nil {
			t.Fatalf("encode failed: %v", err)
		}
		rows, err := ReadRows(FormatCSV, []byte(encoded))
		if err != nil {
			t.Fatalf("ReadRows failed: %v", err)
		}
		if len(rows) != 2 || rows[1][0] != "박영희" || rows[1][1] != "권사" {
			t.Errorf("Unexpected rows: %q", rows)
		}
	})

	t.Run("ragged rows", func(t *testing.T) {
		rows, err := ReadRows(FormatCSV, []byte("name,office,round\nA,elder\n"))
		if err != nil {
			t.Fatalf("ReadRows failed: %v", err)
		}
		if len(rows[1]) != 2 {
			t.Errorf("Expected the short row to be kept as is, got %q", rows[1])
		}
	})
}

func TestReadRowsXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	if err := f.SetSheetRow(sheet, "A1", &[]interface{}{"이름", "전화번호", "생년월일"}); err != nil {
		t.Fatalf("SetSheetRow failed: %v", err)
	}
	if err := f.SetSheetRow(sheet, "A2", &[]interface{}{"김철수", "01012345678", "19650302"}); err != nil {
		t.Fatalf("SetSheetRow failed: %v", err)
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer failed: %v", err)
	}

	rows, err := ReadRows(FormatXLSX, buf.Bytes())
	if err != nil {
		t.Fatalf("ReadRows failed: %v", err)
	}
	voters, skipped, err := ParseVoters(rows)
	if err != nil {
		t.Fatalf("ParseVoters failed: %v", err)
	}
	if len(skipped) != 0 || len(voters) != 1 {
		t.Fatalf("Expected 1 voter, got %d (skipped %v)", len(voters), skipped)
	}
	if v := voters[0]; v.Name != "김철수" || v.Phone != "010-1234-5678" || v.Birthdate != "19650302" {
		t.Errorf("Unexpected voter: %+v", v)
	}
}

func TestParseCandidates(t *testing.T) {
	rows := [][]string{
		{"\ufeffName", "Position", "차수", "PhotoLink", "Bio", "Extra"},
		{"김철수", "장로", "", "https://drive.google.com/file/d/1AbCdEfGhIjKlMnOpQrStUvWxYz012345/view", " 성가대 ", "x"},
		{"박영희", "kwonsa", "2"},
		{"", "", "", "", "", ""},
		{"이순신", "목사", "1"},
		{"", "elder", "1"},
		{"홍길동", "ansu", "two"},
	}
	got, skipped, err := ParseCandidates(rows, 1)
	if err != nil {
		t.Fatalf("ParseCandidates failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 candidates, got %d: %+v", len(got), got)
	}

	first := got[0]
	if first.Office != models.OfficeElder || first.Round != 1 || first.Bio != "성가대" {
		t.Errorf("Unexpected first candidate: %+v", first)
	}
	if first.PhotoURL != "https://lh3.googleusercontent.com/d/1AbCdEfGhIjKlMnOpQrStUvWxYz012345" {
		t.Errorf("Drive link not converted: %s", first.PhotoURL)
	}
	if got[1].Office != models.OfficeDeaconess || got[1].Round != 2 {
		t.Errorf("Unexpected second candidate: %+v", got[1])
	}

	wantLines := []int{5, 6, 7}
	if len(skipped) != len(wantLines) {
		t.Fatalf("Expected %d skipped rows, got %v", len(wantLines), skipped)
	}
	for i, line := range wantLines {
		if skipped[i].Line != line {
			t.Errorf("Skipped row %d: expected line %d, got %d", i, line, skipped[i].Line)
		}
	}
}

func TestParseMissingColumn(t *testing.T) {
	if _, _, err := ParseVoters([][]string{{"name", "phone"}}); err == nil {
		t.Error("Expected an error for a roster without a birthdate column")
	}
	if _, _, err := ParseCandidates(nil, 1); err != ErrEmptyRoster {
		t.Errorf("Expected ErrEmptyRoster, got %v", err)
	}
}

func TestParseVotersRehearsal(t *testing.T) {
	rows := [][]string{
		{"이름", "연락처", "생일", "테스트"},
		{"관리자", "1012345678", "1970.01.01", "예"},
		{"김철수", "010 9876 5432", "", ""},
		{"무명", "", "", ""},
	}
	voters, skipped, err := ParseVoters(rows)
	if err != nil {
		t.Fatalf("ParseVoters failed: %v", err)
	}
	if len(voters) != 2 || len(skipped) != 1 {
		t.Fatalf("Expected 2 voters and 1 skipped, got %d and %v", len(voters), skipped)
	}
	if !voters[0].Rehearsal || voters[0].Phone != "010-1234-5678" || voters[0].Birthdate != "19700101" {
		t.Errorf("Unexpected rehearsal voter: %+v", voters[0])
	}
	if voters[1].Rehearsal {
		t.Error("Expected an ordinary voter")
	}
}

func TestNormalizePhone(t *testing.T) {
	tests := map[string]string{
		"01012345678":   "010-1234-5678",
		"010-1234-5678": "010-1234-5678",
		"1012345678":    "010-1234-5678",
		"011 234 5678":  "011-234-5678",
		"02-123-4567":   "021234567",
		"":              "",
	}
	for in, want := range tests {
		if got := NormalizePhone(in); got != want {
			t.Errorf("NormalizePhone(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDriveImageURL(t *testing.T) {
	tests := map[string]string{
		"https://drive.google.com/open?id=1AbCdEfGhIjKlMnOpQrStUvWxYz012345": "https://lh3.googleusercontent.com/d/1AbCdEfGhIjKlMnOpQrStUvWxYz012345",
		"https://example.com/photo.jpg":                                      "https://example.com/photo.jpg",
		"https://drive.google.com/drive/folders":                             "https://drive.google.com/drive/folders",
		"":                                                                   "",
	}
	for in, want := range tests {
		if got := DriveImageURL(in); got != want {
			t.Errorf("DriveImageURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAgeFromBirthdate(t *testing.T) {
	now := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{"19650302", 61, true},
		{"1965-03-16", 60, true},
		{"650302", 61, true},
		{"050302", 21, true},
		{"1965", 61, true},
		{"2027", 0, false},
		{"19651302", 0, false},
		{"abc", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := AgeFromBirthdate(tt.in, now)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("AgeFromBirthdate(%q) = %d, %v; want %d, %v", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
