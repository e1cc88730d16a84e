package roster

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Digits returns only the ASCII digits of s.
func Digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizePhone formats a Korean mobile number as 010-1234-5678.
// A leading zero dropped by a spreadsheet is restored. Numbers that do not
// look like mobile numbers are returned as bare digits.
func NormalizePhone(s string) string {
	d := Digits(s)
	if len(d) == 10 && strings.HasPrefix(d, "10") {
		d = "0" + d
	}
	switch {
	case len(d) == 11 && strings.HasPrefix(d, "01"):
		return d[:3] + "-" + d[3:7] + "-" + d[7:]
	case len(d) == 10 && strings.HasPrefix(d, "01"):
		return d[:3] + "-" + d[3:6] + "-" + d[6:]
	}
	return d
}

// NormalizeBirthdate keeps only the digits, so "1965-03-02", "1965.03.02" and
// "19650302" compare equal.
func NormalizeBirthdate(s string) string {
	return Digits(s)
}

var driveID = regexp.MustCompile(`[-\w]{25,}`)

// DriveImageURL turns a Google Drive share link into a direct image URL.
// Links without a Drive file ID are returned unchanged.
func DriveImageURL(link string) string {
	link = strings.TrimSpace(link)
	if link == "" || !strings.Contains(link, "google.com") {
		return link
	}
	id := driveID.FindString(link)
	if id == "" {
		return link
	}
	return "https://lh3.googleusercontent.com/d/" + id
}

// AgeFromBirthdate returns the age in full years on now. It accepts YYYYMMDD,
// YYMMDD and YYYY, with or without separators. Two-digit years later than the
// current year are read as 19xx. ok is false when the date cannot be parsed.
func AgeFromBirthdate(birthdate string, now time.Time) (age int, ok bool) {
	d := Digits(birthdate)
	var year, month, day int
	switch len(d) {
	case 8:
		year, _ = strconv.Atoi(d[:4])
		month, _ = strconv.Atoi(d[4:6])
		day, _ = strconv.Atoi(d[6:])
	case 6:
		yy, _ := strconv.Atoi(d[:2])
		if yy > now.Year()%100 {
			year = 1900 + yy
		} else {
			year = 2000 + yy
		}
		month, _ = strconv.Atoi(d[2:4])
		day, _ = strconv.Atoi(d[4:])
	case 4:
		year, _ = strconv.Atoi(d)
		month, day = 1, 1
	default:
		return 0, false
	}
	if month < 1 || month > 12 || day < 1 || day > 31 || year > now.Year() {
		return 0, false
	}

	age = now.Year() - year
	if int(now.Month()) < month || (int(now.Month()) == month && now.Day() < day) {
		age--
	}
	return age, age >= 0
}

var truthy = map[string]bool{
	"true": true, "t": true, "yes": true, "y": true, "1": true, "o": true, "예": true, "네": true,
}

func parseBool(s string) bool {
	return truthy[strings.ToLower(strings.TrimSpace(s))]
}
