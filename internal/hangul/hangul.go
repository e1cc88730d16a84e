// Package hangul sorts and groups Korean names.
package hangul

import (
	"sort"
	"unicode/utf8"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Other is the group of names that do not start with Hangul.
const Other = "ETC"

const (
	syllableFirst = '가'
	syllableLast  = '힣'
	// 21 medial vowels x 28 finals per initial consonant
	syllablesPerInitial = 21 * 28
)

var initials = []rune{
	'ㄱ', 'ㄲ', 'ㄴ', 'ㄷ', 'ㄸ', 'ㄹ', 'ㅁ', 'ㅂ', 'ㅃ', 'ㅅ', 'ㅆ', 'ㅇ', 'ㅈ', 'ㅉ', 'ㅊ', 'ㅋ', 'ㅌ', 'ㅍ', 'ㅎ',
}

// tense consonants are grouped with their plain forms
var plain = map[rune]rune{
	'ㄲ': 'ㄱ',
	'ㄸ': 'ㄷ',
	'ㅃ': 'ㅂ',
	'ㅆ': 'ㅅ',
	'ㅉ': 'ㅈ',
}

// Tabs are the initial-consonant groups shown on the ballot, in order.
var Tabs = []string{"ㄱ", "ㄴ", "ㄷ", "ㄹ", "ㅁ", "ㅂ", "ㅅ", "ㅇ", "ㅈ", "ㅊ", "ㅋ", "ㅌ", "ㅍ", "ㅎ"}

// Initial returns the plain initial consonant of the first letter of s,
// e.g. "김" -> "ㄱ", "쌍" -> "ㅅ". Non-Hangul input returns Other.
func Initial(s string) string {
	r, _ := utf8.DecodeRuneInString(s)
	if r >= syllableFirst && r <= syllableLast {
		r = initials[(r-syllableFirst)/syllablesPerInitial]
	} else if !isInitial(r) {
		return Other
	}
	if p, ok := plain[r]; ok {
		r = p
	}
	return string(r)
}

func isInitial(r rune) bool {
	for _, i := range initials {
		if i == r {
			return true
		}
	}
	return false
}

// Sorter orders strings the way a Korean reader expects.
// A Sorter is not safe for concurrent use.
type Sorter struct {
	c *collate.Collator
}

// NewSorter returns a Sorter using Korean collation.
func NewSorter() *Sorter {
	return &Sorter{c: collate.New(language.Korean)}
}

// Compare returns -1, 0 or 1.
func (s *Sorter) Compare(a, b string) int {
	return s.c.CompareString(a, b)
}

// SortFunc sorts items by key, keeping equal keys in their original order.
func SortFunc[T any](s *Sorter, items []T, key func(T) string) {
	sort.SliceStable(items, func(i, j int) bool {
		return s.Compare(key(items[i]), key(items[j])) < 0
	})
}
