package roster

import (
	"strings"
	"unicode"
)

// canonical column names used in the csv struct tags
const (
	colName      = "name"
	colOffice    = "office"
	colRound     = "round"
	colPhoto     = "photo"
	colBio       = "bio"
	colBirthdate = "birthdate"
	colPhone     = "phone"
	colRehearsal = "rehearsal"
)

var headerAliases = map[string]string{
	"name": colName, "이름": colName, "성명": colName, "후보자": colName, "후보자명": colName,

	"office": colOffice, "position": colOffice, "직분": colOffice, "직책": colOffice, "구분": colOffice,

	"round": colRound, "차수": colRound, "회차": colRound,

	"photo": colPhoto, "photolink": colPhoto, "photourl": colPhoto, "image": colPhoto, "사진": colPhoto,

	"bio": colBio, "biography": colBio, "소개": colBio, "약력": colBio,

	"birthdate": colBirthdate, "birthday": colBirthdate, "dob": colBirthdate,
	"생년월일": colBirthdate, "생일": colBirthdate, "authkey": colBirthdate,

	"phone": colPhone, "mobile": colPhone, "tel": colPhone, "phonenumber": colPhone,
	"전화": colPhone, "전화번호": colPhone, "휴대폰": colPhone, "연락처": colPhone,

	"rehearsal": colRehearsal, "test": colRehearsal, "테스트": colRehearsal,
}

// canonicalHeader maps each header cell to its canonical column name. Unknown
// headers are kept lowercased so gocsv ignores them.
func canonicalHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		key := headerKey(h)
		if c, ok := headerAliases[key]; ok {
			out[i] = c
		} else {
			out[i] = key
		}
	}
	return out
}

func headerKey(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	var b strings.Builder
	for _, r := range strings.ToLower(h) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
