package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Office is a church office that candidates are elected to.
type Office string

const (
	OfficeElder     Office = "elder"
	OfficeDeacon    Office = "deacon"    // ordained deacon
	OfficeDeaconess Office = "deaconess" // kwonsa
)

// Offices lists every office in ballot order. Sessions walk offices in this order.
var Offices = []Office{OfficeElder, OfficeDeacon, OfficeDeaconess}

var officeLabels = map[Office]string{
	OfficeElder:     "장로",
	OfficeDeacon:    "안수집사",
	OfficeDeaconess: "권사",
}

// aliases accepted by ParseOffice, in addition to the codes and labels above.
// The short romanized forms come from roster spreadsheets and photo folders.
var officeAliases = map[string]Office{
	"ansu":   OfficeDeacon,
	"kwonsa": OfficeDeaconess,
	"장로후보":   OfficeElder,
	"안수집사후보": OfficeDeacon,
	"권사후보":   OfficeDeaconess,
}

// Label returns the Korean display name of the office.
func (o Office) Label() string {
	if l, ok := officeLabels[o]; ok {
		return l
	}
	return string(o)
}

// Valid reports whether o is one of the known offices.
func (o Office) Valid() bool {
	_, ok := officeLabels[o]
	return ok
}

// Index returns the position of o in ballot order, or -1 if unknown.
func (o Office) Index() int {
	for i, office := range Offices {
		if office == o {
			return i
		}
	}
	return -1
}

// ParseOffice resolves an office code, Korean label or roster alias.
func ParseOffice(s string) (Office, error) {
	s = strings.TrimSpace(s)
	if o := Office(strings.ToLower(s)); o.Valid() {
		return o, nil
	}
	for o, label := range officeLabels {
		if s == label {
			return o, nil
		}
	}
	if o, ok := officeAliases[strings.ToLower(s)]; ok {
		return o, nil
	}
	return "", fmt.Errorf("unknown office %q", s)
}

// ParticipationKey returns the key under which a voter's ballot for office in
// round is recorded, e.g. "elder_1".
func ParticipationKey(office Office, round int) string {
	return string(office) + "_" + strconv.Itoa(round)
}
