package constants

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// SectionKey is the canonical snake_case identifier of a topical group of items.
type SectionKey string

const (
	CommonExpenses     SectionKey = "common_expenses"
	ReserveFund        SectionKey = "reserve_fund"
	SpecialAssessments SectionKey = "special_assessments"
	LegalProceedings   SectionKey = "legal_proceedings"
	Insurance          SectionKey = "insurance"
	Management         SectionKey = "management"
	Rules              SectionKey = "rules"
	BuildingNotes      SectionKey = "building_notes"
)

// CanonicalSections lists the canonical keys in report order.
var CanonicalSections = []SectionKey{
	CommonExpenses,
	ReserveFund,
	SpecialAssessments,
	LegalProceedings,
	Insurance,
	Management,
	Rules,
	BuildingNotes,
}

// AlternateSectionKeys maps legacy/camelCase keys a model may emit onto canonical keys.
// Order matters: when two alternates target the same slot, the earlier one wins.
var AlternateSectionKeys = []struct {
	Alt       string
	Canonical SectionKey
}{
	{"commonExpenses", CommonExpenses},
	{"reserveFund", ReserveFund},
	{"specialAssessments", SpecialAssessments},
	{"legalProceedings", LegalProceedings},
	{"buildingNotes", BuildingNotes},
}

var sectionTitles = map[SectionKey]string{
	CommonExpenses:     "Common Expenses",
	ReserveFund:        "Reserve Fund",
	SpecialAssessments: "Special Assessments",
	LegalProceedings:   "Legal Proceedings",
	Insurance:          "Insurance",
	Management:         "Management",
	Rules:              "Rules & Restrictions",
	BuildingNotes:      "Building Notes",
}

// IsCanonicalSection reports whether key is one of the canonical section keys.
func IsCanonicalSection(key string) bool {
	_, ok := sectionTitles[SectionKey(key)]
	return ok
}

// SectionTitle returns the display title for a key. Unknown keys are humanized.
func SectionTitle(key string) string {
	if t, ok := sectionTitles[SectionKey(key)]; ok {
		return t
	}
	words := strings.FieldsFunc(key, func(r rune) bool { return r == '_' || r == '-' || r == ' ' })
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}
