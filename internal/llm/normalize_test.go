package llm

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"github.com/joseph-ayodele/statuscert/constants"
	"github.com/joseph-ayodele/statuscert/internal/entity"
)

const sampleReport = `{
  "certificate": {"corporation": "TSCC 2345", "unit": "1204"},
  "sections": {
    "common_expenses": {
      "title": "Common Expenses",
      "items": [
        {"id": "ce1", "key": "monthly_fee", "label": "Monthly fee", "value": "$612.40", "status": "ok", "confidence": "high", "quote": "common expenses of $612.40 per month", "reason": "", "page": 4},
        {"id": "ce2", "key": "arrears", "label": "Arrears", "value": "none", "status": "ok", "confidence": "high", "quote": null, "reason": ""}
      ]
    },
    "reserve_fund": {
      "title": "Reserve Fund",
      "items": [
        {"id": "rf1", "key": "study_date", "label": "Study date", "value": "2018-11-27", "status": "warning", "confidence": "medium", "quote": "Reserve Fund Study dated November 27, 2018", "reason": "older than 3 years"},
        {"id": "rf2", "key": "balance", "label": "Balance", "value": "", "status": "missing", "confidence": "low", "quote": "", "reason": "not disclosed"},
        {"id": "rf3", "key": "shortfall", "label": "Shortfall", "value": "31%", "status": "error", "confidence": "medium", "quote": null, "reason": "below study"}
      ]
    }
  },
  "issues": [
    {"id": 1, "severity": "high", "title": "Reserve shortfall", "finding": "Balance 31% below study", "regulation": "Condominium Act, 1998 s. 93", "recommendation": "Ask about a special assessment", "quote": "Reserve Fund Study dated November 27, 2018"}
  ],
  "risk_rating": "red",
  "summary": {"total_items": 99, "verified": 99, "warnings": 0, "missing": 0}
}`

func TestNormalize_WellFormed(t *testing.T) {
	res := Normalize(sampleReport)
	if res.Error != nil {
		t.Fatalf("unexpected error: %+v", res.Error)
	}
	want := entity.Summary{TotalItems: 5, Verified: 2, Warnings: 2, Missing: 1}
	if res.Summary != want {
		t.Errorf("Summary = %+v, want %+v", res.Summary, want)
	}
	if res.RiskRating != constants.RiskRed {
		t.Errorf("RiskRating = %q, want RED", res.RiskRating)
	}
	if got := res.Certificate["corporation"]; got != "TSCC 2345" {
		t.Errorf("certificate corporation = %v", got)
	}
	items := res.Sections["reserve_fund"].Items
	if len(items) != 3 {
		t.Fatalf("reserve_fund items = %d, want 3", len(items))
	}
	if items[1].Quote != nil {
		t.Errorf("empty quote should be nil, got %q", *items[1].Quote)
	}
	if p := res.Sections["common_expenses"].Items[0].Page; p != nil {
		t.Errorf("model-supplied page must be ignored, got %d", *p)
	}
	if len(res.Issues) != 1 || res.Issues[0].Severity != constants.SeverityHigh {
		t.Errorf("issues = %+v", res.Issues)
	}
}

func TestNormalize_FencesAndProse(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"json fence", "```json\n" + sampleReport + "\n```"},
		{"untagged fence", "```\n" + sampleReport + "\n```"},
		{"stray backticks", "`" + sampleReport + "`"},
		{"prose around", "Here is the report you asked for:\n" + sampleReport + "\nLet me know if you need anything else."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Normalize(tt.raw)
			if res.Error != nil {
				t.Fatalf("unexpected error: %+v", res.Error)
			}
			if res.Summary.TotalItems != 5 {
				t.Errorf("TotalItems = %d, want 5", res.Summary.TotalItems)
			}
		})
	}
}

func TestNormalize_Repaired(t *testing.T) {
	raw := `{sections: {insurance: {title: 'Insurance', items: [{id: 'in1', status: 'ok', confidence: 'high', quote: None,},],},}, risk_rating: 'green',}`
	res := Normalize(raw)
	if res.Error != nil {
		t.Fatalf("unexpected error: %+v", res.Error)
	}
	if res.RiskRating != constants.RiskGreen {
		t.Errorf("RiskRating = %q", res.RiskRating)
	}
	if got := len(res.Sections["insurance"].Items); got != 1 {
		t.Errorf("insurance items = %d, want 1", got)
	}
}

func TestNormalize_ParseError(t *testing.T) {
	raw := "I'm sorry, I can't analyze this document."
	res := Normalize(raw)
	if res.Error == nil || res.Error.Type != entity.ErrorTypeParse {
		t.Fatalf("Error = %+v, want parse_error", res.Error)
	}
	if res.RiskRating != constants.RiskYellow {
		t.Errorf("RiskRating = %q, want YELLOW", res.RiskRating)
	}
	if len(res.Sections) != 0 || res.Summary.TotalItems != 0 {
		t.Errorf("expected empty result, got %+v", res)
	}
	if res.Error.Snippet != raw {
		t.Errorf("Snippet = %q", res.Error.Snippet)
	}

	b, err := json.Marshal(res)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(b), "sorry") {
		t.Errorf("snippet leaked into JSON: %s", b)
	}
}

func TestNormalize_SnippetBounded(t *testing.T) {
	raw := `{"a": [` + strings.Repeat("x", 5000) + `}`
	res := Normalize(raw)
	if res.Error == nil || res.Error.Type != entity.ErrorTypeParse {
		t.Fatalf("Error = %+v, want parse_error", res.Error)
	}
	if len(res.Error.Snippet) > maxSnippet+len("...(truncated)") {
		t.Errorf("snippet length = %d", len(res.Error.Snippet))
	}
}

func TestNormalize_ValidationError(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"missing sections", `{"issues": [], "risk_rating": "GREEN"}`},
		{"sections not an object", `{"sections": ["a", "b"]}`},
		{"array top level", `["sections"]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Normalize(tt.raw)
			if res.Error == nil || res.Error.Type != entity.ErrorTypeValidation {
				t.Fatalf("Error = %+v, want validation_error", res.Error)
			}
			if len(res.Error.Details) == 0 {
				t.Error("expected validation details")
			}
		})
	}
}

func TestNormalize_ValidationKeepsTopLevelSections(t *testing.T) {
	raw := `{"insurance": {"items": [{"id": "i1", "status": "ok"}]}, "risk_rating": "GREEN"}`
	res := Normalize(raw)
	if res.Error == nil || res.Error.Type != entity.ErrorTypeValidation {
		t.Fatalf("Error = %+v, want validation_error", res.Error)
	}
	if got := len(res.Sections["insurance"].Items); got != 1 {
		t.Errorf("insurance items = %d, want 1", got)
	}
	if res.Summary.Verified != 1 {
		t.Errorf("Summary = %+v", res.Summary)
	}
}

func TestNormalize_SectionKeys(t *testing.T) {
	raw := `{"sections": {
		"reserve_fund": {"title": "Canonical", "items": [{"id": "a", "status": "ok"}]},
		"reserveFund": {"title": "Alternate", "items": [{"id": "b", "status": "ok"}, {"id": "c", "status": "ok"}]},
		"commonExpenses": {"items": [{"id": "d", "status": "warning"}]},
		"parking": {"items": [{"id": "e", "status": "ok"}]}
	}}`
	res := Normalize(raw)
	if res.Error != nil {
		t.Fatalf("unexpected error: %+v", res.Error)
	}
	if got := res.Sections["reserve_fund"].Title; got != "Canonical" {
		t.Errorf("reserve_fund title = %q, canonical key must win", got)
	}
	if _, ok := res.Sections["reserveFund"]; ok {
		t.Error("alternate key should not survive")
	}
	ce, ok := res.Sections["common_expenses"]
	if !ok || len(ce.Items) != 1 {
		t.Fatalf("commonExpenses not renamed: %+v", res.Sections)
	}
	if ce.Title != "Common Expenses" {
		t.Errorf("default title = %q", ce.Title)
	}
	if _, ok := res.Sections["parking"]; !ok {
		t.Error("unknown section key should be kept")
	}
	if res.Summary.TotalItems != 3 {
		t.Errorf("TotalItems = %d, want 3 (colliding alternate dropped)", res.Summary.TotalItems)
	}
}

func TestNormalize_Coercion(t *testing.T) {
	raw := `{
		"metadata": {"corporation": "YCC 101"},
		"sections": {
			"rules": [{"status": "pending", "confidence": "certain", "value": 12}],
			"insurance": "none provided"
		},
		"issues": [{"severity": "urgent", "title": "No id"}, {"id": "7", "title": "String id"}],
		"risk_rating": "purple"
	}`
	res := Normalize(raw)
	if res.Error != nil {
		t.Fatalf("unexpected error: %+v", res.Error)
	}
	rules := res.Sections["rules"].Items
	if len(rules) != 1 {
		t.Fatalf("rules items = %d, want 1", len(rules))
	}
	it := rules[0]
	if it.ID != "rules_0" {
		t.Errorf("ID = %q, want rules_0", it.ID)
	}
	if it.Status != constants.StatusWarning || it.Confidence != constants.ConfidenceLow {
		t.Errorf("status/confidence = %q/%q", it.Status, it.Confidence)
	}
	if it.Value != "12" {
		t.Errorf("Value = %q", it.Value)
	}
	if _, ok := res.Sections["insurance"]; ok {
		t.Error("scalar section should be dropped")
	}
	if res.Issues[0].ID != 1 || res.Issues[0].Severity != constants.SeverityWarning {
		t.Errorf("issue[0] = %+v", res.Issues[0])
	}
	if res.Issues[1].ID != 7 {
		t.Errorf("issue[1].ID = %d, want 7", res.Issues[1].ID)
	}
	if res.RiskRating != constants.RiskYellow {
		t.Errorf("RiskRating = %q", res.RiskRating)
	}
	if res.Certificate["corporation"] != "YCC 101" {
		t.Errorf("Certificate = %v", res.Certificate)
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	first := Normalize(sampleReport)
	b, err := json.Marshal(first)
	if err != nil {
		t.Fatal(err)
	}
	second := Normalize(string(b))
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Normalize is not idempotent:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}
