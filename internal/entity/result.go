package entity

import "github.com/joseph-ayodele/statuscert/constants"

// ExtractedItem is one data point pulled from the certificate.
type ExtractedItem struct {
	ID         string               `json:"id"`
	Key        string               `json:"key,omitempty"`
	Label      string               `json:"label"`
	Value      string               `json:"value"`
	Status     constants.ItemStatus `json:"status"`
	Confidence constants.Confidence `json:"confidence"`
	Quote      *string              `json:"quote"`
	Reason     string               `json:"reason"`
	Page       *int                 `json:"page"`
}

// Issue is a flagged risk.
type Issue struct {
	ID             int                `json:"id"`
	Severity       constants.Severity `json:"severity"`
	Title          string             `json:"title"`
	Finding        string             `json:"finding"`
	Regulation     string             `json:"regulation"`
	Recommendation string             `json:"recommendation"`
	Quote          *string            `json:"quote"`
	Page           *int               `json:"page"`
}

// Section groups items under a canonical key.
type Section struct {
	Title string          `json:"title"`
	Items []ExtractedItem `json:"items"`
}

// Summary counters are always recomputed from item statuses.
type Summary struct {
	TotalItems int `json:"total_items"`
	Verified   int `json:"verified"`
	Warnings   int `json:"warnings"`
	Missing    int `json:"missing"`
}

// Result error types.
const (
	ErrorTypeParse      = "parse_error"
	ErrorTypeValidation = "validation_error"
)

// ResultError marks a degraded result. Snippet is for logs only.
type ResultError struct {
	Type    string   `json:"type"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
	Snippet string   `json:"-"`
}

// SourceInfo describes how the text was acquired.
type SourceInfo struct {
	PageCount  int    `json:"page_count"`
	TotalPages int    `json:"total_pages"`
	UsedOCR    bool   `json:"used_ocr"`
	Method     string `json:"method"`
}

// ExtractionResult is the structured report for one certificate.
type ExtractionResult struct {
	Certificate map[string]any       `json:"certificate"`
	Sections    map[string]Section   `json:"sections"`
	Issues      []Issue              `json:"issues"`
	RiskRating  constants.RiskRating `json:"risk_rating"`
	Summary     Summary              `json:"summary"`
	Source      *SourceInfo          `json:"source,omitempty"`
	Error       *ResultError         `json:"error,omitempty"`
}

// Degraded reports whether the result carries an error marker.
func (r *ExtractionResult) Degraded() bool { return r.Error != nil }

// Recount recomputes Summary from every item in every section.
// error items count as warnings.
func (r *ExtractionResult) Recount() {
	var s Summary
	for _, sec := range r.Sections {
		for _, it := range sec.Items {
			s.TotalItems++
			switch it.Status {
			case constants.StatusOK:
				s.Verified++
			case constants.StatusWarning, constants.StatusError:
				s.Warnings++
			case constants.StatusMissing:
				s.Missing++
			}
		}
	}
	r.Summary = s
}

// NewEmptyResult returns a renderable result with every collection initialized.
func NewEmptyResult() ExtractionResult {
	return ExtractionResult{
		Certificate: map[string]any{},
		Sections:    map[string]Section{},
		Issues:      []Issue{},
		RiskRating:  constants.RiskYellow,
	}
}
