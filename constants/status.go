package constants

import "strings"

// ItemStatus is the per-item verdict the model assigns to an extracted value.
type ItemStatus string

// Stable values (these exact strings go over the wire).
const (
	StatusOK      ItemStatus = "ok"      // unremarkable
	StatusWarning ItemStatus = "warning" // flagged for review
	StatusError   ItemStatus = "error"   // serious concern
	StatusMissing ItemStatus = "missing" // absent from the source document
)

// Confidence is the model's self-reported certainty for a value.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Severity classifies a flagged issue.
type Severity string

const (
	SeverityHigh    Severity = "high"
	SeverityWarning Severity = "warning"
	SeverityLow     Severity = "low"
)

// RiskRating is the coarse overall classification of a certificate.
type RiskRating string

const (
	RiskGreen  RiskRating = "GREEN"
	RiskYellow RiskRating = "YELLOW"
	RiskRed    RiskRating = "RED"
)

// ParseItemStatus maps free text onto the status vocabulary. Unknown values
// become warning so they still surface for review.
func ParseItemStatus(s string) ItemStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ok", "verified", "pass":
		return StatusOK
	case "warning", "warn", "review":
		return StatusWarning
	case "error", "fail", "critical":
		return StatusError
	case "missing", "absent", "not_found", "not found":
		return StatusMissing
	default:
		return StatusWarning
	}
}

// ParseConfidence maps free text onto the confidence vocabulary, defaulting to low.
func ParseConfidence(s string) Confidence {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return ConfidenceHigh
	case "medium", "med", "moderate":
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// ParseSeverity maps free text onto the severity vocabulary, defaulting to warning.
func ParseSeverity(s string) Severity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high", "critical", "red":
		return SeverityHigh
	case "low", "info", "green":
		return SeverityLow
	default:
		return SeverityWarning
	}
}

// ParseRiskRating coerces a model-supplied rating. Anything unrecognized is YELLOW;
// the rating is never inferred from content.
func ParseRiskRating(v any) RiskRating {
	s, ok := v.(string)
	if !ok {
		return RiskYellow
	}
	switch RiskRating(strings.ToUpper(strings.TrimSpace(s))) {
	case RiskGreen:
		return RiskGreen
	case RiskRed:
		return RiskRed
	default:
		return RiskYellow
	}
}
