package llm

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/joseph-ayodele/statuscert/constants"
	"github.com/joseph-ayodele/statuscert/internal/entity"
)

const maxSnippet = 2000

var (
	reJSONFence = regexp.MustCompile("(?s)```json\\s*(.*?)```")
	reAnyFence  = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*(.*?)```")
)

// Normalize turns a raw completion into an ExtractionResult. It never fails:
// unusable input yields a renderable result with Error set.
func Normalize(raw string) entity.ExtractionResult {
	res := entity.NewEmptyResult()

	candidate := jsonCandidate(stripFences(raw))
	doc, ok := decode(candidate)
	if !ok {
		res.Error = &entity.ResultError{
			Type:    entity.ErrorTypeParse,
			Message: "The analysis response could not be parsed.",
			Snippet: truncate(raw, maxSnippet),
		}
		return res
	}

	details := ValidateShape(doc)
	obj, isObj := doc.(map[string]any)
	if !isObj {
		res.Error = &entity.ResultError{
			Type:    entity.ErrorTypeValidation,
			Message: "The analysis response was not a JSON object.",
			Details: details,
		}
		return res
	}
	if len(details) > 0 {
		res.Error = &entity.ResultError{
			Type:    entity.ErrorTypeValidation,
			Message: "The analysis response did not match the expected report shape.",
			Details: details,
		}
	}

	rawSections, ok := obj["sections"].(map[string]any)
	if !ok {
		rawSections = sectionsFromTopLevel(obj)
	}
	for key, v := range normalizeSectionKeys(rawSections) {
		if sec, ok := coerceSection(key, v); ok {
			res.Sections[key] = sec
		}
	}

	res.Certificate = coerceCertificate(obj)
	res.Issues = coerceIssues(obj["issues"])
	res.RiskRating = constants.ParseRiskRating(obj["risk_rating"])
	res.Recount()
	return res
}

// stripFences removes markdown code fences a model may wrap around JSON.
func stripFences(s string) string {
	if m := reJSONFence.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := reAnyFence.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.Trim(strings.TrimSpace(s), "`")
}

// jsonCandidate slices from the first '{' to the last '}'. A missing closer
// keeps the tail so truncated output can still be repaired.
func jsonCandidate(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return s
	}
	end := strings.LastIndexByte(s, '}')
	if end < start {
		return s[start:]
	}
	return s[start : end+1]
}

func decode(candidate string) (any, bool) {
	if strings.TrimSpace(candidate) == "" {
		return nil, false
	}
	var doc any
	if err := json.Unmarshal([]byte(candidate), &doc); err == nil {
		return doc, true
	}
	rec := Repair(candidate)
	if !rec.OK {
		return nil, false
	}
	if err := json.Unmarshal([]byte(rec.Value), &doc); err != nil {
		return nil, false
	}
	return doc, true
}
