package llm

import (
	"errors"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// reportShapeSchema is the minimal shape a completion must have before its
// sections are trusted. Item-level problems are coerced, not rejected.
const reportShapeSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["sections"],
  "properties": {
    "certificate": {"type": ["object", "null"]},
    "sections": {"type": "object"},
    "issues": {"type": ["array", "null"]},
    "risk_rating": {"type": ["string", "null"]}
  }
}`

var reportShape = jsonschema.MustCompileString("report_shape.json", reportShapeSchema)

// ValidateShape checks a decoded document against the report shape and returns
// one human-readable detail per violation, or nil when the document conforms.
func ValidateShape(doc any) []string {
	err := reportShape.Validate(doc)
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return []string{err.Error()}
	}

	var details []string
	for _, e := range ve.BasicOutput().Errors {
		if e.Error == "" || strings.HasPrefix(e.Error, "doesn't validate with") {
			continue
		}
		loc := e.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		details = append(details, loc+": "+e.Error)
	}
	if len(details) == 0 {
		details = append(details, ve.Error())
	}
	return details
}
