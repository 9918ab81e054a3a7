package llm

import (
	"fmt"

	"github.com/joseph-ayodele/statuscert/constants"
	"github.com/joseph-ayodele/statuscert/internal/entity"
)

// normalizeSectionKeys returns the sections keyed canonically. Canonical keys
// are copied first; an alternate key only fills a canonical slot that is still
// empty, so colliding alternates are dropped rather than merged. Keys that are
// neither canonical nor alternate are kept as-is.
func normalizeSectionKeys(raw map[string]any) map[string]any {
	alternates := make(map[string]struct{}, len(constants.AlternateSectionKeys))
	for _, a := range constants.AlternateSectionKeys {
		alternates[a.Alt] = struct{}{}
	}

	out := make(map[string]any, len(raw))
	for k, v := range raw {
		if _, isAlt := alternates[k]; isAlt {
			continue
		}
		out[k] = v
	}
	for _, a := range constants.AlternateSectionKeys {
		v, ok := raw[a.Alt]
		if !ok {
			continue
		}
		if _, taken := out[string(a.Canonical)]; taken {
			continue
		}
		out[string(a.Canonical)] = v
	}
	return out
}

// sectionsFromTopLevel collects section-like keys when the model skipped the
// "sections" wrapper.
func sectionsFromTopLevel(doc map[string]any) map[string]any {
	found := map[string]any{}
	for _, k := range constants.CanonicalSections {
		if v, ok := doc[string(k)]; ok {
			found[string(k)] = v
		}
	}
	for _, a := range constants.AlternateSectionKeys {
		if v, ok := doc[a.Alt]; ok {
			found[a.Alt] = v
		}
	}
	return found
}

func coerceSection(key string, v any) (entity.Section, bool) {
	sec := entity.Section{Title: constants.SectionTitle(key), Items: []entity.ExtractedItem{}}

	var items []any
	switch t := v.(type) {
	case map[string]any:
		if title := asString(t["title"]); title != "" {
			sec.Title = title
		}
		items, _ = t["items"].([]any)
	case []any:
		items = t
	default:
		return sec, false
	}

	for i, raw := range items {
		m, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		sec.Items = append(sec.Items, coerceItem(key, i, m))
	}
	return sec, true
}

func coerceItem(section string, index int, m map[string]any) entity.ExtractedItem {
	it := entity.ExtractedItem{
		ID:         asString(m["id"]),
		Key:        asString(m["key"]),
		Label:      asString(m["label"]),
		Value:      asString(m["value"]),
		Status:     constants.ParseItemStatus(asString(m["status"])),
		Confidence: constants.ParseConfidence(asString(m["confidence"])),
		Quote:      asOptString(m["quote"]),
		Reason:     asString(m["reason"]),
	}
	if it.ID == "" {
		it.ID = fmt.Sprintf("%s_%d", section, index)
	}
	if it.Label == "" {
		it.Label = it.Key
	}
	return it
}

func coerceIssue(index int, m map[string]any) entity.Issue {
	is := entity.Issue{
		Severity:       constants.ParseSeverity(asString(m["severity"])),
		Title:          asString(m["title"]),
		Finding:        asString(m["finding"]),
		Regulation:     asString(m["regulation"]),
		Recommendation: asString(m["recommendation"]),
		Quote:          asOptString(m["quote"]),
	}
	if id, ok := asInt(m["id"]); ok {
		is.ID = id
	} else {
		is.ID = index + 1
	}
	if is.Finding == "" {
		is.Finding = asString(m["description"])
	}
	return is
}

func coerceIssues(v any) []entity.Issue {
	list, _ := v.([]any)
	issues := make([]entity.Issue, 0, len(list))
	for i, raw := range list {
		m, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		issues = append(issues, coerceIssue(i, m))
	}
	return issues
}

func coerceCertificate(doc map[string]any) map[string]any {
	for _, k := range []string{"certificate", "metadata"} {
		if m, ok := doc[k].(map[string]any); ok {
			return m
		}
	}
	return map[string]any{}
}
