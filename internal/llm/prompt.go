package llm

import (
	"strings"

	"github.com/joseph-ayodele/statuscert/constants"
)

// SystemPrompt is sent as the system message of every extraction request.
const SystemPrompt = "You are a careful Ontario condominium status certificate reviewer. " +
	"Respond with raw JSON only: no markdown, no code fences, no commentary."

// sectionHints tells the model what belongs under each canonical key.
var sectionHints = map[constants.SectionKey]string{
	constants.CommonExpenses:     "monthly common expense contribution for the unit, arrears, budgeted increases",
	constants.ReserveFund:        "reserve fund balance, latest reserve fund study date and type, funding plan, contributions",
	constants.SpecialAssessments: "levied or contemplated special assessments, amounts, due dates",
	constants.LegalProceedings:   "actions, claims, liens, judgments involving the corporation",
	constants.Insurance:          "policy coverage, insurer, deductibles, owner responsibilities",
	constants.Management:         "property manager, management agreement, board, declarant",
	constants.Rules:              "rules, by-laws, pet/rental/leasing restrictions, proposed amendments",
	constants.BuildingNotes:      "major repairs, capital projects, substantial additions/alterations, other disclosures",
}

// domainThresholds are the review rules the model applies when assigning status.
var domainThresholds = []string{
	"Reserve fund study older than 3 years: status warning.",
	"Reserve fund balance below the amount the latest study recommends: status warning; more than 25% below: status error.",
	"Any special assessment levied or contemplated: status warning and an issue.",
	"Active legal proceedings against the corporation: status warning and an issue; if uninsured or material: severity high.",
	"Arrears owing on the unit: status error and a high severity issue.",
	"Budgeted common expense increase above 10% for the next fiscal year: status warning.",
	"Owner-responsible insurance deductible above $10,000: status warning.",
	"Required disclosure absent from the certificate: status missing with quote null.",
}

// BuildContract returns the structured-output contract sent ahead of the document text.
func BuildContract() string {
	var b strings.Builder
	b.WriteString("Extract a structured risk report from the status certificate below.\n\n")
	b.WriteString("Return exactly one JSON object with these top-level fields:\n")
	b.WriteString(`- "certificate": object with "corporation", "address", "unit", "certificate_date", "effective_date" (strings, empty if unknown)` + "\n")
	b.WriteString(`- "sections": object keyed by the section keys listed below` + "\n")
	b.WriteString(`- "issues": array of issue objects` + "\n")
	b.WriteString(`- "risk_rating": one of "GREEN", "YELLOW", "RED"` + "\n\n")

	b.WriteString("Section keys (use these exact snake_case keys):\n")
	for _, k := range constants.CanonicalSections {
		b.WriteString(`- "` + string(k) + `" (` + constants.SectionTitle(string(k)) + "): " + sectionHints[k] + "\n")
	}
	b.WriteString("\nEach section is {\"title\": string, \"items\": [item, ...]}.\n")
	b.WriteString(`Each item is {"id": string unique within the report, "key": snake_case field name, "label": string, "value": string, ` +
		`"status": "ok"|"warning"|"error"|"missing", "confidence": "high"|"medium"|"low", "quote": verbatim excerpt or null, "reason": string}.` + "\n")
	b.WriteString(`Each issue is {"id": integer, "severity": "high"|"warning"|"low", "title": string, "finding": string, ` +
		`"regulation": string (e.g. Condominium Act, 1998 section), "recommendation": string, "quote": verbatim excerpt or null}.` + "\n\n")

	b.WriteString("Status meanings: ok = unremarkable; warning = needs review; error = serious concern; missing = not in the document.\n")
	b.WriteString("Confidence is your own certainty in the value.\n\n")

	b.WriteString("Review rules:\n")
	for _, t := range domainThresholds {
		b.WriteString("- " + t + "\n")
	}
	b.WriteString("\nQuotes must be copied verbatim from a single page of the document, at most 200 characters, without page markers.\n")
	b.WriteString("Do not include a summary; counts are computed separately.\n")
	return b.String()
}

// BuildUserPrompt combines the contract with the assembled document text.
func BuildUserPrompt(documentText string) string {
	var b strings.Builder
	b.WriteString(BuildContract())
	b.WriteString("\nDocument text:\n")
	b.WriteString(documentText)
	return b.String()
}
