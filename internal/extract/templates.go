package extract

import "regexp"

// FieldTemplate names one field and the ordered patterns that can fill it.
// The first pattern that matches wins; each pattern's first capture group is
// the field value.
type FieldTemplate struct {
	Name     string
	Patterns []*regexp.Regexp
}

// Template is the ordered field list for one document type.
type Template struct {
	DocumentType string
	Fields       []FieldTemplate
}

// DefaultTemplates returns the stock extraction templates. Document types
// without a template extract nothing.
func DefaultTemplates() []Template {
	return []Template{
		{
			DocumentType: "insurance_policy",
			Fields: []FieldTemplate{
				{Name: "policy_number", Patterns: compile(
					`policy\s+number[:\s]+([A-Z0-9-]+)`,
					`policy[:\s]+([A-Z0-9-]+)`,
				)},
				{Name: "policyholder", Patterns: compile(
					`policyholder[:\s]+([A-Za-z\s]+)`,
					`insured[:\s]+([A-Za-z\s]+)`,
				)},
				{Name: "coverage_type", Patterns: compile(
					`coverage[:\s]+([A-Za-z\s]+)`,
					`insurance[:\s]+([A-Za-z\s]+)`,
				)},
				{Name: "premium", Patterns: compile(
					`premium[:\s]+\$?([0-9,]+)`,
					`cost[:\s]+\$?([0-9,]+)`,
				)},
				{Name: "deductible", Patterns: compile(
					`deductible[:\s]+\$?([0-9,]+)`,
				)},
			},
		},
		{
			DocumentType: "claim_form",
			Fields: []FieldTemplate{
				{Name: "claim_number", Patterns: compile(
					`claim\s+number[:\s]+([A-Z0-9-]+)`,
					`claim[:\s]+([A-Z0-9-]+)`,
				)},
				{Name: "incident_date", Patterns: compile(
					`date\s+of\s+incident[:\s]+([0-9/-]+)`,
					`incident\s+date[:\s]+([0-9/-]+)`,
				)},
				{Name: "damage_amount", Patterns: compile(
					`damage[:\s]+\$?([0-9,]+)`,
					`estimated[:\s]+\$?([0-9,]+)`,
				)},
				{Name: "claimant", Patterns: compile(
					`claimant[:\s]+([A-Za-z\s]+)`,
					`name[:\s]+([A-Za-z\s]+)`,
				)},
			},
		},
	}
}

func compile(patterns ...string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, len(patterns))
	for i, pattern := range patterns {
		compiled[i] = regexp.MustCompile(`(?i)` + pattern)
	}
	return compiled
}
