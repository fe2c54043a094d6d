package classify

import "regexp"

// Rule scores one document type: each keyword found in the lowercased text
// adds 1, each pattern match adds 2. Rules are evaluated in slice order and
// that order breaks score ties, so the slice is part of the contract.
type Rule struct {
	DocumentType string
	Keywords     []string
	Patterns     []*regexp.Regexp
}

// DefaultRules returns the stock rule table for insurance intake.
func DefaultRules() []Rule {
	return []Rule{
		{
			DocumentType: "insurance_policy",
			Keywords:     []string{"policy", "coverage", "premium", "policyholder", "insurance"},
			Patterns: compile(
				`policy\s+number`,
				`coverage\s+amount`,
				`premium`,
				`deductible`,
			),
		},
		{
			DocumentType: "claim_form",
			Keywords:     []string{"claim", "incident", "damage", "accident", "loss"},
			Patterns: compile(
				`claim\s+number`,
				`date\s+of\s+incident`,
				`damage`,
				`accident`,
			),
		},
		{
			DocumentType: "correspondence",
			Keywords:     []string{"dear", "sincerely", "regards", "letter", "correspondence"},
			Patterns: compile(
				`dear\s+\w+`,
				`sincerely`,
				`best\s+regards`,
			),
		},
		{
			DocumentType: "invoice",
			Keywords:     []string{"invoice", "bill", "payment", "amount due", "total"},
			Patterns: compile(
				`invoice\s+number`,
				`amount\s+due`,
				`total`,
				`payment`,
			),
		},
		{
			DocumentType: "application",
			Keywords:     []string{"application", "apply", "applicant", "form"},
			Patterns: compile(
				`application\s+for`,
				`applicant\s+name`,
				`date\s+of\s+birth`,
			),
		},
	}
}

func compile(patterns ...string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, len(patterns))
	for i, pattern := range patterns {
		compiled[i] = regexp.MustCompile(pattern)
	}
	return compiled
}
