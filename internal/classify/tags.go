package classify

import "strings"

type tagRule struct {
	tag   string
	anyOf []string
}

// Tag vocabularies per document type, applied in order against the
// lowercased text.
var tagRules = map[string][]tagRule{
	"insurance_policy": {
		{tag: "auto_insurance", anyOf: []string{"auto", "vehicle"}},
		{tag: "home_insurance", anyOf: []string{"home", "property"}},
		{tag: "life_insurance", anyOf: []string{"life"}},
	},
	"claim_form": {
		{tag: "auto_claim", anyOf: []string{"auto", "vehicle"}},
		{tag: "property_claim", anyOf: []string{"property", "home"}},
		{tag: "urgent", anyOf: []string{"urgent"}},
	},
	"correspondence": {
		{tag: "complaint", anyOf: []string{"complaint"}},
		{tag: "inquiry", anyOf: []string{"inquiry"}},
	},
}

func extractTags(lower, documentType string) []string {
	var tags []string
	for _, rule := range tagRules[documentType] {
		for _, needle := range rule.anyOf {
			if strings.Contains(lower, needle) {
				tags = append(tags, rule.tag)
				break
			}
		}
	}
	return tags
}
