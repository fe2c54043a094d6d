package extract

import "strings"

// Extractor fills per-type field templates from document text.
type Extractor struct {
	templates map[string]Template
	order     []string
}

func New(templates []Template) *Extractor {
	byType := make(map[string]Template, len(templates))
	order := make([]string, 0, len(templates))
	for _, tpl := range templates {
		if _, ok := byType[tpl.DocumentType]; !ok {
			order = append(order, tpl.DocumentType)
		}
		byType[tpl.DocumentType] = tpl
	}
	return &Extractor{templates: byType, order: order}
}

// DocumentTypes lists the types this extractor has templates for.
func (e *Extractor) DocumentTypes() []string {
	return append([]string(nil), e.order...)
}

// Extract fills the template for documentType from text. Fields whose
// patterns all miss are present with a nil value. A type without a template
// yields an empty map and zero confidence.
func (e *Extractor) Extract(text, documentType string) (map[string]*string, float64) {
	tpl, ok := e.templates[documentType]
	if !ok {
		return map[string]*string{}, 0
	}

	fields := make(map[string]*string, len(tpl.Fields))
	filled := 0
	for _, field := range tpl.Fields {
		fields[field.Name] = nil
		for _, pattern := range field.Patterns {
			match := pattern.FindStringSubmatch(text)
			if match == nil {
				continue
			}
			value := cleanValue(match[1])
			if value == "" {
				continue
			}
			fields[field.Name] = &value
			filled++
			break
		}
	}

	if len(fields) == 0 {
		return fields, 0
	}
	return fields, float64(filled) / float64(len(fields)) * 100
}

// cleanValue bounds a capture at the line it started on and strips the
// label punctuation a greedy character class drags along.
func cleanValue(raw string) string {
	if i := strings.IndexByte(raw, '\n'); i >= 0 {
		raw = raw[:i]
	}
	return strings.Trim(strings.TrimSpace(raw), ",.")
}
