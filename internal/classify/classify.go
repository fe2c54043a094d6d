package classify

import "strings"

const (
	// TypeUnknown is assigned when no rule scores above zero.
	TypeUnknown = "unknown"

	unknownConfidence  = 30
	confidencePerPoint = 20
	confidenceCeiling  = 100
)

// Decision is the classification outcome for one document.
type Decision struct {
	DocumentType string
	Tags         []string
	Confidence   float64
}

// Classifier scores documents against an ordered rule table. The table is
// fixed at construction; callers share one classifier across goroutines.
type Classifier struct {
	rules []Rule
}

func New(rules []Rule) *Classifier {
	return &Classifier{rules: rules}
}

// Classify scores text against every rule and returns the highest-scoring
// type, breaking ties by table order. A zero score across the board yields
// TypeUnknown with a fixed low confidence and no tags.
func (c *Classifier) Classify(text string) Decision {
	lower := strings.ToLower(text)

	bestScore := 0
	bestType := ""
	for _, rule := range c.rules {
		score := 0
		for _, keyword := range rule.Keywords {
			if strings.Contains(lower, keyword) {
				score++
			}
		}
		for _, pattern := range rule.Patterns {
			if pattern.MatchString(lower) {
				score += 2
			}
		}
		if score > bestScore {
			bestScore = score
			bestType = rule.DocumentType
		}
	}

	if bestScore == 0 {
		return Decision{DocumentType: TypeUnknown, Confidence: unknownConfidence}
	}

	confidence := float64(bestScore * confidencePerPoint)
	if confidence > confidenceCeiling {
		confidence = confidenceCeiling
	}
	return Decision{
		DocumentType: bestType,
		Tags:         extractTags(lower, bestType),
		Confidence:   confidence,
	}
}
