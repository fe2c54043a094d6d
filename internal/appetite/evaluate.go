package appetite

import (
	"fmt"
	"sort"
)

// Scorecard records how a submission was scored: which factors triggered
// and the monetary values the evaluation actually used.
type Scorecard struct {
	LineOfBusiness       string          `json:"line_of_business"`
	Factors              map[string]bool `json:"factors"`
	CalculatedPremium    float64         `json:"calculated_premium"`
	CalculatedDeductible float64         `json:"calculated_deductible"`
}

// Decision is the appetite outcome for a submission.
type Decision struct {
	Decision  string  `json:"decision"`
	Reason    string  `json:"reason"`
	RiskScore float64 `json:"risk_score"`
}

// Evaluator applies the configured business rules to extracted submission
// fields. Shared safely across goroutines; the rules never change after
// construction.
type Evaluator struct {
	rules *Rules
}

func NewEvaluator(rules *Rules) *Evaluator {
	return &Evaluator{rules: rules}
}

// Evaluate scores a submission and determines its appetite tier. Malformed
// business data never fails the evaluation: unparsable factor inputs count
// as zero, and an unparsable premium or deductible routes the submission to
// review for a human look.
func (e *Evaluator) Evaluate(fields map[string]*string) (Scorecard, Decision) {
	lineName, line := e.rules.lineFor(fieldValue(fields, "coverage_type"))

	scorecard := Scorecard{
		LineOfBusiness: lineName,
		Factors:        make(map[string]bool, len(line.Factors)),
	}
	riskScore := 0.0
	for _, name := range sortedFactorNames(line.Factors) {
		factor := line.Factors[name]
		triggered := false
		switch factor.Trigger {
		case TriggerAlways:
			triggered = true
		case TriggerAbove, TriggerBelow:
			value, err := parseMoney(fieldValue(fields, factor.Field))
			if err != nil {
				value = 0
			}
			if factor.Trigger == TriggerAbove {
				triggered = value > factor.Threshold
			} else {
				triggered = value < factor.Threshold
			}
		}
		scorecard.Factors[name] = triggered
		if triggered {
			riskScore += factor.Weight
		}
	}

	premium, premiumErr := parseMoney(fieldValue(fields, "premium"))
	deductible, deductibleErr := parseMoney(fieldValue(fields, "deductible"))
	scorecard.CalculatedPremium = premium
	scorecard.CalculatedDeductible = deductible

	if premiumErr != nil || deductibleErr != nil {
		return scorecard, Decision{
			Decision:  DecisionReview,
			Reason:    "Invalid premium or deductible data",
			RiskScore: riskScore,
		}
	}

	reason := fmt.Sprintf("Premium: $%v, Deductible: $%v, Risk Score: %.2f",
		premium, deductible, riskScore)
	for _, tierName := range []string{DecisionAccept, DecisionReview} {
		tier := line.Appetite[tierName]
		if premium <= tier.MaxPremium && deductible >= tier.MinDeductible && riskScore < tier.MaxRiskScore {
			return scorecard, Decision{Decision: tierName, Reason: reason, RiskScore: riskScore}
		}
	}
	return scorecard, Decision{Decision: DecisionDecline, Reason: reason, RiskScore: riskScore}
}

// fieldValue treats an absent field as "0" but a present-and-null field as
// empty, so a template miss surfaces as invalid data rather than a zero.
func fieldValue(fields map[string]*string, name string) string {
	value, ok := fields[name]
	if !ok {
		return "0"
	}
	if value == nil {
		return ""
	}
	return *value
}

func sortedFactorNames(factors map[string]Factor) []string {
	names := make([]string, 0, len(factors))
	for name := range factors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
