package appetite

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"docpipe/internal/services"
)

//go:embed rules.toml
var defaultRulesTOML []byte

// Trigger values for risk factors.
const (
	TriggerAbove  = "above"
	TriggerBelow  = "below"
	TriggerAlways = "always"
)

// Decision tiers, evaluated in this order.
const (
	DecisionAccept  = "accept"
	DecisionReview  = "review"
	DecisionDecline = "decline"
)

// Factor is one weighted risk signal. Field names an extracted submission
// field; Always factors ignore it.
type Factor struct {
	Field     string  `toml:"field"`
	Trigger   string  `toml:"trigger"`
	Threshold float64 `toml:"threshold"`
	Weight    float64 `toml:"weight"`
}

// Tier bounds one appetite outcome.
type Tier struct {
	MaxPremium    float64 `toml:"max_premium"`
	MinDeductible float64 `toml:"min_deductible"`
	MaxRiskScore  float64 `toml:"max_risk_score"`
}

// Line holds the rules for one line of business. Match is the coverage-type
// vocabulary that routes a submission to this line.
type Line struct {
	Match    []string          `toml:"match"`
	Factors  map[string]Factor `toml:"factors"`
	Appetite map[string]Tier   `toml:"appetite"`
}

// Rules is the full business-rule configuration, loaded once at startup and
// immutable afterwards.
type Rules struct {
	DefaultLine string          `toml:"default_line"`
	Lines       map[string]Line `toml:"lines"`
}

// DefaultRules returns the embedded stock rule set.
func DefaultRules() (*Rules, error) {
	return parseRules(defaultRulesTOML)
}

// LoadRules reads a rule file, falling back to the embedded defaults when
// path is empty.
func LoadRules(path string) (*Rules, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultRules()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "appetite", "load rules",
			fmt.Sprintf("Rule file %s is not readable", path), err)
	}
	return parseRules(data)
}

func parseRules(data []byte) (*Rules, error) {
	var rules Rules
	if err := toml.Unmarshal(data, &rules); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "appetite", "parse rules",
			"Rule file is not valid TOML", err)
	}
	if err := rules.validate(); err != nil {
		return nil, err
	}
	return &rules, nil
}

func (r *Rules) validate() error {
	fail := func(message string) error {
		return services.Wrap(services.ErrConfiguration, "appetite", "validate rules", message, nil)
	}
	if len(r.Lines) == 0 {
		return fail("At least one line of business is required")
	}
	if _, ok := r.Lines[r.DefaultLine]; !ok {
		return fail(fmt.Sprintf("Default line %q is not defined", r.DefaultLine))
	}
	for name, line := range r.Lines {
		for factorName, factor := range line.Factors {
			switch factor.Trigger {
			case TriggerAbove, TriggerBelow:
				if factor.Field == "" {
					return fail(fmt.Sprintf("Factor %s.%s needs a field", name, factorName))
				}
			case TriggerAlways:
			default:
				return fail(fmt.Sprintf("Factor %s.%s has unknown trigger %q", name, factorName, factor.Trigger))
			}
			if factor.Weight < 0 {
				return fail(fmt.Sprintf("Factor %s.%s has a negative weight", name, factorName))
			}
		}
		for _, tier := range []string{DecisionAccept, DecisionReview} {
			if _, ok := line.Appetite[tier]; !ok {
				return fail(fmt.Sprintf("Line %q is missing the %s tier", name, tier))
			}
		}
	}
	return nil
}

// lineNames returns line names in stable sorted order so coverage-type
// matching does not depend on map iteration.
func (r *Rules) lineNames() []string {
	names := make([]string, 0, len(r.Lines))
	for name := range r.Lines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// lineFor routes a coverage type to a line of business by vocabulary
// match, falling back to the default line.
func (r *Rules) lineFor(coverageType string) (string, Line) {
	lower := strings.ToLower(coverageType)
	for _, name := range r.lineNames() {
		for _, needle := range r.Lines[name].Match {
			if needle != "" && strings.Contains(lower, strings.ToLower(needle)) {
				return name, r.Lines[name]
			}
		}
	}
	return r.DefaultLine, r.Lines[r.DefaultLine]
}
