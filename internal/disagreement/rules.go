// Package disagreement buckets system/judge disagreements by type and by
// heuristic sub-pattern and turns the proportions into plain-language insights.
package disagreement

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/ArKaRaShi/skill-aligner-be-sub002/internal/domain"
	"gopkg.in/yaml.v3"
)

// Rule maps keyword hits in the reason text of one disagreement type to a
// pattern. A rule matches when any judge keyword occurs in the judge reason or
// any system keyword occurs in the system reason, case-insensitively and as
// whole words: "basic" does not match "basically".
type Rule struct {
	Pattern        domain.Pattern       `yaml:"pattern"`
	Type           domain.AgreementType `yaml:"type"`
	Description    string               `yaml:"description"`
	JudgeKeywords  []string             `yaml:"judgeKeywords"`
	SystemKeywords []string             `yaml:"systemKeywords"`
}

type ruleFile struct {
	Rules []Rule `yaml:"rules"`
}

// DefaultRules is evaluated in order; the first matching rule wins. An explicit
// career pivot outranks the generic "useful tool" wording of the enabling rule.
func DefaultRules() []Rule {
	return []Rule{
		{
			Pattern:     domain.PatternFoundationalOverkeep,
			Type:        domain.AgreementExploratoryDelta,
			Description: "Judge considers the course too basic or introductory for the question",
			JudgeKeywords: []string{
				"too basic", "introductory", "intro course", "foundational", "fundamental",
				"prerequisite", "beginner", "entry-level", "entry level", "general education",
				"basic course", "basic level", "the basics", "elementary",
			},
		},
		{
			Pattern:     domain.PatternSiblingMisclassification,
			Type:        domain.AgreementExploratoryDelta,
			Description: "Course belongs to an adjacent topic the judge does not consider directly relevant",
			JudgeKeywords: []string{
				"related field", "related but", "adjacent", "sibling", "neighboring", "neighbouring",
				"different field", "different discipline", "different focus", "not directly", "similar but",
			},
		},
		{
			Pattern:     domain.PatternContextualOveralignment,
			Type:        domain.AgreementExploratoryDelta,
			Description: "Match was triggered by a tangential or contextual mention",
			JudgeKeywords: []string{
				"tangential", "only mentions", "mentioned", "in passing", "briefly", "superficial",
				"incidental", "peripheral", "surface-level", "only in context", "contextual mention",
			},
			SystemKeywords: []string{"mentions", "touches on"},
		},
		{
			Pattern:     domain.PatternValidPivotRejection,
			Type:        domain.AgreementConservativeDrop,
			Description: "Judge sees a legitimate domain or career transition the system rejected",
			JudgeKeywords: []string{
				"career change", "change careers", "career switch", "transition", "pivot", "switch",
				"new field", "new domain", "move into", "moving into",
			},
		},
		{
			Pattern:     domain.PatternEnablingToolUnderdrop,
			Type:        domain.AgreementConservativeDrop,
			Description: "Judge sees the course as a useful enabling tool despite an off-topic subject",
			JudgeKeywords: []string{
				"tool", "tools", "enabling", "enables", "supporting skill", "practical skill", "transferable",
				"applicable", "useful", "helps", "helpful", "complementary",
			},
		},
	}
}

// LoadRules reads a YAML rule table of the form:
//
//	rules:
//	  - pattern: FOUNDATIONAL_OVERKEEP
//	    type: EXPLORATORY_DELTA
//	    description: ...
//	    judgeKeywords: [introductory, basic]
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}

	var file ruleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}

	for i, r := range file.Rules {
		if err := r.validate(); err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
	}
	if len(file.Rules) == 0 {
		return nil, fmt.Errorf("parse rules: %s defines no rules", path)
	}

	return file.Rules, nil
}

func (r Rule) validate() error {
	if r.Pattern == domain.PatternUnclassified {
		return fmt.Errorf("pattern is required")
	}
	if r.Type != domain.AgreementExploratoryDelta && r.Type != domain.AgreementConservativeDrop {
		return fmt.Errorf("pattern %s: type must be %s or %s, got %q",
			r.Pattern, domain.AgreementExploratoryDelta, domain.AgreementConservativeDrop, r.Type)
	}
	if len(r.JudgeKeywords) == 0 && len(r.SystemKeywords) == 0 {
		return fmt.Errorf("pattern %s: at least one keyword is required", r.Pattern)
	}
	return nil
}

// compiledRule is a Rule with its keywords compiled to whole-word matchers.
// A nil matcher never matches.
type compiledRule struct {
	Rule
	judge  *regexp.Regexp
	system *regexp.Regexp
}

type ruleSet []compiledRule

var defaultRuleSet = compileRules(DefaultRules())

func compileRules(rules []Rule) ruleSet {
	set := make(ruleSet, 0, len(rules))
	for _, r := range rules {
		set = append(set, compiledRule{
			Rule:   r,
			judge:  keywordMatcher(r.JudgeKeywords),
			system: keywordMatcher(r.SystemKeywords),
		})
	}
	return set
}

// keywordMatcher builds one case-insensitive alternation of the keywords,
// anchored on letters and digits so keywords only match whole words. Unicode
// letters count as word characters, unlike RE2's ASCII-only \b.
func keywordMatcher(keywords []string) *regexp.Regexp {
	alts := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if kw = strings.TrimSpace(kw); kw != "" {
			alts = append(alts, regexp.QuoteMeta(kw))
		}
	}
	if len(alts) == 0 {
		return nil
	}
	return regexp.MustCompile(`(?i)(?:^|[^\p{L}\p{N}_])(?:` + strings.Join(alts, "|") + `)(?:[^\p{L}\p{N}_]|$)`)
}

func (r compiledRule) matches(judgeReason, systemReason string) bool {
	return (r.judge != nil && r.judge.MatchString(judgeReason)) ||
		(r.system != nil && r.system.MatchString(systemReason))
}

// Classify assigns a disagreement to a pattern using the default rule table.
// Agreements and unmatched reasons yield PatternUnclassified.
func Classify(at domain.AgreementType, judgeReason, systemReason string) domain.Pattern {
	return defaultRuleSet.classify(at, judgeReason, systemReason)
}

func (rs ruleSet) classify(at domain.AgreementType, judgeReason, systemReason string) domain.Pattern {
	for _, r := range rs {
		if r.Type == at && r.matches(judgeReason, systemReason) {
			return r.Pattern
		}
	}
	return domain.PatternUnclassified
}
