package policy

import (
	"fmt"
	"regexp"

	"github.com/gzhole/sysward/internal/command"
)

type Decision string

const (
	DecisionAllow Decision = "ALLOW"
	DecisionDeny  Decision = "DENY"
)

// Policy is the process-wide rule set, loaded once at startup and never
// mutated afterwards.
type Policy struct {
	Version string `yaml:"version"`
	Rules   []Rule `yaml:"rules"`
}

// Rule maps an action pattern to a verdict. Rules are evaluated in load
// order; any matching DENY wins over every matching ALLOW.
type Rule struct {
	ID       string   `yaml:"id"`
	Match    Match    `yaml:"match"`
	Decision Decision `yaml:"decision"`
	Reason   string   `yaml:"reason"`

	targetRe *regexp.Regexp
}

// Match selects commands by action tag and, optionally, by target pattern.
// An empty target predicate matches every target for the action.
type Match struct {
	Action       string `yaml:"action"`
	TargetExact  string `yaml:"target_exact,omitempty"`
	TargetPrefix string `yaml:"target_prefix,omitempty"`
	TargetRegex  string `yaml:"target_regex,omitempty"`
	Program      string `yaml:"program,omitempty"`
}

// Verdict is the engine's answer for one Command. It is always produced;
// a command matching no rule gets the fail-closed deny.
type Verdict struct {
	Decision Decision
	Reason   string
	RuleID   string
}

func (v Verdict) Allowed() bool { return v.Decision == DecisionAllow }

// compile pre-compiles every target_regex in the rule set. A pattern that
// does not compile is an error: a rule the engine cannot apply must not be
// silently skipped, or a typo in a deny rule would widen what runs.
func (p *Policy) compile() error {
	var firstErr error
	for i := range p.Rules {
		rule := &p.Rules[i]
		if rule.Match.TargetRegex == "" {
			continue
		}
		re, err := regexp.Compile(rule.Match.TargetRegex)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("rule %q: invalid target_regex: %w", rule.ID, err)
			}
			continue
		}
		rule.targetRe = re
	}
	return firstErr
}

// Evaluator is what the pipeline needs from a policy engine.
type Evaluator interface {
	Evaluate(cmd command.Command) Verdict
}
