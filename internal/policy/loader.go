package policy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the rule set from a YAML file. A missing file yields the
// default policy; a present but malformed file is an error, because running
// with a rule set the operator did not intend is worse than refusing to
// start.
func Load(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultPolicy(), nil
		}
		return nil, err
	}

	var policy Policy
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return nil, fmt.Errorf("parse policy %s: %w", path, err)
	}

	for i, rule := range policy.Rules {
		if rule.ID == "" {
			return nil, fmt.Errorf("policy %s: rule %d has no id", path, i)
		}
		if rule.Decision != DecisionAllow && rule.Decision != DecisionDeny {
			return nil, fmt.Errorf("policy %s: rule %q has invalid decision %q", path, rule.ID, rule.Decision)
		}
		if rule.Match.Action == "" {
			return nil, fmt.Errorf("policy %s: rule %q matches no action", path, rule.ID)
		}
	}

	if err := policy.compile(); err != nil {
		return nil, fmt.Errorf("policy %s: %w", path, err)
	}

	return &policy, nil
}

// DefaultPolicy allows the five registered actions with their built-in
// guards. Anything else falls through to the fail-closed deny.
func DefaultPolicy() *Policy {
	return &Policy{
		Version: "0.1",
		Rules: []Rule{
			{
				ID:       "allow-start-app",
				Match:    Match{Action: "start_app"},
				Decision: DecisionAllow,
				Reason:   "Starting desktop applications is permitted.",
			},
			{
				ID:       "allow-kill-process",
				Match:    Match{Action: "kill_process"},
				Decision: DecisionAllow,
				Reason:   "Stopping user processes is permitted.",
			},
			{
				ID:       "allow-list-processes",
				Match:    Match{Action: "list_processes"},
				Decision: DecisionAllow,
				Reason:   "Listing processes is read-only.",
			},
			{
				ID:       "allow-restart-service",
				Match:    Match{Action: "restart_service"},
				Decision: DecisionAllow,
				Reason:   "Restarting unprotected services is permitted.",
			},
			{
				ID:       "allow-shell-query",
				Match:    Match{Action: "shell_query"},
				Decision: DecisionAllow,
				Reason:   "Read-only queries with allowed programs are permitted.",
			},
		},
	}
}
