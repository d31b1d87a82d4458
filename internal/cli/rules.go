package cli

import (
	"fmt"

	"github.com/gzhole/sysward/internal/config"
	"github.com/gzhole/sysward/internal/policy"
	"github.com/spf13/cobra"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Print the effective policy rule set",
	RunE:  rulesCommand,
}

func init() {
	rootCmd.AddCommand(rulesCmd)
}

func rulesCommand(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(policyPath, auditPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	pol, err := policy.Load(cfg.PolicyPath)
	if err != nil {
		return fmt.Errorf("failed to load policy: %w", err)
	}

	fmt.Printf("Policy version %s (%s)\n\n", pol.Version, cfg.PolicyPath)
	fmt.Println("Configured rules, in evaluation order (any matching DENY wins):")
	for i, rule := range pol.Rules {
		fmt.Printf("  %2d. [%s] %-5s action=%s", i+1, rule.ID, rule.Decision, rule.Match.Action)
		if rule.Match.TargetExact != "" {
			fmt.Printf(" target=%q", rule.Match.TargetExact)
		}
		if rule.Match.TargetPrefix != "" {
			fmt.Printf(" prefix=%q", rule.Match.TargetPrefix)
		}
		if rule.Match.TargetRegex != "" {
			fmt.Printf(" regex=%q", rule.Match.TargetRegex)
		}
		if rule.Match.Program != "" {
			fmt.Printf(" program=%q", rule.Match.Program)
		}
		fmt.Printf("\n      %s\n", rule.Reason)
	}

	fmt.Println("\nBuilt-in guards (cannot be overridden):")
	fmt.Println("  - destructive program classes denied for start_app")
	fmt.Println("  - critical system processes protected from kill_process")
	fmt.Println("  - protected services excluded from restart_service")
	fmt.Println("  - shell_query limited to ps/grep with literal arguments")
	fmt.Println("  - no rule match: DENY (fail closed)")
	return nil
}
