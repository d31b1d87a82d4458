package cli

import (
	"github.com/spf13/cobra"
)

var (
	policyPath  string
	auditPath   string
	timeoutSecs int
	dryRun      bool
	confirm     bool
)

var rootCmd = &cobra.Command{
	Use:   "sysward",
	Short: "sysward - policy-gated system assistant",
	Long: `sysward turns natural-language requests into a small, fixed set of
system-management actions and executes them only after an explicit,
auditable safety policy approves. The language model only ever proposes;
a typed command model, a fail-closed policy engine and an argv-only
executor decide what actually runs.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&policyPath, "policy", "", "Path to policy YAML file (default: ~/.sysward/policy.yaml)")
	rootCmd.PersistentFlags().StringVar(&auditPath, "audit", "", "Path to audit log file (default: ~/.sysward/audit.jsonl)")
	rootCmd.PersistentFlags().IntVar(&timeoutSecs, "timeout", 0, "Execution timeout in seconds (default: 10)")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "Describe commands instead of executing them")
	rootCmd.PersistentFlags().BoolVar(&confirm, "confirm", false, "Ask for interactive confirmation before executing")
}

func Execute() error {
	return rootCmd.Execute()
}
