package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gzhole/sysward/internal/audit"
	"github.com/gzhole/sysward/internal/config"
	"github.com/spf13/cobra"
)

var (
	logFilterDecision string
	logLast           int
	logSummary        bool
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "View and filter the audit trail",
	Long: `View the sysward audit trail with filtering and summary options.

Examples:
  sysward log                   # Show all entries
  sysward log --last 20         # Show last 20 entries
  sysward log --decision DENY   # Show only denied requests
  sysward log --summary         # Show summary statistics`,
	RunE: logCommand,
}

func init() {
	logCmd.Flags().StringVar(&logFilterDecision, "decision", "", "Filter by decision (ALLOW, DENY)")
	logCmd.Flags().IntVar(&logLast, "last", 0, "Show last N entries")
	logCmd.Flags().BoolVar(&logSummary, "summary", false, "Show summary statistics")
	rootCmd.AddCommand(logCmd)
}

func logCommand(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(policyPath, auditPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	entries, err := readTrail(cfg.AuditPath)
	if err != nil {
		return fmt.Errorf("failed to read audit trail: %w", err)
	}

	if len(entries) == 0 {
		fmt.Println("No audit entries found.")
		return nil
	}

	filtered := entries
	if logFilterDecision != "" {
		filtered = nil
		for _, e := range entries {
			if strings.EqualFold(e.Decision, logFilterDecision) {
				filtered = append(filtered, e)
			}
		}
	}

	if logLast > 0 && logLast < len(filtered) {
		filtered = filtered[len(filtered)-logLast:]
	}

	if logSummary {
		printTrailSummary(entries)
		return nil
	}

	printEntries(filtered)
	return nil
}

func readTrail(path string) ([]audit.Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	var entries []audit.Entry
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var entry audit.Entry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue // skip malformed lines
		}
		entries = append(entries, entry)
	}
	return entries, scanner.Err()
}

func printEntries(entries []audit.Entry) {
	for _, e := range entries {
		ts := formatTimestamp(e.Timestamp)

		switch {
		case e.ParseOutcome == audit.ParseFailed:
			fmt.Printf("✗ %s parse failed: %s\n", ts, e.ParseError)
			fmt.Printf("     Input: %s\n", e.RawInput)
		default:
			icon := "✓"
			if e.Decision == "DENY" {
				icon = "✗"
			}
			fmt.Printf("%s %s %s [%s]\n", icon, ts, e.Command, e.Decision)
			if e.Reason != "" {
				fmt.Printf("     Reason: %s (%s)\n", e.Reason, e.RuleID)
			}
			if e.UserAction != "" {
				fmt.Printf("     User: %s\n", e.UserAction)
			}
			if ex := e.Execution; ex != nil {
				switch {
				case ex.TimedOut:
					fmt.Printf("     Result: timed out after %dms\n", ex.DurationMs)
				case ex.Error != "":
					fmt.Printf("     Result: %s\n", ex.Error)
				case ex.ExitCode != nil:
					fmt.Printf("     Result: exit %d in %dms\n", *ex.ExitCode, ex.DurationMs)
				}
			}
		}
		fmt.Println()
	}
}

func printTrailSummary(entries []audit.Entry) {
	counts := map[string]int{}
	parseFailures := 0
	timeouts := 0
	for _, e := range entries {
		if e.ParseOutcome == audit.ParseFailed {
			parseFailures++
			continue
		}
		counts[e.Decision]++
		if e.Execution != nil && e.Execution.TimedOut {
			timeouts++
		}
	}

	fmt.Println("═══════════════════════════════════")
	fmt.Println("  sysward Audit Summary")
	fmt.Println("═══════════════════════════════════")
	fmt.Printf("  Total requests:  %d\n", len(entries))
	fmt.Printf("  ALLOW:           %d\n", counts["ALLOW"])
	fmt.Printf("  DENY:            %d\n", counts["DENY"])
	fmt.Printf("  Parse failures:  %d\n", parseFailures)
	fmt.Printf("  Timeouts:        %d\n", timeouts)
	if len(entries) > 0 {
		fmt.Printf("  First request:   %s\n", formatTimestamp(entries[0].Timestamp))
		fmt.Printf("  Last request:    %s\n", formatTimestamp(entries[len(entries)-1].Timestamp))
	}
	fmt.Println("═══════════════════════════════════")
}

func formatTimestamp(ts string) string {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ts
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
