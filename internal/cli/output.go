package cli

import (
	"fmt"
	"os"

	"github.com/gzhole/sysward/internal/assistant"
)

func printOutcome(o *assistant.Outcome) {
	switch o.Status {
	case assistant.StatusParseFailed:
		fmt.Fprintf(os.Stderr, "✗ %s\n", o.Message)

	case assistant.StatusRefused:
		fmt.Fprintf(os.Stderr, "✗ refused: %s\n", o.Verdict.Reason)
		if o.Verdict.RuleID != "" {
			fmt.Fprintf(os.Stderr, "  rule: %s\n", o.Verdict.RuleID)
		}

	case assistant.StatusExecuted:
		res := o.Execution
		switch {
		case res.TimedOut:
			fmt.Fprintf(os.Stderr, "✗ %s\n", o.Message)
		case res.Error != "":
			fmt.Fprintf(os.Stderr, "✗ %s\n", o.Message)
		default:
			if res.Stdout != "" {
				fmt.Print(res.Stdout)
				if res.Stdout[len(res.Stdout)-1] != '\n' {
					fmt.Println()
				}
			}
			if res.ExitCode != nil && *res.ExitCode != 0 {
				fmt.Fprintf(os.Stderr, "✗ %s\n", o.Message)
				if res.Stderr != "" {
					fmt.Fprint(os.Stderr, res.Stderr)
				}
			} else {
				fmt.Fprintf(os.Stderr, "✓ %s\n", o.Command)
			}
		}
	}
}
