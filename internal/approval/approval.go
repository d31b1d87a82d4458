// Package approval implements the optional interactive confirmation step
// before an allowed command runs. Non-interactive sessions auto-deny.
package approval

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/gzhole/sysward/internal/command"
	"github.com/gzhole/sysward/internal/policy"
)

func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// Interactive prompts on stderr for each allowed command.
type Interactive struct{}

func (Interactive) Approve(cmd command.Command, verdict policy.Verdict) (bool, string) {
	if !IsInteractive() {
		return false, "auto_deny_non_interactive"
	}

	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "=== CONFIRMATION REQUIRED ===")
	fmt.Fprintf(os.Stderr, "Command: %s\n", cmd)
	if verdict.RuleID != "" {
		fmt.Fprintf(os.Stderr, "Allowed by rule: %s (%s)\n", verdict.RuleID, verdict.Reason)
	}
	fmt.Fprintln(os.Stderr, "")

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Fprint(os.Stderr, "Execute? [y/n]: ")
		input, err := reader.ReadString('\n')
		if err != nil {
			return false, "error_reading_input"
		}

		switch strings.TrimSpace(strings.ToLower(input)) {
		case "y", "yes":
			return true, "approve_once"
		case "n", "no":
			return false, "deny"
		default:
			fmt.Fprintln(os.Stderr, "Please answer 'y' or 'n'.")
		}
	}
}
