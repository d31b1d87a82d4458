package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gzhole/sysward/internal/assistant"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run [json]",
	Short: "Run a raw command proposal through the pipeline",
	Long: `Run a JSON command proposal through validation, policy and execution,
bypassing the language model. Reads from stdin when no argument is given.

Examples:
  sysward run '{"action":"kill_process","name":"firefox"}'
  echo '{"action":"list_processes","filter":"cpu"}' | sysward run`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCommand,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runCommand(cmd *cobra.Command, args []string) error {
	var raw string
	if len(args) == 1 {
		raw = args[0]
	} else {
		data, err := io.ReadAll(io.LimitReader(os.Stdin, 1<<20))
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		raw = string(data)
	}

	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("no command proposal provided")
	}

	a, _, closeTrail, err := buildPipeline()
	if err != nil {
		return err
	}
	defer closeTrail()

	outcome, err := a.Process(cmd.Context(), raw)
	if err != nil {
		return err
	}
	printOutcome(outcome)
	if outcome.Status != assistant.StatusExecuted {
		return fmt.Errorf("request not executed")
	}
	return nil
}
