package cli

import (
	"fmt"
	"strings"

	"github.com/gzhole/sysward/internal/assistant"
	"github.com/gzhole/sysward/internal/llm"
	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:   "ask <request...>",
	Short: "Turn a natural-language request into a gated system action",
	Long: `Send a natural-language request to the configured language model,
then run its proposal through the validation and policy pipeline.

Examples:
  sysward ask restart nginx
  sysward ask "kill firefox"
  sysward ask show me what is eating the cpu`,
	Args: cobra.MinimumNArgs(1),
	RunE: askCommand,
}

func init() {
	rootCmd.AddCommand(askCmd)
}

func askCommand(cmd *cobra.Command, args []string) error {
	a, cfg, closeTrail, err := buildPipeline()
	if err != nil {
		return err
	}
	defer closeTrail()

	client := llm.NewClient(llm.Config{
		APIKey:  cfg.APIKey,
		Model:   cfg.APIModel,
		BaseURL: cfg.APIBaseURL,
	})

	request := strings.Join(args, " ")
	raw, err := client.Propose(cmd.Context(), request)
	if err != nil {
		return err
	}

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
