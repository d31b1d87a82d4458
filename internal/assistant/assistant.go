// Package assistant wires the pipeline together: parse the model's
// proposal, evaluate it against policy, execute on allow, and record the
// whole trail. Each request is processed independently end to end.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gzhole/sysward/internal/audit"
	"github.com/gzhole/sysward/internal/command"
	"github.com/gzhole/sysward/internal/executor"
	"github.com/gzhole/sysward/internal/intent"
	"github.com/gzhole/sysward/internal/policy"
)

// Status classifies how a request ended.
type Status string

const (
	StatusExecuted    Status = "executed"
	StatusRefused     Status = "refused"
	StatusParseFailed Status = "parse_failed"
)

// Outcome is what the caller gets back for display. Every pipeline error
// is folded in here; only an audit write failure is returned as an error.
type Outcome struct {
	Status    Status
	Command   command.Command
	Verdict   policy.Verdict
	Execution *executor.Result
	Message   string
}

// Approver decides whether an allowed command may actually run. Used for
// the optional interactive confirmation step.
type Approver interface {
	Approve(cmd command.Command, verdict policy.Verdict) (approved bool, action string)
}

type Assistant struct {
	parser   *intent.Parser
	engine   policy.Evaluator
	executor *executor.Executor
	trail    *audit.Trail
	approver Approver // nil disables confirmation
}

func New(parser *intent.Parser, engine policy.Evaluator, exec *executor.Executor, trail *audit.Trail, approver Approver) *Assistant {
	return &Assistant{
		parser:   parser,
		engine:   engine,
		executor: exec,
		trail:    trail,
		approver: approver,
	}
}

// Process runs one raw model proposal through the full pipeline. Exactly
// one audit entry is recorded per call, on every path.
func (a *Assistant) Process(ctx context.Context, raw string) (*Outcome, error) {
	entry := audit.Entry{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		RawInput:  raw,
	}

	cmd, err := a.parser.Parse(raw)
	if err != nil {
		var parseErr *intent.ParseError
		if !errors.As(err, &parseErr) {
			parseErr = &intent.ParseError{Reason: err.Error()}
		}
		entry.ParseOutcome = audit.ParseFailed
		entry.ParseError = parseErr.Error()
		if recErr := a.trail.Record(entry); recErr != nil {
			return nil, fmt.Errorf("audit trail unavailable: %w", recErr)
		}
		return &Outcome{
			Status:  StatusParseFailed,
			Message: "could not understand the model's proposal: " + parseErr.Reason,
		}, nil
	}

	entry.ParseOutcome = audit.ParseOK
	entry.Command = cmd.String()

	verdict := a.engine.Evaluate(cmd)
	entry.Decision = string(verdict.Decision)
	entry.Reason = verdict.Reason
	entry.RuleID = verdict.RuleID

	if !verdict.Allowed() {
		if recErr := a.trail.Record(entry); recErr != nil {
			return nil, fmt.Errorf("audit trail unavailable: %w", recErr)
		}
		return &Outcome{
			Status:  StatusRefused,
			Command: cmd,
			Verdict: verdict,
			Message: "request refused: " + verdict.Reason,
		}, nil
	}

	if a.approver != nil {
		approved, action := a.approver.Approve(cmd, verdict)
		entry.UserAction = action
		if !approved {
			entry.Decision = string(policy.DecisionDeny)
			entry.Reason = "denied by user confirmation"
			if recErr := a.trail.Record(entry); recErr != nil {
				return nil, fmt.Errorf("audit trail unavailable: %w", recErr)
			}
			return &Outcome{
				Status:  StatusRefused,
				Command: cmd,
				Verdict: policy.Verdict{Decision: policy.DecisionDeny, Reason: "denied by user confirmation", RuleID: verdict.RuleID},
				Message: "request refused: denied by user confirmation",
			}, nil
		}
	}

	result := a.executor.Run(ctx, cmd)
	entry.Execution = &audit.ExecutionRecord{
		ExitCode:   result.ExitCode,
		Stdout:     result.Stdout,
		Stderr:     result.Stderr,
		DurationMs: result.DurationMs,
		TimedOut:   result.TimedOut,
		Error:      result.Error,
	}

	if recErr := a.trail.Record(entry); recErr != nil {
		return nil, fmt.Errorf("audit trail unavailable: %w", recErr)
	}

	return &Outcome{
		Status:    StatusExecuted,
		Command:   cmd,
		Verdict:   verdict,
		Execution: &result,
		Message:   executionMessage(result),
	}, nil
}

func executionMessage(r executor.Result) string {
	switch {
	case r.TimedOut:
		return fmt.Sprintf("execution timed out: %s", r.Command)
	case r.Error != "":
		return "execution failed: " + r.Error
	case r.ExitCode != nil && *r.ExitCode != 0:
		return fmt.Sprintf("command exited with status %d", *r.ExitCode)
	default:
		return "done"
	}
}
