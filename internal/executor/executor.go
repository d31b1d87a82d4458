// Package executor maps approved Commands onto concrete process
// invocations. Every invocation is built as an argument vector; nothing is
// ever handed to a shell.
package executor

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/gzhole/sysward/internal/command"
)

const (
	// DefaultTimeout bounds each child process invocation.
	DefaultTimeout = 10 * time.Second
	// DefaultMaxOutput caps captured bytes per stream.
	DefaultMaxOutput = 64 * 1024
)

// Result captures everything that happened to one invocation. Launch
// failures, non-zero exits and timeouts land here, never as panics or raw
// process errors propagating upward.
type Result struct {
	Command    command.Command
	ExitCode   *int
	Stdout     string
	Stderr     string
	DurationMs int64
	TimedOut   bool
	Error      string
}

type Executor struct {
	timeout   time.Duration
	maxOutput int
	dryRun    bool
}

type Options struct {
	Timeout   time.Duration
	MaxOutput int
	DryRun    bool
}

func New(opts Options) *Executor {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxOutput <= 0 {
		opts.MaxOutput = DefaultMaxOutput
	}
	return &Executor{
		timeout:   opts.Timeout,
		maxOutput: opts.MaxOutput,
		dryRun:    opts.DryRun,
	}
}

// Run executes an approved command. Callers must only pass commands the
// policy engine allowed.
func (e *Executor) Run(ctx context.Context, cmd command.Command) Result {
	if e.dryRun {
		return Result{
			Command:  cmd,
			ExitCode: intPtr(0),
			Stdout:   fmt.Sprintf("[dry run] would execute: %s", cmd),
		}
	}

	switch cmd.Action {
	case command.ActionStartApp:
		return e.startApp(cmd)
	case command.ActionKillProcess:
		return e.run(ctx, cmd, "pkill", "-TERM", "-x", cmd.Name)
	case command.ActionListProcesses:
		return e.run(ctx, cmd, listProcessesArgv(cmd.Filter)...)
	case command.ActionRestartService:
		return e.run(ctx, cmd, "systemctl", "restart", serviceUnit(cmd.Unit))
	case command.ActionShellQuery:
		return e.run(ctx, cmd, append([]string{cmd.Program}, cmd.Args...)...)
	}

	return Result{
		Command: cmd,
		Error:   fmt.Sprintf("no execution mapping for action %q", cmd.Action),
	}
}

// startApp launches an application detached, in its own session, without
// waiting for it to exit.
func (e *Executor) startApp(cmd command.Command) Result {
	start := time.Now()

	path, err := exec.LookPath(cmd.Name)
	if err != nil {
		return Result{
			Command:    cmd,
			DurationMs: time.Since(start).Milliseconds(),
			Error:      fmt.Sprintf("application %q not found", cmd.Name),
		}
	}

	proc := exec.Command(path)
	detach(proc)

	if err := proc.Start(); err != nil {
		return Result{
			Command:    cmd,
			DurationMs: time.Since(start).Milliseconds(),
			Error:      fmt.Sprintf("failed to start %q: %v", cmd.Name, err),
		}
	}

	pid := proc.Process.Pid
	_ = proc.Process.Release()

	return Result{
		Command:    cmd,
		ExitCode:   intPtr(0),
		Stdout:     fmt.Sprintf("Started %q (PID %d)", cmd.Name, pid),
		DurationMs: time.Since(start).Milliseconds(),
	}
}

// run invokes argv with the configured timeout, capturing bounded output.
// The child gets its own process group; on timeout the whole group is
// killed so no descendants linger.
func (e *Executor) run(ctx context.Context, cmd command.Command, argv ...string) Result {
	runCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	proc := exec.CommandContext(runCtx, argv[0], argv[1:]...)
	setProcessGroup(proc)
	proc.Cancel = func() error { return killProcessGroup(proc) }
	proc.WaitDelay = 2 * time.Second

	stdout := newBoundedBuffer(e.maxOutput)
	stderr := newBoundedBuffer(e.maxOutput)
	proc.Stdout = stdout
	proc.Stderr = stderr

	start := time.Now()
	err := proc.Run()
	duration := time.Since(start).Milliseconds()

	result := Result{
		Command:    cmd,
		Stdout:     stdout.String(),
		Stderr:     stderr.String(),
		DurationMs: duration,
	}

	if timedOut(err, runCtx.Err()) {
		result.TimedOut = true
		result.Error = fmt.Sprintf("timed out after %s", e.timeout)
		return result
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = intPtr(exitErr.ExitCode())
			return result
		}
		result.Error = err.Error()
		return result
	}

	result.ExitCode = intPtr(0)
	return result
}

// timedOut classifies a finished invocation. The deadline can fire in the
// same instant a child exits cleanly; a run that produced no error
// completed, and keeps its exit code.
func timedOut(runErr, ctxErr error) bool {
	return runErr != nil && errors.Is(ctxErr, context.DeadlineExceeded)
}

func listProcessesArgv(filter string) []string {
	switch strings.ToLower(strings.TrimSpace(filter)) {
	case "cpu":
		return []string{"ps", "aux", "--sort=-%cpu"}
	case "memory", "mem":
		return []string{"ps", "aux", "--sort=-%mem"}
	default:
		return []string{"ps", "aux"}
	}
}

func serviceUnit(unit string) string {
	if strings.HasSuffix(unit, ".service") {
		return unit
	}
	return unit + ".service"
}

func intPtr(v int) *int { return &v }
