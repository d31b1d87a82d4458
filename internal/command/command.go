package command

import (
	"fmt"
	"strings"
	"unicode"
)

// Action identifies one of the permitted system operations. The wire tags
// match what the language model is prompted to emit.
type Action string

const (
	ActionStartApp       Action = "start_app"
	ActionKillProcess    Action = "kill_process"
	ActionListProcesses  Action = "list_processes"
	ActionRestartService Action = "restart_service"
	ActionShellQuery     Action = "shell_query"
)

// Known reports whether a is one of the registered action tags. Commands
// with unknown tags can still be constructed (field rules apply) so that
// the policy engine can fail-closed deny them with a recorded verdict.
func (a Action) Known() bool {
	switch a {
	case ActionStartApp, ActionKillProcess, ActionListProcesses,
		ActionRestartService, ActionShellQuery:
		return true
	}
	return false
}

const (
	// MaxFieldLen bounds every string field of a Command.
	MaxFieldLen = 256
	// MaxShellArgs bounds the argument vector of a shell query.
	MaxShellArgs = 16
)

// shellMeta are the characters that must never appear in any Command field.
// Everything downstream trusts that they cannot.
const shellMeta = ";|&$`><\n"

// ShellPrograms is the closed set of programs a shell_query may name.
// Enforced at construction and again by the policy engine.
var ShellPrograms = map[string]bool{
	"ps":   true,
	"grep": true,
}

// Command is a validated, typed representation of one proposed system
// action. Construct it via New or the variant constructors; it is not
// mutated after construction.
type Command struct {
	Action  Action
	Name    string   // start_app, kill_process
	Unit    string   // restart_service
	Filter  string   // list_processes, optional
	Program string   // shell_query
	Args    []string // shell_query
}

// InvalidCommandError reports a Command that violates the model's
// construction rules.
type InvalidCommandError struct {
	Field  string
	Reason string
}

func (e *InvalidCommandError) Error() string {
	return fmt.Sprintf("invalid command: %s: %s", e.Field, e.Reason)
}

func invalid(field, reason string) error {
	return &InvalidCommandError{Field: field, Reason: reason}
}

// New validates fields against the action's contract and returns an
// immutable Command. Unknown actions are accepted as long as every field
// passes the character rules; the policy engine denies them fail-closed.
func New(action Action, c Command) (Command, error) {
	c.Action = action

	for _, f := range []struct{ name, value string }{
		{"name", c.Name},
		{"unit", c.Unit},
		{"filter", c.Filter},
		{"program", c.Program},
	} {
		if f.value == "" {
			continue
		}
		if err := checkField(f.name, f.value); err != nil {
			return Command{}, err
		}
	}

	switch action {
	case ActionStartApp, ActionKillProcess:
		if c.Name == "" {
			return Command{}, invalid("name", "required")
		}
	case ActionRestartService:
		if c.Unit == "" {
			return Command{}, invalid("unit", "required")
		}
	case ActionListProcesses:
		// filter is optional
	case ActionShellQuery:
		if c.Program == "" {
			return Command{}, invalid("program", "required")
		}
		if !ShellPrograms[c.Program] {
			return Command{}, invalid("program", fmt.Sprintf("%q is not an allowed shell program", c.Program))
		}
		if len(c.Args) > MaxShellArgs {
			return Command{}, invalid("args", fmt.Sprintf("too many arguments (max %d)", MaxShellArgs))
		}
		args := make([]string, len(c.Args))
		for i, a := range c.Args {
			if err := checkField(fmt.Sprintf("args[%d]", i), a); err != nil {
				return Command{}, err
			}
			args[i] = a
		}
		c.Args = args
	}

	if action != ActionShellQuery {
		c.Args = nil
	}
	return c, nil
}

func StartApp(name string) (Command, error) {
	return New(ActionStartApp, Command{Name: name})
}

func KillProcess(name string) (Command, error) {
	return New(ActionKillProcess, Command{Name: name})
}

func ListProcesses(filter string) (Command, error) {
	return New(ActionListProcesses, Command{Filter: filter})
}

func RestartService(unit string) (Command, error) {
	return New(ActionRestartService, Command{Unit: unit})
}

func ShellQuery(program string, args ...string) (Command, error) {
	return New(ActionShellQuery, Command{Program: program, Args: args})
}

// Target returns the primary argument of the command, whichever field
// carries it. Used by policy matching and display.
func (c Command) Target() string {
	switch c.Action {
	case ActionStartApp, ActionKillProcess:
		return c.Name
	case ActionRestartService:
		return c.Unit
	case ActionListProcesses:
		return c.Filter
	case ActionShellQuery:
		return strings.TrimSpace(c.Program + " " + strings.Join(c.Args, " "))
	}
	return c.Name
}

// String renders the command for prompts and audit display.
func (c Command) String() string {
	t := c.Target()
	if t == "" {
		return string(c.Action)
	}
	return fmt.Sprintf("%s %s", c.Action, t)
}

func checkField(field, value string) error {
	if len(value) > MaxFieldLen {
		return invalid(field, fmt.Sprintf("too long (max %d characters)", MaxFieldLen))
	}
	if strings.ContainsAny(value, shellMeta) {
		return invalid(field, "shell metacharacters are not allowed")
	}
	if strings.Contains(value, "../") || strings.HasSuffix(value, "..") {
		return invalid(field, "parent directory traversal is not allowed")
	}
	for _, r := range value {
		if r != ' ' && (unicode.IsControl(r) || !unicode.IsPrint(r)) {
			return invalid(field, "control or non-printable characters are not allowed")
		}
	}
	return nil
}
