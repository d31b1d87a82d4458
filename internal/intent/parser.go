// Package intent converts raw language-model output into a validated
// Command. Everything it receives is untrusted text; it only deserializes
// and validates, never interprets.
package intent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gzhole/sysward/internal/command"
	"github.com/gzhole/sysward/internal/unicode"
)

// DefaultMaxPayload caps the raw model output the parser will look at.
const DefaultMaxPayload = 16 * 1024

// ParseError reports raw input that failed to decode into a valid Command.
// It is terminal for the request; no retries happen here.
type ParseError struct {
	Reason string
	Cause  error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("parse: %s: %v", e.Reason, e.Cause)
	}
	return "parse: " + e.Reason
}

func (e *ParseError) Unwrap() error { return e.Cause }

func parseErr(reason string, cause error) error {
	return &ParseError{Reason: reason, Cause: cause}
}

// wireCommand is the JSON shape the model is prompted to emit.
type wireCommand struct {
	Action  string   `json:"action"`
	Name    string   `json:"name"`
	Unit    string   `json:"unit"`
	Filter  string   `json:"filter"`
	Target  string   `json:"target"`
	Program string   `json:"program"`
	Args    []string `json:"args"`
}

// envelope is the optional wrapper the original assistant prompt used:
// the model may answer {"command": {...}} or report that it cannot help.
type envelope struct {
	Command       *wireCommand `json:"command"`
	Error         string       `json:"error"`
	CannotProcess bool         `json:"cannot_process"`
}

type Parser struct {
	maxPayload int
}

func NewParser(maxPayload int) *Parser {
	if maxPayload <= 0 {
		maxPayload = DefaultMaxPayload
	}
	return &Parser{maxPayload: maxPayload}
}

// Parse decodes raw model output into a Command. It accepts either a bare
// command object or the {command, error, cannot_process} envelope, with or
// without markdown fences around the JSON.
func (p *Parser) Parse(raw string) (command.Command, error) {
	if len(raw) > p.maxPayload {
		return command.Command{}, parseErr(fmt.Sprintf("payload exceeds %d bytes", p.maxPayload), nil)
	}
	if err := unicode.Check(raw); err != nil {
		return command.Command{}, parseErr("disallowed characters in model output", err)
	}

	text := extractJSON(raw)
	if text == "" {
		return command.Command{}, parseErr("no JSON object found in model output", nil)
	}

	var env envelope
	if err := json.Unmarshal([]byte(text), &env); err != nil {
		return command.Command{}, parseErr("malformed JSON", err)
	}

	wire := env.Command
	if wire == nil {
		if env.CannotProcess || env.Error != "" {
			reason := env.Error
			if reason == "" {
				reason = "model declined the request"
			}
			return command.Command{}, parseErr(reason, nil)
		}
		// Not an envelope: decode as a bare command object.
		wire = &wireCommand{}
		if err := json.Unmarshal([]byte(text), wire); err != nil {
			return command.Command{}, parseErr("malformed JSON", err)
		}
	}

	if strings.TrimSpace(wire.Action) == "" {
		return command.Command{}, parseErr("missing action tag", nil)
	}

	cmd, err := wire.toCommand()
	if err != nil {
		return command.Command{}, parseErr("command validation failed", err)
	}
	return cmd, nil
}

func (w *wireCommand) toCommand() (command.Command, error) {
	action := command.Action(strings.ToLower(strings.TrimSpace(w.Action)))

	c := command.Command{
		Name:    w.Name,
		Unit:    w.Unit,
		Filter:  w.Filter,
		Program: w.Program,
		Args:    w.Args,
	}

	// The original prompt used a single "target" field; map it onto the
	// typed field for that action when the specific field is absent.
	if w.Target != "" {
		switch action {
		case command.ActionStartApp, command.ActionKillProcess:
			if c.Name == "" {
				c.Name = w.Target
			}
		case command.ActionRestartService:
			if c.Unit == "" {
				c.Unit = w.Target
			}
		case command.ActionListProcesses:
			if c.Filter == "" && w.Target != "all" {
				c.Filter = w.Target
			}
		}
	}

	return command.New(action, c)
}

// extractJSON strips markdown fences and, failing a clean object, falls
// back to the outermost {...} span. Models wrap JSON in fences often
// enough that the original assistant did the same cleanup.
func extractJSON(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") {
		return s
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}
