// Package audit is the sole durable output of the pipeline: one
// append-only JSONL entry per end-to-end request, whatever the outcome.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gzhole/sysward/internal/redact"
)

// MaxRawInput bounds how much of the untrusted model output an entry keeps.
const MaxRawInput = 1024

const maxRecordedOutput = 4 * 1024

type ParseOutcome string

const (
	ParseOK     ParseOutcome = "ok"
	ParseFailed ParseOutcome = "error"
)

// ExecutionRecord mirrors the executor result inside an audit entry.
type ExecutionRecord struct {
	ExitCode   *int   `json:"exit_code,omitempty"`
	Stdout     string `json:"stdout,omitempty"`
	Stderr     string `json:"stderr,omitempty"`
	DurationMs int64  `json:"duration_ms"`
	TimedOut   bool   `json:"timed_out,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Entry is the immutable record of one request's full decision trail.
type Entry struct {
	Timestamp    string           `json:"timestamp"`
	RawInput     string           `json:"raw_input"`
	ParseOutcome ParseOutcome     `json:"parse_outcome"`
	ParseError   string           `json:"parse_error,omitempty"`
	Command      string           `json:"command,omitempty"`
	Decision     string           `json:"decision,omitempty"`
	Reason       string           `json:"reason,omitempty"`
	RuleID       string           `json:"rule_id,omitempty"`
	UserAction   string           `json:"user_action,omitempty"`
	Execution    *ExecutionRecord `json:"execution,omitempty"`
}

// Trail appends entries to a file. Appends are serialized under a mutex so
// concurrent requests cannot interleave or corrupt lines.
type Trail struct {
	file *os.File
	mu   sync.Mutex
}

func Open(path string) (*Trail, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("open audit trail: %w", err)
	}
	return &Trail{file: file}, nil
}

// Record appends one entry. A write failure is returned to the caller:
// losing the audit record for an executed action is a loss of
// accountability the pipeline must surface, not swallow.
func (t *Trail) Record(entry Entry) error {
	if entry.Timestamp == "" {
		entry.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	entry.RawInput = redact.Redact(Truncate(entry.RawInput, MaxRawInput))
	if entry.Execution != nil {
		ex := *entry.Execution
		ex.Stdout = redact.Redact(Truncate(ex.Stdout, maxRecordedOutput))
		ex.Stderr = redact.Redact(Truncate(ex.Stderr, maxRecordedOutput))
		entry.Execution = &ex
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode audit entry: %w", err)
	}
	data = append(data, '\n')

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, err := t.file.Write(data); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

func (t *Trail) Close() error {
	if t.file != nil {
		return t.file.Close()
	}
	return nil
}

// Truncate bounds s to max bytes, marking the cut.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
