package audit

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestTrail_RecordAndReadBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")

	trail, err := Open(path)
	if err != nil {
		t.Fatalf("failed to open trail: %v", err)
	}

	exit := 0
	entry := Entry{
		Timestamp:    "2026-08-01T12:00:00Z",
		RawInput:     `{"action":"kill_process","name":"firefox"}`,
		ParseOutcome: ParseOK,
		Command:      "kill_process firefox",
		Decision:     "ALLOW",
		Reason:       "Stopping user processes is permitted.",
		RuleID:       "allow-kill-process",
		Execution:    &ExecutionRecord{ExitCode: &exit, DurationMs: 12},
	}

	if err := trail.Record(entry); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := trail.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	var parsed Entry
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("log line is not valid JSON: %v", err)
	}
	if parsed.Decision != "ALLOW" || parsed.RuleID != "allow-kill-process" {
		t.Errorf("got %+v", parsed)
	}
	if parsed.Execution == nil || parsed.Execution.ExitCode == nil || *parsed.Execution.ExitCode != 0 {
		t.Errorf("execution record lost: %+v", parsed.Execution)
	}
}

func TestTrail_TruncatesRawInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	trail, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer trail.Close()

	if err := trail.Record(Entry{
		RawInput:     strings.Repeat("x", MaxRawInput*4),
		ParseOutcome: ParseFailed,
	}); err != nil {
		t.Fatal(err)
	}
	_ = trail.Close()

	data, _ := os.ReadFile(path)
	var parsed Entry
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatal(err)
	}
	if len(parsed.RawInput) > MaxRawInput+32 {
		t.Errorf("raw input not truncated: %d bytes", len(parsed.RawInput))
	}
	if !strings.HasSuffix(parsed.RawInput, "...(truncated)") {
		t.Error("expected truncation marker")
	}
}

func TestTrail_ConcurrentAppendsDoNotInterleave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	trail, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}

	const writers = 8
	const perWriter = 50

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				_ = trail.Record(Entry{
					RawInput:     `{"action":"list_processes"}`,
					ParseOutcome: ParseOK,
					Decision:     "ALLOW",
				})
			}
		}()
	}
	wg.Wait()
	_ = trail.Close()

	file, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()

	lines := 0
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var entry Entry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			t.Fatalf("corrupted line %d: %v", lines, err)
		}
		lines++
	}
	if lines != writers*perWriter {
		t.Errorf("expected %d entries, got %d", writers*perWriter, lines)
	}
}

func TestTrail_RedactsSecretsInRawInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	trail, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}

	entry := Entry{
		RawInput:     `{"action":"shell_query","program":"ps","args":["aux"],"note":"sk-abcdefghijklmnopqrstuvwx"}`,
		ParseOutcome: ParseOK,
		Execution:    &ExecutionRecord{Stderr: "auth failed: password=hunter2secret"},
	}
	if err := trail.Record(entry); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := trail.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "sk-abcdefghijklmnopqrstuvwx") {
		t.Error("API key persisted to audit trail")
	}
	if strings.Contains(string(data), "hunter2secret") {
		t.Error("password persisted to audit trail")
	}
	if !strings.Contains(string(data), "[REDACTED]") {
		t.Errorf("expected redaction marker in %s", data)
	}
}

func TestTrail_OpenFailureSurfaces(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "no", "such", "dir", "audit.jsonl"))
	if err == nil {
		t.Fatal("expected error for unwritable sink")
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 10); got != "short" {
		t.Errorf("got %q", got)
	}
	if got := Truncate("0123456789abc", 10); got != "0123456789...(truncated)" {
		t.Errorf("got %q", got)
	}
}
