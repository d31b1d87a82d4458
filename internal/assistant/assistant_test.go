package assistant

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gzhole/sysward/internal/audit"
	"github.com/gzhole/sysward/internal/command"
	"github.com/gzhole/sysward/internal/executor"
	"github.com/gzhole/sysward/internal/intent"
	"github.com/gzhole/sysward/internal/policy"
)

type fixture struct {
	assistant *Assistant
	trailPath string
}

func newFixture(t *testing.T, approver Approver) *fixture {
	t.Helper()
	trailPath := filepath.Join(t.TempDir(), "audit.jsonl")
	trail, err := audit.Open(trailPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = trail.Close() })

	a := New(
		intent.NewParser(0),
		policy.NewEngine(policy.DefaultPolicy()),
		executor.New(executor.Options{DryRun: true}),
		trail,
		approver,
	)
	return &fixture{assistant: a, trailPath: trailPath}
}

func (f *fixture) entries(t *testing.T) []audit.Entry {
	t.Helper()
	file, err := os.Open(f.trailPath)
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()

	var entries []audit.Entry
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var e audit.Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			t.Fatalf("corrupted audit line: %v", err)
		}
		entries = append(entries, e)
	}
	return entries
}

func TestProcess_AllowedCommandExecutes(t *testing.T) {
	f := newFixture(t, nil)

	outcome, err := f.assistant.Process(context.Background(), `{"action":"kill_process","name":"firefox"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Status != StatusExecuted {
		t.Fatalf("status = %s, message = %s", outcome.Status, outcome.Message)
	}
	if outcome.Execution == nil || outcome.Execution.ExitCode == nil || *outcome.Execution.ExitCode != 0 {
		t.Errorf("execution = %+v", outcome.Execution)
	}

	entries := f.entries(t)
	if len(entries) != 1 {
		t.Fatalf("expected exactly 1 audit entry, got %d", len(entries))
	}
	e := entries[0]
	if e.ParseOutcome != audit.ParseOK || e.Decision != "ALLOW" || e.Execution == nil {
		t.Errorf("inconsistent entry: %+v", e)
	}
}

func TestProcess_UnregisteredActionDenied(t *testing.T) {
	f := newFixture(t, nil)

	outcome, err := f.assistant.Process(context.Background(), `{"action":"delete_files","path":"/"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Status != StatusRefused {
		t.Fatalf("status = %s", outcome.Status)
	}
	if outcome.Verdict.Reason != policy.FailClosedReason {
		t.Errorf("reason = %q", outcome.Verdict.Reason)
	}

	entries := f.entries(t)
	if len(entries) != 1 {
		t.Fatalf("expected exactly 1 audit entry, got %d", len(entries))
	}
	e := entries[0]
	if e.Decision != "DENY" {
		t.Errorf("decision = %q", e.Decision)
	}
	if e.Execution != nil {
		t.Error("denied request must have no execution record")
	}
}

func TestProcess_ParseFailure(t *testing.T) {
	f := newFixture(t, nil)

	outcome, err := f.assistant.Process(context.Background(), "not valid json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Status != StatusParseFailed {
		t.Fatalf("status = %s", outcome.Status)
	}

	entries := f.entries(t)
	if len(entries) != 1 {
		t.Fatalf("expected exactly 1 audit entry, got %d", len(entries))
	}
	e := entries[0]
	if e.ParseOutcome != audit.ParseFailed {
		t.Errorf("parse outcome = %q", e.ParseOutcome)
	}
	if e.Decision != "" || e.Execution != nil {
		t.Errorf("parse failure must carry no verdict or execution: %+v", e)
	}
	if e.RawInput != "not valid json" {
		t.Errorf("raw input = %q", e.RawInput)
	}
}

func TestProcess_DisallowedShellProgramNeverExecutes(t *testing.T) {
	f := newFixture(t, nil)

	outcome, err := f.assistant.Process(context.Background(), `{"action":"shell_query","program":"rm","args":["-rf","/"]}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Status == StatusExecuted {
		t.Fatal("disallowed shell program must never execute")
	}

	entries := f.entries(t)
	if len(entries) != 1 {
		t.Fatalf("expected exactly 1 audit entry, got %d", len(entries))
	}
	if entries[0].Execution != nil {
		t.Error("no execution record expected")
	}
}

func TestProcess_DenyRuleRefuses(t *testing.T) {
	trailPath := filepath.Join(t.TempDir(), "audit.jsonl")
	trail, err := audit.Open(trailPath)
	if err != nil {
		t.Fatal(err)
	}
	defer trail.Close()

	pol := policy.DefaultPolicy()
	pol.Rules = append([]policy.Rule{{
		ID:       "deny-postgres",
		Match:    policy.Match{Action: "kill_process", TargetExact: "postgres"},
		Decision: policy.DecisionDeny,
		Reason:   "database stays up",
	}}, pol.Rules...)

	a := New(intent.NewParser(0), policy.NewEngine(pol),
		executor.New(executor.Options{DryRun: true}), trail, nil)

	outcome, err := a.Process(context.Background(), `{"action":"kill_process","name":"postgres"}`)
	if err != nil {
		t.Fatal(err)
	}
	if outcome.Status != StatusRefused {
		t.Fatalf("status = %s", outcome.Status)
	}
	if !strings.Contains(outcome.Message, "database stays up") {
		t.Errorf("message = %q", outcome.Message)
	}
}

type fakeApprover struct {
	approve bool
	seen    command.Command
}

func (f *fakeApprover) Approve(cmd command.Command, verdict policy.Verdict) (bool, string) {
	f.seen = cmd
	if f.approve {
		return true, "approve_once"
	}
	return false, "deny"
}

func TestProcess_UserDenialRecorded(t *testing.T) {
	approver := &fakeApprover{approve: false}
	f := newFixture(t, approver)

	outcome, err := f.assistant.Process(context.Background(), `{"action":"restart_service","unit":"nginx"}`)
	if err != nil {
		t.Fatal(err)
	}
	if outcome.Status != StatusRefused {
		t.Fatalf("status = %s", outcome.Status)
	}
	if approver.seen.Unit != "nginx" {
		t.Errorf("approver saw %+v", approver.seen)
	}

	entries := f.entries(t)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e.UserAction != "deny" || e.Decision != "DENY" || e.Execution != nil {
		t.Errorf("entry = %+v", e)
	}
}

func TestProcess_UserApprovalExecutes(t *testing.T) {
	f := newFixture(t, &fakeApprover{approve: true})

	outcome, err := f.assistant.Process(context.Background(), `{"action":"restart_service","unit":"nginx"}`)
	if err != nil {
		t.Fatal(err)
	}
	if outcome.Status != StatusExecuted {
		t.Fatalf("status = %s", outcome.Status)
	}
	entries := f.entries(t)
	if len(entries) != 1 || entries[0].UserAction != "approve_once" {
		t.Errorf("entries = %+v", entries)
	}
}

func TestProcess_AuditWriteFailureIsFatal(t *testing.T) {
	trailPath := filepath.Join(t.TempDir(), "audit.jsonl")
	trail, err := audit.Open(trailPath)
	if err != nil {
		t.Fatal(err)
	}
	// Closed sink: every append must fail, and the failure must surface.
	_ = trail.Close()

	a := New(intent.NewParser(0), policy.NewEngine(policy.DefaultPolicy()),
		executor.New(executor.Options{DryRun: true}), trail, nil)

	_, err = a.Process(context.Background(), `{"action":"list_processes"}`)
	if err == nil {
		t.Fatal("expected audit write failure to propagate")
	}
	if !strings.Contains(err.Error(), "audit trail unavailable") {
		t.Errorf("error = %v", err)
	}
}

func TestProcess_OneEntryPerRequest(t *testing.T) {
	f := newFixture(t, nil)

	inputs := []string{
		`{"action":"kill_process","name":"firefox"}`,  // executed
		`{"action":"delete_files","path":"/"}`,        // denied
		`not valid json`,                              // parse failure
		`{"action":"start_app","name":"sudo"}`,        // built-in deny
		`{"action":"list_processes","filter":"cpu"}`,  // executed
	}
	for _, raw := range inputs {
		if _, err := f.assistant.Process(context.Background(), raw); err != nil {
			t.Fatalf("Process(%q): %v", raw, err)
		}
	}

	entries := f.entries(t)
	if len(entries) != len(inputs) {
		t.Fatalf("expected %d entries, got %d", len(inputs), len(entries))
	}
}
