package cli

import (
	"fmt"
	"time"

	"github.com/gzhole/sysward/internal/approval"
	"github.com/gzhole/sysward/internal/assistant"
	"github.com/gzhole/sysward/internal/audit"
	"github.com/gzhole/sysward/internal/config"
	"github.com/gzhole/sysward/internal/executor"
	"github.com/gzhole/sysward/internal/intent"
	"github.com/gzhole/sysward/internal/policy"
)

// buildPipeline assembles the full parse->evaluate->execute->record chain
// from configuration and flags. The returned closer flushes the audit
// trail.
func buildPipeline() (*assistant.Assistant, *config.Config, func(), error) {
	cfg, err := config.Load(policyPath, auditPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	if timeoutSecs > 0 {
		cfg.ExecTimeout = time.Duration(timeoutSecs) * time.Second
	}
	if dryRun {
		cfg.DryRun = true
	}
	if confirm {
		cfg.RequireConfirm = true
	}

	pol, err := policy.Load(cfg.PolicyPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load policy: %w", err)
	}

	trail, err := audit.Open(cfg.AuditPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open audit trail: %w", err)
	}

	var approver assistant.Approver
	if cfg.RequireConfirm {
		approver = approval.Interactive{}
	}

	a := assistant.New(
		intent.NewParser(cfg.MaxPayload),
		policy.NewEngine(pol),
		executor.New(executor.Options{
			Timeout:   cfg.ExecTimeout,
			MaxOutput: cfg.MaxOutputBytes,
			DryRun:    cfg.DryRun,
		}),
		trail,
		approver,
	)

	return a, cfg, func() { _ = trail.Close() }, nil
}
