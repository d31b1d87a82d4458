package policy

import (
	"fmt"
	"strings"

	"github.com/gzhole/sysward/internal/command"
)

// FailClosedReason is the verdict reason when no configured rule matches.
const FailClosedReason = "no matching allow rule"

// blockedPrograms are command classes that must never be reachable through
// start_app, no matter what the rule table says: file destruction, disk and
// mount operations, user and permission management, firewall control,
// privilege escalation, power state, interpreters, schedulers, kernel
// modules.
var blockedPrograms = map[string]string{
	"rm": "file deletion", "rmdir": "file deletion", "shred": "file deletion", "unlink": "file deletion",
	"mkfs": "disk operation", "dd": "disk operation", "fdisk": "disk operation", "parted": "disk operation", "gdisk": "disk operation",
	"mount": "mount operation", "umount": "mount operation", "losetup": "mount operation",
	"useradd": "user management", "userdel": "user management", "usermod": "user management",
	"passwd": "user management", "chpasswd": "user management",
	"groupadd": "user management", "groupdel": "user management", "groupmod": "user management",
	"chmod": "permission change", "chown": "permission change", "chgrp": "permission change", "setfacl": "permission change",
	"iptables": "firewall control", "ip6tables": "firewall control", "nft": "firewall control",
	"ufw": "firewall control", "firewall-cmd": "firewall control",
	"sudo": "privilege escalation", "su": "privilege escalation", "pkexec": "privilege escalation", "doas": "privilege escalation",
	"reboot": "power state change", "shutdown": "power state change", "poweroff": "power state change",
	"halt": "power state change", "init": "power state change", "telinit": "power state change",
	"wget": "network download", "curl": "network download",
	"nc": "network tool", "netcat": "network tool", "ncat": "network tool",
	"python": "interpreter", "python3": "interpreter", "perl": "interpreter", "ruby": "interpreter",
	"bash": "interpreter", "sh": "interpreter", "zsh": "interpreter", "eval": "interpreter", "exec": "interpreter",
	"crontab": "scheduler", "at": "scheduler", "batch": "scheduler",
	"insmod": "kernel module", "rmmod": "kernel module", "modprobe": "kernel module",
}

// protectedServices cannot be restarted: losing them takes down the init
// system, networking, remote access, or the user's session.
var protectedServices = map[string]bool{
	"systemd": true, "init": true, "dbus": true, "udev": true,
	"networkmanager": true, "networking": true,
	"sshd": true, "ssh": true,
	"gdm": true, "lightdm": true, "sddm": true,
}

// criticalProcesses cannot be killed.
var criticalProcesses = map[string]bool{
	"init": true, "systemd": true, "dbus": true, "udev": true,
	"kernel": true, "kthreadd": true, "kworker": true, "ksoftirqd": true,
}

// Engine evaluates commands against the loaded rule set. Evaluate is a pure
// function of the command and the rules: no I/O, no mutation.
type Engine struct {
	policy *Policy
}

func NewEngine(p *Policy) *Engine {
	// Load rejects invalid patterns; compiling again covers rule sets
	// constructed in code. Anything still uncompiled is handled fail-closed
	// in matchRule.
	_ = p.compile()
	return &Engine{policy: p}
}

// Policy returns the engine's rule set (for inspection/testing).
func (e *Engine) Policy() *Policy {
	return e.policy
}

// Evaluate classifies a command. Built-in destructive-class denies run
// first and cannot be overridden by configuration; then configured rules in
// load order, any matching deny winning over every allow; then the
// fail-closed default.
func (e *Engine) Evaluate(cmd command.Command) Verdict {
	if v, denied := e.builtinDeny(cmd); denied {
		return v
	}

	var allow *Rule
	for i := range e.policy.Rules {
		rule := &e.policy.Rules[i]
		if !matchRule(cmd, rule) {
			continue
		}
		if rule.Decision == DecisionDeny {
			return Verdict{Decision: DecisionDeny, Reason: rule.Reason, RuleID: rule.ID}
		}
		if allow == nil {
			allow = rule
		}
	}

	if allow != nil {
		return Verdict{Decision: DecisionAllow, Reason: allow.Reason, RuleID: allow.ID}
	}
	return Verdict{Decision: DecisionDeny, Reason: FailClosedReason, RuleID: "default-deny"}
}

func (e *Engine) builtinDeny(cmd command.Command) (Verdict, bool) {
	switch cmd.Action {
	case command.ActionStartApp:
		name := strings.ToLower(strings.TrimSpace(cmd.Name))
		if class, blocked := blockedPrograms[name]; blocked {
			return Verdict{
				Decision: DecisionDeny,
				Reason:   fmt.Sprintf("starting %q is not allowed: %s", name, class),
				RuleID:   "builtin-blocked-program",
			}, true
		}

	case command.ActionKillProcess:
		name := strings.ToLower(strings.TrimSpace(cmd.Name))
		if criticalProcesses[name] {
			return Verdict{
				Decision: DecisionDeny,
				Reason:   fmt.Sprintf("killing %q is not allowed: critical system process", name),
				RuleID:   "builtin-critical-process",
			}, true
		}

	case command.ActionRestartService:
		unit := strings.ToLower(strings.TrimSuffix(strings.TrimSpace(cmd.Unit), ".service"))
		if protectedServices[unit] {
			return Verdict{
				Decision: DecisionDeny,
				Reason:   fmt.Sprintf("restarting %q is not allowed: protected service", unit),
				RuleID:   "builtin-protected-service",
			}, true
		}

	case command.ActionShellQuery:
		// The allow-set is enforced in the command model too; checking it
		// again keeps the engine safe against commands constructed by hand.
		if !command.ShellPrograms[cmd.Program] {
			return Verdict{
				Decision: DecisionDeny,
				Reason:   fmt.Sprintf("shell program %q is not in the allowed set", cmd.Program),
				RuleID:   "builtin-shell-allowlist",
			}, true
		}
		if reason := scanShellQuery(cmd.Program, cmd.Args); reason != "" {
			return Verdict{
				Decision: DecisionDeny,
				Reason:   reason,
				RuleID:   "builtin-shell-structure",
			}, true
		}
	}

	return Verdict{}, false
}

func matchRule(cmd command.Command, rule *Rule) bool {
	if rule.Match.Action != string(cmd.Action) {
		return false
	}

	if rule.Match.Program != "" && rule.Match.Program != cmd.Program {
		return false
	}

	target := cmd.Target()
	if rule.Match.TargetExact != "" && target != rule.Match.TargetExact {
		return false
	}
	if rule.Match.TargetPrefix != "" && !strings.HasPrefix(target, rule.Match.TargetPrefix) {
		return false
	}
	if rule.Match.TargetRegex != "" {
		if rule.targetRe == nil {
			// An unappliable pattern must not neuter a deny rule. Deny
			// rules match conservatively; allow rules do not match.
			return rule.Decision == DecisionDeny
		}
		if !rule.targetRe.MatchString(target) {
			return false
		}
	}
	return true
}
