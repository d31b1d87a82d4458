// Package redact scrubs credential-shaped substrings from text before it
// is persisted. The audit trail stores raw model output verbatim, and a
// prompt or an error message can carry API keys or tokens the operator
// never intended to keep on disk.
package redact

import "regexp"

type pattern struct {
	re          *regexp.Regexp
	replacement string
}

var patterns = []pattern{
	// AWS access key IDs.
	{regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`), "[REDACTED]"},
	// GitHub tokens (classic and fine-grained).
	{regexp.MustCompile(`\bgh[pousr]_[A-Za-z0-9]{36,255}\b`), "[REDACTED]"},
	// OpenAI-style API keys.
	{regexp.MustCompile(`\bsk-[A-Za-z0-9_-]{20,}\b`), "[REDACTED]"},
	// Slack tokens.
	{regexp.MustCompile(`\bxox[baprs]-[A-Za-z0-9-]{10,}\b`), "[REDACTED]"},
	// Bearer authorization values.
	{regexp.MustCompile(`(?i)\bbearer\s+[A-Za-z0-9._~+/-]{16,}=*`), "Bearer [REDACTED]"},
	// PEM private key blocks.
	{regexp.MustCompile(`-----BEGIN [A-Z ]*PRIVATE KEY-----[\s\S]*?-----END [A-Z ]*PRIVATE KEY-----`), "[REDACTED PRIVATE KEY]"},
	// key=value style secrets (password=..., api_key: ...).
	{regexp.MustCompile(`(?i)\b(password|passwd|secret|api[_-]?key|token)\s*[:=]\s*\S+`), "$1=[REDACTED]"},
}

// Redact replaces anything that matches a known credential pattern with a
// placeholder. The input is returned unchanged when nothing matches.
func Redact(s string) string {
	for _, p := range patterns {
		s = p.re.ReplaceAllString(s, p.replacement)
	}
	return s
}
