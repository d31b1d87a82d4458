package policy

import (
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// scanShellQuery parses the assembled query with a real shell grammar and
// rejects anything beyond a single plain invocation: pipes, redirects,
// background jobs, command substitution, arithmetic, globs, quoting tricks.
// The command model already strips the obvious metacharacters; parsing the
// result as bash catches the constructs a character set cannot. Returns an
// empty string when the query is clean.
func scanShellQuery(program string, args []string) string {
	src := program
	if len(args) > 0 {
		src += " " + strings.Join(args, " ")
	}

	parser := syntax.NewParser(syntax.KeepComments(false), syntax.Variant(syntax.LangBash))
	file, err := parser.Parse(strings.NewReader(src), "")
	if err != nil {
		return "shell query does not parse as a plain command"
	}

	if len(file.Stmts) != 1 {
		return "shell query must be a single command"
	}

	stmt := file.Stmts[0]
	if stmt.Background || stmt.Coprocess || stmt.Negated {
		return "shell query must be a plain foreground command"
	}
	if len(stmt.Redirs) > 0 {
		return "redirection is not allowed in shell queries"
	}

	call, ok := stmt.Cmd.(*syntax.CallExpr)
	if !ok {
		return "pipes and compound commands are not allowed in shell queries"
	}
	if len(call.Assigns) > 0 {
		return "environment assignments are not allowed in shell queries"
	}

	for _, word := range call.Args {
		if !literalWord(word) {
			return "shell queries may contain only literal arguments"
		}
	}
	return ""
}

func literalWord(w *syntax.Word) bool {
	for i, part := range w.Parts {
		lit, ok := part.(*syntax.Lit)
		if !ok {
			return false
		}
		// Glob and tilde expansion survive as literals in the AST; a query
		// has no business expanding the filesystem or home directories.
		if strings.ContainsAny(lit.Value, "*?[") {
			return false
		}
		if i == 0 && strings.HasPrefix(lit.Value, "~") {
			return false
		}
	}
	return true
}
