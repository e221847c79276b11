package policy

import (
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// Classification is the CommandValidator verdict for a proposed command.
type Classification int

const (
	// Allowed commands run without interactive approval.
	Allowed Classification = iota
	// RequiresApproval commands need an explicit user decision.
	RequiresApproval
	// Denied commands can never run, regardless of allowlist,
	// auto-approve flags, or user approval.
	Denied
)

func (c Classification) String() string {
	switch c {
	case Allowed:
		return "allowed"
	case RequiresApproval:
		return "requires_approval"
	case Denied:
		return "denied"
	default:
		return "unknown"
	}
}

// Verdict carries the classification plus, for denials, the matched rule.
type Verdict struct {
	Class  Classification
	Rule   string
	Reason string
}

// Err returns the denial as an error, or nil for other classifications.
func (v Verdict) Err() error {
	if v.Class != Denied {
		return nil
	}
	return &DeniedError{Rule: v.Rule, Reason: v.Reason}
}

// CommandValidator classifies shell commands. The denylist is evaluated
// first and is unconditional: it applies even when command validation is
// otherwise disabled, and its verdict cannot be overridden downstream.
// Allowlist entries are literal string prefixes, matched case-sensitively
// against the trimmed raw command; the first matching entry suffices.
//
// Prefix matching alone would let "git status; rm -rf /" ride on a
// "git status" entry, so a command is only allowlist-eligible when it
// parses to a single plain call: no pipes, lists, background jobs,
// redirections, or command substitution.
type CommandValidator struct {
	policy   SecurityPolicy
	denylist *Denylist
}

// NewCommandValidator creates a validator for the session policy using the
// built-in denylist.
func NewCommandValidator(pol SecurityPolicy) *CommandValidator {
	return NewCommandValidatorWithDenylist(pol, DefaultDenylist())
}

// NewCommandValidatorWithDenylist creates a validator with an explicit
// denylist (built-in rules plus any policy-pack additions).
func NewCommandValidatorWithDenylist(pol SecurityPolicy, denylist *Denylist) *CommandValidator {
	if denylist == nil {
		panic("denylist is required")
	}
	return &CommandValidator{policy: pol, denylist: denylist}
}

// Classify decides whether command may run without confirmation.
// Classification is deterministic and side-effect free.
func (v *CommandValidator) Classify(command string) Verdict {
	trimmed := strings.TrimSpace(command)
	if trimmed == "" {
		return Verdict{Class: Denied, Rule: "empty-command", Reason: "empty command"}
	}

	if rule := v.denylist.Match(trimmed); rule != nil {
		return Verdict{Class: Denied, Rule: rule.ID, Reason: rule.Reason}
	}

	// With command validation disabled nothing is auto-allowed; every
	// non-denied command falls through to interactive approval.
	if !v.policy.CommandValidation {
		return Verdict{Class: RequiresApproval}
	}

	if len(v.policy.Allowlist) > 0 && v.matchesAllowlist(trimmed) {
		return Verdict{Class: Allowed}
	}

	return Verdict{Class: RequiresApproval}
}

// matchesAllowlist reports whether the trimmed command starts with some
// allowlist entry AND is a single plain call, so compound commands can
// never ride on an allowlisted prefix.
func (v *CommandValidator) matchesAllowlist(trimmed string) bool {
	matched := false
	for _, entry := range v.policy.Allowlist {
		if strings.HasPrefix(trimmed, entry) {
			matched = true
			break
		}
	}
	if !matched {
		return false
	}
	return isSinglePlainCall(trimmed)
}

// isSinglePlainCall reports whether command parses to exactly one simple
// command with no shell control structure. Unparseable input is not plain.
func isSinglePlainCall(command string) bool {
	parser := syntax.NewParser(syntax.KeepComments(false), syntax.Variant(syntax.LangBash))
	file, err := parser.Parse(strings.NewReader(command), "")
	if err != nil {
		return false
	}
	if len(file.Stmts) != 1 {
		return false
	}

	stmt := file.Stmts[0]
	if stmt.Background || stmt.Coprocess || stmt.Negated {
		return false
	}
	if len(stmt.Redirs) > 0 {
		return false
	}

	call, ok := stmt.Cmd.(*syntax.CallExpr)
	if !ok {
		return false
	}

	// Command/process substitution inside arguments smuggles execution.
	plain := true
	syntax.Walk(call, func(node syntax.Node) bool {
		switch node.(type) {
		case *syntax.CmdSubst, *syntax.ProcSubst:
			plain = false
			return false
		}
		return true
	})
	return plain
}

// literalWord flattens a word to its literal text, ignoring expansions.
func literalWord(w *syntax.Word) string {
	if w == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range w.Parts {
		switch p := part.(type) {
		case *syntax.Lit:
			sb.WriteString(p.Value)
		case *syntax.SglQuoted:
			sb.WriteString(p.Value)
		case *syntax.DblQuoted:
			for _, inner := range p.Parts {
				if lit, ok := inner.(*syntax.Lit); ok {
					sb.WriteString(lit.Value)
				}
			}
		}
	}
	return sb.String()
}
