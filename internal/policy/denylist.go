package policy

import (
	"path/filepath"
	"regexp"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// DenyRule is a single hard denylist entry. Pattern rules match the trimmed
// raw command; rules with a nil Pattern are implemented structurally against
// the parsed shell AST (flag reordering and quoting cannot dodge them).
type DenyRule struct {
	ID      string
	Pattern *regexp.Regexp
	Reason  string
}

// Denylist is the set of categorically destructive command patterns that can
// never be auto- or user-approved away.
type Denylist struct {
	rules []DenyRule
}

// Roots that a recursive delete may never target.
var protectedDeleteTargets = map[string]bool{
	"/":     true,
	"/*":    true,
	"~":     true,
	"/bin":  true,
	"/boot": true,
	"/etc":  true,
	"/lib":  true,
	"/sbin": true,
	"/usr":  true,
	"/var":  true,
}

// DefaultDenylist returns the built-in rules.
func DefaultDenylist() *Denylist {
	return &Denylist{rules: []DenyRule{
		{
			ID:      "fork-bomb",
			Pattern: regexp.MustCompile(`:\(\)\s*\{\s*:\s*\|\s*:\s*&\s*\}`),
			Reason:  "fork bomb",
		},
		{
			ID:      "fork-bomb",
			Pattern: regexp.MustCompile(`\w+\(\)\s*\{\s*\w+\s*\|\s*\w+\s*&\s*\}`),
			Reason:  "fork bomb",
		},
		{
			ID:      "privilege-escalation",
			Pattern: regexp.MustCompile(`^(sudo|doas|pkexec)(\s|$)`),
			Reason:  "privilege escalation",
		},
		{
			ID:      "privilege-escalation",
			Pattern: regexp.MustCompile(`^su(\s|$)`),
			Reason:  "privilege escalation",
		},
		{
			ID:      "filesystem-format",
			Pattern: regexp.MustCompile(`(^|\s)mkfs(\.[a-z0-9]+)?(\s|$)`),
			Reason:  "formats a filesystem",
		},
		{
			ID:      "raw-device-write",
			Pattern: regexp.MustCompile(`(^|\s)dd\s[^|;&]*\bof=/dev/`),
			Reason:  "writes directly to a block device",
		},
		{
			ID:      "raw-device-write",
			Pattern: regexp.MustCompile(`>\s*/dev/(sd|hd|vd|xvd|nvme)`),
			Reason:  "writes directly to a block device",
		},
		{
			ID:      "pipe-download-to-shell",
			Pattern: regexp.MustCompile(`(^|\s)(curl|wget)\b[^|]*\|\s*(ba|z|da|k|fi)?sh(\s|$)`),
			Reason:  "pipes a download into a shell",
		},
	}}
}

// Append adds extra rules (from the policy pack) after the built-ins.
func (d *Denylist) Append(rules ...DenyRule) {
	d.rules = append(d.rules, rules...)
}

// Match returns the first matching rule, or nil when the command is clean.
// Pattern rules run against the trimmed raw string; the structural
// recursive-delete check runs against every simple command in the parse,
// so "cd /tmp && rm -rf /" is caught inside the compound command.
func (d *Denylist) Match(trimmed string) *DenyRule {
	for i := range d.rules {
		rule := &d.rules[i]
		if rule.Pattern != nil && rule.Pattern.MatchString(trimmed) {
			return rule
		}
	}
	return matchRecursiveRootDelete(trimmed)
}

// matchRecursiveRootDelete detects rm invocations that recursively target
// the filesystem root, the home directory, or a protected system directory.
func matchRecursiveRootDelete(command string) *DenyRule {
	parser := syntax.NewParser(syntax.KeepComments(false), syntax.Variant(syntax.LangBash))
	file, err := parser.Parse(strings.NewReader(command), "")
	if err != nil {
		// Unparseable commands never reach the allowlist, so approval
		// still stands between them and execution.
		return nil
	}

	var matched *DenyRule
	syntax.Walk(file, func(node syntax.Node) bool {
		if matched != nil {
			return false
		}
		call, ok := node.(*syntax.CallExpr)
		if !ok {
			return true
		}
		if isDestructiveDelete(call) {
			matched = &DenyRule{
				ID:     "recursive-root-delete",
				Reason: "recursive delete of a protected directory",
			}
			return false
		}
		return true
	})
	return matched
}

func isDestructiveDelete(call *syntax.CallExpr) bool {
	if len(call.Args) == 0 {
		return false
	}
	if filepath.Base(literalWord(call.Args[0])) != "rm" {
		return false
	}

	recursive := false
	var targets []string
	for _, arg := range call.Args[1:] {
		word := literalWord(arg)
		switch {
		case word == "--recursive":
			recursive = true
		case strings.HasPrefix(word, "--"):
			// other long flag, e.g. --force or --no-preserve-root
		case strings.HasPrefix(word, "-") && len(word) > 1:
			if strings.ContainsAny(word[1:], "rR") {
				recursive = true
			}
		default:
			targets = append(targets, word)
		}
	}
	if !recursive {
		return false
	}

	for _, target := range targets {
		if protectedDeleteTargets[filepath.Clean(target)] || target == "/*" {
			return true
		}
	}
	return false
}
