// Package policy implements the decision layer of the action safety gateway:
// workspace path validation, command allowlist/denylist classification, and
// the immutable SecurityPolicy value that configures both.
package policy

import (
	"time"

	"github.com/Cyclone1070/aegis/internal/config"
)

// SecurityPolicy is the immutable security configuration for one session.
// It is constructed once at startup and passed by value into every component
// constructor; nothing mutates it afterwards. Runtime "allow always" grants
// live in the gate's session state, not here.
type SecurityPolicy struct {
	// WorkspaceRoot is the canonical absolute workspace path.
	// Must be non-empty while WorkspaceRestriction is enabled.
	WorkspaceRoot string

	AutoApproveEdits          bool
	AutoApproveNativeCommands bool

	// Allowlist holds literal command prefixes exempt from interactive
	// approval. Deduplicated, original order preserved.
	Allowlist []string

	PathValidation       bool
	WorkspaceRestriction bool
	CommandValidation    bool

	// ApprovalTimeout bounds the AwaitingUser suspension. Zero means
	// wait indefinitely.
	ApprovalTimeout time.Duration
}

// FromConfig builds a SecurityPolicy from the loaded configuration and the
// resolved workspace root.
func FromConfig(cfg *config.Config, workspaceRoot string) SecurityPolicy {
	return SecurityPolicy{
		WorkspaceRoot:             workspaceRoot,
		AutoApproveEdits:          cfg.AutoApproveEdits,
		AutoApproveNativeCommands: cfg.AutoApproveNativeCommands,
		Allowlist:                 dedupe(cfg.NativeCommandAllowlist),
		PathValidation:            cfg.Security.PathValidation,
		WorkspaceRestriction:      cfg.Security.WorkspaceRestriction,
		CommandValidation:         cfg.Security.CommandValidation,
		ApprovalTimeout:           time.Duration(cfg.Agent.ApprovalTimeoutSeconds) * time.Second,
	}
}

// dedupe removes repeated allowlist entries, keeping first occurrences.
func dedupe(entries []string) []string {
	if len(entries) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(entries))
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	return out
}
