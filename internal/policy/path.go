package policy

import (
	"os"
	"path/filepath"
	"strings"
)

// Intent describes what the caller wants to do with a path.
type Intent int

const (
	// IntentRead requires the path to exist.
	IntentRead Intent = iota
	// IntentWrite permits paths that do not exist yet (new file creation).
	IntentWrite
)

// maxSymlinkHops bounds symlink chain resolution.
const maxSymlinkHops = 64

// FileSystem abstracts the filesystem operations path validation needs.
type FileSystem interface {
	Stat(path string) (os.FileInfo, error)
	Lstat(path string) (os.FileInfo, error)
	Readlink(path string) (string, error)
	UserHomeDir() (string, error)
}

// PathValidator decides whether a filesystem path may be read or written
// given the workspace boundary. It canonicalizes the input (tilde expansion,
// lexical cleaning, component-wise symlink resolution) and verifies the
// canonical form stays under the workspace root while restriction is enabled.
// Validation is side-effect free and idempotent.
type PathValidator struct {
	policy SecurityPolicy
	fs     FileSystem
}

// NewPathValidator creates a PathValidator for the session policy.
func NewPathValidator(pol SecurityPolicy, fs FileSystem) *PathValidator {
	if fs == nil {
		panic("fs is required")
	}
	return &PathValidator{policy: pol, fs: fs}
}

// Validate canonicalizes path and checks it against the workspace boundary.
// It returns the canonical absolute path on success.
//
// With workspace restriction disabled, only raw traversal-sequence detection
// runs as a defense-in-depth check; the path is not confined to the root.
// Read intent additionally requires the target to exist.
func (v *PathValidator) Validate(path string, intent Intent) (string, error) {
	if path == "" {
		return "", &NotFoundError{Path: path}
	}

	if !v.policy.PathValidation {
		abs := v.makeAbsolute(path)
		return abs, v.checkExistence(abs, intent)
	}

	if !v.policy.WorkspaceRestriction {
		if containsTraversal(path) {
			return "", &TraversalAttemptError{Path: path}
		}
		abs := v.makeAbsolute(path)
		return abs, v.checkExistence(abs, intent)
	}

	if v.policy.WorkspaceRoot == "" {
		return "", ErrWorkspaceRootNotSet
	}

	canonical, err := v.resolveWithin(v.policy.WorkspaceRoot, path)
	if err != nil {
		return "", err
	}
	return canonical, v.checkExistence(canonical, intent)
}

// makeAbsolute expands tilde and anchors relative paths at the workspace root
// (or leaves them relative to it when no root is configured).
func (v *PathValidator) makeAbsolute(path string) string {
	path = v.expandTilde(path)
	if !filepath.IsAbs(path) && v.policy.WorkspaceRoot != "" {
		path = filepath.Join(v.policy.WorkspaceRoot, path)
	}
	return filepath.Clean(path)
}

func (v *PathValidator) expandTilde(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := v.fs.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

func (v *PathValidator) checkExistence(canonical string, intent Intent) error {
	if intent != IntentRead {
		return nil
	}
	if _, err := v.fs.Stat(canonical); err != nil {
		if os.IsNotExist(err) {
			return &NotFoundError{Path: canonical}
		}
		return err
	}
	return nil
}

// resolveWithin canonicalizes input relative to root, resolving symlinks
// component by component. The root itself is canonical by construction
// (workspace discovery resolves it), so the walk starts at the root and only
// the components below it are resolved; each intermediate resolution is
// checked against the root so a symlinked directory cannot smuggle later
// components outside the workspace. Missing intermediate components are
// legal (write intent may create them); a component that exists and is a
// symlink is always followed.
func (v *PathValidator) resolveWithin(root, input string) (string, error) {
	root = filepath.Clean(root)
	path := v.expandTilde(input)
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	path = filepath.Clean(path)

	if !isWithin(root, path) {
		return "", ErrOutsideWorkspace
	}

	parts := splitComponents(strings.TrimPrefix(path, root))
	resolved := root
	hops := 0
	visited := make(map[string]bool)

	for _, part := range parts {
		candidate := filepath.Join(resolved, part)

		// Follow symlink chains at this component.
		for {
			info, err := v.fs.Lstat(candidate)
			if err != nil {
				// Missing components are fine; nothing left to follow.
				break
			}
			if info.Mode()&os.ModeSymlink == 0 {
				break
			}
			if visited[candidate] {
				return "", &SymlinkLoopError{Path: candidate}
			}
			visited[candidate] = true
			hops++
			if hops > maxSymlinkHops {
				return "", &SymlinkChainTooLongError{MaxHops: maxSymlinkHops}
			}

			target, err := v.fs.Readlink(candidate)
			if err != nil {
				return "", err
			}
			if !filepath.IsAbs(target) {
				target = filepath.Join(filepath.Dir(candidate), target)
			}
			candidate = filepath.Clean(target)
		}

		if !isWithin(root, candidate) {
			return "", ErrOutsideWorkspace
		}
		resolved = candidate
	}

	if !isWithin(root, resolved) {
		return "", ErrOutsideWorkspace
	}
	return resolved, nil
}

// isWithin reports whether path is root or a descendant of root.
func isWithin(root, path string) bool {
	root = filepath.Clean(root)
	path = filepath.Clean(path)
	if path == root {
		return true
	}
	return strings.HasPrefix(path, root+string(filepath.Separator))
}

// containsTraversal detects ".." elements in the raw, uncanonicalized path.
func containsTraversal(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".." {
			return true
		}
	}
	return false
}

// splitComponents splits a cleaned path fragment into its elements.
func splitComponents(path string) []string {
	trimmed := strings.Trim(path, string(filepath.Separator))
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, string(filepath.Separator))
}
