// Package workspace resolves the workspace root that anchors path validation.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"

	git "github.com/go-git/go-git/v5"
)

// Discover returns the canonical workspace root for start: the enclosing git
// repository's top level when one exists, otherwise start itself. The result
// is absolute with symlinks resolved, since the path validator compares
// canonical paths against it.
func Discover(start string) (string, error) {
	if start == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to determine working directory: %w", err)
		}
		start = cwd
	}

	abs, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", start, err)
	}
	canonical, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize %s: %w", abs, err)
	}

	repo, err := git.PlainOpenWithOptions(canonical, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		// Not inside a repository; the directory itself is the workspace.
		return canonical, nil
	}
	wt, err := repo.Worktree()
	if err != nil {
		// Bare repository. Fall back to the starting directory.
		return canonical, nil
	}

	root, err := filepath.EvalSymlinks(wt.Filesystem.Root())
	if err != nil {
		return canonical, nil
	}
	return root, nil
}
