package policy

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParsePack(t *testing.T) {
	t.Run("valid pack", func(t *testing.T) {
		pack, err := ParsePack([]byte(`
version: "1"
allow:
  - git status
  - go test
deny:
  - id: no-git-push-force
    regex: '^git\s+push\s+.*--force'
    reason: force pushes rewrite shared history
`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(pack.Allow) != 2 || len(pack.Deny) != 1 {
			t.Errorf("unexpected pack contents: %+v", pack)
		}
	})

	t.Run("deny rule without id rejected", func(t *testing.T) {
		_, err := ParsePack([]byte("deny:\n  - regex: 'x'\n    reason: r\n"))
		if err == nil {
			t.Fatal("expected error for missing id")
		}
	})

	t.Run("invalid regex rejected", func(t *testing.T) {
		_, err := ParsePack([]byte("deny:\n  - id: bad\n    regex: '['\n    reason: r\n"))
		if err == nil {
			t.Fatal("expected error for invalid regex")
		}
	})

	t.Run("malformed yaml rejected", func(t *testing.T) {
		if _, err := ParsePack([]byte("allow: [unclosed")); err == nil {
			t.Fatal("expected error for malformed yaml")
		}
	})
}

func TestLoadPack(t *testing.T) {
	t.Run("missing file yields empty pack", func(t *testing.T) {
		pack, err := LoadPack(filepath.Join(t.TempDir(), "policy.yaml"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(pack.Allow) != 0 || len(pack.Deny) != 0 {
			t.Errorf("expected empty pack, got %+v", pack)
		}
	})

	t.Run("file contents loaded", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "policy.yaml")
		err := os.WriteFile(path, []byte("allow:\n  - make build\n"), 0o644)
		if err != nil {
			t.Fatal(err)
		}

		pack, err := LoadPack(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(pack.Allow) != 1 || pack.Allow[0] != "make build" {
			t.Errorf("unexpected pack: %+v", pack)
		}
	})
}

func TestPackApply(t *testing.T) {
	pol := SecurityPolicy{Allowlist: []string{"git status"}}
	pack := &Pack{Allow: []string{"go test", "git status"}}

	merged := pack.Apply(pol, DefaultDenylist())
	if len(merged.Allowlist) != 2 {
		t.Fatalf("expected deduplicated merge of 2 entries, got %v", merged.Allowlist)
	}
	if merged.Allowlist[0] != "git status" || merged.Allowlist[1] != "go test" {
		t.Errorf("unexpected merge order: %v", merged.Allowlist)
	}
}
