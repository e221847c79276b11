package policy

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"
)

// PackFile is the policy pack file name under ~/.config/aegis.
const PackFile = "policy.yaml"

// Pack is an optional YAML policy pack layered on top of the dotfile config:
// extra allowlist prefixes and extra denylist rules. Pack denials join the
// built-in denylist and are just as unconditional.
type Pack struct {
	Version string     `yaml:"version"`
	Allow   []string   `yaml:"allow"`
	Deny    []DenySpec `yaml:"deny"`
}

// DenySpec is one user-defined denylist rule.
type DenySpec struct {
	ID     string `yaml:"id"`
	Regex  string `yaml:"regex"`
	Reason string `yaml:"reason"`
}

// LoadPack reads and validates the policy pack at path. A missing file is
// not an error; it yields an empty pack.
func LoadPack(path string) (*Pack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Pack{}, nil
		}
		return nil, err
	}
	return ParsePack(data)
}

// DefaultPackPath returns ~/.config/aegis/policy.yaml.
func DefaultPackPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "aegis", PackFile), nil
}

// ParsePack decodes and validates pack YAML.
func ParsePack(data []byte) (*Pack, error) {
	var pack Pack
	if err := yaml.Unmarshal(data, &pack); err != nil {
		return nil, fmt.Errorf("failed to parse policy pack: %w", err)
	}
	for i, spec := range pack.Deny {
		if spec.ID == "" {
			return nil, fmt.Errorf("policy pack deny[%d]: id is required", i)
		}
		if spec.Regex == "" {
			return nil, fmt.Errorf("policy pack deny rule %q: regex is required", spec.ID)
		}
		if _, err := regexp.Compile(spec.Regex); err != nil {
			return nil, fmt.Errorf("policy pack deny rule %q: invalid regex: %w", spec.ID, err)
		}
	}
	return &pack, nil
}

// Apply merges the pack into a policy and denylist: allow entries extend the
// allowlist (deduplicated), deny specs compile into denylist rules.
func (p *Pack) Apply(pol SecurityPolicy, denylist *Denylist) SecurityPolicy {
	if len(p.Allow) > 0 {
		pol.Allowlist = dedupe(append(pol.Allowlist, p.Allow...))
	}
	for _, spec := range p.Deny {
		denylist.Append(DenyRule{
			ID:      spec.ID,
			Pattern: regexp.MustCompile(spec.Regex),
			Reason:  spec.Reason,
		})
	}
	return pol
}
