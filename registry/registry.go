// Package registry loads the optional suite manifest: a YAML file naming the
// test executables a build is expected to produce. The manifest never affects
// pass/fail accounting; it exists to catch tests that silently stopped being
// built or discovered.
package registry

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/log"
	"gopkg.in/yaml.v3"

	"github.com/intel/ittapi-harness/types"
)

// Registry holds the expected test names loaded from a manifest file.
type Registry struct {
	config   Config
	expected []string
	mu       sync.RWMutex
}

// Config contains registry configuration
type Config struct {
	Log          log.Logger
	ManifestFile string
}

// manifest is the on-disk YAML shape.
type manifest struct {
	Suites []suiteConfig `yaml:"suites"`
}

type suiteConfig struct {
	Name  string   `yaml:"name"`
	Tests []string `yaml:"tests"`
}

// NewRegistry creates a registry from a manifest file.
func NewRegistry(cfg Config) (*Registry, error) {
	if cfg.ManifestFile == "" {
		return nil, fmt.Errorf("manifest file is required")
	}
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}

	r := &Registry{config: cfg}
	if err := r.loadManifest(cfg.ManifestFile); err != nil {
		return nil, fmt.Errorf("failed to load manifest: %w", err)
	}

	cfg.Log.Debug("Registry loaded", "len(expected)", len(r.expected))
	return r, nil
}

func (r *Registry) loadManifest(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read manifest file %s: %w", path, err)
	}

	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("failed to parse manifest file %s: %w", path, err)
	}

	seen := make(map[string]struct{})
	var expected []string
	for _, suite := range m.Suites {
		if suite.Name == "" {
			return fmt.Errorf("manifest suite without a name in %s", path)
		}
		for _, test := range suite.Tests {
			if _, dup := seen[test]; dup {
				continue
			}
			seen[test] = struct{}{}
			expected = append(expected, test)
		}
	}
	sort.Strings(expected)

	r.expected = expected
	return nil
}

// ExpectedTests returns the sorted union of all suite test names.
func (r *Registry) ExpectedTests() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.expected))
	copy(out, r.expected)
	return out
}

// MissingFrom returns the expected test names absent from the discovered set.
// Comparison ignores the platform executable suffix so one manifest serves
// every OS.
func (r *Registry) MissingFrom(discovered []types.TestCase, exeExtension string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	present := make(map[string]struct{}, len(discovered))
	for _, tc := range discovered {
		present[types.DisplayName(tc.Name, exeExtension)] = struct{}{}
	}

	var missing []string
	for _, name := range r.expected {
		if _, ok := present[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}
