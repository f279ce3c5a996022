// Package discovery locates the reference collector library and the test
// executables inside a build directory.
package discovery

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/log"

	"github.com/intel/ittapi-harness/platform"
	"github.com/intel/ittapi-harness/types"
)

// TestNamePrefix is the naming convention every test executable must follow.
const TestNamePrefix = "test_"

// collectorCandidates returns the ordered list of relative paths probed for
// the collector library. Order matters: the first existing path wins.
// CMake single-config builds put the library under lib/ or the build root
// with a lib prefix; multi-config generators (MSVC) use Release/Debug
// subfolders without the prefix.
func collectorCandidates(profile platform.Profile) []string {
	return []string{
		filepath.Join("lib", "libittnotify_refcol"+profile.LibExtension),
		"libittnotify_refcol" + profile.LibExtension,
		filepath.Join("Release", "ittnotify_refcol"+profile.LibExtension),
		filepath.Join("Debug", "ittnotify_refcol"+profile.LibExtension),
	}
}

// FindCollector probes the fixed candidate locations under buildDir and
// returns the first collector library that exists. The boolean is false when
// none of the candidates exist; that is the caller's setup failure to report.
func FindCollector(buildDir string, profile platform.Profile) (string, bool) {
	for _, rel := range collectorCandidates(profile) {
		candidate := filepath.Join(buildDir, rel)
		info, err := os.Stat(candidate)
		if err != nil || info.IsDir() {
			continue
		}
		log.Debug("Found collector library", "path", candidate)
		return candidate, true
	}
	return "", false
}

// FindTests enumerates test executables in testDir. A file qualifies when it
// is a regular file named test_*, carries the platform executable suffix (or,
// on suffix-less platforms, the execute permission bit), and matches the
// optional case-insensitive name filter. The result is sorted by name so
// discovery order is deterministic. An empty result is not an error.
func FindTests(testDir string, profile platform.Profile, pattern *regexp.Regexp) ([]types.TestCase, error) {
	entries, err := os.ReadDir(testDir)
	if err != nil {
		return nil, err
	}

	var cases []types.TestCase
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, TestNamePrefix) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			// Entry vanished or is unreadable; skip it rather than fail the run.
			log.Debug("Skipping unreadable directory entry", "name", name, "err", err)
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}

		if profile.ExeExtension != "" {
			if !strings.HasSuffix(name, profile.ExeExtension) {
				continue
			}
		} else if info.Mode().Perm()&0o111 == 0 {
			continue
		}

		if pattern != nil && !pattern.MatchString(name) {
			continue
		}

		cases = append(cases, types.TestCase{
			Name: name,
			Path: filepath.Join(testDir, name),
		})
	}

	sort.Slice(cases, func(i, j int) bool {
		return cases[i].Name < cases[j].Name
	})
	return cases, nil
}

// CompileFilter builds the case-insensitive name filter from a user-supplied
// pattern. An empty pattern means no filtering.
func CompileFilter(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, nil
	}
	return regexp.Compile("(?i)" + pattern)
}

// ResolveTestDir returns the directory that holds the test executables,
// trying bin/ first and falling back to the multi-config output folders.
func ResolveTestDir(buildDir string) (string, bool) {
	for _, sub := range []string{"bin", "Release", "Debug"} {
		dir := filepath.Join(buildDir, sub)
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir, true
		}
	}
	return "", false
}
