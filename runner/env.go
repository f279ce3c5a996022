package runner

import (
	"fmt"
	"strings"

	"github.com/intel/ittapi-harness/platform"
)

// BuildEnv returns a new environment slice for one test execution: a copy of
// base with the collector injection variable and the collector log directory
// overlaid. The overlay always wins over pre-existing values in base; base
// itself is never mutated.
func BuildEnv(base []string, profile platform.Profile, collectorPath, logDir string) []string {
	overlay := map[string]string{
		profile.EnvVar:        collectorPath,
		platform.LogDirEnvVar: logDir,
	}

	env := make([]string, 0, len(base)+len(overlay))
	for _, kv := range base {
		key, _, ok := strings.Cut(kv, "=")
		if ok {
			if _, shadowed := overlay[key]; shadowed {
				continue
			}
		}
		env = append(env, kv)
	}
	env = append(env,
		fmt.Sprintf("%s=%s", profile.EnvVar, collectorPath),
		fmt.Sprintf("%s=%s", platform.LogDirEnvVar, logDir),
	)
	return env
}
