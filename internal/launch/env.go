package launch

import (
	"fmt"
	"sort"
	"strings"

	"github.com/joho/godotenv"
)

// Environ builds the child environment from base.
//
// Variables from envFile are added only when base does not already define
// them, the same precedence godotenv.Load uses. A non-empty cudaDevices is
// always exported as CUDA_VISIBLE_DEVICES. Added keys are appended in sorted
// order so the result is deterministic.
func Environ(base []string, envFile, cudaDevices string) ([]string, error) {
	env := make([]string, 0, len(base)+4)
	index := make(map[string]int, len(base))
	for _, kv := range base {
		k, _, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		index[k] = len(env)
		env = append(env, kv)
	}

	if envFile != "" {
		vars, err := godotenv.Read(envFile)
		if err != nil {
			return nil, fmt.Errorf("reading env file: %w", err)
		}
		keys := make([]string, 0, len(vars))
		for k := range vars {
			if _, exists := index[k]; !exists {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		for _, k := range keys {
			index[k] = len(env)
			env = append(env, k+"="+vars[k])
		}
	}

	if cudaDevices != "" {
		kv := "CUDA_VISIBLE_DEVICES=" + cudaDevices
		if i, ok := index["CUDA_VISIBLE_DEVICES"]; ok {
			env[i] = kv
		} else {
			env = append(env, kv)
		}
	}

	return env, nil
}

// Delta returns the entries of env that are absent from or differ in base.
func Delta(base, env []string) []string {
	seen := make(map[string]struct{}, len(base))
	for _, kv := range base {
		seen[kv] = struct{}{}
	}
	var out []string
	for _, kv := range env {
		if _, ok := seen[kv]; !ok {
			out = append(out, kv)
		}
	}
	return out
}
