// Package scenario holds the registry of MPE scenarios and training
// algorithms the launcher accepts.
package scenario

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrUnknownScenario is returned for scenario names outside the registry.
	ErrUnknownScenario = errors.New("unknown scenario")

	// ErrUnknownAlgorithm is returned for algorithm names outside the registry.
	ErrUnknownAlgorithm = errors.New("unknown algorithm")
)

// Scenario is a named multi-agent environment configuration.
type Scenario struct {
	Name      string
	agents    int
	landmarks int
}

// NumAgents returns the fixed agent count for the scenario.
func (s Scenario) NumAgents() int { return s.agents }

// NumLandmarks returns the fixed landmark count for the scenario.
func (s Scenario) NumLandmarks() int { return s.landmarks }

func (s Scenario) String() string { return s.Name }

// Algorithm is a training algorithm understood by the framework.
type Algorithm string

const (
	IPPO   Algorithm = "ippo"
	RMAPPO Algorithm = "rmappo"
)

var (
	SimpleReference = Scenario{Name: "simple_reference", agents: 2, landmarks: 3}
	SimpleSpread    = Scenario{Name: "simple_spread", agents: 3, landmarks: 3}
)

var registry = []Scenario{SimpleReference, SimpleSpread}

var algorithms = []Algorithm{IPPO, RMAPPO}

// All returns the registered scenarios in a stable order.
func All() []Scenario {
	out := make([]Scenario, len(registry))
	copy(out, registry)
	return out
}

// Algorithms returns the accepted algorithm names in a stable order.
func Algorithms() []Algorithm {
	out := make([]Algorithm, len(algorithms))
	copy(out, algorithms)
	return out
}

// Names returns the registered scenario names.
func Names() []string {
	names := make([]string, len(registry))
	for i, s := range registry {
		names[i] = s.Name
	}
	return names
}

// AlgorithmNames returns the accepted algorithm names as strings.
func AlgorithmNames() []string {
	names := make([]string, len(algorithms))
	for i, a := range algorithms {
		names[i] = string(a)
	}
	return names
}

// Lookup returns the registered scenario with the given name without
// treating a miss as an error.
func Lookup(name string) (Scenario, bool) {
	for _, s := range registry {
		if s.Name == name {
			return s, true
		}
	}
	return Scenario{}, false
}

// ParseScenario validates name against the registry. Matching is exact.
func ParseScenario(name string) (Scenario, error) {
	s, ok := Lookup(name)
	if !ok {
		return Scenario{}, fmt.Errorf("%w: %q (valid: %s)", ErrUnknownScenario, name, strings.Join(Names(), ", "))
	}
	return s, nil
}

// ParseAlgorithm validates name against the accepted algorithms.
func ParseAlgorithm(name string) (Algorithm, error) {
	for _, a := range algorithms {
		if string(a) == name {
			return a, nil
		}
	}
	return "", fmt.Errorf("%w: %q (valid: %s)", ErrUnknownAlgorithm, name, strings.Join(AlgorithmNames(), ", "))
}

// ScenarioDir is the scenario module directory relative to the framework root.
var ScenarioDir = filepath.Join("onpolicy", "envs", "mpe", "scenarios")

// File resolves the scenario module inside the framework checkout at repoDir.
// The framework loads scenarios from this path by file name, so a missing
// file fails there with a not-found error; File reports the same condition
// up front.
func File(repoDir, name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, '\x00') {
		return "", fmt.Errorf("invalid scenario file name %q", name)
	}
	path := filepath.Join(repoDir, ScenarioDir, name+".py")
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("scenario %s: %w", name, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("scenario %s: %s is a directory", name, path)
	}
	return path, nil
}
