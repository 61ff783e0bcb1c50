package main

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestTrainInvalidArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"no args", []string{"train"}, "expected 2 arguments, got 0"},
		{"missing algorithm", []string{"train", "simple_spread"}, "expected 2 arguments, got 1"},
		{"too many", []string{"train", "simple_spread", "ippo", "extra"}, "expected 2 arguments, got 3"},
		{"unknown scenario", []string{"train", "simple_tag", "ippo"}, "unknown scenario"},
		{"scenario case", []string{"train", "Simple_Spread", "ippo"}, "unknown scenario"},
		{"unknown algorithm", []string{"train", "simple_spread", "mappo"}, "unknown algorithm"},
		{"empty algorithm", []string{"train", "simple_reference", ""}, "unknown algorithm"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateHome(t, t.TempDir())
			runner := &recordingRunner{}
			useRunner(t, runner)

			code, stdout, stderr := runCLI(t, tt.args...)
			if code != 1 {
				t.Errorf("exit = %d, want 1", code)
			}
			if !strings.Contains(stderr, "Usage: mpelaunch train <scenario_name> <algorithm_name>") {
				t.Errorf("stderr missing usage:\n%s", stderr)
			}
			if !strings.Contains(stderr, tt.wantErr) {
				t.Errorf("stderr missing %q:\n%s", tt.wantErr, stderr)
			}
			if stdout != "" {
				t.Errorf("stdout should be empty, got %q", stdout)
			}
			if n := len(runner.commands()); n != 0 {
				t.Errorf("runner called %d times for invalid input", n)
			}
		})
	}
}

func TestTrainForwardsScenarioFlags(t *testing.T) {
	tests := []struct {
		scenario, algorithm, agents string
	}{
		{"simple_spread", "ippo", "3"},
		{"simple_spread", "rmappo", "3"},
		{"simple_reference", "ippo", "2"},
		{"simple_reference", "rmappo", "2"},
	}
	for _, tt := range tests {
		t.Run(tt.scenario+"/"+tt.algorithm, func(t *testing.T) {
			tmp := t.TempDir()
			isolateHome(t, tmp)
			runner := &recordingRunner{}
			useRunner(t, runner)

			code, _, stderr := runCLI(t, "train", tt.scenario, tt.algorithm, "--state-dir", filepath.Join(tmp, "state"))
			if code != 0 {
				t.Fatalf("exit = %d, stderr:\n%s", code, stderr)
			}
			cmds := runner.commands()
			if len(cmds) != 1 {
				t.Fatalf("runner called %d times, want 1", len(cmds))
			}
			argv := cmds[0].Argv()
			want := []string{"--scenario_name", tt.scenario, "--num_agents", tt.agents, "--algorithm_name", tt.algorithm}
			if !containsSeq(argv, want) {
				t.Errorf("argv %v does not contain %v", argv, want)
			}
			if argv[0] != "python" || argv[1] != filepath.Join("on-policy", "onpolicy", "scripts", "train", "train_mpe.py") {
				t.Errorf("unexpected interpreter/entry: %v", argv[:2])
			}
			if !containsSeq(argv, []string{"--env_name", "MPE"}) {
				t.Errorf("argv %v missing --env_name MPE", argv)
			}
		})
	}
}

func TestTrainExitCodePassthrough(t *testing.T) {
	for _, want := range []int{0, 1, 2, 42, 137} {
		tmp := t.TempDir()
		isolateHome(t, tmp)
		useRunner(t, &recordingRunner{code: want})

		code, _, _ := runCLI(t, "train", "simple_spread", "ippo", "--state-dir", filepath.Join(tmp, "state"))
		if code != want {
			t.Errorf("exit = %d, want child status %d", code, want)
		}
	}
}

func TestTrainStartFailure(t *testing.T) {
	tmp := t.TempDir()
	isolateHome(t, tmp)
	useRunner(t, &recordingRunner{err: errors.New(`exec: "python": executable file not found in $PATH`)})

	code, _, stderr := runCLI(t, "train", "simple_spread", "ippo", "--state-dir", filepath.Join(tmp, "state"))
	if code != 127 {
		t.Errorf("exit = %d, want 127", code)
	}
	if !strings.Contains(stderr, "executable file not found") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestTrainFlagOverrides(t *testing.T) {
	tmp := t.TempDir()
	isolateHome(t, tmp)
	runner := &recordingRunner{}
	useRunner(t, runner)

	code, _, stderr := runCLI(t, "train", "simple_reference", "rmappo",
		"--state-dir", filepath.Join(tmp, "state"),
		"--experiment", "my run/1",
		"--seed", "7",
		"--extra=--use_eval",
		"--extra=--eval_episodes=4",
	)
	if code != 0 {
		t.Fatalf("exit = %d, stderr:\n%s", code, stderr)
	}
	argv := runner.commands()[0].Argv()
	for _, seq := range [][]string{
		{"--experiment_name", "my_run_1"},
		{"--seed", "7"},
	} {
		if !containsSeq(argv, seq) {
			t.Errorf("argv %v missing %v", argv, seq)
		}
	}
	tail := argv[len(argv)-2:]
	if diff := cmp.Diff([]string{"--use_eval", "--eval_episodes=4"}, tail); diff != "" {
		t.Errorf("extra args not appended last (-want +got):\n%s", diff)
	}
}

func TestTrainSeedSweep(t *testing.T) {
	tmp := t.TempDir()
	isolateHome(t, tmp)
	runner := &recordingRunner{}
	useRunner(t, runner)

	code, _, stderr := runCLI(t, "train", "simple_spread", "ippo",
		"--state-dir", filepath.Join(tmp, "state"),
		"--seed", "2", "--seed-max", "4", "--stagger", "1ms")
	if code != 0 {
		t.Fatalf("exit = %d, stderr:\n%s", code, stderr)
	}

	var seeds []string
	for _, c := range runner.commands() {
		argv := c.Argv()
		for i := range argv {
			if argv[i] == "--seed" {
				seeds = append(seeds, argv[i+1])
			}
		}
	}
	if diff := cmp.Diff([]string{"2", "3", "4"}, seeds); diff != "" {
		t.Errorf("seeds mismatch (-want +got):\n%s", diff)
	}
}

func TestTrainSeedMaxBelowSeed(t *testing.T) {
	isolateHome(t, t.TempDir())
	useRunner(t, &recordingRunner{})

	code, _, stderr := runCLI(t, "train", "simple_spread", "ippo", "--seed", "5", "--seed-max", "2")
	if code != 1 {
		t.Errorf("exit = %d, want 1", code)
	}
	if !strings.Contains(stderr, "--seed-max 2 is below --seed 5") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestTrainDryRun(t *testing.T) {
	isolateHome(t, t.TempDir())
	runner := &recordingRunner{}
	useRunner(t, runner)

	code, stdout, stderr := runCLI(t, "train", "simple_reference", "ippo", "--dry-run")
	if code != 0 {
		t.Fatalf("exit = %d, stderr:\n%s", code, stderr)
	}
	if len(runner.commands()) != 0 {
		t.Error("dry run must not start the framework")
	}
	if !strings.Contains(stdout, "--scenario_name simple_reference --num_agents 2 --algorithm_name ippo") {
		t.Errorf("dry run output missing forwarded flags:\n%s", stdout)
	}

	code, stdout, _ = runCLI(t, "train", "simple_spread", "rmappo", "--dry-run", "--json", "--seed-max", "2")
	if code != 0 {
		t.Fatalf("exit = %d", code)
	}
	var out struct {
		DryRun   bool            `json:"dry_run"`
		Launches []plannedLaunch `json:"launches"`
	}
	if err := json.Unmarshal([]byte(stdout), &out); err != nil {
		t.Fatalf("invalid JSON %q: %v", stdout, err)
	}
	if !out.DryRun || len(out.Launches) != 2 {
		t.Fatalf("unexpected dry run plan: %+v", out)
	}
	if out.Launches[0].Seed != 1 || out.Launches[1].Seed != 2 {
		t.Errorf("seeds = %d, %d", out.Launches[0].Seed, out.Launches[1].Seed)
	}
}

func TestTrainCUDAVisibleDevices(t *testing.T) {
	tmp := t.TempDir()
	isolateHome(t, tmp)
	t.Setenv("MPELAUNCH_CUDA_VISIBLE_DEVICES", "1")
	runner := &recordingRunner{}
	useRunner(t, runner)

	code, _, stderr := runCLI(t, "train", "simple_spread", "ippo", "--state-dir", filepath.Join(tmp, "state"))
	if code != 0 {
		t.Fatalf("exit = %d, stderr:\n%s", code, stderr)
	}
	env := runner.commands()[0].Env
	found := false
	for _, e := range env {
		if e == "CUDA_VISIBLE_DEVICES=1" {
			found = true
		}
	}
	if !found {
		t.Error("child env missing CUDA_VISIBLE_DEVICES=1")
	}
}
