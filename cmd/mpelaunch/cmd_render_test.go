package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRenderDefaults(t *testing.T) {
	tmp := t.TempDir()
	isolateHome(t, tmp)
	runner := &recordingRunner{}
	useRunner(t, runner)

	code, _, stderr := runCLI(t, "render", "--state-dir", filepath.Join(tmp, "state"))
	if code != 0 {
		t.Fatalf("exit = %d, stderr:\n%s", code, stderr)
	}
	cmds := runner.commands()
	if len(cmds) != 1 {
		t.Fatalf("runner called %d times, want 1", len(cmds))
	}
	argv := cmds[0].Argv()
	if argv[1] != filepath.Join("on-policy", "onpolicy", "scripts", "render", "render_mpe.py") {
		t.Errorf("entry = %q", argv[1])
	}
	for _, seq := range [][]string{
		{"--save_gifs", "--share_policy", "--env_name", "MPE"},
		{"--algorithm_name", "rmappo", "--experiment_name", "check", "--scenario_name", "simple_spread"},
		{"--num_agents", "3", "--num_landmarks", "3"},
		{"--n_training_threads", "1", "--n_rollout_threads", "1", "--use_render"},
		{"--render_episodes", "5"},
		{"--model_dir", filepath.Join("checkpoints", "simple_spread", "rmappo", "models")},
	} {
		if !containsSeq(argv, seq) {
			t.Errorf("argv %v missing %v", argv, seq)
		}
	}
	if !strings.Contains(stderr, "model dir does not exist yet") {
		t.Errorf("expected missing model dir warning, stderr:\n%s", stderr)
	}
}

func TestRenderPassesUnknownScenarioThrough(t *testing.T) {
	tmp := t.TempDir()
	isolateHome(t, tmp)
	runner := &recordingRunner{}
	useRunner(t, runner)

	code, _, stderr := runCLI(t, "render", "--state-dir", filepath.Join(tmp, "state"),
		"--scenario", "simple_tag", "--algorithm", "mappo", "--no-gifs", "--episodes", "2")
	if code != 0 {
		t.Fatalf("exit = %d, stderr:\n%s", code, stderr)
	}
	argv := runner.commands()[0].Argv()
	for _, seq := range [][]string{
		{"--scenario_name", "simple_tag", "--num_agents", "3"},
		{"--algorithm_name", "mappo"},
		{"--render_episodes", "2"},
	} {
		if !containsSeq(argv, seq) {
			t.Errorf("argv %v missing %v", argv, seq)
		}
	}
	for _, a := range argv {
		if a == "--save_gifs" {
			t.Error("--no-gifs should drop --save_gifs")
		}
	}
}

func TestRenderReferenceAgents(t *testing.T) {
	isolateHome(t, t.TempDir())
	useRunner(t, &recordingRunner{})

	code, stdout, _ := runCLI(t, "render", "--scenario", "simple_reference", "--algorithm", "ippo", "--dry-run")
	if code != 0 {
		t.Fatalf("exit = %d", code)
	}
	if !strings.Contains(stdout, "--scenario_name simple_reference --num_agents 2") {
		t.Errorf("dry run output:\n%s", stdout)
	}
	if !strings.Contains(stdout, "--model_dir "+filepath.Join("checkpoints", "simple_reference", "ippo", "models")) {
		t.Errorf("dry run output missing model dir:\n%s", stdout)
	}
}

func TestRenderExitCodePassthrough(t *testing.T) {
	tmp := t.TempDir()
	isolateHome(t, tmp)
	useRunner(t, &recordingRunner{code: 5})

	code, _, _ := runCLI(t, "render", "--state-dir", filepath.Join(tmp, "state"))
	if code != 5 {
		t.Errorf("exit = %d, want 5", code)
	}
}

func TestRenderModelDirOutsideAllowedRoots(t *testing.T) {
	tmp := t.TempDir()
	home := isolateHome(t, tmp)
	runner := &recordingRunner{}
	useRunner(t, runner)

	allowed := filepath.Join(tmp, "allowed")
	if err := os.MkdirAll(allowed, 0755); err != nil {
		t.Fatal(err)
	}
	cfgPath := filepath.Join(home, ".mpelaunch", "config.yaml")
	if err := os.MkdirAll(filepath.Dir(cfgPath), 0700); err != nil {
		t.Fatal(err)
	}
	yaml := "render:\n  allowed_model_roots:\n    - " + allowed + "\n"
	if err := os.WriteFile(cfgPath, []byte(yaml), 0600); err != nil {
		t.Fatal(err)
	}

	code, _, stderr := runCLI(t, "render", "--model-dir", filepath.Join(tmp, "elsewhere", "models"))
	if code != 1 {
		t.Errorf("exit = %d, want 1", code)
	}
	if !strings.Contains(stderr, "outside the allowed checkpoint roots") {
		t.Errorf("stderr = %q", stderr)
	}
	if len(runner.commands()) != 0 {
		t.Error("framework should not run for a rejected model dir")
	}

	code, _, stderr = runCLI(t, "render", "--dry-run", "--model-dir", filepath.Join(allowed, "run1", "models"))
	if code != 0 {
		t.Errorf("allowed model dir exit = %d, stderr:\n%s", code, stderr)
	}
}
