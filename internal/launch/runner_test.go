package launch

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"testing"
)

// TestHelperProcess is re-executed as the fake framework entry point.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("MPELAUNCH_HELPER_PROCESS") != "1" {
		return
	}
	args := os.Args
	for len(args) > 0 && args[0] != "--" {
		args = args[1:]
	}
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "helper: missing mode")
		os.Exit(2)
	}
	mode, rest := args[1], args[2:]
	switch mode {
	case "exit":
		code, _ := strconv.Atoi(rest[0])
		os.Exit(code)
	case "echo":
		fmt.Println(strings.Join(rest, " "))
		os.Exit(0)
	case "getenv":
		fmt.Println(os.Getenv(rest[0]))
		os.Exit(0)
	case "pwd":
		wd, _ := os.Getwd()
		fmt.Println(wd)
		os.Exit(0)
	default:
		runPlatformHelper(mode, rest)
	}
	os.Exit(2)
}

func helperCommand(args ...string) Command {
	return Command{
		Path: os.Args[0],
		Args: append([]string{"-test.run=TestHelperProcess", "--"}, args...),
		Env:  append(os.Environ(), "MPELAUNCH_HELPER_PROCESS=1"),
	}
}

func newBufferedRunner() (*ExecRunner, *bytes.Buffer) {
	var out bytes.Buffer
	return &ExecRunner{Stdout: &out, Stderr: &out}, &out
}

func TestExecRunner_ExitCodePassthrough(t *testing.T) {
	for _, code := range []int{0, 1, 2, 7, 42} {
		t.Run(strconv.Itoa(code), func(t *testing.T) {
			r, _ := newBufferedRunner()
			got, err := r.Run(context.Background(), helperCommand("exit", strconv.Itoa(code)))
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if got != code {
				t.Errorf("exit code = %d, want %d", got, code)
			}
		})
	}
}

func TestExecRunner_ForwardsArgs(t *testing.T) {
	r, out := newBufferedRunner()
	code, err := r.Run(context.Background(), helperCommand("echo", "--scenario_name", "simple_spread", "--num_agents", "3"))
	if err != nil || code != 0 {
		t.Fatalf("Run = %d, %v", code, err)
	}
	if !strings.Contains(out.String(), "--scenario_name simple_spread --num_agents 3") {
		t.Errorf("child output = %q", out.String())
	}
}

func TestExecRunner_Env(t *testing.T) {
	r, out := newBufferedRunner()
	c := helperCommand("getenv", "CUDA_VISIBLE_DEVICES")
	c.Env = append(c.Env, "CUDA_VISIBLE_DEVICES=5")
	if code, err := r.Run(context.Background(), c); err != nil || code != 0 {
		t.Fatalf("Run = %d, %v", code, err)
	}
	if strings.TrimSpace(out.String()) != "5" {
		t.Errorf("child saw CUDA_VISIBLE_DEVICES=%q", out.String())
	}
}

func TestExecRunner_Dir(t *testing.T) {
	dir := t.TempDir()
	r, out := newBufferedRunner()
	c := helperCommand("pwd")
	c.Dir = dir
	if code, err := r.Run(context.Background(), c); err != nil || code != 0 {
		t.Fatalf("Run = %d, %v", code, err)
	}
	if !strings.Contains(out.String(), strings.TrimPrefix(dir, "/private")) {
		t.Errorf("child cwd = %q, want %q", out.String(), dir)
	}
}

func TestExecRunner_NotFound(t *testing.T) {
	r, _ := newBufferedRunner()
	code, err := r.Run(context.Background(), Command{Path: "mpelaunch-definitely-missing-python"})
	if err == nil {
		t.Fatal("expected start error")
	}
	if code != ExitCommandNotFound {
		t.Errorf("code = %d, want %d", code, ExitCommandNotFound)
	}
}
