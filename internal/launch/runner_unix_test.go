//go:build !windows

package launch

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"testing"
	"time"
)

func runPlatformHelper(mode string, rest []string) {
	switch mode {
	case "wait-interrupt":
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, os.Interrupt)
		fmt.Println("ready")
		select {
		case <-ch:
			os.Exit(3)
		case <-time.After(10 * time.Second):
			os.Exit(4)
		}
	case "kill-self":
		_ = syscall.Kill(os.Getpid(), syscall.SIGKILL)
		time.Sleep(time.Second)
	}
}

func TestExecRunner_SignalDeath(t *testing.T) {
	r, _ := newBufferedRunner()
	code, err := r.Run(context.Background(), helperCommand("kill-self"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if want := 128 + int(syscall.SIGKILL); code != want {
		t.Errorf("code = %d, want %d", code, want)
	}
}

// readyWriter closes ready once the child reports it has installed its handler.
type readyWriter struct {
	buf   bytes.Buffer
	once  sync.Once
	ready chan struct{}
}

func (w *readyWriter) Write(p []byte) (int, error) {
	n, err := w.buf.Write(p)
	if bytes.Contains(w.buf.Bytes(), []byte("ready")) {
		w.once.Do(func() { close(w.ready) })
	}
	return n, err
}

func TestExecRunner_CancelForwardsInterrupt(t *testing.T) {
	out := &readyWriter{ready: make(chan struct{})}
	r := &ExecRunner{Stdout: out, Stderr: out, WaitDelay: 5 * time.Second}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-out.ready:
			cancel()
		case <-time.After(5 * time.Second):
			cancel()
		}
	}()

	code, err := r.Run(ctx, helperCommand("wait-interrupt"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// The child traps the interrupt and exits 3; that status must come back.
	if code != 3 {
		t.Errorf("code = %d, want 3", code)
	}
}
