//go:build !windows

package launch

import (
	"os"
	"syscall"
)

// exitStatus converts a finished process state to a shell-style status:
// the exit code, or 128+signal for a child killed by a signal.
func exitStatus(state *os.ProcessState) int {
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	return state.ExitCode()
}
