//go:build windows

package launch

import "os"

// exitStatus returns the process exit code. Windows has no signal deaths.
func exitStatus(state *os.ProcessState) int {
	if code := state.ExitCode(); code >= 0 {
		return code
	}
	return 1
}
