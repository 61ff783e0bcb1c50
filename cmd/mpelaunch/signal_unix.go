//go:build !windows

package main

import (
	"os"
	"syscall"
)

// shutdownSignals are relayed to running children. Unix adds SIGTERM so
// container stops reach the framework too.
var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}
