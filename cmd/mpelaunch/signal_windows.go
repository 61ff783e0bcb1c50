//go:build windows

package main

import "os"

// shutdownSignals are relayed to running children. Windows only delivers
// os.Interrupt.
var shutdownSignals = []os.Signal{os.Interrupt}
