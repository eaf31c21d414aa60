//go:build !windows

package main

import (
	"os"
	"syscall"
)

// terminationSignals are the signals that start a graceful shutdown: Ctrl+C
// plus SIGTERM, which systemd and kubernetes send on stop.
var terminationSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}
