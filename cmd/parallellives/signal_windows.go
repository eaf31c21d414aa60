//go:build windows

package main

import (
	"os"
)

// terminationSignals are the signals that start a graceful shutdown. Ctrl+C
// is the only one Windows delivers reliably.
var terminationSignals = []os.Signal{os.Interrupt}
