package signalhandler

import (
	"os"
	"os/signal"
	"runtime"
	"syscall"
)

// SetupHandler runs cleanup and exits when the process receives SIGINT or SIGTERM
func SetupHandler(cleanup func()) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		if cleanup != nil {
			cleanup()
		}
		os.Exit(ExitCode(sig))
	}()
}

// ExitCode follows the shell convention of 128 plus the signal number.
func ExitCode(sig os.Signal) int {
	if s, ok := sig.(syscall.Signal); ok {
		return 128 + int(s)
	}
	return 1
}

// GetOptimalProcs returns the number of worker goroutines used for histogram
// computation: three quarters of the CPUs, at least one.
func GetOptimalProcs() int {
	numCPU := runtime.NumCPU()

	maxProcs := (numCPU * 3) / 4
	if maxProcs < 1 {
		maxProcs = 1
	}

	return maxProcs
}
