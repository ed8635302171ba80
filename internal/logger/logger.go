// Package logger provides verbose progress logging for the agent.
// When verbose mode is enabled, messages describing the ingest pipeline
// are printed to stderr.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
)

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the output writer for verbose logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// Debug prints a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "[DEBUG] "+format+"\n", args...)
	}
}

// Info prints an informational message if verbose mode is enabled.
func Info(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "[INFO] "+format+"\n", args...)
	}
}

// Warn prints a warning message if verbose mode is enabled.
func Warn(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "[WARN] "+format+"\n", args...)
	}
}

// Stage prints a pipeline stage header if verbose mode is enabled and
// returns a function that logs the stage duration when called.
func Stage(name string) func() {
	mu.RLock()
	v := verbose
	w := output
	mu.RUnlock()
	if !v {
		return func() {}
	}
	fmt.Fprintf(w, "\n=== %s ===\n", name)
	start := time.Now()
	return func() {
		mu.RLock()
		defer mu.RUnlock()
		if verbose {
			fmt.Fprintf(output, "[INFO] %s done in %s\n", name, time.Since(start).Round(time.Millisecond))
		}
	}
}
