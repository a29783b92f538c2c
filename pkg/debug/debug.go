// Package debug is graphview's opt-in trace log.
//
// Set GRAPHVIEW_DEBUG (or pass -debug) to turn it on. The TUI owns the
// terminal, so the CLI points the output at a log file with SetOutput.
// While disabled every call is a no-op.
package debug

import (
	"io"
	"log"
	"os"
	"sync"
)

const prefix = "[GV_DEBUG] "

var (
	mu      sync.Mutex
	enabled bool
	logger  = log.New(os.Stderr, prefix, log.Ltime|log.Lmicroseconds)
)

func init() {
	enabled = os.Getenv("GRAPHVIEW_DEBUG") != ""
}

// Enabled reports whether tracing is on.
func Enabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return enabled
}

// SetEnabled turns tracing on or off.
func SetEnabled(on bool) {
	mu.Lock()
	enabled = on
	mu.Unlock()
}

// SetOutput redirects the log. Nil restores stderr.
func SetOutput(w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	logger.SetOutput(w)
}

// Log writes one line when tracing is on.
func Log(format string, args ...any) {
	if Enabled() {
		logger.Printf(format, args...)
	}
}
