// Package logging builds the process logger from configuration.
package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
)

const Prefix = "wcm"

// New returns a logger writing to w at level ("debug", "info", "warn" or "error").
// debug forces the debug level and adds caller information.
func New(w io.Writer, level string, debug bool) (*log.Logger, error) {
	parsed, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	if debug {
		parsed = log.DebugLevel
	}

	return log.NewWithOptions(w, log.Options{
		Prefix:       Prefix,
		Level:        parsed,
		ReportCaller: debug,
	}), nil
}
