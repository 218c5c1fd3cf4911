package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// DebugEnabled reports whether debug logging is requested via environment.
func DebugEnabled() bool {
	debug := os.Getenv("TANDEM_DEBUG")
	return debug == "true" || debug == "1"
}

// NewLogger returns a file-backed debug logger when TANDEM_DEBUG is set,
// and a no-op logger otherwise. Logging to a file keeps diagnostics out of
// the interactive output stream.
func NewLogger(dataDir string) zerolog.Logger {
	if !DebugEnabled() {
		return zerolog.Nop()
	}

	logPath := filepath.Join(dataDir, "debug.log")
	f, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not open debug log at %s: %v\n", logPath, err)
		return zerolog.Nop()
	}

	return zerolog.New(f).Level(zerolog.DebugLevel).With().Timestamp().Logger()
}
