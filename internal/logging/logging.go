// =============================================================================
// Trial Balance Reporter - Logging
// =============================================================================
//
// Builds the logrus logger shared by the CLI, the report builder and the web
// server. Output is JSON so that log lines can be shipped as-is.
//
// =============================================================================

package logging

import (
	"io"

	"github.com/sirupsen/logrus"
)

// NewWithWriter creates a JSON logger writing to w.
//
// PARAMETERS:
//   - level: "debug", "info", "warn" or "error". Unknown values mean info.
//   - verbose: forces debug level.
func NewWithWriter(w io.Writer, level string, verbose bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(w)

	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	if verbose {
		logLevel = logrus.DebugLevel
	}
	logger.SetLevel(logLevel)

	return logger
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
