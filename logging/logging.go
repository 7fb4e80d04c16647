// Package logging configures the process-wide zerolog logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// Options controls logger construction.
type Options struct {
	// Dir receives agent.log as JSON lines. Empty disables the file.
	Dir string
	// Debug lowers the level to debug. Also forced on by the
	// SIDEKICK_DEBUG environment variable.
	Debug bool
	// Console mirrors the log, pretty-printed, to stderr.
	Console bool
	// RedactContent truncates logged message content (see Content).
	RedactContent bool
}

// redactLimit is how many runes of message content survive redaction.
const redactLimit = 64

var redactContent bool

// New builds the logger. The log file is append-only, user-readable
// only.
func New(opts Options) (zerolog.Logger, error) {
	var writers []io.Writer

	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0700); err != nil {
			return zerolog.Nop(), fmt.Errorf("failed to create log directory: %w", err)
		}
		file, err := os.OpenFile(filepath.Join(opts.Dir, "agent.log"),
			os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("failed to open log file: %w", err)
		}
		writers = append(writers, file)
	}
	if opts.Console {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr})
	}
	if len(writers) == 0 {
		writers = append(writers, io.Discard)
	}

	level := zerolog.InfoLevel
	if opts.Debug || os.Getenv("SIDEKICK_DEBUG") != "" {
		level = zerolog.DebugLevel
	}
	redactContent = opts.RedactContent

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().
		Timestamp().
		Logger()
	return logger, nil
}

// Content prepares message content for logging, truncating it when
// redaction is on so prompts and file contents stay out of the log.
func Content(s string) string {
	if !redactContent {
		return s
	}
	runes := []rune(s)
	if len(runes) <= redactLimit {
		return s
	}
	return string(runes[:redactLimit]) + "…"
}
