// Package logger builds the leveled loggers used across the planner.
//
// There is no package-level logger: the application builds one Logger at
// startup (see app.NewContext) and hands prefixed children to each component.
package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config holds logger configuration.
type Config struct {
	// Debug lowers the level to debug and mirrors output to stderr.
	Debug bool

	// File is the rotating log file. Empty disables file output.
	File string

	// Stderr forces stderr output even when Debug is off.
	Stderr bool
}

// New creates the root logger. The returned closer releases the log file.
func New(cfg Config) (*log.Logger, io.Closer, error) {
	var writers []io.Writer
	var closer io.Closer = nopCloser{}

	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
			return nil, nil, err
		}
		fileWriter := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}
		writers = append(writers, fileWriter)
		closer = fileWriter
	}

	if cfg.Debug || cfg.Stderr || len(writers) == 0 {
		writers = append(writers, os.Stderr)
	}

	level := log.WarnLevel
	if cfg.Debug {
		level = log.DebugLevel
	}

	l := log.NewWithOptions(io.MultiWriter(writers...), log.Options{
		ReportCaller:    cfg.Debug,
		ReportTimestamp: true,
		Level:           level,
		Prefix:          "planner",
	})
	return l, closer, nil
}

// Named returns a child of parent with the given prefix, or a stderr logger
// with that prefix when parent is nil.
func Named(parent *log.Logger, prefix string) *log.Logger {
	if parent == nil {
		return log.NewWithOptions(os.Stderr, log.Options{
			ReportTimestamp: true,
			Level:           log.InfoLevel,
			Prefix:          prefix,
		})
	}
	return parent.WithPrefix(prefix)
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *log.Logger {
	return log.New(io.Discard)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
