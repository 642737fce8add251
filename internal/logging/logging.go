// Package logging builds the process logger.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

// New returns a logger writing to stderr. Unknown levels fall back to info,
// format "json" selects the JSON formatter and anything else the text one.
func New(level, format string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)

	if strings.EqualFold(strings.TrimSpace(format), "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "2006-01-02 15:04:05"})
	}
	return logger
}

// Discard returns a logger that drops everything. Used as the default for
// services that were not given one.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// AttachFile copies log output to path in addition to stderr. The returned
// function closes the file.
func AttachFile(logger *logrus.Logger, path string) (func() error, error) {
	if strings.TrimSpace(path) == "" {
		return func() error { return nil }, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, eris.Wrapf(err, "create log dir for %s", path)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, eris.Wrapf(err, "open log file %s", path)
	}
	logger.SetOutput(io.MultiWriter(os.Stderr, f))
	return f.Close, nil
}
