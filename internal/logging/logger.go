// Package logging builds the logrus logger shared by the HTTP layer, the
// booking services and the background workers.
package logging

import (
    "io"
    "os"

    "github.com/sirupsen/logrus"
)

// New returns a logger writing to stdout.  format is "json" or "text";
// an unknown level name falls back to info.
func New(level, format string) *logrus.Logger {
    return NewWithOutput(os.Stdout, level, format)
}

// NewWithOutput is New with an explicit writer, used by tests.
func NewWithOutput(w io.Writer, level, format string) *logrus.Logger {
    log := logrus.New()
    log.SetOutput(w)
    if format == "json" {
        log.SetFormatter(&logrus.JSONFormatter{})
    } else {
        log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
    }
    lvl, err := logrus.ParseLevel(level)
    if err != nil {
        lvl = logrus.InfoLevel
    }
    log.SetLevel(lvl)
    return log
}

// Discard returns a logger that drops everything.  Services fall back to
// it when constructed without a logger.
func Discard() *logrus.Logger {
    log := logrus.New()
    log.SetOutput(io.Discard)
    return log
}
