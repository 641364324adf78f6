package config

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// NewLogger builds the process logger from env settings. Logs go to stderr so
// command output on stdout stays machine readable.
func NewLogger(e Env) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	switch strings.ToLower(e.LogFormat) {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(e.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)
	return l
}

// DiscardLogger is used when a component is built without a logger.
func DiscardLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
