// Package logging configures the process-wide logrus logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// FileName is the log file written under the state directory.
const FileName = "rmqtools.log"

// Options selects where logs go and how much is kept.
type Options struct {
	Level   string
	Verbose bool // shortcut for debug level
	// Dir receives FileName when set. Otherwise logs go to Stderr.
	Dir    string
	Stderr io.Writer
}

// Setup applies opts to the standard logger. The returned closer releases
// the log file, if one was opened.
func Setup(opts Options) (io.Closer, error) {
	level, err := ParseLevel(opts.Level, opts.Verbose)
	if err != nil {
		return nil, err
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if opts.Dir == "" {
		out := opts.Stderr
		if out == nil {
			out = os.Stderr
		}
		logrus.SetOutput(out)
		return nopCloser{}, nil
	}

	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	path := filepath.Join(opts.Dir, FileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file '%s': %w", path, err)
	}
	logrus.SetOutput(f)
	// No colour codes in a file.
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, DisableColors: true})
	logrus.WithField("file", path).Debug("Logging to file")
	return f, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// ParseLevel resolves the configured level name. verbose forces debug.
func ParseLevel(name string, verbose bool) (logrus.Level, error) {
	if verbose {
		return logrus.DebugLevel, nil
	}
	if name == "" {
		return logrus.InfoLevel, nil
	}
	level, err := logrus.ParseLevel(name)
	if err != nil {
		return 0, fmt.Errorf("invalid log level '%s': %w", name, err)
	}
	return level, nil
}

// Component returns an entry tagged with the component name.
func Component(name string) *logrus.Entry {
	return logrus.WithField("component", name)
}
