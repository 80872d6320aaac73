package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// FileLogger writes JSON lines to stderr and to an append-mode file at path.
// Stdout is left to command output. The caller owns the returned file.
func FileLogger(level logrus.Level, path string) (*os.File, *logrus.Logger, error) {
	return FileLoggerTo(os.Stderr, level, path)
}

func FileLoggerTo(console io.Writer, level logrus.Level, path string) (*os.File, *logrus.Logger, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, err
		}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, err
	}

	logger := logrus.New()
	logger.SetOutput(io.MultiWriter(console, f))
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(level)
	return f, logger, nil
}

// Nop returns an entry that drops everything below panic level.
func Nop() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(l)
}

// Component tags entries with the emitting component; a nil logger yields Nop.
func Component(logger *logrus.Logger, name string) *logrus.Entry {
	if logger == nil {
		return Nop().WithField("component", name)
	}
	return logger.WithField("component", name)
}
