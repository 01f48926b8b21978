package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"whisperstt/internal/config"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation limits for the log file.
const (
	maxSizeMB  = 20
	maxBackups = 3
	maxAgeDays = 30
)

// Configure builds the process logger: level and format from [logging],
// output rotated at paths.log_path and optionally mirrored to stderr.
// State directories are created first.
func Configure(cfg *config.Config) (*logrus.Logger, error) {
	if err := config.MustStatePaths(cfg); err != nil {
		return nil, err
	}
	logger := logrus.New()
	logger.SetFormatter(formatterFor(cfg.Logging.Format))

	var out io.Writer = &lumberjack.Logger{
		Filename:   cfg.Paths.LogPath,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
	}
	if cfg.Logging.Stdout {
		out = io.MultiWriter(os.Stderr, out)
	}
	logger.SetOutput(out)

	level, err := logrus.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Logging.Level)))
	if err != nil {
		logger.SetLevel(logrus.InfoLevel)
		logger.Warnf("unknown logging.level %q, using info", cfg.Logging.Level)
		return logger, nil
	}
	logger.SetLevel(level)
	return logger, nil
}

func formatterFor(name string) logrus.Formatter {
	if strings.EqualFold(strings.TrimSpace(name), "json") {
		return &logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano}
	}
	return &logrus.TextFormatter{FullTimestamp: true, DisableColors: true}
}

// NewTestLogger returns a logger that discards everything.
func NewTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.SetLevel(logrus.DebugLevel)
	return logger
}
