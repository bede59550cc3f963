package util

import (
	"fmt"
	"io"
	"log/slog"
)

// InitLogger installs a text slog handler writing to w at the given level.
// An unknown level falls back to INFO and is reported as a warning.
func InitLogger(w io.Writer, logLevel string) *slog.Logger {
	level, err := ParseLogLevel(logLevel)

	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err != nil {
		logger.Warn(err.Error())
	}
	return logger
}

func ParseLogLevel(levelStr string) (slog.Level, error) {
	switch levelStr {
	case "DEBUG":
		return slog.LevelDebug, nil
	case "INFO", "":
		return slog.LevelInfo, nil
	case "WARN":
		return slog.LevelWarn, nil
	case "ERROR":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q, using INFO", levelStr)
	}
}
