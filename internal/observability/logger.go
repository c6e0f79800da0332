package observability

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/couchcryptid/kp-alert-service/internal/config"
)

// NewLogger builds the process logger from LOG_LEVEL and LOG_FORMAT. When
// LOG_FILE is set, output is additionally written to a size-rotated file; an
// error is returned if its directory cannot be created.
func NewLogger(cfg *config.Config) (*slog.Logger, error) {
	var w io.Writer = os.Stdout
	if cfg.LogFile != "" {
		file, err := newRotatingFile(cfg.LogFile)
		if err != nil {
			return nil, err
		}
		w = io.MultiWriter(os.Stdout, file)
	}
	return newLogger(w, cfg.LogLevel, cfg.LogFormat), nil
}

func newRotatingFile(path string) (*lumberjack.Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory for %s: %w", path, err)
	}
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // MB
		MaxBackups: 5,
		MaxAge:     14, // days
		Compress:   true,
	}, nil
}

func newLogger(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	var h slog.Handler
	if strings.EqualFold(format, "text") {
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}
	return slog.New(h)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
