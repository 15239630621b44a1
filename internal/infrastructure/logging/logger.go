package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/hikgate/hikgate-core/internal/infrastructure/config"
)

const serviceName = "hikgate"

var levels = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

// Logger is a slog.Logger whose entries always carry the service name and
// build version. Safe for concurrent use.
type Logger struct {
	*slog.Logger
}

// New builds a logger from the logging section of config.yaml. Output is
// stdout unless "stderr" is configured; format is JSON unless "text".
func New(cfg config.LoggingConfig, version string) *Logger {
	var w io.Writer = os.Stdout
	if strings.EqualFold(cfg.Output, "stderr") {
		w = os.Stderr
	}
	return newWithWriter(cfg, version, w)
}

func newWithWriter(cfg config.LoggingConfig, version string, w io.Writer) *Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var h slog.Handler = slog.NewJSONHandler(w, opts)
	if strings.EqualFold(cfg.Format, "text") {
		h = slog.NewTextHandler(w, opts)
	}
	h = h.WithAttrs([]slog.Attr{
		slog.String("service", serviceName),
		slog.String("version", version),
	})
	return &Logger{Logger: slog.New(h)}
}

// parseLevel maps a configured level name to slog; unknown names mean info.
func parseLevel(name string) slog.Level {
	if lvl, ok := levels[strings.ToLower(name)]; ok {
		return lvl
	}
	return slog.LevelInfo
}

// With returns a child logger, e.g. logger.With("component", "hikcentral").
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// Default is used before the configuration has been loaded.
func Default() *Logger {
	return New(config.LoggingConfig{Level: "info", Format: "json", Output: "stdout"}, "dev")
}

// Discard drops everything below error and writes nothing. For tests.
func Discard() *Logger {
	return newWithWriter(config.LoggingConfig{Level: "error"}, "test", io.Discard)
}
