package observability

import (
	"io"
	"log/slog"
	"strings"

	"github.com/couchcryptid/sea-ice-obs/internal/config"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

// NewLogger builds the service logger from LOG_LEVEL and LOG_FORMAT, writing
// to stdout, and installs it as the slog default.
func NewLogger(cfg *config.Config) *slog.Logger {
	return sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
}

// NewLoggerTo is NewLogger for an arbitrary writer. The CLI logs to stderr so
// converted output on stdout stays clean. It does not touch the slog default.
// The shared logger is hardwired to stdout, so its handler setup and level
// names are mirrored here and must stay in step with it.
func NewLoggerTo(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(format, "text") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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
