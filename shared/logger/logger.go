package logger

import (
	"log/slog"
	"os"
)

// Init installs the process-wide slog handler: human-readable text in
// development, JSON in production.
func Init(env string, debug bool) {
	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	var handler slog.Handler
	if debug || env == "development" {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}

// With returns the default logger extended with the given attributes.
func With(args ...any) *slog.Logger {
	return slog.Default().With(args...)
}
