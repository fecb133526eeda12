package logger

import (
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

type Logger = *slog.Logger

func NewLogger() Logger {
	return New(slog.LevelDebug)
}

func New(level slog.Level) Logger {
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
	}))
}

// Discard returns a logger that drops everything. Tests use it.
func Discard() Logger {
	return slog.New(slog.DiscardHandler)
}
