// Package log is a thin facade over hclog shared by the whole
// application. Callers use printf-style helpers; the context-taking
// variants exist for call sites that already carry one.
package log

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"
)

var logger hclog.Logger

// Init configures the application logger. The level comes from LOG_LEVEL
// (defaults to info). Calling any log function before Init falls back to
// the hclog default logger.
func Init() {
	level := hclog.Info
	if env := os.Getenv("LOG_LEVEL"); env != "" {
		level = hclog.LevelFromString(strings.ToLower(env))
		if level == hclog.NoLevel {
			level = hclog.Info
		}
	}
	logger = hclog.New(&hclog.LoggerOptions{
		Name:  "lotflow",
		Level: level,
	})
}

func get() hclog.Logger {
	if logger == nil {
		return hclog.Default()
	}
	return logger
}

func Debug(format string, args ...any) {
	get().Debug(fmt.Sprintf(format, args...))
}

func Info(format string, args ...any) {
	get().Info(fmt.Sprintf(format, args...))
}

func Warn(format string, args ...any) {
	get().Warn(fmt.Sprintf(format, args...))
}

func Error(format string, args ...any) {
	get().Error(fmt.Sprintf(format, args...))
}

func Debugf(ctx context.Context, format string, args ...any) {
	Debug(format, args...)
}

func Infof(ctx context.Context, format string, args ...any) {
	Info(format, args...)
}

func Warnf(ctx context.Context, format string, args ...any) {
	Warn(format, args...)
}

func Errorf(ctx context.Context, format string, args ...any) {
	Error(format, args...)
}
