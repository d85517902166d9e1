package logger

import (
	"fmt"
	"log"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger struct {
	l *zap.SugaredLogger
}

func New(l *zap.Logger) *Logger {
	return &Logger{l: l.Sugar()}
}

// NewFromConfig builds a JSON logger for production and a colored console logger otherwise.
func NewFromConfig(env, level string) (*Logger, error) {
	var cfg zap.Config

	if strings.EqualFold(env, "production") {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("parse log level %q: %w", level, err)
		}

		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	zl, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, fmt.Errorf("build zap logger: %w", err)
	}

	return New(zl), nil
}

func NewNop() *Logger {
	return New(zap.NewNop())
}

// With returns a child logger that adds the given key-value pairs to every entry.
func (l *Logger) With(keysAndValues ...any) *Logger {
	return &Logger{l: l.l.With(keysAndValues...)}
}

func (l *Logger) LogErrorf(format string, v ...any) {
	l.l.Errorf(format, v...)
}

func (l *Logger) LogWarn(format string, v ...any) {
	l.l.Warnf(format, v...)
}

func (l *Logger) LogInfo(format string, v ...any) {
	l.l.Infof(format, v...)
}

func (l *Logger) LogDebug(format string, v ...any) {
	l.l.Debugf(format, v...)
}

// StdLogger adapts the logger for APIs that want a *log.Logger, such as http.Server.ErrorLog.
func (l *Logger) StdLogger() *log.Logger {
	return zap.NewStdLog(l.l.Desugar())
}

func (l *Logger) Sync() error {
	return l.l.Sync() //nolint:wrapcheck
}
