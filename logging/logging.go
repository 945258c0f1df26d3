// Package logging builds the zap loggers used by the drivetrain, its binaries and its tests.
package logging

import (
	"io"
	"os"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

// TimeFormat is the timestamp layout of console output.
const TimeFormat = "2006-01-02T15:04:05.000Z0700"

// consoleEncoder writes tab separated lines: time, level, logger name, file:line, message, then
// the structured fields as JSON.
func consoleEncoder(inUTC bool) zapcore.Encoder {
	return zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		TimeKey:       "ts",
		LevelKey:      "level",
		NameKey:       "logger",
		CallerKey:     "caller",
		FunctionKey:   zapcore.OmitKey,
		MessageKey:    "msg",
		StacktraceKey: zapcore.OmitKey,
		LineEnding:    zapcore.DefaultLineEnding,
		EncodeLevel:   zapcore.CapitalLevelEncoder,
		EncodeTime: func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
			if inUTC {
				t = t.UTC()
			}
			enc.AppendString(t.Format(TimeFormat))
		},
		EncodeDuration:   zapcore.StringDurationEncoder,
		EncodeCaller:     zapcore.ShortCallerEncoder,
		EncodeName:       zapcore.FullNameEncoder,
		ConsoleSeparator: "\t",
	})
}

// NewLogger returns a logger writing Info and above to stdout, timestamped in UTC.
func NewLogger(name string) Logger {
	return NewWriterLogger(name, os.Stdout, INFO)
}

// NewWriterLogger returns a console logger writing to w at the given level.
func NewWriterLogger(name string, w io.Writer, level Level) Logger {
	atomicLevel := zap.NewAtomicLevelAt(zapcore.Level(level))
	core := zapcore.NewCore(consoleEncoder(true), zapcore.Lock(zapcore.AddSync(w)), atomicLevel)
	return newSugared(name, atomicLevel, core)
}

// NewBlankLogger returns a logger that discards everything.
func NewBlankLogger(name string) Logger {
	return newSugared(name, zap.NewAtomicLevelAt(zapcore.DebugLevel), zapcore.NewNopCore())
}

// NewTestLogger returns a Debug logger that writes through tb.Log, in local time.
func NewTestLogger(tb testing.TB) Logger {
	logger, _ := NewObservedTestLogger(tb)
	return logger
}

// NewObservedTestLogger is NewTestLogger that also records every entry it writes.
func NewObservedTestLogger(tb testing.TB) (Logger, *observer.ObservedLogs) {
	level := zap.NewAtomicLevelAt(zapcore.DebugLevel)
	observed, logs := observer.New(level)
	core := zapcore.NewTee(
		zapcore.NewCore(consoleEncoder(false), zaptest.NewTestingWriter(tb), level),
		observed,
	)
	return newSugared("", level, core), logs
}
