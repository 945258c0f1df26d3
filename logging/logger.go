package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the structured logger handed to every drivetrain component. Key/value variants
// (Debugw, Infow, ...) are preferred for anything a dashboard might filter on.
type Logger interface {
	Debug(args ...interface{})
	Debugf(template string, args ...interface{})
	Debugw(msg string, keysAndValues ...interface{})

	Info(args ...interface{})
	Infof(template string, args ...interface{})
	Infow(msg string, keysAndValues ...interface{})

	Warn(args ...interface{})
	Warnf(template string, args ...interface{})
	Warnw(msg string, keysAndValues ...interface{})

	Error(args ...interface{})
	Errorf(template string, args ...interface{})
	Errorw(msg string, keysAndValues ...interface{})

	Fatal(args ...interface{})
	Fatalf(template string, args ...interface{})
	Fatalw(msg string, keysAndValues ...interface{})

	// Sublogger returns a logger named "<name>.<subname>". It shares the parent's level.
	Sublogger(subname string) Logger
	// SetLevel changes the level of this logger and every logger it shares a level with.
	SetLevel(level Level)
}

type sugared struct {
	*zap.SugaredLogger
	level zap.AtomicLevel
}

func newSugared(name string, level zap.AtomicLevel, core zapcore.Core) *sugared {
	return &sugared{
		SugaredLogger: zap.New(core, zap.AddCaller()).Named(name).Sugar(),
		level:         level,
	}
}

func (s *sugared) Sublogger(subname string) Logger {
	return &sugared{SugaredLogger: s.SugaredLogger.Named(subname), level: s.level}
}

func (s *sugared) SetLevel(level Level) {
	s.level.SetLevel(zapcore.Level(level))
}
