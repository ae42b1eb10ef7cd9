// Package xlog stands in for the teacher's own internal log package
// (github.com/klaytn/klaytn/log, not part of the retrieved source) while
// keeping the same call-site shape: a package-scoped logger created once
// with NewModuleLogger("name"), then used as logger.Info(msg, "key", val,
// ...). It is backed by go.uber.org/zap, already a direct dependency of the
// teacher's go.mod.
package xlog

import (
	"go.uber.org/zap"
)

// Logger is a structured, leveled logger scoped to one module/component.
type Logger struct {
	s *zap.SugaredLogger
}

var base *zap.Logger

func init() {
	cfg := zap.NewProductionConfig()
	cfg.DisableStacktrace = true
	l, err := cfg.Build()
	if err != nil {
		// zap always builds with the default production config; this would
		// only fail under a broken environment (e.g. no writable stderr).
		l = zap.NewNop()
	}
	base = l
}

// NewModuleLogger returns a logger tagged with a "module" field, mirroring
// the teacher's var logger = log.NewModuleLogger(log.ChainDataFetcher)
// package-scope convention.
func NewModuleLogger(module string) *Logger {
	return &Logger{s: base.Sugar().With("module", module)}
}

func (l *Logger) Debug(msg string, kv ...interface{}) { l.s.Debugw(msg, kv...) }
func (l *Logger) Info(msg string, kv ...interface{})  { l.s.Infow(msg, kv...) }
func (l *Logger) Warn(msg string, kv ...interface{})  { l.s.Warnw(msg, kv...) }
func (l *Logger) Error(msg string, kv ...interface{}) { l.s.Errorw(msg, kv...) }
func (l *Logger) Trace(msg string, kv ...interface{}) { l.s.Debugw(msg, kv...) }
