package mcp

import "go.uber.org/zap"

// Logger is the structured logging sink the runtime uses for its
// observability paths: dropping an unmatched response (I1), recovering a
// panicking handler, failing pending calls, and failed sends or
// list_changed broadcasts. It is deliberately narrow — key/value
// pairs only, no level configuration — so any of zap's SugaredLogger,
// a test spy, or NopLogger satisfies it without an adapter.
type Logger interface {
	Debugw(msg string, kv ...interface{})
	Infow(msg string, kv ...interface{})
	Warnw(msg string, kv ...interface{})
	Errorw(msg string, kv ...interface{})
}

// NopLogger discards everything. It is the default when a Session is
// constructed without WithLogger, matching the teacher's "stay quiet
// unless asked" behavior.
type NopLogger struct{}

func (NopLogger) Debugw(string, ...interface{}) {}
func (NopLogger) Infow(string, ...interface{})  {}
func (NopLogger) Warnw(string, ...interface{})  {}
func (NopLogger) Errorw(string, ...interface{}) {}

// zapAdapter adapts a *zap.SugaredLogger to Logger.
type zapAdapter struct {
	s *zap.SugaredLogger
}

// NewZapLogger wraps a *zap.SugaredLogger for use as a Session/Dispatcher
// Logger.
func NewZapLogger(s *zap.SugaredLogger) Logger {
	return zapAdapter{s: s}
}

func (z zapAdapter) Debugw(msg string, kv ...interface{}) { z.s.Debugw(msg, kv...) }
func (z zapAdapter) Infow(msg string, kv ...interface{})  { z.s.Infow(msg, kv...) }
func (z zapAdapter) Warnw(msg string, kv ...interface{})  { z.s.Warnw(msg, kv...) }
func (z zapAdapter) Errorw(msg string, kv ...interface{}) { z.s.Errorw(msg, kv...) }
