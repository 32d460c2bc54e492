// Package logging provides the structured logger used across the secret
// access core, wrapping go.uber.org/zap the way a sibling service's own
// logger package does: an environment-keyed zap.Config, package-level
// accessors, and a Sync drain. Components that need a logger take the
// Logger interface so tests can substitute NopLogger.
package logging

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the leveled, structured logging surface every core component
// depends on. Keys and values are passed as alternating pairs, mirroring
// zap.SugaredLogger's *w methods.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// zapLogger adapts a *zap.SugaredLogger to Logger.
type zapLogger struct {
	s *zap.SugaredLogger
}

func (l zapLogger) Debug(msg string, kv ...interface{}) { l.s.Debugw(msg, kv...) }
func (l zapLogger) Info(msg string, kv ...interface{})  { l.s.Infow(msg, kv...) }
func (l zapLogger) Warn(msg string, kv ...interface{})  { l.s.Warnw(msg, kv...) }
func (l zapLogger) Error(msg string, kv ...interface{}) { l.s.Errorw(msg, kv...) }

// NopLogger discards everything. The zero value is ready to use; it is the
// default for components constructed without an explicit Logger.
type NopLogger struct{}

func (NopLogger) Debug(string, ...interface{}) {}
func (NopLogger) Info(string, ...interface{})  {}
func (NopLogger) Warn(string, ...interface{})  {}
func (NopLogger) Error(string, ...interface{}) {}

var (
	mu      sync.Mutex
	rawBase *zap.Logger
	sugared *zap.SugaredLogger
)

// Init builds the package-level logger for service/env at the given level
// ("debug", "info", "warn", "error"). env == "production" selects zap's
// production encoder config (JSON, sampled); anything else selects the
// development config (console, no sampling). Safe to call more than once;
// the most recent call wins.
func Init(service, env, level string) error {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("logging: invalid level %q: %w", level, err)
	}

	var cfg zap.Config
	if env == "production" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.InitialFields = map[string]interface{}{"service": service, "env": env}

	built, err := cfg.Build(zap.AddCaller(), zap.AddCallerSkip(1))
	if err != nil {
		return fmt.Errorf("logging: build zap logger: %w", err)
	}

	mu.Lock()
	defer mu.Unlock()
	rawBase = built
	sugared = built.Sugar()
	return nil
}

// L returns the package-level Logger, falling back to a no-op logger if
// Init has not been called.
func L() Logger {
	mu.Lock()
	defer mu.Unlock()
	if sugared == nil {
		return NopLogger{}
	}
	return zapLogger{s: sugared}
}

// New wraps an already-constructed *zap.Logger as a Logger, for components
// that want their own named logger rather than the package-level one.
func New(base *zap.Logger) Logger {
	return zapLogger{s: base.Sugar()}
}

// Sync flushes any buffered log entries. Callers should defer Sync in
// main(); the error is intentionally non-fatal — most Sync failures on
// stderr (ENOTTY, EINVAL) are benign.
func Sync() error {
	mu.Lock()
	defer mu.Unlock()
	if rawBase == nil {
		return nil
	}
	return rawBase.Sync()
}
