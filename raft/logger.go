package raft

import (
	"io"
	"log"
	"strings"

	"github.com/hashicorp/go-hclog"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// hclogBridge exposes a zap logger through the hclog.Logger interface
// hashicorp/raft expects. Key/value args are mapped to zap fields.
type hclogBridge struct {
	base   *zap.Logger
	logger *zap.Logger
	name   string
	args   []any
}

// NewRaftLogger wraps a zap logger for use as the raft library logger.
func NewRaftLogger(logger *zap.Logger, name string) hclog.Logger {
	return &hclogBridge{
		base:   logger,
		logger: logger.Named(name),
		name:   name,
	}
}

func (b *hclogBridge) fields(args []any) []zap.Field {
	all := args
	if len(b.args) > 0 {
		all = append(append([]any{}, b.args...), args...)
	}

	fields := make([]zap.Field, 0, len(all)/2)
	for i := 0; i+1 < len(all); i += 2 {
		key, ok := all[i].(string)
		if !ok {
			continue
		}
		switch v := all[i+1].(type) {
		case error:
			fields = append(fields, zap.NamedError(key, v))
		default:
			fields = append(fields, zap.Any(key, v))
		}
	}
	return fields
}

func (b *hclogBridge) Log(level hclog.Level, msg string, args ...any) {
	switch level {
	case hclog.Trace, hclog.Debug:
		b.logger.Debug(msg, b.fields(args)...)
	case hclog.Warn:
		b.logger.Warn(msg, b.fields(args)...)
	case hclog.Error:
		b.logger.Error(msg, b.fields(args)...)
	default:
		b.logger.Info(msg, b.fields(args)...)
	}
}

func (b *hclogBridge) Trace(msg string, args ...any) { b.Log(hclog.Trace, msg, args...) }
func (b *hclogBridge) Debug(msg string, args ...any) { b.Log(hclog.Debug, msg, args...) }
func (b *hclogBridge) Info(msg string, args ...any)  { b.Log(hclog.Info, msg, args...) }
func (b *hclogBridge) Warn(msg string, args ...any)  { b.Log(hclog.Warn, msg, args...) }
func (b *hclogBridge) Error(msg string, args ...any) { b.Log(hclog.Error, msg, args...) }

func (b *hclogBridge) enabled(level zapcore.Level) bool {
	return b.logger.Core().Enabled(level)
}

func (b *hclogBridge) IsTrace() bool { return b.enabled(zapcore.DebugLevel) }
func (b *hclogBridge) IsDebug() bool { return b.enabled(zapcore.DebugLevel) }
func (b *hclogBridge) IsInfo() bool  { return b.enabled(zapcore.InfoLevel) }
func (b *hclogBridge) IsWarn() bool  { return b.enabled(zapcore.WarnLevel) }
func (b *hclogBridge) IsError() bool { return b.enabled(zapcore.ErrorLevel) }

func (b *hclogBridge) ImpliedArgs() []any { return b.args }

func (b *hclogBridge) With(args ...any) hclog.Logger {
	return &hclogBridge{
		base:   b.base,
		logger: b.logger,
		name:   b.name,
		args:   append(append([]any{}, b.args...), args...),
	}
}

func (b *hclogBridge) Name() string { return b.name }

func (b *hclogBridge) Named(name string) hclog.Logger {
	full := name
	if b.name != "" {
		full = b.name + "." + name
	}
	return &hclogBridge{
		base:   b.base,
		logger: b.logger.Named(name),
		name:   full,
		args:   b.args,
	}
}

func (b *hclogBridge) ResetNamed(name string) hclog.Logger {
	return &hclogBridge{
		base:   b.base,
		logger: b.base.Named(name),
		name:   name,
	}
}

// SetLevel is a no-op; the zap level is fixed at construction.
func (b *hclogBridge) SetLevel(level hclog.Level) {}

func (b *hclogBridge) GetLevel() hclog.Level {
	switch {
	case b.enabled(zapcore.DebugLevel):
		return hclog.Debug
	case b.enabled(zapcore.InfoLevel):
		return hclog.Info
	case b.enabled(zapcore.WarnLevel):
		return hclog.Warn
	default:
		return hclog.Error
	}
}

func (b *hclogBridge) StandardLogger(opts *hclog.StandardLoggerOptions) *log.Logger {
	return log.New(b.StandardWriter(opts), "", 0)
}

func (b *hclogBridge) StandardWriter(opts *hclog.StandardLoggerOptions) io.Writer {
	return &zapWriter{logger: b.logger}
}

// zapWriter routes stdlib log output into zap at info level.
type zapWriter struct {
	logger *zap.Logger
}

func (w *zapWriter) Write(p []byte) (int, error) {
	w.logger.Info(strings.TrimSpace(string(p)))
	return len(p), nil
}
