// Package logger provides a small leveled logging facade used across finzap.
//
// Call sites log with a component tag so the gateway output stays greppable:
//
//	logger.InfoC("session", "Connected")
//	logger.ErrorCF("router", "Pipeline failed", map[string]any{"error": err.Error()})
//
// The facade is backed by zap; the process-wide level can be raised to debug
// with SetLevel.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Level = zapcore.Level

const (
	DEBUG = zapcore.DebugLevel
	INFO  = zapcore.InfoLevel
	WARN  = zapcore.WarnLevel
	ERROR = zapcore.ErrorLevel
)

var (
	atom = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	root = newRoot()
)

func newRoot() *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.Level = atom
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return zap.NewNop()
	}
	return l
}

// SetLevel sets the global minimum level.
func SetLevel(level Level) {
	atom.SetLevel(level)
}

// SetLogger replaces the backing zap logger. Intended for tests.
func SetLogger(l *zap.Logger) {
	root = l
}

func fieldsOf(component string, fields map[string]any) []zap.Field {
	zf := make([]zap.Field, 0, len(fields)+1)
	zf = append(zf, zap.String("component", component))
	for k, v := range fields {
		zf = append(zf, zap.Any(k, v))
	}
	return zf
}

func DebugC(component, msg string) {
	root.Debug(msg, zap.String("component", component))
}

func DebugCF(component, msg string, fields map[string]any) {
	root.Debug(msg, fieldsOf(component, fields)...)
}

func InfoC(component, msg string) {
	root.Info(msg, zap.String("component", component))
}

func InfoCF(component, msg string, fields map[string]any) {
	root.Info(msg, fieldsOf(component, fields)...)
}

func WarnC(component, msg string) {
	root.Warn(msg, zap.String("component", component))
}

func WarnCF(component, msg string, fields map[string]any) {
	root.Warn(msg, fieldsOf(component, fields)...)
}

func ErrorC(component, msg string) {
	root.Error(msg, zap.String("component", component))
}

func ErrorCF(component, msg string, fields map[string]any) {
	root.Error(msg, fieldsOf(component, fields)...)
}
