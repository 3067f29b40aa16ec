package kvlite

import (
	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Field is re-exported from zap so default-logger callers don't need a
// second import for structured fields, mirroring neekrasov-kvdb's
// pkg/logger which takes ...zap.Field directly rather than hiding it behind
// its own field type.
type Field = zap.Field

// Log is the core's narrow contract with a structured log sink — an
// external collaborator, not something the engine owns the lifecycle of
// beyond this interface.
type Log interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

// nopLog discards everything. Used as the default when no Log is supplied
// and in tests that don't care about log output.
type nopLog struct{}

func (nopLog) Debug(string, ...Field) {}
func (nopLog) Info(string, ...Field)  {}
func (nopLog) Warn(string, ...Field)  {}
func (nopLog) Error(string, ...Field) {}

// NopLog returns a Log that discards all output.
func NopLog() Log { return nopLog{} }

type zapLog struct {
	l *zap.Logger
}

func (z *zapLog) Debug(msg string, fields ...Field) { z.l.Debug(msg, fields...) }
func (z *zapLog) Info(msg string, fields ...Field)  { z.l.Info(msg, fields...) }
func (z *zapLog) Warn(msg string, fields ...Field)  { z.l.Warn(msg, fields...) }
func (z *zapLog) Error(msg string, fields ...Field) { z.l.Error(msg, fields...) }

// NewFileLog builds a Log backed by zap with a rotating lumberjack sink,
// the stack neekrasov-kvdb's pkg/logger uses for an embedded store. level
// is a zapcore level name ("debug", "info", "warn", "error"); an unknown
// level falls back to "info".
func NewFileLog(path string, level string, maxSizeMB, maxBackups, maxAgeDays int) Log {
	var lvl zapcore.Level
	if err := lvl.Set(level); err != nil {
		lvl = zapcore.InfoLevel
	}

	writer := zapcore.AddSync(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
	})

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), writer, lvl)
	return &zapLog{l: zap.New(core)}
}
