// Package logging provides structured logging for ppecheck on top of zap.
package logging

import (
	"io"
	"os"
	"slices"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level represents a log level.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Format selects the encoder.
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// ParseLevel maps a config string to a Level, defaulting to info.
func ParseLevel(s string) Level {
	switch Level(s) {
	case LevelDebug, LevelWarn, LevelError:
		return Level(s)
	}
	return LevelInfo
}

func (l Level) zapLevel() zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	}
	return zapcore.InfoLevel
}

// Logger provides structured logging. Fields are flattened into the entry.
type Logger struct {
	mu     sync.Mutex
	level  zap.AtomicLevel
	format Format
	output io.Writer
	fields map[string]any
	z      *zap.Logger
}

// NewLogger creates a JSON logger writing to stderr.
func NewLogger(level Level) *Logger {
	l := &Logger{
		level:  zap.NewAtomicLevelAt(level.zapLevel()),
		format: FormatJSON,
		output: os.Stderr,
		fields: make(map[string]any),
	}
	l.rebuild()
	return l
}

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "timestamp"
	cfg.MessageKey = "message"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.CallerKey = zapcore.OmitKey
	cfg.StacktraceKey = zapcore.OmitKey
	return cfg
}

// rebuild recreates the zap core; callers hold l.mu or own l exclusively.
func (l *Logger) rebuild() {
	var enc zapcore.Encoder
	if l.format == FormatText {
		cfg := encoderConfig()
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(cfg)
	} else {
		enc = zapcore.NewJSONEncoder(encoderConfig())
	}
	core := zapcore.NewCore(enc, zapcore.AddSync(l.output), l.level)
	l.z = zap.New(core).With(toZap(l.fields)...)
}

func toZap(fields map[string]any) []zap.Field {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	out := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		out = append(out, zap.Any(k, fields[k]))
	}
	return out
}

func merge(sets ...map[string]any) map[string]any {
	out := make(map[string]any)
	for _, set := range sets {
		for k, v := range set {
			out[k] = v
		}
	}
	return out
}

// WithFields returns a new logger with additional fields.
func (l *Logger) WithFields(fields map[string]any) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()

	child := &Logger{
		level:  zap.NewAtomicLevelAt(l.level.Level()),
		format: l.format,
		output: l.output,
		fields: merge(l.fields, fields),
	}
	child.rebuild()
	return child
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, fields ...map[string]any) {
	l.log(zapcore.DebugLevel, msg, fields...)
}

// Info logs an info message.
func (l *Logger) Info(msg string, fields ...map[string]any) {
	l.log(zapcore.InfoLevel, msg, fields...)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, fields ...map[string]any) {
	l.log(zapcore.WarnLevel, msg, fields...)
}

// Error logs an error message.
func (l *Logger) Error(msg string, fields ...map[string]any) {
	l.log(zapcore.ErrorLevel, msg, fields...)
}

// ErrorErr logs an error message with an error value.
func (l *Logger) ErrorErr(msg string, err error, fields ...map[string]any) {
	combined := merge(fields...)
	combined["error"] = err.Error()
	l.log(zapcore.ErrorLevel, msg, combined)
}

func (l *Logger) log(level zapcore.Level, msg string, fields ...map[string]any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if ce := l.z.Check(level, msg); ce != nil {
		ce.Write(toZap(merge(fields...))...)
	}
}

// Zap exposes the underlying logger for libraries that take a *zap.Logger.
func (l *Logger) Zap() *zap.Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.z
}

// SetOutput sets the output writer.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.output = w
	l.rebuild()
}

// SetFormat switches between JSON and console output.
func (l *Logger) SetFormat(f Format) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if f != FormatText {
		f = FormatJSON
	}
	l.format = f
	l.rebuild()
}

// SetLevel sets the log level.
func (l *Logger) SetLevel(level Level) {
	l.level.SetLevel(level.zapLevel())
}

// Enabled reports whether messages at level would be written.
func (l *Logger) Enabled(level Level) bool {
	return l.level.Enabled(level.zapLevel())
}

var (
	globalMu sync.RWMutex
	global   = NewLogger(LevelInfo)
)

// SetGlobal sets the global logger.
func SetGlobal(l *Logger) {
	globalMu.Lock()
	global = l
	globalMu.Unlock()
}

// Global returns the global logger.
func Global() *Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return global
}

// Debug logs to the global logger.
func Debug(msg string, fields ...map[string]any) {
	Global().Debug(msg, fields...)
}

// Info logs to the global logger.
func Info(msg string, fields ...map[string]any) {
	Global().Info(msg, fields...)
}

// Warn logs to the global logger.
func Warn(msg string, fields ...map[string]any) {
	Global().Warn(msg, fields...)
}

// Error logs to the global logger.
func Error(msg string, fields ...map[string]any) {
	Global().Error(msg, fields...)
}

// ErrorErr logs to the global logger with an error.
func ErrorErr(msg string, err error, fields ...map[string]any) {
	Global().ErrorErr(msg, err, fields...)
}

// WithFields returns a new logger from global with additional fields.
func WithFields(fields map[string]any) *Logger {
	return Global().WithFields(fields)
}
