// Package log provides structured logging for narration runs.
//
// Two logger variants are available:
//   - Logger: Non-sugared zap.Logger for the narration path (structured fields)
//   - SugaredLogger: Printf-style logging for CLI/debug surfaces (convenience over performance)
//
// Use Logger.Sugar() to obtain a SugaredLogger when needed.
package log

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Format selects the zap encoder.
type Format string

// Supported encoder formats.
const (
	// FormatJSON writes one JSON object per entry.
	FormatJSON Format = "json"
	// FormatConsole writes tab-separated human-readable lines.
	FormatConsole Format = "console"
)

// ParseFormat parses an encoder format. The empty string selects FormatJSON.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatConsole:
		return FormatConsole, nil
	default:
		return "", fmt.Errorf("invalid log format: %q (must be json or console)", s)
	}
}

// Options configures a Logger.
type Options struct {
	// RunID is attached to every entry when non-empty.
	RunID string
	// Format selects the encoder (default json).
	Format Format
	// Level is the minimum level: debug, info, warn, error (default debug).
	Level string
}

// Logger provides structured logging with run context.
//
// Use this for the narration path where entries are structured.
// For CLI/debug surfaces, use Sugar() to get a SugaredLogger.
type Logger struct {
	zap     *zap.Logger
	encoder zapcore.Encoder
	level   zapcore.Level
	context []zap.Field
}

// SugaredLogger provides printf-style logging for CLI and debug surfaces.
// Wraps zap.SugaredLogger with run context.
type SugaredLogger struct {
	sugar *zap.SugaredLogger
}

// NewLogger creates a new logger with run context.
// Output defaults to os.Stderr.
func NewLogger(opts Options) (*Logger, error) {
	return newLoggerWithWriter(opts, os.Stderr)
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{zap: zap.NewNop(), encoder: newEncoder(FormatJSON), level: zapcore.DebugLevel}
}

// WithOutput returns a new logger with a different output writer.
// Encoder, level and run context fields are preserved.
func (l *Logger) WithOutput(w io.Writer) *Logger {
	core := zapcore.NewCore(l.encoder.Clone(), zapcore.AddSync(w), l.level)
	return &Logger{
		zap:     zap.New(core).With(l.context...),
		encoder: l.encoder,
		level:   l.level,
		context: l.context,
	}
}

// newLoggerWithWriter creates a logger writing to the specified writer.
func newLoggerWithWriter(opts Options, w io.Writer) (*Logger, error) {
	format, err := ParseFormat(string(opts.Format))
	if err != nil {
		return nil, err
	}

	level := zapcore.DebugLevel
	if opts.Level != "" {
		level, err = zapcore.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level: %w", err)
		}
	}

	encoder := newEncoder(format)
	core := zapcore.NewCore(encoder, zapcore.AddSync(w), level)

	var contextFields []zap.Field
	if opts.RunID != "" {
		contextFields = append(contextFields, zap.String("run_id", opts.RunID))
	}

	zapLogger := zap.New(core).With(contextFields...)
	return &Logger{zap: zapLogger, encoder: encoder, level: level, context: contextFields}, nil
}

func newEncoder(format Format) zapcore.Encoder {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:     "timestamp",
		LevelKey:    "level",
		MessageKey:  "message",
		EncodeTime:  zapcore.RFC3339NanoTimeEncoder,
		EncodeLevel: zapcore.LowercaseLevelEncoder,
	}
	if format == FormatConsole {
		encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		return zapcore.NewConsoleEncoder(encoderConfig)
	}
	return zapcore.NewJSONEncoder(encoderConfig)
}

// Debug logs a debug message.
func (l *Logger) Debug(message string, fields map[string]any) {
	l.zap.Debug(message, fieldsOf(fields)...)
}

// Info logs an info message.
func (l *Logger) Info(message string, fields map[string]any) {
	l.zap.Info(message, fieldsOf(fields)...)
}

// Warn logs a warning message.
func (l *Logger) Warn(message string, fields map[string]any) {
	l.zap.Warn(message, fieldsOf(fields)...)
}

// Error logs an error message.
func (l *Logger) Error(message string, fields map[string]any) {
	l.zap.Error(message, fieldsOf(fields)...)
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.zap.Sync()
}

// fieldsOf attaches fields only when there are any, so plain narration
// lines carry nothing but the message.
func fieldsOf(fields map[string]any) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	return []zap.Field{zap.Any("fields", fields)}
}

// Sugar returns a SugaredLogger for printf-style logging.
// Use for CLI/debug surfaces where convenience matters more than performance.
func (l *Logger) Sugar() *SugaredLogger {
	return &SugaredLogger{sugar: l.zap.Sugar()}
}

// Debugf logs a debug message with printf-style formatting.
func (s *SugaredLogger) Debugf(template string, args ...any) {
	s.sugar.Debugf(template, args...)
}

// Infof logs an info message with printf-style formatting.
func (s *SugaredLogger) Infof(template string, args ...any) {
	s.sugar.Infof(template, args...)
}

// Warnf logs a warning message with printf-style formatting.
func (s *SugaredLogger) Warnf(template string, args ...any) {
	s.sugar.Warnf(template, args...)
}

// Errorf logs an error message with printf-style formatting.
func (s *SugaredLogger) Errorf(template string, args ...any) {
	s.sugar.Errorf(template, args...)
}

// With returns a SugaredLogger with additional context fields.
func (s *SugaredLogger) With(args ...any) *SugaredLogger {
	return &SugaredLogger{sugar: s.sugar.With(args...)}
}
