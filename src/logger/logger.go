package logger

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Logger defines the interface for logging throughout the application.
// Different implementations can be used for different contexts (console, silent, structured, etc.)
type Logger interface {
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Debug(msg string, args ...interface{})
}

// Options controls how a ConsoleLogger renders.
type Options struct {
	Verbose bool
	NoColor bool
	Out     io.Writer
}

// ConsoleLogger writes human-readable logs through zerolog's console writer.
// Used for normal operation and debugging.
type ConsoleLogger struct {
	zl zerolog.Logger
}

// NewConsoleLogger creates a logger writing to stderr at info level.
func NewConsoleLogger() *ConsoleLogger {
	return NewConsoleLoggerWithOptions(Options{})
}

// NewConsoleLoggerWithOptions creates a console logger. Verbose enables debug
// output and millisecond timestamps.
func NewConsoleLoggerWithOptions(opts Options) *ConsoleLogger {
	out := opts.Out
	if out == nil {
		out = os.Stderr
	}

	level := zerolog.InfoLevel
	timeFormat := "15:04:05"
	if opts.Verbose {
		level = zerolog.DebugLevel
		timeFormat = "15:04:05.000"
	}

	w := zerolog.ConsoleWriter{Out: out, TimeFormat: timeFormat, NoColor: opts.NoColor}
	zl := zerolog.New(w).Level(level).With().Timestamp().Logger()

	return &ConsoleLogger{zl: zl}
}

// NewJSONLogger creates a logger that emits one JSON object per line.
func NewJSONLogger(out io.Writer, verbose bool) *ConsoleLogger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return &ConsoleLogger{zl: zerolog.New(out).Level(level).With().Timestamp().Logger()}
}

func (c *ConsoleLogger) Info(msg string, args ...interface{}) {
	c.zl.Info().Msgf(msg, args...)
}

func (c *ConsoleLogger) Warn(msg string, args ...interface{}) {
	c.zl.Warn().Msgf(msg, args...)
}

func (c *ConsoleLogger) Error(msg string, args ...interface{}) {
	c.zl.Error().Msgf(msg, args...)
}

func (c *ConsoleLogger) Debug(msg string, args ...interface{}) {
	c.zl.Debug().Msgf(msg, args...)
}

// SilentLogger discards all log messages.
// Used by the MCP server, where stdout carries the protocol.
type SilentLogger struct{}

func NewSilentLogger() *SilentLogger {
	return &SilentLogger{}
}

func (s *SilentLogger) Info(msg string, args ...interface{})  {}
func (s *SilentLogger) Warn(msg string, args ...interface{})  {}
func (s *SilentLogger) Error(msg string, args ...interface{}) {}
func (s *SilentLogger) Debug(msg string, args ...interface{}) {}
