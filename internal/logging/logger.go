package logging

import (
	"fmt"
	"log"
	"os"
)

// Logger is the minimal logging surface the engine components accept.
// Resolution warnings and encoding fallbacks are log events, not errors.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type stdLogger struct {
	logger *log.Logger
}

// NewDefault returns a Logger backed by the standard library log package.
func NewDefault() Logger {
	return &stdLogger{
		logger: log.New(os.Stderr, "", log.LstdFlags),
	}
}

func (l *stdLogger) Debug(msg string, args ...any) {
	l.logger.Println("[DEBUG]", fmt.Sprintf(msg, args...))
}

func (l *stdLogger) Info(msg string, args ...any) {
	l.logger.Println("[INFO]", fmt.Sprintf(msg, args...))
}

func (l *stdLogger) Warn(msg string, args ...any) {
	l.logger.Println("[WARN]", fmt.Sprintf(msg, args...))
}

func (l *stdLogger) Error(msg string, args ...any) {
	l.logger.Println("[ERROR]", fmt.Sprintf(msg, args...))
}

type noopLogger struct{}

// NewNoop returns a Logger that discards everything. Used in tests and
// wherever a caller passes nil.
func NewNoop() Logger {
	return noopLogger{}
}

func (noopLogger) Debug(msg string, args ...any) {}
func (noopLogger) Info(msg string, args ...any)  {}
func (noopLogger) Warn(msg string, args ...any)  {}
func (noopLogger) Error(msg string, args ...any) {}

// OrNoop normalizes a possibly-nil logger.
func OrNoop(l Logger) Logger {
	if l == nil {
		return NewNoop()
	}
	return l
}
