// Package output routes user-facing messages to the console, a log file,
// or nowhere, depending on the configured output mode.
package output

import (
	"fmt"
	"strings"
	"sync"

	"github.com/substantialcattle5/dupefiles/internal/constants"
)

// Severity classifies an emitted message
type Severity int

const (
	SeverityDebug Severity = iota
	SeverityInfo
	SeveritySuccess
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeveritySuccess:
		return "success"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// Sink receives every message; implementations must be safe for concurrent use.
type Sink interface {
	Emit(severity Severity, message string)
	Close() error
}

// Logger adds formatting helpers and verbosity filtering on top of a Sink.
// A nil *Logger discards everything.
type Logger struct {
	sink    Sink
	verbose bool
}

// NewLogger wraps sink; debug messages pass only when verbose is set
func NewLogger(sink Sink, verbose bool) *Logger {
	return &Logger{sink: sink, verbose: verbose}
}

// New builds the Logger for an output mode
func New(mode, logPath string, verbose bool) (*Logger, error) {
	switch mode {
	case constants.OutputModeConsole, "":
		return NewLogger(NewConsoleSink(), verbose), nil
	case constants.OutputModeLogFile:
		sink, err := NewLogFileSink(logPath)
		if err != nil {
			return nil, err
		}
		return NewLogger(sink, verbose), nil
	case constants.OutputModeSilent:
		return NewLogger(Discard(), verbose), nil
	default:
		return nil, fmt.Errorf("unknown output mode: %s", mode)
	}
}

func (l *Logger) emit(severity Severity, format string, args ...interface{}) {
	if l == nil || l.sink == nil {
		return
	}
	if severity == SeverityDebug && !l.verbose {
		return
	}
	l.sink.Emit(severity, strings.TrimRight(fmt.Sprintf(format, args...), "\n"))
}

func (l *Logger) Debugf(format string, args ...interface{})   { l.emit(SeverityDebug, format, args...) }
func (l *Logger) Infof(format string, args ...interface{})    { l.emit(SeverityInfo, format, args...) }
func (l *Logger) Successf(format string, args ...interface{}) { l.emit(SeveritySuccess, format, args...) }
func (l *Logger) Warnf(format string, args ...interface{})    { l.emit(SeverityWarning, format, args...) }
func (l *Logger) Errorf(format string, args ...interface{})   { l.emit(SeverityError, format, args...) }

// Verbose reports whether debug messages are emitted
func (l *Logger) Verbose() bool {
	return l != nil && l.verbose
}

// Close flushes and releases the underlying sink
func (l *Logger) Close() error {
	if l == nil || l.sink == nil {
		return nil
	}
	return l.sink.Close()
}

type discardSink struct{}

func (discardSink) Emit(Severity, string) {}
func (discardSink) Close() error          { return nil }

// Discard returns a sink for silent mode
func Discard() Sink {
	return discardSink{}
}

// Message is one entry captured by a MemorySink
type Message struct {
	Severity Severity
	Text     string
}

// MemorySink keeps messages in memory, for tests and summaries
type MemorySink struct {
	mu       sync.Mutex
	messages []Message
}

// NewMemorySink returns an empty MemorySink
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (m *MemorySink) Emit(severity Severity, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, Message{Severity: severity, Text: message})
}

func (m *MemorySink) Close() error { return nil }

// Messages returns a copy of everything emitted so far
func (m *MemorySink) Messages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.messages...)
}

// Count returns how many messages of the given severity were emitted
func (m *MemorySink) Count(severity Severity) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, msg := range m.messages {
		if msg.Severity == severity {
			n++
		}
	}
	return n
}

// Contains reports whether any message contains substr
func (m *MemorySink) Contains(substr string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.messages {
		if strings.Contains(msg.Text, substr) {
			return true
		}
	}
	return false
}
