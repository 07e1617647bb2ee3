package output

import (
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
)

// ConsoleSink prints messages to a terminal, colouring them by severity.
// Warnings and errors go to the error stream.
type ConsoleSink struct {
	mu     sync.Mutex
	out    io.Writer
	errOut io.Writer

	debug   *color.Color
	success *color.Color
	warning *color.Color
	failure *color.Color
}

// NewConsoleSink writes to stdout and stderr
func NewConsoleSink() *ConsoleSink {
	return NewConsoleSinkTo(color.Output, color.Error)
}

// NewConsoleSinkTo writes to the given streams
func NewConsoleSinkTo(out, errOut io.Writer) *ConsoleSink {
	if out == nil {
		out = os.Stdout
	}
	if errOut == nil {
		errOut = os.Stderr
	}
	return &ConsoleSink{
		out:     out,
		errOut:  errOut,
		debug:   color.New(color.Faint),
		success: color.New(color.FgGreen),
		warning: color.New(color.FgYellow),
		failure: color.New(color.FgRed, color.Bold),
	}
}

func (c *ConsoleSink) Emit(severity Severity, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch severity {
	case SeverityDebug:
		c.debug.Fprintln(c.out, message)
	case SeveritySuccess:
		c.success.Fprintln(c.out, "✓ "+message)
	case SeverityWarning:
		c.warning.Fprintln(c.errOut, "Warning: "+message)
	case SeverityError:
		c.failure.Fprintln(c.errOut, "Error: "+message)
	default:
		io.WriteString(c.out, message+"\n")
	}
}

func (c *ConsoleSink) Close() error { return nil }
