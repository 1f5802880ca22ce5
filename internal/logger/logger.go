package logger

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

var (
	colorDebug = color.New(color.FgHiBlack)
	colorWarn  = color.New(color.FgYellow)
	colorError = color.New(color.FgRed, color.Bold)
)

// Logger handles leveled logging with optional file output
type Logger struct {
	Verbose bool
	writer  io.Writer
	errOut  io.Writer
	colored bool
	mu      sync.Mutex
	fileLog *os.File
	hasBar  bool
}

// New creates a new Logger instance writing to stdout and stderr.
// Level prefixes are colored when stdout is a terminal.
func New(verbose bool) *Logger {
	return &Logger{
		Verbose: verbose,
		writer:  os.Stdout,
		errOut:  os.Stderr,
		colored: isatty.IsTerminal(os.Stdout.Fd()) && !color.NoColor,
	}
}

// NewWithWriter creates a Logger that writes every level to w, uncolored.
func NewWithWriter(w io.Writer, verbose bool) *Logger {
	return &Logger{
		Verbose: verbose,
		writer:  w,
		errOut:  w,
	}
}

// SetFileLog enables logging to a file
func (l *Logger) SetFileLog(path string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	l.fileLog = f
	return nil
}

// SetProgressBar indicates that a progress bar is active. While it is,
// non-error output goes to the file log only, unless verbose.
func (l *Logger) SetProgressBar(active bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hasBar = active
}

// Close closes the log file if open
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.fileLog != nil {
		return l.fileLog.Close()
	}
	return nil
}

// Info logs informational messages
func (l *Logger) Info(format string, args ...interface{}) {
	l.log(l.writer, "INFO", nil, format, args...)
}

// Debug logs detailed messages only in verbose mode
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.Verbose {
		l.log(l.writer, "DEBUG", colorDebug, format, args...)
	} else {
		// Debug always reaches the file log, even in non-verbose mode
		l.log(nil, "DEBUG", nil, format, args...)
	}
}

// Warn logs warning messages
func (l *Logger) Warn(format string, args ...interface{}) {
	l.log(l.writer, "WARN", colorWarn, format, args...)
}

// Error logs error messages to stderr
func (l *Logger) Error(format string, args ...interface{}) {
	l.log(l.errOut, "ERROR", colorError, format, args...)
}

func (l *Logger) log(w io.Writer, level string, c *color.Color, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	body := fmt.Sprintf(format, args...)
	plain := body + "\n"
	if level != "INFO" {
		plain = "[" + level + "] " + plain
	}

	if level != "ERROR" && l.hasBar && !l.Verbose {
		w = nil
	}
	if w != nil {
		if l.colored && c != nil {
			fmt.Fprintf(w, "%s %s\n", c.Sprint("["+level+"]"), body)
		} else {
			fmt.Fprint(w, plain)
		}
	}

	if l.fileLog != nil {
		l.fileLog.WriteString(plain)
	}
}
