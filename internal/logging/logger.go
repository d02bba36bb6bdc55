package logging

// Leveled logging for canusb

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

// LogLevel represents the logging level
type LogLevel int

const (
	LogLevelSilent LogLevel = iota
	LogLevelError
	LogLevelInfo
	LogLevelVerbose
	LogLevelDebug
)

var levelNames = []string{"silent", "error", "info", "verbose", "debug"}

func (l LogLevel) String() string {
	if l < 0 || int(l) >= len(levelNames) {
		return fmt.Sprintf("level(%d)", int(l))
	}
	return levelNames[l]
}

// ParseLevel maps a level name to a LogLevel.
func ParseLevel(s string) (LogLevel, error) {
	for i, name := range levelNames {
		if strings.EqualFold(s, name) {
			return LogLevel(i), nil
		}
	}
	return LogLevelInfo, fmt.Errorf("unknown log level %q", s)
}

// Logger writes leveled messages to the console and an optional log file.
type Logger struct {
	mu      sync.Mutex
	level   LogLevel
	file    *os.File
	fileLog *log.Logger
	stdout  *log.Logger
	stderr  *log.Logger
}

// NewLogger creates a new logger
func NewLogger(level LogLevel, logFile string) (*Logger, error) {
	l := &Logger{
		level:  level,
		stdout: log.New(os.Stdout, "", 0),
		stderr: log.New(os.Stderr, "", 0),
	}

	if logFile != "" {
		file, err := os.Create(logFile)
		if err != nil {
			return nil, fmt.Errorf("create log file: %w", err)
		}
		l.file = file
		l.fileLog = log.New(file, "", log.LstdFlags|log.Lmicroseconds)
	}

	return l, nil
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{
		level:  LogLevelSilent,
		stdout: log.New(io.Discard, "", 0),
		stderr: log.New(io.Discard, "", 0),
	}
}

// Close closes the log file, if any.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		l.fileLog = nil
		return err
	}
	return nil
}

// SetOutput redirects console output. The TUI uses it to keep the alternate screen clean.
func (l *Logger) SetOutput(stdout, stderr io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stdout = log.New(stdout, "", 0)
	l.stderr = log.New(stderr, "", 0)
}

// Error logs an error message
func (l *Logger) Error(format string, v ...interface{}) {
	l.logf(LogLevelError, "ERROR: ", format, v...)
}

// Info logs an info message
func (l *Logger) Info(format string, v ...interface{}) {
	l.logf(LogLevelInfo, "INFO: ", format, v...)
}

// Verbose logs a verbose message
func (l *Logger) Verbose(format string, v ...interface{}) {
	l.logf(LogLevelVerbose, "VERBOSE: ", format, v...)
}

// Debug logs a debug message
func (l *Logger) Debug(format string, v ...interface{}) {
	l.logf(LogLevelDebug, "DEBUG: ", format, v...)
}

func (l *Logger) logf(level LogLevel, prefix, format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.level < level {
		return
	}
	msg := prefix + fmt.Sprintf(format, v...)

	if l.fileLog != nil {
		l.fileLog.Println(msg)
	}

	// Errors always reach stderr; everything else only when verbose or debug.
	if level == LogLevelError {
		l.stderr.Println(msg)
	} else if l.level >= LogLevelVerbose {
		l.stdout.Println(msg)
	}
}

// SetLevel sets the logging level
func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// GetLevel returns the current logging level
func (l *Logger) GetLevel() LogLevel {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

// LogTraffic traces one adapter line. direction is ">>" for writes and "<<" for reads.
func (l *Logger) LogTraffic(direction, line string) {
	if l.GetLevel() < LogLevelDebug {
		return
	}
	l.Debug("%s %s", direction, quoteControl(line))
}

// LogState records an engine state transition.
func (l *Logger) LogState(from, to string, err error) {
	if err != nil {
		l.Verbose("state %s -> %s: %v", from, to, err)
		return
	}
	l.Verbose("state %s -> %s", from, to)
}

// LogStartup logs the connection parameters.
func (l *Logger) LogStartup(filter, port string, baudRate, bitrateKbps int, configPath string) {
	l.Info("Starting canusb")
	l.Verbose("  Device filter: %s", filter)
	if port != "" {
		l.Verbose("  Port: %s", port)
	}
	l.Verbose("  Serial: %d baud", baudRate)
	l.Verbose("  CAN bitrate: %d kbit/s", bitrateKbps)
	l.Verbose("  Config: %s", configPath)
}

// quoteControl renders CR, BELL and other control bytes visibly.
func quoteControl(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '\r':
			b.WriteString(`\r`)
		case c == 0x07:
			b.WriteString(`\a`)
		case c < 0x20 || c == 0x7f:
			fmt.Fprintf(&b, `\x%02x`, c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
