package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
)

// Level names double as the log file base names.
const (
	LevelInfo    = "info"
	LevelWarning = "warning"
	LevelError   = "error"
)

// Logger provides leveled logging (info/warning/error) to files and stdout/stderr.
type Logger struct {
	infoLog    *log.Logger
	warningLog *log.Logger
	errorLog   *log.Logger
	logDir     string
	mu         sync.Mutex
}

// NewLogger creates a Logger writing to logDir/{info,warning,error}.log
// as well as stdout/stderr. The directory is created when missing.
func NewLogger(logDir string) (*Logger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	files := make(map[string]*os.File, 3)
	for _, level := range []string{LevelInfo, LevelWarning, LevelError} {
		file, err := openLogFile(filepath.Join(logDir, level+".log"))
		if err != nil {
			for _, opened := range files {
				opened.Close()
			}
			return nil, err
		}
		files[level] = file
	}

	l := New(
		io.MultiWriter(os.Stdout, files[LevelInfo]),
		io.MultiWriter(os.Stdout, files[LevelWarning]),
		io.MultiWriter(os.Stderr, files[LevelError]),
	)
	l.logDir = logDir
	return l, nil
}

// New creates a Logger over arbitrary writers. CleanLogs is a no-op on
// loggers built this way.
func New(info, warning, errw io.Writer) *Logger {
	return &Logger{
		infoLog:    log.New(info, "INFO    ", log.Ldate|log.Ltime|log.Lshortfile),
		warningLog: log.New(warning, "WARNING ", log.Ldate|log.Ltime|log.Lshortfile),
		errorLog:   log.New(errw, "ERROR   ", log.Ldate|log.Ltime|log.Lshortfile),
	}
}

// Discard returns a Logger that drops everything.
func Discard() *Logger {
	return New(io.Discard, io.Discard, io.Discard)
}

var openFile = os.OpenFile

// openLogFile opens or creates a log file for appending.
func openLogFile(filename string) (*os.File, error) {
	file, err := openFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", filename, err)
	}
	return file, nil
}

// Dir returns the directory holding the log files, empty for writer-backed loggers.
func (l *Logger) Dir() string {
	return l.logDir
}

// Info writes a formatted info-level log entry.
func (l *Logger) Info(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infoLog.Output(2, fmt.Sprintf(format, v...))
}

// Warning writes a formatted warning-level log entry.
func (l *Logger) Warning(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warningLog.Output(2, fmt.Sprintf(format, v...))
}

// Error writes a formatted error-level log entry.
func (l *Logger) Error(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errorLog.Output(2, fmt.Sprintf(format, v...))
}

// CleanLogs truncates the log file of the given level.
func (l *Logger) CleanLogs(level string) error {
	if l.logDir == "" {
		return nil
	}
	switch level {
	case LevelInfo, LevelWarning, LevelError:
	default:
		return fmt.Errorf("unknown log level %q", level)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	filePath := filepath.Join(l.logDir, level+".log")
	if err := os.Truncate(filePath, 0); err != nil {
		return fmt.Errorf("failed to truncate %s: %w", filePath, err)
	}
	l.infoLog.Output(2, fmt.Sprintf("%s.log content has been cleared", level))
	return nil
}
