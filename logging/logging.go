// Package logging provides the process-wide debug log enabled by --debug.
//
// With a log file set up every level goes to it. Without one, debug and error
// lines are dropped and info and warning lines go to the standard logger.
package logging

import (
	"fmt"
	"log"
	"os"
	"sync"
	"time"
)

// Level tags a log line.
type Level int

// Log levels
const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarning
	LevelError
)

func (l Level) prefix() string {
	switch l {
	case LevelInfo:
		return "INFO: "
	case LevelWarning:
		return "WARNING: "
	case LevelError:
		return "ERROR: "
	default:
		return ""
	}
}

// fallback reports whether l reaches stderr when no log file is open. Errors
// are left to the caller, which reports them itself.
func (l Level) fallback() bool {
	return l == LevelInfo || l == LevelWarning
}

var (
	mu      sync.Mutex
	logFile *os.File
	fileLog *log.Logger
)

// SetupLogger opens (or appends to) the debug log file. Calling it again while
// a file is open does nothing.
func SetupLogger(logFilePath string) error {
	mu.Lock()
	defer mu.Unlock()

	if fileLog != nil {
		return nil
	}

	f, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	logFile = f
	fileLog = log.New(f, "", log.LstdFlags)
	fileLog.Printf("--- LBPFinder Debug Log Started at %s ---", time.Now().Format(time.RFC3339))
	return nil
}

// CloseLogger closes the log file
func CloseLogger() {
	mu.Lock()
	defer mu.Unlock()

	if fileLog == nil {
		return
	}
	fileLog.Printf("--- LBPFinder Debug Log Closed at %s ---", time.Now().Format(time.RFC3339))
	logFile.Close()
	logFile = nil
	fileLog = nil
}

// Enabled reports whether the debug log is active.
func Enabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return fileLog != nil
}

// Logf writes one line at the given level.
func Logf(level Level, format string, args ...interface{}) {
	mu.Lock()
	defer mu.Unlock()

	switch {
	case fileLog != nil:
		fileLog.Printf(level.prefix()+format, args...)
	case level.fallback():
		log.Printf(level.prefix()+format, args...)
	}
}

// LogInfo logs an information message
func LogInfo(format string, args ...interface{}) { Logf(LevelInfo, format, args...) }

// DebugLog logs a message if debug mode is enabled
func DebugLog(format string, args ...interface{}) { Logf(LevelDebug, format, args...) }

// LogWarning logs a warning message
func LogWarning(format string, args ...interface{}) { Logf(LevelWarning, format, args...) }

// LogError logs an error message
func LogError(format string, args ...interface{}) { Logf(LevelError, format, args...) }

// LogImageProcessed records the outcome of computing one image's histogram.
func LogImageProcessed(path string, err error) {
	if err != nil {
		Logf(LevelDebug, "FAILED: %s - Error: %v", path, err)
		return
	}
	Logf(LevelDebug, "PROCESSED: %s", path)
}
