// Package logger provides the leveled logger used across switchprep.
// It wraps the standard `log` package and filters messages by level.
package logger

import (
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
)

// LogLevel is a type representing the logging level.
type LogLevel int

const (
	// LevelDebug is used for detailed debugging information.
	LevelDebug LogLevel = iota
	// LevelInfo is used for general progress messages.
	LevelInfo
	// LevelWarn is used for recoverable oddities, such as a skipped optional table.
	LevelWarn
	// LevelError is used for failures that abort a step.
	LevelError
	// LevelFatal is used for errors that terminate the process.
	LevelFatal
)

var levelNames = map[LogLevel]string{
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "ERROR",
	LevelFatal: "FATAL",
}

// String returns the upper-case name of the level.
func (l LogLevel) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("LEVEL(%d)", int(l))
}

var (
	mu       sync.RWMutex
	logLevel = LevelInfo
)

// ParseLevel converts a level name ("DEBUG", "info", ...) into a LogLevel.
func ParseLevel(level string) (LogLevel, error) {
	upper := strings.ToUpper(strings.TrimSpace(level))
	for l, name := range levelNames {
		if name == upper {
			return l, nil
		}
	}
	return LevelInfo, fmt.Errorf("unknown log level '%s'", level)
}

// SetLogLevel sets the global log level.
// An unknown value falls back to INFO and prints a notice.
func SetLogLevel(level string) {
	parsed, err := ParseLevel(level)
	if err != nil {
		fmt.Printf("%v. Defaulting to INFO level.\n", err)
	}
	mu.Lock()
	logLevel = parsed
	mu.Unlock()
}

// GetLogLevel returns the current global log level.
func GetLogLevel() LogLevel {
	mu.RLock()
	defer mu.RUnlock()
	return logLevel
}

// SetOutput redirects log output, mainly for tests.
func SetOutput(w io.Writer) {
	log.SetOutput(w)
}

func enabled(l LogLevel) bool {
	return GetLogLevel() <= l
}

// Debugf formats and outputs a DEBUG level log message.
func Debugf(format string, v ...interface{}) {
	if enabled(LevelDebug) {
		log.Printf("[DEBUG] "+format, v...)
	}
}

// Infof formats and outputs an INFO level log message.
func Infof(format string, v ...interface{}) {
	if enabled(LevelInfo) {
		log.Printf("[INFO] "+format, v...)
	}
}

// Warnf formats and outputs a WARN level log message.
func Warnf(format string, v ...interface{}) {
	if enabled(LevelWarn) {
		log.Printf("[WARN] "+format, v...)
	}
}

// Errorf formats and outputs an ERROR level log message.
func Errorf(format string, v ...interface{}) {
	if enabled(LevelError) {
		log.Printf("[ERROR] "+format, v...)
	}
}

// Fatalf outputs a FATAL level log message and exits with status 1.
func Fatalf(format string, v ...interface{}) {
	log.Fatalf("[FATAL] "+format, v...)
}
