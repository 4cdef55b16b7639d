package logger

import (
	"fmt"
	"log"
	"os"

	"quicore.dev/quicore/util/assert"
)

type LogLevel int

const (
	None LogLevel = iota
	Warn
	Info
	Debug
	Trace
)

func (l LogLevel) String() string {
	switch l {
	case None:
		return "NONE"
	case Warn:
		return "WARN"
	case Info:
		return "INFO"
	case Debug:
		return "DEBUG"
	case Trace:
		return "TRACE"
	default:
		return "UNKNOWN"
	}
}

const LogLevelEnv = "LOG_LEVEL"

var logLevel LogLevel

func init() {
	envvar, present := os.LookupEnv(LogLevelEnv)
	if !present {
		logLevel = Info
		return
	}

	level, ok := parseLevel(envvar)
	if !ok {
		logLevel = Info
		Warnf("Unknown log level '%s', defaulting to INFO", envvar)
		return
	}
	logLevel = level
}

func parseLevel(s string) (LogLevel, bool) {
	switch s {
	case "NONE":
		return None, true
	case "WARN":
		return Warn, true
	case "INFO":
		return Info, true
	case "DEBUG":
		return Debug, true
	case "TRACE":
		return Trace, true
	default:
		return None, false
	}
}

// SetLogLevel changes the active log level at runtime.
func SetLogLevel(level LogLevel) {
	logLevel = level
}

// GetLogLevel returns the active log level.
func GetLogLevel() LogLevel {
	return logLevel
}

// ParseLogLevel parses a level name (NONE, WARN, INFO, DEBUG, TRACE),
// returning false if name isn't recognized.
func ParseLogLevel(name string) (LogLevel, bool) {
	return parseLevel(name)
}

// Errorf prints an error message prefixed with "[ERROR] " and stops execution.
// After Errorf nothing will be executed anymore.
// A newline is added to the end of the message.
func Errorf(format string, v ...any) {
	log.Fatalf(fmt.Sprintf("[ERROR] %s", format), v...)
	assert.Never("log.Fatalf returned")
}

// Warnf prints a message prefixed with "[WARN] ".
// A newline is added to the end of the message.
func Warnf(format string, v ...any) {
	if logLevel < Warn {
		return
	}
	log.Printf(fmt.Sprintf("[WARN] %s", format), v...)
}

// Panicf acts similar to [Errorf] but panics.
// All deferred functions will execute and a stack trace is printed.
// Technically you can recover from the panic, but that's not intended use.
func Panicf(format string, v ...any) {
	log.Panicf(fmt.Sprintf("[ERROR] %s", format), v...)
	assert.Never("log.Panicf returned")
}

// Infof prints an informational message prefixed with "[INFO] ".
// A newline is added to the end of the message.
func Infof(format string, v ...any) {
	if logLevel < Info {
		return
	}
	log.Printf(fmt.Sprintf("[INFO] %s", format), v...)
}

// Debugf prints a debug message prefixed with "[DEBUG] ".
// A newline is added to the end of the message.
func Debugf(format string, v ...any) {
	if logLevel < Debug {
		return
	}
	log.Printf(fmt.Sprintf("[DEBUG] %s", format), v...)
}

// Tracef prints a fine-grained trace message, prefixed with "[TRACE] ".
// Used by the reliability core for per-packet detail that would
// otherwise drown out DEBUG output.
func Tracef(format string, v ...any) {
	if logLevel < Trace {
		return
	}
	log.Printf(fmt.Sprintf("[TRACE] %s", format), v...)
}
