// Package monitoring holds the diagnostic loggers shared by the figure
// pipeline packages.
package monitoring

import (
	"fmt"
	"log"
	"strings"
	"sync/atomic"
)

// Level orders log verbosity. Messages below the active level are dropped.
type Level int32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARNING"
	case LevelError:
		return "ERROR"
	}
	return fmt.Sprintf("LEVEL(%d)", int32(l))
}

// ParseLevel maps a --log-level value onto a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("invalid log level %q: must be debug, info, warn or error", s)
}

var level atomic.Int32

func init() {
	level.Store(int32(LevelInfo))
}

// SetLevel changes the minimum level emitted by Debugf, Logf and Warnf.
func SetLevel(l Level) { level.Store(int32(l)) }

// Enabled reports whether messages at l are currently emitted.
func Enabled(l Level) bool { return l >= Level(level.Load()) }

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = infof

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Debugf logs through Logf only when debug output is enabled.
func Debugf(format string, v ...interface{}) {
	if Enabled(LevelDebug) {
		Logf(format, v...)
	}
}

// Warnf logs through Logf unless the level is above warnings.
func Warnf(format string, v ...interface{}) {
	if Enabled(LevelWarn) {
		Logf("warning: "+format, v...)
	}
}

func infof(format string, v ...interface{}) {
	if Enabled(LevelInfo) {
		log.Printf(format, v...)
	}
}

// Configure sets up the standard logger the way make-figure prints it:
// "<date> <time> <name> - <message>".
func Configure(name string, l Level) {
	SetLevel(l)
	if name == "" {
		log.SetPrefix("")
		log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)
		return
	}
	log.SetPrefix(name + " - ")
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds | log.Lmsgprefix)
}
