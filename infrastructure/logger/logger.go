package logger

import (
	"bytes"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// Logger is a subsystem logger. All messages are tagged with the subsystem
// name and filtered by the logger's level before being handed to the backend.
type Logger struct {
	level   uint32 // Level, used atomically
	tag     string
	backend *Backend
}

// BackendLog is the default logging backend all subsystems register with.
var BackendLog = NewBackend()

var (
	subsystemsMutex sync.Mutex
	subsystems      = make(map[string]*Logger)
)

// RegisterSubSystem returns a logger for the given subsystem tag, creating
// and registering it on the default backend if it doesn't exist yet.
func RegisterSubSystem(subsystemTag string) *Logger {
	subsystemsMutex.Lock()
	defer subsystemsMutex.Unlock()

	logger, ok := subsystems[subsystemTag]
	if !ok {
		logger = BackendLog.Logger(subsystemTag)
		subsystems[subsystemTag] = logger
	}
	return logger
}

// InitLog attaches stdout and the given log files to the default backend and
// starts it. logFile receives all levels, errLogFile warnings and above.
func InitLog(logFile, errLogFile string) {
	err := BackendLog.AddLogWriter(os.Stdout, LevelDebug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error adding stdout to the logger for level %s: %s", LevelWarn, err)
		os.Exit(1)
	}
	err = BackendLog.AddLogFile(logFile, LevelTrace)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error adding log file %s as log rotator for level %s: %s", logFile, LevelTrace, err)
		os.Exit(1)
	}
	err = BackendLog.AddLogFile(errLogFile, LevelWarn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error adding log file %s as log rotator for level %s: %s", errLogFile, LevelWarn, err)
		os.Exit(1)
	}
	err = BackendLog.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error starting the logger: %s ", err)
		os.Exit(1)
	}
}

// SetLogLevels sets the logging level for all registered subsystems to the
// provided level string.
func SetLogLevels(level string) error {
	lvl, ok := LevelFromString(level)
	if !ok {
		return fmt.Errorf("unknown log level %s", level)
	}

	subsystemsMutex.Lock()
	defer subsystemsMutex.Unlock()
	for _, logger := range subsystems {
		logger.SetLevel(lvl)
	}
	return nil
}

// Level returns the current logging level of the logger.
func (l *Logger) Level() Level {
	return Level(atomic.LoadUint32(&l.level))
}

// SetLevel changes the logging level of the logger.
func (l *Logger) SetLevel(level Level) {
	atomic.StoreUint32(&l.level, uint32(level))
}

// Backend returns the backend this logger writes to.
func (l *Logger) Backend() *Backend {
	return l.backend
}

func (l *Logger) write(level Level, args ...interface{}) {
	l.print(level, fmt.Sprint(args...))
}

func (l *Logger) writef(level Level, format string, args ...interface{}) {
	l.print(level, fmt.Sprintf(format, args...))
}

func (l *Logger) print(level Level, message string) {
	if level < l.Level() {
		return
	}
	// Entries are dropped rather than queued while no backend is consuming
	// them, so that code under test may log freely.
	if !l.backend.IsRunning() {
		return
	}

	var buf bytes.Buffer
	buf.WriteString(time.Now().Format("2006-01-02 15:04:05.000"))
	buf.WriteString(" [")
	buf.WriteString(level.String())
	buf.WriteString("] ")
	buf.WriteString(l.tag)
	buf.WriteString(": ")
	buf.WriteString(message)
	buf.WriteByte('\n')

	l.backend.writeChan <- logEntry{log: buf.Bytes(), level: level}
}

// Trace logs a message at the trace level.
func (l *Logger) Trace(args ...interface{}) { l.write(LevelTrace, args...) }

// Tracef logs a formatted message at the trace level.
func (l *Logger) Tracef(format string, args ...interface{}) { l.writef(LevelTrace, format, args...) }

// Debug logs a message at the debug level.
func (l *Logger) Debug(args ...interface{}) { l.write(LevelDebug, args...) }

// Debugf logs a formatted message at the debug level.
func (l *Logger) Debugf(format string, args ...interface{}) { l.writef(LevelDebug, format, args...) }

// Info logs a message at the info level.
func (l *Logger) Info(args ...interface{}) { l.write(LevelInfo, args...) }

// Infof logs a formatted message at the info level.
func (l *Logger) Infof(format string, args ...interface{}) { l.writef(LevelInfo, format, args...) }

// Warn logs a message at the warn level.
func (l *Logger) Warn(args ...interface{}) { l.write(LevelWarn, args...) }

// Warnf logs a formatted message at the warn level.
func (l *Logger) Warnf(format string, args ...interface{}) { l.writef(LevelWarn, format, args...) }

// Error logs a message at the error level.
func (l *Logger) Error(args ...interface{}) { l.write(LevelError, args...) }

// Errorf logs a formatted message at the error level.
func (l *Logger) Errorf(format string, args ...interface{}) { l.writef(LevelError, format, args...) }

// Critical logs a message at the critical level.
func (l *Logger) Critical(args ...interface{}) { l.write(LevelCritical, args...) }

// Criticalf logs a formatted message at the critical level.
func (l *Logger) Criticalf(format string, args ...interface{}) {
	l.writef(LevelCritical, format, args...)
}
