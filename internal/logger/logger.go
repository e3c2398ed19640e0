package logger

import (
	"sync"
)

// Log levels accepted by Get.
const (
	DebugLevel = "debug"
	InfoLevel  = "info"
	WarnLevel  = "warn"
	ErrorLevel = "error"
)

var (
	globalLogger *Logger
	once         sync.Once
)

// Get returns the process-wide logger. The first call fixes the level
// (an empty or unknown string means InfoLevel); later calls return the
// same instance and ignore their argument.
func Get(level string) *Logger {
	once.Do(func() {
		if level == "" {
			level = InfoLevel
		}
		globalLogger = newZapLogger(level)
	})
	return globalLogger
}
