// Package logging wires zap for the whole process. Subsystems take a named
// child logger so log lines carry their origin.
package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu   sync.Mutex
	root *zap.Logger
)

// Init builds the process logger. Call once at startup; debug switches the
// level and enables development-style output.
func Init(debug bool) error {
	mu.Lock()
	defer mu.Unlock()

	config := zap.NewProductionConfig()
	config.Encoding = "console"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if debug {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	logger, err := config.Build()
	if err != nil {
		return err
	}
	root = logger
	return nil
}

// Named returns a child logger for a subsystem. Safe before Init; callers
// get a no-op logger until the process logger exists.
func Named(subsystem string) *zap.Logger {
	mu.Lock()
	defer mu.Unlock()
	if root == nil {
		return zap.NewNop()
	}
	return root.Named(subsystem)
}

// Sync flushes buffered log entries. Called on shutdown.
func Sync() {
	mu.Lock()
	defer mu.Unlock()
	if root != nil {
		_ = root.Sync()
	}
}
