package sandbox

import (
	"context"
	"time"

	"github.com/GriffinCanCode/jsruntime/internal/asynccontext"
)

// Config defines sandbox configuration
type Config struct {
	MaxCallStackSize int           // Maximum JS call stack depth
	Timeout          time.Duration // Execution timeout, event loop included
	EnableConsole    bool          // Allow console.log/warn/error
	EnableTimers     bool          // Enable setTimeout/setImmediate/queueMicrotask
	ContextBridge    string        // "embedder" or "local"
	MaxTasks         int           // Maximum event loop tasks per execution
	MaxBufferBytes   int           // Largest array-like a script may pass as bytes
}

// Result holds execution result
type Result struct {
	ExecutionID string        // exec_<ulid>
	Value       interface{}   // Return value, promises settled
	Console     []LogEntry    // Console output
	Tasks       int           // Event loop tasks run
	Duration    time.Duration // Execution time
	Error       error         // Execution error
}

// LogEntry represents console output
type LogEntry struct {
	Level   string    `json:"level"`   // log, warn, error, info
	Message string    `json:"message"` // Log message
	Time    time.Time `json:"time"`    // Timestamp
}

// Sandbox defines the JavaScript execution interface
type Sandbox interface {
	Execute(ctx context.Context, script string) (*Result, error)
	Reset() error
	Close() error
}

// Recorder receives execution, text op, snapshot and pool metrics.
type Recorder interface {
	SnapshotInstalled(mode string)
	OpCompleted(op string, err error)
	RecordExecution(status string, duration time.Duration)
	SetPool(size, available int)
}

// DefaultMaxBufferBytes caps script-supplied buffer lengths when
// Config.MaxBufferBytes is unset.
const DefaultMaxBufferBytes = 16 << 20

// Default configuration
func DefaultConfig() Config {
	return Config{
		MaxCallStackSize: 1024,
		Timeout:          5 * time.Second,
		EnableConsole:    true,
		EnableTimers:     true,
		ContextBridge:    asynccontext.ModeEmbedder,
		MaxTasks:         10000,
		MaxBufferBytes:   DefaultMaxBufferBytes,
	}
}
