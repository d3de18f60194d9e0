package sandbox

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/jsruntime/internal/asynccontext"
	"github.com/GriffinCanCode/jsruntime/internal/infrastructure/logging"
	"github.com/GriffinCanCode/jsruntime/internal/shared/id"
	"github.com/GriffinCanCode/jsruntime/internal/textcodec"
)

var (
	ErrClosed             = errors.New("sandbox runtime is closed")
	ErrUnhandledRejection = errors.New("unhandled promise rejection")
	ErrPendingPromise     = errors.New("script promise never settled")
	ErrNativePanic        = errors.New("native binding panicked")
)

var _ Sandbox = (*Runtime)(nil)

// Runtime wraps goja VM with security controls
type Runtime struct {
	vm     *goja.Runtime
	id     id.RuntimeID
	config Config
	mu     sync.RWMutex

	logger   *zap.Logger
	recorder Recorder
	external textcodec.Dispatcher

	// Per-isolate state, rebuilt on Reset
	loop     *eventLoop
	contexts *asynccontext.Manager
	ops      textcodec.Dispatcher
	modules  map[string]*goja.Object

	// Console output
	console   []LogEntry
	consoleMu sync.Mutex
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithLogger sets the runtime logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Runtime) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithRecorder reports metrics to rec.
func WithRecorder(rec Recorder) Option {
	return func(r *Runtime) {
		r.recorder = rec
	}
}

// WithDispatcher replaces the in-process text dispatch surface.
func WithDispatcher(d textcodec.Dispatcher) Option {
	return func(r *Runtime) {
		r.external = d
	}
}

// New creates a new sandboxed runtime
func New(config Config, opts ...Option) (*Runtime, error) {
	switch config.ContextBridge {
	case "":
		config.ContextBridge = asynccontext.ModeEmbedder
	case asynccontext.ModeEmbedder, asynccontext.ModeLocal:
	default:
		return nil, fmt.Errorf("unknown context bridge %q", config.ContextBridge)
	}

	r := &Runtime{
		id:      id.NewRuntimeID(),
		config:  config,
		logger:  zap.NewNop(),
		console: []LogEntry{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}

	if err := r.setup(); err != nil {
		return nil, err
	}
	return r, nil
}

// setup builds a fresh isolate: VM, event loop, context store and globals.
func (r *Runtime) setup() error {
	r.vm = goja.New()
	if r.config.MaxCallStackSize > 0 {
		r.vm.SetMaxCallStackSize(r.config.MaxCallStackSize)
	}

	r.loop = newEventLoop()
	var bridge asynccontext.EmbedderBridge
	if r.config.ContextBridge == asynccontext.ModeEmbedder {
		bridge = r.loop
		r.vm.SetAsyncContextTracker(r.loop)
	}
	managerOpts := []asynccontext.Option{asynccontext.WithLogger(r.logger)}
	codecOpts := []textcodec.Option{textcodec.WithLogger(r.logger)}
	if r.recorder != nil {
		managerOpts = append(managerOpts, asynccontext.WithObserver(r.recorder))
		codecOpts = append(codecOpts, textcodec.WithObserver(r.recorder))
	}
	r.contexts = asynccontext.NewManager(asynccontext.NewStore(bridge), managerOpts...)

	r.ops = r.external
	if r.ops == nil {
		r.ops = textcodec.NewRegistry(codecOpts...)
	}

	asyncHooks := r.newAsyncHooksModule()
	r.modules = map[string]*goja.Object{
		"async_hooks":      asyncHooks,
		"node:async_hooks": asyncHooks,
	}

	return r.setupGlobals()
}

// ID returns the isolate's rt_ identifier. It survives Reset.
func (r *Runtime) ID() string {
	return r.id.String()
}

// Contexts exposes the isolate's context manager to the host.
func (r *Runtime) Contexts() *asynccontext.Manager {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.contexts
}

// Execute runs JavaScript code, then drains the event loop, with timeout and
// resource limits
func (r *Runtime) Execute(ctx context.Context, script string) (*Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.vm == nil {
		return nil, ErrClosed
	}

	start := time.Now()
	result := &Result{
		ExecutionID: id.NewExecutionID().String(),
		Console:     []LogEntry{},
	}
	logger := logging.Execution(r.logger, result.ExecutionID, r.id.String(), r.config.ContextBridge)

	// Setup timeout
	var timeout <-chan time.Time
	if r.config.Timeout > 0 {
		timer := time.NewTimer(r.config.Timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	// Setup interrupt handler
	stop := make(chan struct{})
	done := make(chan struct{})
	go func(vm *goja.Runtime) {
		defer close(done)
		select {
		case <-timeout:
			vm.Interrupt("execution timeout exceeded")
		case <-ctx.Done():
			vm.Interrupt("context cancelled")
		case <-stop:
		}
	}(r.vm)

	// Clear console and queued work
	r.consoleMu.Lock()
	r.console = []LogEntry{}
	r.consoleMu.Unlock()
	r.loop.clear()

	val, tasks, err := r.run(ctx, script)
	result.Tasks = tasks

	// Stop interrupt goroutine
	close(stop)
	<-done
	r.vm.ClearInterrupt()

	result.Duration = time.Since(start)

	// Collect console output
	r.consoleMu.Lock()
	result.Console = append([]LogEntry{}, r.console...)
	r.consoleMu.Unlock()

	if err != nil {
		result.Error = err
		r.record("error", result.Duration)
		logger.Debug("script failed", zap.Error(err), zap.Duration("duration", result.Duration))
		return result, err
	}

	// Extract result value
	result.Value = r.exportValue(val)
	r.record("ok", result.Duration)
	logger.Debug("script completed",
		zap.Int("tasks", result.Tasks),
		zap.Duration("duration", result.Duration),
	)
	return result, nil
}

// run evaluates script, drains the loop and settles the completion value. A Go
// panic raised by a native binding is returned as an error so it cannot take
// the host down.
func (r *Runtime) run(ctx context.Context, script string) (val goja.Value, tasks int, err error) {
	defer func() {
		if p := recover(); p != nil {
			val, err = nil, fmt.Errorf("%w: %v", ErrNativePanic, p)
		}
	}()

	val, err = r.vm.RunString(script)
	if err == nil {
		tasks, err = r.loop.run(ctx, r.config.MaxTasks, r.invokeTask)
	}
	if err == nil {
		val, err = r.settle(val)
	}
	return val, tasks, err
}

// settle unwraps a promise completion value once the loop is idle.
func (r *Runtime) settle(val goja.Value) (goja.Value, error) {
	if val == nil {
		return val, nil
	}
	p, ok := val.Export().(*goja.Promise)
	if !ok {
		return val, nil
	}
	switch p.State() {
	case goja.PromiseStateFulfilled:
		return p.Result(), nil
	case goja.PromiseStateRejected:
		return nil, fmt.Errorf("%w: %s", ErrUnhandledRejection, p.Result().String())
	default:
		return nil, ErrPendingPromise
	}
}

func (r *Runtime) invokeTask(t *task) error {
	if _, err := t.fn(goja.Undefined(), t.args...); err != nil {
		return fmt.Errorf("uncaught exception in scheduled task: %w", err)
	}
	return nil
}

func (r *Runtime) record(status string, d time.Duration) {
	if r.recorder != nil {
		r.recorder.RecordExecution(status, d)
	}
}

// setupGlobals configures global objects and security
func (r *Runtime) setupGlobals() error {
	// Remove dangerous globals
	r.vm.Set("process", goja.Undefined())
	r.vm.Set("module", goja.Undefined())
	r.vm.Set("exports", goja.Undefined())

	// Only builtin polyfill modules resolve
	r.vm.Set("require", r.require)

	// Setup console if enabled
	if r.config.EnableConsole {
		console := r.vm.NewObject()
		console.Set("log", r.makeConsoleFunc("log"))
		console.Set("warn", r.makeConsoleFunc("warn"))
		console.Set("error", r.makeConsoleFunc("error"))
		console.Set("info", r.makeConsoleFunc("info"))
		r.vm.Set("console", console)
	}

	if r.config.EnableTimers {
		r.installTimers()
	} else {
		noop := func(call goja.FunctionCall) goja.Value {
			return goja.Undefined()
		}
		for _, name := range []string{"setTimeout", "clearTimeout", "setImmediate", "queueMicrotask"} {
			r.vm.Set(name, noop)
		}
	}

	r.installEncoding()
	return nil
}

func (r *Runtime) require(call goja.FunctionCall) goja.Value {
	name := call.Argument(0).String()
	if mod, ok := r.modules[name]; ok {
		return mod
	}
	panic(r.newError("Error", fmt.Sprintf("Cannot find module '%s'", name)))
}

// installTimers defines the scheduling globals on top of the event loop.
func (r *Runtime) installTimers() {
	schedule := func(delayed bool) func(goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			fn := r.callable(call.Argument(0), "callback")
			if !delayed {
				return r.vm.ToValue(r.loop.setTimer(fn, 0, restArgs(call.Arguments, 1)))
			}
			delay := time.Duration(call.Argument(1).ToInteger()) * time.Millisecond
			return r.vm.ToValue(r.loop.setTimer(fn, delay, restArgs(call.Arguments, 2)))
		}
	}
	cancel := func(call goja.FunctionCall) goja.Value {
		r.loop.clearTimer(call.Argument(0).ToInteger())
		return goja.Undefined()
	}

	r.vm.Set("setTimeout", schedule(true))
	r.vm.Set("setImmediate", schedule(false))
	r.vm.Set("clearTimeout", cancel)
	r.vm.Set("clearImmediate", cancel)
	r.vm.Set("queueMicrotask", func(call goja.FunctionCall) goja.Value {
		fn := r.callable(call.Argument(0), "callback")
		r.loop.queueMicrotask(fn, nil)
		return goja.Undefined()
	})
}

// makeConsoleFunc creates a console function
func (r *Runtime) makeConsoleFunc(level string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}

		r.consoleMu.Lock()
		r.console = append(r.console, LogEntry{
			Level:   level,
			Message: strings.Join(parts, " "),
			Time:    time.Now(),
		})
		r.consoleMu.Unlock()

		return goja.Undefined()
	}
}

// exportValue converts goja value to Go value
func (r *Runtime) exportValue(val goja.Value) interface{} {
	if val == nil || goja.IsUndefined(val) || goja.IsNull(val) {
		return nil
	}
	return val.Export()
}

// Reset discards the isolate and builds a new one. Context bindings do not
// survive a reset.
func (r *Runtime) Reset() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.console = []LogEntry{}
	return r.setup()
}

// Close releases resources
func (r *Runtime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.vm = nil
	r.loop = nil
	r.contexts = nil
	r.modules = nil
	r.console = nil
	return nil
}
