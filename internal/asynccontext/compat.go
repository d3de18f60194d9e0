package asynccontext

import "go.uber.org/zap"

// DefaultAsyncID is returned by every async id accessor. Ids are not tracked.
const DefaultAsyncID int64 = 0

// Providers lists the resource provider kinds exposed as asyncWrapProviders.
var Providers = map[string]int{
	"NONE":                0,
	"DIRHANDLE":           1,
	"DNSCHANNEL":          2,
	"ELDHISTOGRAM":        3,
	"FILEHANDLE":          4,
	"FILEHANDLECLOSEREQ":  5,
	"BLOBREADER":          6,
	"FSEVENTWRAP":         7,
	"FSREQCALLBACK":       8,
	"FSREQPROMISE":        9,
	"GETADDRINFOREQWRAP":  10,
	"GETNAMEINFOREQWRAP":  11,
	"HEAPSNAPSHOT":        12,
	"HTTP2SESSION":        13,
	"HTTP2STREAM":         14,
	"HTTP2PING":           15,
	"HTTP2SETTINGS":       16,
	"HTTPINCOMINGMESSAGE": 17,
	"HTTPCLIENTREQUEST":   18,
	"JSSTREAM":            19,
	"JSUDPWRAP":           20,
	"MESSAGEPORT":         21,
	"PIPECONNECTWRAP":     22,
	"PIPESERVERWRAP":      23,
	"PIPEWRAP":            24,
	"PROCESSWRAP":         25,
	"PROMISE":             26,
	"QUERYWRAP":           27,
	"SHUTDOWNWRAP":        28,
	"SIGNALWRAP":          29,
	"STATWATCHER":         30,
	"STREAMPIPE":          31,
	"TCPCONNECTWRAP":      32,
	"TCPSERVERWRAP":       33,
	"TCPWRAP":             34,
	"TTYWRAP":             35,
	"UDPSENDWRAP":         36,
	"UDPWRAP":             37,
	"SIGINTWATCHDOG":      38,
	"WORKER":              39,
	"WORKERHEAPSNAPSHOT":  40,
	"WRITEWRAP":           41,
	"ZLIB":                42,
}

// HookCallbacks mirrors the callbacks accepted by createHook. They are kept
// on the hook but never invoked: no async hook events are emitted.
type HookCallbacks struct {
	Init           Func
	Before         Func
	After          Func
	Destroy        Func
	PromiseResolve Func
}

// Hook is an inert async hook. Enable and Disable only flip its flag.
type Hook struct {
	callbacks HookCallbacks
	enabled   bool
}

// Enable marks the hook enabled and returns it.
func (h *Hook) Enable() *Hook {
	h.enabled = true
	return h
}

// Disable marks the hook disabled and returns it.
func (h *Hook) Disable() *Hook {
	h.enabled = false
	return h
}

// Enabled reports whether Enable was called more recently than Disable.
func (h *Hook) Enabled() bool { return h.enabled }

// Callbacks returns the callbacks the hook was created with.
func (h *Hook) Callbacks() HookCallbacks { return h.callbacks }

// CreateHook returns an inert hook so code written against the host API loads.
func (m *Manager) CreateHook(callbacks HookCallbacks) *Hook {
	m.logger.Debug("createHook called; async hooks are not emitted",
		zap.Bool("init", callbacks.Init != nil),
		zap.Bool("before", callbacks.Before != nil),
		zap.Bool("after", callbacks.After != nil),
		zap.Bool("destroy", callbacks.Destroy != nil),
		zap.Bool("promise_resolve", callbacks.PromiseResolve != nil),
	)
	return &Hook{callbacks: callbacks}
}

// ExecutionAsyncID always reports DefaultAsyncID.
func (m *Manager) ExecutionAsyncID() int64 { return DefaultAsyncID }

// TriggerAsyncID always reports DefaultAsyncID.
func (m *Manager) TriggerAsyncID() int64 { return DefaultAsyncID }

// ExecutionAsyncResource returns the isolate's top-level resource. It carries
// an empty snapshot.
func (m *Manager) ExecutionAsyncResource() *Resource { return m.topLevel }
