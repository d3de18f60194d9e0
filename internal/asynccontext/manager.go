package asynccontext

import (
	"go.uber.org/zap"
)

// Func is a callback run under a context binding. Returning an error is how a
// callback throws.
type Func func(args ...any) (any, error)

// ThisFunc is a callback that receives an explicit receiver.
type ThisFunc func(this any, args ...any) (any, error)

// SnapshotFunc invokes fn under a previously captured snapshot.
type SnapshotFunc func(fn Func, args ...any) (any, error)

// Manager owns the context store of a single isolate and creates the
// channels and resources that use it.
type Manager struct {
	store    Store
	logger   *zap.Logger
	topLevel *Resource
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the diagnostics logger.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithObserver reports every snapshot install to o.
func WithObserver(o Observer) Option {
	return func(m *Manager) {
		if o != nil {
			m.store = &observedStore{Store: m.store, observer: o}
		}
	}
}

// NewManager creates a manager over store. A nil store gets a local fallback.
func NewManager(store Store, opts ...Option) *Manager {
	if store == nil {
		store = NewStore(nil)
	}
	m := &Manager{
		store:  store,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	m.topLevel = &Resource{manager: m, typ: topLevelType}

	m.logger.Debug("async context manager initialized", zap.String("mode", store.Mode()))
	return m
}

// Mode reports which store implementation backs the manager.
func (m *Manager) Mode() string {
	return m.store.Mode()
}

// Current returns the snapshot that is current right now.
func (m *Manager) Current() *Snapshot {
	return m.store.Current()
}

// NewChannel creates an unbound channel. The name is diagnostic only; two
// channels with the same name never alias.
func (m *Manager) NewChannel(name string) *Channel {
	return &Channel{manager: m, name: name}
}

// runUnder installs snap for the duration of fn and restores whatever was
// current before, including when fn panics.
func (m *Manager) runUnder(snap *Snapshot, fn func() (any, error)) (any, error) {
	prev := m.store.Current()
	m.store.SetCurrent(snap)
	defer m.store.SetCurrent(prev)
	return fn()
}

// Bind captures the current snapshot and returns a wrapper that calls fn under
// it, prepending boundArgs to each call's arguments.
func (m *Manager) Bind(fn Func, boundArgs ...any) (Func, error) {
	if fn == nil {
		return nil, notCallable("fn")
	}
	snap := m.store.Current()
	bound := append([]any(nil), boundArgs...)
	return func(args ...any) (any, error) {
		all := make([]any, 0, len(bound)+len(args))
		all = append(append(all, bound...), args...)
		return m.runUnder(snap, func() (any, error) {
			return fn(all...)
		})
	}, nil
}

// Snapshot captures the current snapshot and returns a runner that invokes any
// callable under it.
func (m *Manager) Snapshot() SnapshotFunc {
	snap := m.store.Current()
	return func(fn Func, args ...any) (any, error) {
		if fn == nil {
			return nil, notCallable("fn")
		}
		return m.runUnder(snap, func() (any, error) {
			return fn(args...)
		})
	}
}
