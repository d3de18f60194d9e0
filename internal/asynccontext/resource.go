package asynccontext

import "go.uber.org/zap"

const (
	topLevelType  = "TOPLEVEL"
	boundFuncType = "bound-anonymous-fn"
)

// Resource holds the snapshot that was current when it was created and
// reinstates it for out-of-band invocations.
type Resource struct {
	manager  *Manager
	snapshot *Snapshot
	typ      string
}

// NewResource captures the current snapshot. typ is used for diagnostics only.
func (m *Manager) NewResource(typ string) *Resource {
	r := &Resource{
		manager:  m,
		snapshot: m.store.Current(),
		typ:      typ,
	}
	m.logger.Debug("async resource created",
		zap.String("type", typ),
		zap.Int("bindings", r.snapshot.Len()),
	)
	return r
}

// BindResource creates a resource and binds fn to it in one step. An empty typ
// defaults to "bound-anonymous-fn".
func (m *Manager) BindResource(fn ThisFunc, typ string, thisArg any) (Func, error) {
	if fn == nil {
		return nil, notCallable("fn")
	}
	if typ == "" {
		typ = boundFuncType
	}
	return m.NewResource(typ).Bind(fn, thisArg)
}

// Type returns the diagnostic type label.
func (r *Resource) Type() string {
	return r.typ
}

// Snapshot returns the captured snapshot.
func (r *Resource) Snapshot() *Snapshot {
	return r.snapshot
}

// RunInAsyncScope calls fn with the captured snapshot installed, then restores
// whichever snapshot was current immediately before the call.
func (r *Resource) RunInAsyncScope(fn ThisFunc, thisArg any, args ...any) (any, error) {
	if fn == nil {
		return nil, notCallable("fn")
	}
	return r.manager.runUnder(r.snapshot, func() (any, error) {
		return fn(thisArg, args...)
	})
}

// Bind returns a wrapper with the same per-call contract as RunInAsyncScope.
func (r *Resource) Bind(fn ThisFunc, thisArg any) (Func, error) {
	if fn == nil {
		return nil, notCallable("fn")
	}
	return func(args ...any) (any, error) {
		return r.RunInAsyncScope(fn, thisArg, args...)
	}, nil
}

// EmitBefore is a no-op kept for interface compatibility.
func (r *Resource) EmitBefore() *Resource { return r }

// EmitAfter is a no-op kept for interface compatibility.
func (r *Resource) EmitAfter() *Resource { return r }

// EmitDestroy is a no-op kept for interface compatibility.
func (r *Resource) EmitDestroy() *Resource { return r }

// AsyncID always reports DefaultAsyncID.
func (r *Resource) AsyncID() int64 { return DefaultAsyncID }

// TriggerAsyncID always reports DefaultAsyncID.
func (r *Resource) TriggerAsyncID() int64 { return DefaultAsyncID }
