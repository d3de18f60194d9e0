package asynccontext

// State is the binding state of a channel.
type State int

const (
	StateUnbound State = iota
	StateBound
	StateDisabled
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateUnbound:
		return "unbound"
	case StateBound:
		return "bound"
	case StateDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// Channel is an identity-keyed binding slot. It holds no value itself; values
// live in the current snapshot under the channel's pointer.
type Channel struct {
	manager  *Manager
	name     string
	disabled bool
}

// Name returns the diagnostic name given at creation.
func (c *Channel) Name() string {
	return c.name
}

// State reports whether the channel is bound in the current snapshot.
func (c *Channel) State() State {
	if c.disabled {
		return StateDisabled
	}
	if c.manager.store.Current().indexOf(c) >= 0 {
		return StateBound
	}
	return StateUnbound
}

// GetStore returns the value bound in the current snapshot, or nil when the
// channel is unbound or disabled.
func (c *Channel) GetStore() any {
	v, _ := c.Lookup()
	return v
}

// Lookup is GetStore with an explicit presence flag, so a bound nil can be
// told apart from no binding.
func (c *Channel) Lookup() (any, bool) {
	if c.disabled {
		return nil, false
	}
	return c.manager.store.Current().lookup(c)
}

// EnterWith binds value for all subsequent code in the current continuation
// and re-enables a disabled channel.
func (c *Channel) EnterWith(value any) {
	c.disabled = false
	store := c.manager.store
	store.SetCurrent(store.Current().with(c, value))
}

// Disable removes the channel's slot from the current snapshot. GetStore
// reports no value until the next EnterWith or Run.
func (c *Channel) Disable() {
	c.disabled = true
	store := c.manager.store
	cur := store.Current()
	if i := cur.indexOf(c); i >= 0 {
		store.SetCurrent(cur.without(i))
	}
}

// Exit runs fn with the channel bound to no value.
func (c *Channel) Exit(fn Func, args ...any) (any, error) {
	return c.Run(nil, fn, args...)
}

// Run binds value for exactly the synchronous duration of fn. The previous
// binding, or its absence, is restored once fn returns, returns an error or
// panics. Only this channel's slot is restored; slots of other channels that
// fn changed are left as fn left them. Run re-enables a disabled channel; a
// Disable inside fn stays in effect after Run returns.
func (c *Channel) Run(value any, fn Func, args ...any) (any, error) {
	if fn == nil {
		return nil, notCallable("callback")
	}

	store := c.manager.store
	prev := store.Current()
	slot := prev.indexOf(c)
	var prevValue any
	hadPrev := slot >= 0 && !c.disabled
	if hadPrev {
		prevValue = prev.entries[slot].value
	}

	c.disabled = false
	installed := prev.with(c, value)
	store.SetCurrent(installed)
	if slot < 0 {
		slot = installed.Len() - 1
	}

	defer c.restore(installed, prev, slot, hadPrev, prevValue)
	return fn(args...)
}

func (c *Channel) restore(installed, prev *Snapshot, slot int, hadPrev bool, prevValue any) {
	store := c.manager.store
	cur := store.Current()

	// Nothing else moved: the pre-call snapshot is still exactly right.
	if cur == installed {
		store.SetCurrent(prev)
		return
	}

	i := cur.locate(c, slot)
	switch {
	case c.disabled:
		// Disabled inside fn: the slot stays removed.
		if i >= 0 {
			store.SetCurrent(cur.without(i))
		}
	case i >= 0 && hadPrev:
		store.SetCurrent(cur.replaceAt(i, prevValue))
	case i >= 0:
		store.SetCurrent(cur.without(i))
	case hadPrev:
		store.SetCurrent(cur.with(c, prevValue))
	}
}
