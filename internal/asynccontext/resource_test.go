package asynccontext

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(...any) (any, error) { return nil, nil }

func TestResourceObservesCreationContext(t *testing.T) {
	m := NewManager(nil)
	r := m.NewChannel("request")

	var captured *Resource
	_, err := r.Run("req-1", func(...any) (any, error) {
		captured = m.NewResource("REQUEST")
		return nil, nil
	})
	require.NoError(t, err)

	_, err = r.Run("req-2", noop)
	require.NoError(t, err)

	got, err := captured.RunInAsyncScope(func(this any, args ...any) (any, error) {
		return r.GetStore(), nil
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "req-1", got)
	assert.Equal(t, "REQUEST", captured.Type())
	assert.Nil(t, r.GetStore())
}

func TestRunInAsyncScopeRestoresCallerSnapshot(t *testing.T) {
	m := NewManager(nil)
	c := m.NewChannel("c")
	res := m.NewResource("T")

	c.EnterWith("after-construction")
	boom := errors.New("boom")

	_, err := res.RunInAsyncScope(func(any, ...any) (any, error) {
		assert.Nil(t, c.GetStore())
		c.EnterWith("leaked")
		return nil, boom
	}, nil)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "after-construction", c.GetStore())
}

func TestRunInAsyncScopePassesThisAndArgs(t *testing.T) {
	m := NewManager(nil)
	res := m.NewResource("T")

	got, err := res.RunInAsyncScope(func(this any, args ...any) (any, error) {
		return []any{this, args}, nil
	}, "self", 1, 2)
	require.NoError(t, err)
	assert.Equal(t, []any{"self", []any{1, 2}}, got)
}

func TestResourceBind(t *testing.T) {
	m := NewManager(nil)
	c := m.NewChannel("c")
	c.EnterWith("bound")
	res := m.NewResource("T")

	fn, err := res.Bind(func(this any, args ...any) (any, error) {
		return []any{this, c.GetStore(), args}, nil
	}, "self")
	require.NoError(t, err)

	c.EnterWith("changed")
	got, err := fn("x")
	require.NoError(t, err)
	assert.Equal(t, []any{"self", "bound", []any{"x"}}, got)
	assert.Equal(t, "changed", c.GetStore())

	_, err = res.Bind(nil, nil)
	assert.ErrorIs(t, err, ErrNotCallable)
	_, err = res.RunInAsyncScope(nil, nil)
	assert.ErrorIs(t, err, ErrNotCallable)
}

func TestStaticBindResource(t *testing.T) {
	m := NewManager(nil)
	c := m.NewChannel("c")
	c.EnterWith("at-bind")

	fn, err := m.BindResource(func(this any, args ...any) (any, error) {
		return c.GetStore(), nil
	}, "", nil)
	require.NoError(t, err)

	c.EnterWith("later")
	got, err := fn()
	require.NoError(t, err)
	assert.Equal(t, "at-bind", got)

	_, err = m.BindResource(nil, "", nil)
	assert.ErrorIs(t, err, ErrNotCallable)
}

func TestManagerBind(t *testing.T) {
	m := NewManager(nil)
	c := m.NewChannel("c")

	var bound Func
	_, err := c.Run("at-bind", func(...any) (any, error) {
		var err error
		bound, err = m.Bind(func(args ...any) (any, error) {
			return []any{c.GetStore(), args}, nil
		}, "first")
		return nil, err
	})
	require.NoError(t, err)

	c.EnterWith("later")
	got, err := bound("second")
	require.NoError(t, err)
	assert.Equal(t, []any{"at-bind", []any{"first", "second"}}, got)
	assert.Equal(t, "later", c.GetStore())
}

func TestManagerSnapshot(t *testing.T) {
	m := NewManager(nil)
	c := m.NewChannel("c")
	c.EnterWith("captured")
	run := m.Snapshot()
	c.EnterWith("later")

	got, err := run(func(args ...any) (any, error) {
		return []any{c.GetStore(), args}, nil
	}, 1)
	require.NoError(t, err)
	assert.Equal(t, []any{"captured", []any{1}}, got)
	assert.Equal(t, "later", c.GetStore())

	got, err = run(getter(c))
	require.NoError(t, err)
	assert.Equal(t, "captured", got, "snapshot runners are reusable")

	_, err = run(nil)
	assert.ErrorIs(t, err, ErrNotCallable)
}

func TestCompatibilityStubs(t *testing.T) {
	m := NewManager(nil)
	res := m.NewResource("T")

	assert.Same(t, res, res.EmitBefore().EmitAfter().EmitDestroy())
	assert.Equal(t, DefaultAsyncID, res.AsyncID())
	assert.Equal(t, DefaultAsyncID, res.TriggerAsyncID())
	assert.Equal(t, DefaultAsyncID, m.ExecutionAsyncID())
	assert.Equal(t, DefaultAsyncID, m.TriggerAsyncID())
	assert.Equal(t, "TOPLEVEL", m.ExecutionAsyncResource().Type())

	onInit := func(...any) (any, error) { return nil, nil }
	hook := m.CreateHook(HookCallbacks{Init: onInit})
	assert.False(t, hook.Enabled())
	assert.Same(t, hook, hook.Enable())
	assert.True(t, hook.Enabled())
	assert.Same(t, hook, hook.Disable())
	assert.False(t, hook.Enabled())
	assert.NotNil(t, hook.Callbacks().Init)
	assert.Nil(t, hook.Callbacks().Destroy)

	assert.Equal(t, 26, Providers["PROMISE"])
	assert.Equal(t, 0, Providers["NONE"])
}
