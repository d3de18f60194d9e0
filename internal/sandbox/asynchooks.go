package sandbox

import (
	"github.com/dop251/goja"

	"github.com/GriffinCanCode/jsruntime/internal/asynccontext"
)

// newAsyncHooksModule builds the object returned by require("node:async_hooks").
func (r *Runtime) newAsyncHooksModule() *goja.Object {
	mod := r.vm.NewObject()

	mod.Set("AsyncLocalStorage", r.asyncLocalStorageClass())
	mod.Set("AsyncResource", r.asyncResourceClass())

	mod.Set("executionAsyncId", func(goja.FunctionCall) goja.Value {
		return r.vm.ToValue(r.contexts.ExecutionAsyncID())
	})
	mod.Set("triggerAsyncId", func(goja.FunctionCall) goja.Value {
		return r.vm.ToValue(r.contexts.TriggerAsyncID())
	})
	topLevel := r.vm.NewObject()
	mod.Set("executionAsyncResource", func(goja.FunctionCall) goja.Value {
		return topLevel
	})
	mod.Set("createHook", func(call goja.FunctionCall) goja.Value {
		hook := r.contexts.CreateHook(r.hookCallbacks(call.Argument(0)))
		obj := r.vm.NewObject()
		obj.Set("enable", func(goja.FunctionCall) goja.Value {
			hook.Enable()
			return obj
		})
		obj.Set("disable", func(goja.FunctionCall) goja.Value {
			hook.Disable()
			return obj
		})
		return obj
	})

	providers := r.vm.NewObject()
	for name, kind := range asynccontext.Providers {
		providers.Set(name, kind)
	}
	mod.Set("asyncWrapProviders", providers)
	return mod
}

// hookCallbacks reads the createHook argument. Absent callbacks stay nil; a
// present one that is not a function is a TypeError.
func (r *Runtime) hookCallbacks(v goja.Value) asynccontext.HookCallbacks {
	var cb asynccontext.HookCallbacks
	opts, ok := v.(*goja.Object)
	if !ok {
		return cb
	}
	field := func(name string) asynccontext.Func {
		fv := opts.Get(name)
		if fv == nil || goja.IsUndefined(fv) {
			return nil
		}
		return r.asFunc(r.callable(fv, "hook."+name))
	}
	cb.Init = field("init")
	cb.Before = field("before")
	cb.After = field("after")
	cb.Destroy = field("destroy")
	cb.PromiseResolve = field("promiseResolve")
	return cb
}

func (r *Runtime) asyncLocalStorageClass() *goja.Object {
	ctor := r.vm.ToValue(func(call goja.ConstructorCall) *goja.Object {
		ch := r.contexts.NewChannel("AsyncLocalStorage")
		obj := call.This

		obj.Set("getStore", func(goja.FunctionCall) goja.Value {
			return r.jsValue(ch.GetStore())
		})
		obj.Set("enterWith", func(call goja.FunctionCall) goja.Value {
			ch.EnterWith(call.Argument(0))
			return goja.Undefined()
		})
		obj.Set("disable", func(goja.FunctionCall) goja.Value {
			ch.Disable()
			return goja.Undefined()
		})
		obj.Set("run", func(call goja.FunctionCall) goja.Value {
			fn := r.callable(call.Argument(1), "callback")
			return r.result(ch.Run(call.Argument(0), r.asFunc(fn), anyValues(restArgs(call.Arguments, 2))...))
		})
		obj.Set("exit", func(call goja.FunctionCall) goja.Value {
			fn := r.callable(call.Argument(0), "callback")
			return r.result(ch.Exit(r.asFunc(fn), anyValues(restArgs(call.Arguments, 1))...))
		})
		return nil
	}).(*goja.Object)

	ctor.Set("bind", func(call goja.FunctionCall) goja.Value {
		fn := r.callable(call.Argument(0), "fn")
		bound, err := r.contexts.Bind(r.asFunc(fn), anyValues(restArgs(call.Arguments, 1))...)
		if err != nil {
			r.throw(err)
		}
		return r.vm.ToValue(func(call goja.FunctionCall) goja.Value {
			return r.result(bound(anyValues(call.Arguments)...))
		})
	})
	ctor.Set("snapshot", func(goja.FunctionCall) goja.Value {
		run := r.contexts.Snapshot()
		return r.vm.ToValue(func(call goja.FunctionCall) goja.Value {
			fn := r.callable(call.Argument(0), "fn")
			return r.result(run(r.asFunc(fn), anyValues(restArgs(call.Arguments, 1))...))
		})
	})
	return ctor
}

func (r *Runtime) asyncResourceClass() *goja.Object {
	ctor := r.vm.ToValue(func(call goja.ConstructorCall) *goja.Object {
		typ := call.Argument(0)
		if goja.IsUndefined(typ) || goja.IsNull(typ) {
			panic(r.vm.NewTypeError("The \"type\" argument must be of type string"))
		}
		res := r.contexts.NewResource(typ.String())
		r.decorateResource(call.This, res)
		return nil
	}).(*goja.Object)

	ctor.Set("bind", func(call goja.FunctionCall) goja.Value {
		fn := r.callable(call.Argument(0), "fn")
		typ := ""
		if t := call.Argument(1); !goja.IsUndefined(t) && !goja.IsNull(t) {
			typ = t.String()
		}
		bound, err := r.contexts.BindResource(r.asThisFunc(fn), typ, call.Argument(2))
		if err != nil {
			r.throw(err)
		}
		return r.vm.ToValue(func(call goja.FunctionCall) goja.Value {
			return r.result(bound(anyValues(call.Arguments)...))
		})
	})
	return ctor
}

func (r *Runtime) decorateResource(obj *goja.Object, res *asynccontext.Resource) {
	obj.Set("type", res.Type())
	obj.Set("runInAsyncScope", func(call goja.FunctionCall) goja.Value {
		fn := r.callable(call.Argument(0), "fn")
		return r.result(res.RunInAsyncScope(r.asThisFunc(fn), call.Argument(1), anyValues(restArgs(call.Arguments, 2))...))
	})
	obj.Set("bind", func(call goja.FunctionCall) goja.Value {
		fn := r.callable(call.Argument(0), "fn")
		thisArg := call.Argument(1)
		wrapper := r.vm.ToValue(func(inner goja.FunctionCall) goja.Value {
			this := goja.Value(thisArg)
			if goja.IsUndefined(this) {
				this = inner.This
			}
			return r.result(res.RunInAsyncScope(r.asThisFunc(fn), this, anyValues(inner.Arguments)...))
		}).(*goja.Object)
		wrapper.Set("asyncResource", obj)
		return wrapper
	})
	obj.Set("emitBefore", func(goja.FunctionCall) goja.Value {
		res.EmitBefore()
		return obj
	})
	obj.Set("emitAfter", func(goja.FunctionCall) goja.Value {
		res.EmitAfter()
		return obj
	})
	obj.Set("emitDestroy", func(goja.FunctionCall) goja.Value {
		res.EmitDestroy()
		return obj
	})
	obj.Set("asyncId", func(goja.FunctionCall) goja.Value {
		return r.vm.ToValue(res.AsyncID())
	})
	obj.Set("triggerAsyncId", func(goja.FunctionCall) goja.Value {
		return r.vm.ToValue(res.TriggerAsyncID())
	})
}
