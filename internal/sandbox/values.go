package sandbox

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/dop251/goja"

	"github.com/GriffinCanCode/jsruntime/internal/asynccontext"
	"github.com/GriffinCanCode/jsruntime/internal/textcodec"
)

// throw converts a Go error into a JS exception and panics with it, which is
// how goja native functions raise. JS exceptions pass through unchanged.
func (r *Runtime) throw(err error) {
	var ex *goja.Exception
	if errors.As(err, &ex) {
		panic(ex.Value())
	}
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		// re-arm so the interrupt stays uncatchable
		r.vm.Interrupt(interrupted.Value())
	}
	var opErr *textcodec.OpError
	if errors.As(err, &opErr) {
		panic(r.newError(opErr.Name, opErr.Message))
	}
	var typeErr *asynccontext.TypeError
	if errors.As(err, &typeErr) {
		panic(r.vm.NewTypeError(err.Error()))
	}
	panic(r.vm.NewGoError(err))
}

// newError constructs a JS error of the named global class, falling back to
// Error for unknown names.
func (r *Runtime) newError(name, message string) *goja.Object {
	ctor := r.vm.Get(name)
	if _, ok := goja.AssertConstructor(ctor); !ok {
		ctor = r.vm.Get("Error")
	}
	obj, err := r.vm.New(ctor, r.vm.ToValue(message))
	if err != nil {
		return r.vm.NewGoError(err)
	}
	return obj
}

// callable asserts v is a function, throwing a TypeError otherwise.
func (r *Runtime) callable(v goja.Value, arg string) goja.Callable {
	fn, ok := goja.AssertFunction(v)
	if !ok {
		panic(r.vm.NewTypeError("The \"" + arg + "\" argument must be of type function"))
	}
	return fn
}

// jsValue converts a value held in a snapshot back to a JS value.
func (r *Runtime) jsValue(v any) goja.Value {
	switch x := v.(type) {
	case nil:
		return goja.Undefined()
	case goja.Value:
		return x
	default:
		return r.vm.ToValue(x)
	}
}

func (r *Runtime) jsValues(args []any) []goja.Value {
	out := make([]goja.Value, len(args))
	for i, a := range args {
		out[i] = r.jsValue(a)
	}
	return out
}

func anyValues(args []goja.Value) []any {
	out := make([]any, len(args))
	for i, a := range args {
		out[i] = a
	}
	return out
}

func restArgs(args []goja.Value, from int) []goja.Value {
	if len(args) <= from {
		return nil
	}
	return args[from:]
}

// asFunc adapts a JS callable to a context callback invoked with undefined as
// receiver.
func (r *Runtime) asFunc(fn goja.Callable) asynccontext.Func {
	return func(args ...any) (any, error) {
		return fn(goja.Undefined(), r.jsValues(args)...)
	}
}

func (r *Runtime) asThisFunc(fn goja.Callable) asynccontext.ThisFunc {
	return func(this any, args ...any) (any, error) {
		return fn(r.jsValue(this), r.jsValues(args)...)
	}
}

// result turns a callback outcome into the native function's return value.
func (r *Runtime) result(v any, err error) goja.Value {
	if err != nil {
		r.throw(err)
	}
	return r.jsValue(v)
}

// bytesFrom reads an ArrayBuffer, typed array or array-like as bytes.
func (r *Runtime) bytesFrom(v goja.Value) []byte {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	switch x := v.Export().(type) {
	case []byte:
		return x
	case goja.ArrayBuffer:
		return x.Bytes()
	}
	obj := v.ToObject(r.vm)
	n := r.bufferLength(obj.Get("length"), "input")
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		out[i] = byte(obj.Get(strconv.Itoa(i)).ToInteger())
	}
	return out
}

// bufferLength checks a script-supplied length before anything is allocated
// for it.
func (r *Runtime) bufferLength(v goja.Value, arg string) int {
	if v == nil || goja.IsUndefined(v) {
		return 0
	}
	limit := r.config.MaxBufferBytes
	if limit <= 0 {
		limit = DefaultMaxBufferBytes
	}
	n := v.ToInteger()
	if n < 0 || n > int64(limit) {
		panic(r.newError("RangeError", fmt.Sprintf("The \"%s\" length must be between 0 and %d, received %s", arg, limit, v.String())))
	}
	return int(n)
}

// byteLength reports how many bytes dest can hold. Typed arrays report their
// own size; other array-likes go through bufferLength.
func (r *Runtime) byteLength(dest *goja.Object, arg string) int {
	if b, ok := dest.Export().([]byte); ok {
		return len(b)
	}
	return r.bufferLength(dest.Get("length"), arg)
}

func (r *Runtime) newUint8Array(b []byte) goja.Value {
	buf := r.vm.NewArrayBuffer(b)
	obj, err := r.vm.New(r.vm.Get("Uint8Array"), r.vm.ToValue(buf))
	if err != nil {
		r.throw(err)
	}
	return obj
}
