package sandbox

import (
	"strconv"

	"github.com/dop251/goja"

	"github.com/GriffinCanCode/jsruntime/internal/textcodec"
)

// installEncoding defines TextEncoder and TextDecoder over the dispatch
// surface.
func (r *Runtime) installEncoding() {
	encoder := textcodec.NewEncoder(r.ops)

	r.vm.Set("TextEncoder", func(call goja.ConstructorCall) *goja.Object {
		obj := call.This
		obj.Set("encoding", encoder.Encoding())
		obj.Set("encode", func(call goja.FunctionCall) goja.Value {
			input := ""
			if v := call.Argument(0); !goja.IsUndefined(v) {
				input = v.String()
			}
			b, err := encoder.Encode(input)
			if err != nil {
				r.throw(err)
			}
			return r.newUint8Array(b)
		})
		obj.Set("encodeInto", func(call goja.FunctionCall) goja.Value {
			input := call.Argument(0).String()
			dest, ok := call.Argument(1).(*goja.Object)
			if !ok {
				panic(r.vm.NewTypeError("The \"dest\" argument must be an instance of Uint8Array"))
			}
			buf := make([]byte, r.byteLength(dest, "dest"))
			res, err := encoder.EncodeInto(input, buf)
			if err != nil {
				r.throw(err)
			}
			for i := 0; i < res.Written; i++ {
				dest.Set(strconv.Itoa(i), buf[i])
			}
			out := r.vm.NewObject()
			out.Set("read", res.Read)
			out.Set("written", res.Written)
			return out
		})
		return nil
	})

	r.vm.Set("TextDecoder", func(call goja.ConstructorCall) *goja.Object {
		label := "utf-8"
		if v := call.Argument(0); !goja.IsUndefined(v) {
			label = v.String()
		}
		var fatal, ignoreBOM bool
		if opts, ok := call.Argument(1).(*goja.Object); ok {
			fatal = opts.Get("fatal") != nil && opts.Get("fatal").ToBoolean()
			ignoreBOM = opts.Get("ignoreBOM") != nil && opts.Get("ignoreBOM").ToBoolean()
		}
		dec, err := textcodec.NewDecoder(r.ops, label, fatal, ignoreBOM)
		if err != nil {
			r.throw(err)
		}

		obj := call.This
		obj.Set("encoding", dec.Encoding())
		obj.Set("fatal", dec.Fatal())
		obj.Set("ignoreBOM", dec.IgnoreBOM())
		obj.Set("decode", func(call goja.FunctionCall) goja.Value {
			stream := false
			if opts, ok := call.Argument(1).(*goja.Object); ok {
				if v := opts.Get("stream"); v != nil {
					stream = v.ToBoolean()
				}
			}
			s, err := dec.Decode(r.bytesFrom(call.Argument(0)), stream)
			if err != nil {
				r.throw(err)
			}
			return r.vm.ToValue(s)
		})
		return nil
	})
}
