package sandbox

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/jsruntime/internal/asynccontext"
)

func TestTextEncoderDecoder(t *testing.T) {
	rt := newTestRuntime(t, asynccontext.ModeEmbedder)

	tests := []struct {
		name   string
		script string
		want   interface{}
	}{
		{
			name:   "round trip",
			script: `new TextDecoder().decode(new TextEncoder().encode('hello'))`,
			want:   "hello",
		},
		{
			name:   "decode without input",
			script: `new TextDecoder().decode()`,
			want:   "",
		},
		{
			name:   "encode empty",
			script: `new TextEncoder().encode('').length`,
			want:   int64(0),
		},
		{
			name:   "encode multibyte",
			script: `Array.from(new TextEncoder().encode('€'))`,
			want:   []interface{}{int64(0xe2), int64(0x82), int64(0xac)},
		},
		{
			name:   "encoding names",
			script: `[new TextEncoder().encoding, new TextDecoder().encoding, new TextDecoder('latin1').encoding]`,
			want:   []interface{}{"utf-8", "utf-8", "windows-1252"},
		},
		{
			name: "encode into",
			script: `
				const dest = new Uint8Array(3);
				const r = new TextEncoder().encodeInto('héllo', dest);
				[r.read, r.written, Array.from(dest)]
			`,
			want: []interface{}{int64(2), int64(3), []interface{}{int64(104), int64(195), int64(169)}},
		},
		{
			name: "stream split code point",
			script: `
				const d = new TextDecoder();
				const b = new TextEncoder().encode('€');
				d.decode(b.subarray(0, 1), { stream: true }) + d.decode(b.subarray(1))
			`,
			want: "€",
		},
		{
			name:   "bom stripped",
			script: `new TextDecoder().decode(new Uint8Array([0xef, 0xbb, 0xbf, 0x68, 0x69]))`,
			want:   "hi",
		},
		{
			name:   "bom kept",
			script: `new TextDecoder('utf-8', { ignoreBOM: true }).decode(new Uint8Array([0xef, 0xbb, 0xbf, 0x68])).length`,
			want:   int64(2),
		},
		{
			name:   "replacement without fatal",
			script: `new TextDecoder().decode(new Uint8Array([0x61, 0xff, 0x62]))`,
			want:   "a�b",
		},
		{
			name:   "array buffer input",
			script: `new TextDecoder().decode(new TextEncoder().encode('buf').buffer)`,
			want:   "buf",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := rt.Execute(context.Background(), tt.script)
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.Value)
		})
	}
}

func TestTextDecoderErrors(t *testing.T) {
	rt := newTestRuntime(t, asynccontext.ModeEmbedder)

	value := evaluate(t, rt, `
		const errs = [];
		try { new TextDecoder('bogus'); } catch (e) { errs.push(e instanceof RangeError); }
		try {
			new TextDecoder('utf-8', { fatal: true }).decode(new Uint8Array([0xff]));
		} catch (e) {
			errs.push(e instanceof TypeError);
		}
		try { new TextEncoder().encodeInto('x', 5); } catch (e) { errs.push(e instanceof TypeError); }
		errs
	`)
	assert.Equal(t, []interface{}{true, true, true}, value)
}

func TestTextDecoderReleasesStreams(t *testing.T) {
	rt := newTestRuntime(t, asynccontext.ModeEmbedder)

	evaluate(t, rt, `
		const d = new TextDecoder();
		d.decode(new Uint8Array([0xe2]), { stream: true });
		d.decode(new Uint8Array([0x82, 0xac]));
	`)

	registry, ok := rt.ops.(interface{ OpenDecoders() int })
	require.True(t, ok)
	assert.Equal(t, 0, registry.OpenDecoders())
}

func TestScriptBufferLengthsAreChecked(t *testing.T) {
	config := DefaultConfig()
	config.MaxBufferBytes = 1024
	rt, err := New(config)
	require.NoError(t, err)
	defer rt.Close()

	value := evaluate(t, rt, `
		function rangeError(fn) {
			try { fn(); return false; } catch (e) { return e instanceof RangeError; }
		}
		[
			rangeError(() => new TextDecoder().decode({ length: -1 })),
			rangeError(() => new TextEncoder().encodeInto('a', { length: -1 })),
			rangeError(() => new TextDecoder().decode({ length: 1e12 })),
			rangeError(() => new TextEncoder().encodeInto('a', { length: 4096 })),
			new TextDecoder().decode({ length: 2, 0: 104, 1: 105 }),
			new TextEncoder().encodeInto('ab', new Uint8Array(4096)).written,
		]
	`)
	assert.Equal(t, []interface{}{true, true, true, true, "hi", int64(2)}, value)

	// the runtime is still usable afterwards
	result, err := rt.Execute(context.Background(), `1 + 1`)
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.Value)
}
