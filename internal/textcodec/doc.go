// Package textcodec implements the synchronous text-encoding dispatch surface
// used by the sandbox's TextEncoder and TextDecoder globals.
//
// Requests are keyed by string opcode names:
//
//	textEncoder/encode          (input string)              -> []byte
//	textEncoder/encodeInto      (input string, dest []byte) -> EncodeIntoResult
//	textEncoder/decode          (DecodeArgs)                -> string
//	textEncoder/normalizeLabel  (label string)              -> string
//	textEncoder/newDecoder      (DecoderOptions)            -> string (decoder id)
//	textEncoder/decodeStream    (StreamArgs)                -> string
//	textEncoder/cleanupDecoder  (decoder id string)         -> nil
//
// Failures are reported as *OpError values carrying a JS error name and
// message; callers rethrow them unchanged.
package textcodec
