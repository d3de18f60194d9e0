package textcodec

import "fmt"

// Encoder is a UTF-8 TextEncoder that forwards to a Dispatcher.
type Encoder struct {
	ops Dispatcher
}

// NewEncoder creates an encoder over ops.
func NewEncoder(ops Dispatcher) *Encoder {
	return &Encoder{ops: ops}
}

// Encoding always reports utf-8.
func (e *Encoder) Encoding() string { return defaultEncoding }

// Encode returns the UTF-8 bytes of input.
func (e *Encoder) Encode(input string) ([]byte, error) {
	res, err := e.ops.PerformOp(OpEncode, input)
	if err != nil {
		return nil, err
	}
	return resultAs[[]byte](OpEncode, res)
}

// EncodeInto writes as much of input as fits into dest.
func (e *Encoder) EncodeInto(input string, dest []byte) (EncodeIntoResult, error) {
	res, err := e.ops.PerformOp(OpEncodeInto, input, dest)
	if err != nil {
		return EncodeIntoResult{}, err
	}
	return resultAs[EncodeIntoResult](OpEncodeInto, res)
}

// Decoder is a TextDecoder that forwards to a Dispatcher. Streaming decodes
// allocate a decoder resource on the dispatch surface and release it when the
// stream is flushed.
type Decoder struct {
	ops       Dispatcher
	encoding  string
	fatal     bool
	ignoreBOM bool
	streamID  string
}

// NewDecoder normalises label and creates a decoder. Unknown labels fail with
// a RangeError.
func NewDecoder(ops Dispatcher, label string, fatal, ignoreBOM bool) (*Decoder, error) {
	res, err := ops.PerformOp(OpNormalizeLabel, label)
	if err != nil {
		return nil, err
	}
	name, err := resultAs[string](OpNormalizeLabel, res)
	if err != nil {
		return nil, err
	}
	return &Decoder{
		ops:       ops,
		encoding:  name,
		fatal:     fatal,
		ignoreBOM: ignoreBOM,
	}, nil
}

// Encoding returns the canonical encoding name.
func (d *Decoder) Encoding() string { return d.encoding }

// Fatal reports whether malformed input fails instead of being replaced.
func (d *Decoder) Fatal() bool { return d.fatal }

// IgnoreBOM reports whether a leading byte order mark is kept.
func (d *Decoder) IgnoreBOM() bool { return d.ignoreBOM }

// Decode decodes input. With stream set, a trailing partial sequence is held
// back until the next call.
func (d *Decoder) Decode(input []byte, stream bool) (string, error) {
	if !stream && d.streamID == "" {
		res, err := d.ops.PerformOp(OpDecode, DecodeArgs{
			Bytes:     input,
			Encoding:  d.encoding,
			Fatal:     d.fatal,
			IgnoreBOM: d.ignoreBOM,
		})
		if err != nil {
			return "", err
		}
		return resultAs[string](OpDecode, res)
	}

	if d.streamID == "" {
		res, err := d.ops.PerformOp(OpNewDecoder, DecoderOptions{
			Encoding:  d.encoding,
			Fatal:     d.fatal,
			IgnoreBOM: d.ignoreBOM,
		})
		if err != nil {
			return "", err
		}
		if d.streamID, err = resultAs[string](OpNewDecoder, res); err != nil {
			return "", err
		}
	}

	res, err := d.ops.PerformOp(OpDecodeStream, StreamArgs{
		DecoderID: d.streamID,
		Bytes:     input,
		Stream:    stream,
	})
	if err != nil || !stream {
		d.release()
	}
	if err != nil {
		return "", err
	}
	return resultAs[string](OpDecodeStream, res)
}

func (d *Decoder) release() {
	if d.streamID == "" {
		return
	}
	_, _ = d.ops.PerformOp(OpCleanupDecoder, d.streamID)
	d.streamID = ""
}

func resultAs[T any](op string, res any) (T, error) {
	v, ok := res.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("op %s returned %T", op, res)
	}
	return v, nil
}
