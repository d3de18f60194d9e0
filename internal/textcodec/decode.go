package textcodec

import (
	"bytes"
	"errors"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const defaultEncoding = "utf-8"

var replacementUTF8 = []byte(string(utf8.RuneError))

// DecodeArgs are the arguments of textEncoder/decode.
type DecodeArgs struct {
	Bytes     []byte `json:"bytes"`
	Encoding  string `json:"encoding"`
	Fatal     bool   `json:"fatal"`
	IgnoreBOM bool   `json:"ignoreBOM"`
}

// DecoderOptions are the arguments of textEncoder/newDecoder.
type DecoderOptions struct {
	Encoding  string
	Fatal     bool
	IgnoreBOM bool
}

// StreamArgs are the arguments of textEncoder/decodeStream. Stream reports
// whether more input follows; false flushes any buffered partial sequence.
type StreamArgs struct {
	DecoderID string
	Bytes     []byte
	Stream    bool
}

func opNormalizeLabel(args ...any) (any, error) {
	label, err := argAt[string](args, 0, "label")
	if err != nil {
		return nil, err
	}
	name, _, err := lookupEncoding(label)
	if err != nil {
		return nil, err
	}
	return name, nil
}

func opDecode(args ...any) (any, error) {
	da, err := argAt[DecodeArgs](args, 0, "args")
	if err != nil {
		return nil, err
	}
	dec, err := newStreamDecoder(DecoderOptions{
		Encoding:  da.Encoding,
		Fatal:     da.Fatal,
		IgnoreBOM: da.IgnoreBOM,
	})
	if err != nil {
		return nil, err
	}
	return dec.decode(da.Bytes, true)
}

// lookupEncoding resolves a WHATWG label to its canonical name.
func lookupEncoding(label string) (string, encoding.Encoding, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		label = defaultEncoding
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return "", nil, rangeErrorf("The encoding label provided ('%s') is invalid.", label)
	}
	name, err := htmlindex.Name(enc)
	if err != nil || name == "replacement" {
		return "", nil, rangeErrorf("The encoding label provided ('%s') is invalid.", label)
	}
	return strings.ToLower(name), enc, nil
}

type streamDecoder struct {
	encoding string
	fatal    bool
	base     encoding.Encoding
	t        transform.Transformer
	pending  []byte
}

func newStreamDecoder(opts DecoderOptions) (*streamDecoder, error) {
	name, enc, err := lookupEncoding(opts.Encoding)
	if err != nil {
		return nil, err
	}
	base := enc
	if !opts.IgnoreBOM {
		switch name {
		case "utf-8":
			enc = unicode.UTF8BOM
		case "utf-16le":
			enc = unicode.UTF16(unicode.LittleEndian, unicode.UseBOM)
		case "utf-16be":
			enc = unicode.UTF16(unicode.BigEndian, unicode.UseBOM)
		}
	}
	return &streamDecoder{
		encoding: name,
		fatal:    opts.Fatal,
		base:     base,
		t:        enc.NewDecoder(),
	}, nil
}

// decode converts chunk, keeping an incomplete trailing sequence buffered
// until the next call unless atEOF is set.
func (d *streamDecoder) decode(chunk []byte, atEOF bool) (string, error) {
	src := make([]byte, 0, len(d.pending)+len(chunk))
	src = append(append(src, d.pending...), chunk...)
	d.pending = nil

	if d.fatal && d.encoding == "utf-8" {
		complete := src
		if !atEOF {
			complete = src[:len(src)-incompleteTail(src)]
		}
		if !utf8.Valid(complete) {
			d.t.Reset()
			return "", typeErrorf("The encoded data was not valid for encoding %s", d.encoding)
		}
	}

	input := src
	var out bytes.Buffer
	dst := make([]byte, 3*len(src)+utf8.UTFMax)
	for {
		nDst, nSrc, err := d.t.Transform(dst, src, atEOF)
		out.Write(dst[:nDst])
		src = src[nSrc:]

		switch {
		case err == nil:
		case errors.Is(err, transform.ErrShortDst):
			if nDst == 0 && nSrc == 0 {
				dst = make([]byte, 2*len(dst))
			}
			continue
		case errors.Is(err, transform.ErrShortSrc):
			d.pending = append([]byte(nil), src...)
		default:
			d.t.Reset()
			return "", typeErrorf("The encoded data was not valid for encoding %s", d.encoding)
		}
		break
	}

	if d.fatal && d.encoding != "utf-8" && d.replaced(input[:len(input)-len(d.pending)], out.Bytes()) {
		d.t.Reset()
		d.pending = nil
		return "", typeErrorf("The encoded data was not valid for encoding %s", d.encoding)
	}

	if atEOF {
		d.t.Reset()
		d.pending = nil
	}
	return out.String(), nil
}

// replaced reports whether out holds U+FFFD the decoder substituted for
// malformed input, as opposed to U+FFFD spelled out in consumed.
func (d *streamDecoder) replaced(consumed, out []byte) bool {
	n := bytes.Count(out, replacementUTF8)
	if n == 0 {
		return false
	}
	literal, err := d.base.NewEncoder().Bytes(replacementUTF8)
	if err != nil || len(literal) == 0 {
		// U+FFFD has no spelling in this encoding
		return true
	}
	return n > bytes.Count(consumed, literal)
}

// incompleteTail returns the length of a trailing, not yet complete UTF-8
// sequence in b.
func incompleteTail(b []byte) int {
	for i := len(b) - 1; i >= 0 && i > len(b)-utf8.UTFMax; i-- {
		if utf8.RuneStart(b[i]) {
			if utf8.FullRune(b[i:]) {
				return 0
			}
			return len(b) - i
		}
	}
	return 0
}
