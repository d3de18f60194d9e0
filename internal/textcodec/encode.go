package textcodec

import "unicode/utf8"

// EncodeIntoResult reports how much of the input was consumed, in UTF-16 code
// units, and how many bytes were written to the destination.
type EncodeIntoResult struct {
	Read    int `json:"read"`
	Written int `json:"written"`
}

func opEncode(args ...any) (any, error) {
	input, err := argAt[string](args, 0, "input")
	if err != nil {
		return nil, err
	}
	return []byte(input), nil
}

func opEncodeInto(args ...any) (any, error) {
	input, err := argAt[string](args, 0, "input")
	if err != nil {
		return nil, err
	}
	dest, err := argAt[[]byte](args, 1, "dest")
	if err != nil {
		return nil, err
	}
	return encodeInto(input, dest), nil
}

// encodeInto writes whole code points only; a code point that does not fit
// stops the copy.
func encodeInto(input string, dest []byte) EncodeIntoResult {
	var res EncodeIntoResult
	for _, r := range input {
		size := utf8.RuneLen(r)
		if size < 0 {
			r, size = utf8.RuneError, 3
		}
		if res.Written+size > len(dest) {
			break
		}
		utf8.EncodeRune(dest[res.Written:], r)
		res.Written += size
		if r > 0xFFFF {
			res.Read += 2
		} else {
			res.Read++
		}
	}
	return res
}
