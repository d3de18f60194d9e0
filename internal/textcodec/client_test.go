package textcodec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncoderDecoderRoundTrip(t *testing.T) {
	r := NewRegistry()
	enc := NewEncoder(r)
	dec, err := NewDecoder(r, "utf-8", false, false)
	require.NoError(t, err)

	b, err := enc.Encode("hello")
	require.NoError(t, err)
	s, err := dec.Decode(b, false)
	require.NoError(t, err)
	assert.Equal(t, "hello", s)

	s, err = dec.Decode(nil, false)
	require.NoError(t, err)
	assert.Equal(t, "", s)

	b, err = enc.Encode("")
	require.NoError(t, err)
	assert.Len(t, b, 0)
	assert.Equal(t, "utf-8", enc.Encoding())
}

func TestEncoderEncodeInto(t *testing.T) {
	enc := NewEncoder(NewRegistry())
	dest := make([]byte, 2)

	res, err := enc.EncodeInto("abc", dest)
	require.NoError(t, err)
	assert.Equal(t, EncodeIntoResult{Read: 2, Written: 2}, res)
	assert.Equal(t, []byte("ab"), dest)
}

func TestDecoderStreamReleasesResource(t *testing.T) {
	r := NewRegistry()
	dec, err := NewDecoder(r, "UTF-8", true, false)
	require.NoError(t, err)
	assert.Equal(t, "utf-8", dec.Encoding())
	assert.True(t, dec.Fatal())
	assert.False(t, dec.IgnoreBOM())

	smile := []byte("😀!")
	var out string
	for i := range smile {
		s, err := dec.Decode(smile[i:i+1], true)
		require.NoError(t, err)
		out += s
	}
	assert.Equal(t, 1, r.OpenDecoders())

	s, err := dec.Decode(nil, false)
	require.NoError(t, err)
	assert.Equal(t, "😀!", out+s)
	assert.Equal(t, 0, r.OpenDecoders())
}

func TestDecoderStreamFatalReleasesResource(t *testing.T) {
	r := NewRegistry()
	dec, err := NewDecoder(r, "utf-8", true, false)
	require.NoError(t, err)

	_, err = dec.Decode([]byte{0xFF}, true)
	var opErr *OpError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, TypeError, opErr.Name)
	assert.Equal(t, 0, r.OpenDecoders())
}

func TestNewDecoderRejectsUnknownLabel(t *testing.T) {
	_, err := NewDecoder(NewRegistry(), "klingon", false, false)
	var opErr *OpError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, RangeError, opErr.Name)
	assert.Contains(t, opErr.Message, "klingon")
}
