package ber

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegerRoundTrip(t *testing.T) {
	for _, v := range []int64{0, 1, 127, 128, 255, 256, 32767, 32768, -1, -128, -129, 2147483647} {
		enc := EncodeInteger(v)
		elem, rest, err := DecodeTLV(enc)
		require.NoError(t, err)
		assert.Empty(t, rest)
		assert.Equal(t, TagInteger, elem.Tag)
		got, err := DecodeInteger(elem.Content)
		require.NoError(t, err)
		assert.Equal(t, v, got, "value %d", v)
	}
}

func TestUnsignedRoundTrip(t *testing.T) {
	for _, v := range []uint64{0, 1, 255, 256, 1<<32 - 1, 1 << 40} {
		enc := EncodeUnsignedApp(TagCounter64, v)
		elem, _, err := DecodeTLV(enc)
		require.NoError(t, err)
		assert.Equal(t, TagCounter64, elem.Tag)
		got, err := DecodeUnsigned(elem.Content)
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
}

func TestOIDRoundTrip(t *testing.T) {
	cases := []string{
		"1.3.6.1.4.1.99999.1.1.1.0",
		"1.3.6.1.2.1.1.3.0",
		"0.0",
		"2.999.1",
	}
	for _, oid := range cases {
		enc, err := EncodeOID(oid)
		require.NoError(t, err)
		elem, rest, err := DecodeTLV(enc)
		require.NoError(t, err)
		assert.Empty(t, rest)
		assert.Equal(t, TagOID, elem.Tag)
		got, err := DecodeOID(elem.Content)
		require.NoError(t, err)
		assert.Equal(t, oid, got)
	}
}

func TestOctetStringAndNull(t *testing.T) {
	enc := EncodeOctetString("public")
	elem, _, err := DecodeTLV(enc)
	require.NoError(t, err)
	assert.Equal(t, TagOctetString, elem.Tag)
	assert.Equal(t, "public", string(elem.Content))

	enc = EncodeNull()
	elem, _, err = DecodeTLV(enc)
	require.NoError(t, err)
	assert.Equal(t, TagNull, elem.Tag)
	assert.Empty(t, elem.Content)
}

func TestEncodeSequenceAndDecodeNested(t *testing.T) {
	inner := EncodeSequence(TagSequence, EncodeInteger(1), EncodeOctetString("x"))
	outer := EncodeSequence(TagSequence, inner, EncodeInteger(2))

	elem, rest, err := DecodeTLV(outer)
	require.NoError(t, err)
	assert.Empty(t, rest)
	assert.Equal(t, TagSequence, elem.Tag)

	innerElem, innerRest, err := DecodeTLV(elem.Content)
	require.NoError(t, err)
	assert.Equal(t, TagSequence, innerElem.Tag)

	intElem, intRest, err := DecodeTLV(innerElem.Content)
	require.NoError(t, err)
	v, err := DecodeInteger(intElem.Content)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	strElem, strRest, err := DecodeTLV(intRest)
	require.NoError(t, err)
	assert.Equal(t, "x", string(strElem.Content))
	assert.Empty(t, strRest)

	lastElem, lastRest, err := DecodeTLV(innerRest)
	require.NoError(t, err)
	v2, err := DecodeInteger(lastElem.Content)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v2)
	assert.Empty(t, lastRest)
}

func TestDecodeTLVTruncated(t *testing.T) {
	_, _, err := DecodeTLV([]byte{0x02})
	assert.Error(t, err)

	_, _, err = DecodeTLV([]byte{0x02, 0x05, 0x01})
	assert.Error(t, err)
}
