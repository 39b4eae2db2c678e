package bfield

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookup(t *testing.T, name string) *Type {
	typ, ok := Default().Lookup(name)
	require.True(t, ok, name)
	return typ
}

func TestNumbers(t *testing.T) {
	u32 := lookup(t, "UInt32")
	bs, err := u32.Encode(0x01020304, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte{4, 3, 2, 1}, bs)

	bs, err = u32.Big().Encode(0x01020304, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, bs)

	v, err := u32.Decode([]byte{4, 3, 2, 1})
	require.NoError(t, err)
	assert.Equal(t, int64(0x01020304), v)

	_, err = u32.Encode(-1, 4)
	assert.Error(t, err)
	_, err = u32.Decode([]byte{1, 2})
	assert.Error(t, err)

	u64 := lookup(t, "UInt64")
	v, err = u64.Decode([]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff})
	require.NoError(t, err)
	assert.Equal(t, ^uint64(0), v)

	f := lookup(t, "Float")
	bs, err = f.Encode(1.5, 4)
	require.NoError(t, err)
	v, err = f.Decode(bs)
	require.NoError(t, err)
	assert.Equal(t, 1.5, v)
}

func TestInt24(t *testing.T) {
	s24 := lookup(t, "SInt24")
	v, err := s24.Decode([]byte{0xff, 0xff, 0xff})
	require.NoError(t, err)
	assert.Equal(t, int64(-1), v)

	bs, err := s24.Big().Encode(-2, 3)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xff, 0xfe}, bs)

	u24 := lookup(t, "BUInt24")
	v, err = u24.Decode([]byte{0x01, 0x02, 0x03})
	require.NoError(t, err)
	assert.Equal(t, int64(0x010203), v)
}

func TestTimestamp(t *testing.T) {
	ts := lookup(t, "Timestamp")
	when := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
	bs, err := ts.Encode(when, 4)
	require.NoError(t, err)
	v, err := ts.Decode(bs)
	require.NoError(t, err)
	assert.True(t, when.Equal(v.(time.Time)))
}

func TestBitInts(t *testing.T) {
	unsigned := lookup(t, "BitUInt")
	twos := lookup(t, "BitSInt")
	ones := lookup(t, "Bit1SInt")

	raw := uint64(0b1110_0000)
	v, err := unsigned.DecodeBits(raw, 4, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(14), v)

	v, err = twos.DecodeBits(raw, 4, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(-2), v)

	v, err = ones.DecodeBits(raw, 4, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(-1), v)

	bits, err := twos.EncodeBits(-2, 4)
	require.NoError(t, err)
	assert.Equal(t, uint64(0b1110), bits)

	bits, err = ones.EncodeBits(-1, 4)
	require.NoError(t, err)
	assert.Equal(t, uint64(0b1110), bits)

	_, err = unsigned.EncodeBits(16, 4)
	assert.Error(t, err)
	_, err = twos.EncodeBits(8, 4)
	assert.Error(t, err)

	size, err := twos.SizeCalc(-3)
	require.NoError(t, err)
	assert.Equal(t, 3, size)
}

func TestBigInts(t *testing.T) {
	unsigned := lookup(t, "BigUInt")
	twos := lookup(t, "BigSInt")
	ones := lookup(t, "Big1SInt")

	v, err := unsigned.Decode(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, v.(*big.Int).Sign())

	v, err = twos.Decode([]byte{0xfe, 0xff, 0xff})
	require.NoError(t, err)
	assert.Equal(t, int64(-2), v.(*big.Int).Int64())

	v, err = ones.Decode([]byte{0xfe})
	require.NoError(t, err)
	assert.Equal(t, int64(-1), v.(*big.Int).Int64())

	bs, err := ones.Encode(-1, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xfe, 0xff}, bs)

	bs, err = twos.Big().Encode(-2, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xfe}, bs)

	_, err = unsigned.Encode(256, 1)
	assert.Error(t, err)

	size, err := twos.SizeCalc(128)
	require.NoError(t, err)
	assert.Equal(t, 2, size)
}

func TestStrings(t *testing.T) {
	str := lookup(t, "StrAscii")
	v, err := str.Decode([]byte("abc\x00\x00"))
	require.NoError(t, err)
	assert.Equal(t, "abc", v)

	bs, err := str.Encode("abc", 0)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc\x00"), bs)

	size, err := str.SizeCalc("abc")
	require.NoError(t, err)
	assert.Equal(t, 4, size)

	raw := lookup(t, "StrRawAscii")
	v, err = raw.Decode([]byte("ab\x00"))
	require.NoError(t, err)
	assert.Equal(t, "ab\x00", v)

	nnt := lookup(t, "StrNntLatin1")
	bs, err = nnt.Encode("é", 0)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xe9}, bs)

	utf16 := lookup(t, "BStrUtf16")
	bs, err = utf16.Encode("hi", 0)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 'h', 0, 'i', 0, 0}, bs)
	v, err = utf16.Decode(bs)
	require.NoError(t, err)
	assert.Equal(t, "hi", v)

	_, err = str.Decode([]byte{0xff})
	assert.Error(t, err)
}

func TestCString_Scan(t *testing.T) {
	cstr := lookup(t, "CStrAscii")
	valueLen, span, err := cstr.Scan([]byte("hello\x00world"))
	require.NoError(t, err)
	assert.Equal(t, 5, valueLen)
	assert.Equal(t, 6, span)

	_, _, err = cstr.Scan([]byte("no terminator"))
	assert.Error(t, err)

	wide := lookup(t, "CStrUtf16")
	// the zero bytes at 1..2 straddle a character boundary and do not count
	valueLen, span, err = wide.Scan([]byte{'a', 0, 0, 'b', 0, 0})
	require.NoError(t, err)
	assert.Equal(t, 4, valueLen)
	assert.Equal(t, 6, span)
}

func TestStrHex(t *testing.T) {
	hexType := lookup(t, "StrHex")
	bs, err := hexType.Encode("abc", 0)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x0a, 0xbc}, bs)
	v, err := hexType.Decode(bs)
	require.NoError(t, err)
	assert.Equal(t, "0abc", v)
}

func TestSubBlocks(t *testing.T) {
	subBlocks := lookup(t, "SubBlocks")
	data := make([]byte, 300)
	for i := range data {
		data[i] = byte(i)
	}
	encoded, err := subBlocks.Encode(data, 0)
	require.NoError(t, err)
	assert.Len(t, encoded, 1+255+1+45+1)

	valueLen, span, err := subBlocks.Scan(append(encoded, 0xaa))
	require.NoError(t, err)
	assert.Equal(t, len(encoded), valueLen)
	assert.Equal(t, len(encoded), span)

	decoded, err := subBlocks.Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, data, decoded)
}

func TestNumberArrays(t *testing.T) {
	u16s := lookup(t, "UInt16Array")
	bs, err := u16s.Encode([]any{1, 2, 3}, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 0, 2, 0, 3, 0}, bs)
	v, err := u16s.Decode(bs)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, v)

	_, err = u16s.Encode([]int64{70000}, 0)
	assert.Error(t, err)

	size, err := u16s.SizeCalc([]int64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, 4, size)
}

func TestNormalizeKey(t *testing.T) {
	assert.Equal(t, int64(3), NormalizeKey(3))
	assert.Equal(t, int64(3), NormalizeKey(uint64(3)))
	assert.Equal(t, int64(3), NormalizeKey(3.0))
	assert.Equal(t, "a", NormalizeKey("a"))
}
