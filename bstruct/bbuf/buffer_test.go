package bbuf

import (
	"io"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBytes_ReadN(t *testing.T) {
	buf := NewBytes([]byte{3, 1, 4, 3, 12, 34, 56, 78})

	first, err := buf.ReadN(4)
	require.NoError(t, err)
	assert.Equal(t, []byte{3, 1, 4, 3}, first)
	assert.Equal(t, int64(4), buf.Tell())

	empty, err := buf.ReadN(0)
	require.NoError(t, err)
	assert.Empty(t, empty)

	rest, err := buf.ReadN(-1)
	require.NoError(t, err)
	assert.Equal(t, []byte{12, 34, 56, 78}, rest)

	_, err = buf.ReadN(1)
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))
}

func TestBytes_PeekKeepsPosition(t *testing.T) {
	buf := NewBytes([]byte("hello"))
	_, err := buf.Seek(1, io.SeekStart)
	require.NoError(t, err)

	bs, err := buf.Peek(3)
	require.NoError(t, err)
	assert.Equal(t, []byte("ell"), bs)
	assert.Equal(t, int64(1), buf.Tell())

	bs, err = buf.Peek(10)
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, []byte("ello"), bs)
}

func TestBytes_SeekOutOfRange(t *testing.T) {
	buf := NewBytes([]byte{1, 2, 3})

	_, err := buf.Seek(4, io.SeekStart)
	assert.True(t, errors.Is(err, ErrOutOfRange))
	_, err = buf.Seek(-1, io.SeekStart)
	assert.True(t, errors.Is(err, ErrOutOfRange))

	pos, err := buf.Seek(-1, io.SeekEnd)
	require.NoError(t, err)
	assert.Equal(t, int64(2), pos)
}

func TestBytes_WriteFails(t *testing.T) {
	buf := NewBytes([]byte{1})
	_, err := buf.Write([]byte{2})
	assert.Equal(t, ErrReadOnly, err)
}

func TestBytearray_WriteZeroFillsGap(t *testing.T) {
	buf := NewBytearray(1, 2)

	_, err := buf.Seek(5, io.SeekStart)
	require.NoError(t, err)
	_, err = buf.Write([]byte{9})
	require.NoError(t, err)

	assert.Equal(t, []byte{1, 2, 0, 0, 0, 9}, buf.Bytes())
	assert.Equal(t, 6, buf.Len())

	_, err = buf.Seek(0, io.SeekStart)
	require.NoError(t, err)
	_, err = buf.Write([]byte{7})
	require.NoError(t, err)
	assert.Equal(t, []byte{7, 2, 0, 0, 0, 9}, buf.Bytes())
}
