// Package bbuf holds the byte sources the codec reads from and writes to.
package bbuf

import (
	"io"

	"github.com/pkg/errors"
)

var (
	ErrReadOnly   = errors.New("buffer is read-only")
	ErrOutOfRange = errors.New("seek position out of range")
)

// Buffer is a seekable byte source with non-consuming lookahead.
type Buffer interface {
	io.Reader
	io.Writer
	io.Seeker
	// ReadN reads exactly n bytes, or everything remaining when n < 0.
	ReadN(n int) ([]byte, error)
	// Peek returns up to n bytes (the rest when n < 0) without moving the
	// position. A short result comes with io.EOF.
	Peek(n int) ([]byte, error)
	Tell() int64
	Len() int
	Bytes() []byte
}

func resolveSeek(pos int64, length int, offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = pos + offset
	case io.SeekEnd:
		abs = int64(length) + offset
	default:
		return 0, errors.Errorf("invalid whence %d", whence)
	}
	if abs < 0 {
		return 0, errors.Wrapf(ErrOutOfRange, "position %d", abs)
	}
	return abs, nil
}

func readN(data []byte, pos int64, n int) ([]byte, int64, error) {
	// add return early to avoid EOF error
	// when the position reached the end while the number of next bytes is 0
	if n == 0 {
		return []byte{}, pos, nil
	}
	remaining := int64(len(data)) - pos
	if remaining < 0 {
		remaining = 0
	}
	if n < 0 {
		n = int(remaining)
	}
	if int64(n) > remaining {
		return nil, pos, errors.Wrapf(
			io.ErrUnexpectedEOF,
			"reading %d bytes at %d with %d remaining", n, pos, remaining,
		)
	}
	bs := make([]byte, n)
	copy(bs, data[pos:pos+int64(n)])
	return bs, pos + int64(n), nil
}

func peek(data []byte, pos int64, n int) ([]byte, error) {
	remaining := int64(len(data)) - pos
	if remaining <= 0 {
		if n == 0 {
			return []byte{}, nil
		}
		return []byte{}, io.EOF
	}
	if n < 0 || int64(n) > remaining {
		bs := make([]byte, remaining)
		copy(bs, data[pos:])
		if n < 0 {
			return bs, nil
		}
		return bs, io.EOF
	}
	bs := make([]byte, n)
	copy(bs, data[pos:pos+int64(n)])
	return bs, nil
}
