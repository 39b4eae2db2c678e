package bbuf

import (
	"io"

	"github.com/pkg/errors"
)

// Bytes is a read-only view over an existing byte slice. Seeking outside
// of the slice fails.
type Bytes struct {
	data []byte
	pos  int64
}

func NewBytes(bs []byte) *Bytes {
	return &Bytes{data: bs}
}

func (b *Bytes) Read(p []byte) (int, error) {
	if b.pos >= int64(len(b.data)) {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}
	n := copy(p, b.data[b.pos:])
	b.pos += int64(n)
	return n, nil
}

func (b *Bytes) ReadN(n int) ([]byte, error) {
	bs, pos, err := readN(b.data, b.pos, n)
	if err != nil {
		return nil, err
	}
	b.pos = pos
	return bs, nil
}

func (b *Bytes) Peek(n int) ([]byte, error) {
	return peek(b.data, b.pos, n)
}

func (b *Bytes) Write([]byte) (int, error) {
	return 0, ErrReadOnly
}

func (b *Bytes) Seek(offset int64, whence int) (int64, error) {
	abs, err := resolveSeek(b.pos, len(b.data), offset, whence)
	if err != nil {
		return b.pos, err
	}
	if abs > int64(len(b.data)) {
		return b.pos, errors.Wrapf(ErrOutOfRange, "position %d past length %d", abs, len(b.data))
	}
	b.pos = abs
	return abs, nil
}

func (b *Bytes) Tell() int64 {
	return b.pos
}

func (b *Bytes) Len() int {
	return len(b.data)
}

// Bytes returns the underlying slice, which must not be modified.
func (b *Bytes) Bytes() []byte {
	return b.data
}
