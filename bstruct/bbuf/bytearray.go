package bbuf

import (
	"io"
)

// Bytearray is a growable buffer. Seeking past the end is allowed; the
// next write fills the gap with zeros.
type Bytearray struct {
	data []byte
	pos  int64
}

func NewBytearray(bs ...byte) *Bytearray {
	data := make([]byte, len(bs))
	copy(data, bs)
	return &Bytearray{data: data}
}

func (b *Bytearray) Read(p []byte) (int, error) {
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

func (b *Bytearray) ReadN(n int) ([]byte, error) {
	bs, pos, err := readN(b.data, b.pos, n)
	if err != nil {
		return nil, err
	}
	b.pos = pos
	return bs, nil
}

func (b *Bytearray) Peek(n int) ([]byte, error) {
	return peek(b.data, b.pos, n)
}

func (b *Bytearray) Write(p []byte) (int, error) {
	end := b.pos + int64(len(p))
	if end > int64(len(b.data)) {
		grown := make([]byte, end)
		copy(grown, b.data)
		b.data = grown
	}
	copy(b.data[b.pos:end], p)
	b.pos = end
	return len(p), nil
}

func (b *Bytearray) Seek(offset int64, whence int) (int64, error) {
	abs, err := resolveSeek(b.pos, len(b.data), offset, whence)
	if err != nil {
		return b.pos, err
	}
	b.pos = abs
	return abs, nil
}

func (b *Bytearray) Tell() int64 {
	return b.pos
}

func (b *Bytearray) Len() int {
	return len(b.data)
}

func (b *Bytearray) Bytes() []byte {
	return b.data
}
