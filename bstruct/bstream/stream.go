// Package bstream holds the named codecs StreamAdapter fields use to
// transform the bytes of their sub-struct.
package bstream

import (
	"encoding/binary"
	"encoding/hex"
	"sort"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/thanhnguyen2187/bindef/bstruct/bdesc"
)

// frameHeaderSize covers the compressed and raw lengths that lead every
// compressed frame.
const frameHeaderSize = 8

var (
	ErrShortFrame = errors.New("stream frame is truncated")

	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder

	codecs map[string]bdesc.StreamCodec
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("bstream: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("bstream: zstd decoder initialization failed: " + err.Error())
	}
	codecs = map[string]bdesc.StreamCodec{
		"zstd": Zstd{},
		"lz4":  LZ4{},
		"hex":  Hex{},
	}
}

// Lookup returns the codec registered under name.
func Lookup(name string) (bdesc.StreamCodec, bool) {
	c, ok := codecs[name]
	return c, ok
}

func Names() []string {
	names := lo.Keys(codecs)
	sort.Strings(names)
	return names
}

// frame is the common layout of compressed streams: compressed length,
// raw length, then the payload. A payload whose compressed length equals
// its raw length is stored uncompressed.
type frame struct {
	compressed int
	raw        int
	payload    []byte
}

func readFrame(src []byte) (frame, error) {
	if len(src) < frameHeaderSize {
		return frame{}, ErrShortFrame
	}
	f := frame{
		compressed: int(binary.LittleEndian.Uint32(src[0:4])),
		raw:        int(binary.LittleEndian.Uint32(src[4:8])),
	}
	if len(src)-frameHeaderSize < f.compressed {
		return frame{}, errors.Wrapf(ErrShortFrame, "payload needs %d bytes, %d remain", f.compressed, len(src)-frameHeaderSize)
	}
	f.payload = src[frameHeaderSize : frameHeaderSize+f.compressed]
	return f, nil
}

func (f frame) consumed() int {
	return frameHeaderSize + f.compressed
}

func writeFrame(raw int, payload []byte) []byte {
	out := make([]byte, frameHeaderSize, frameHeaderSize+len(payload))
	binary.LittleEndian.PutUint32(out[0:4], uint32(len(payload)))
	binary.LittleEndian.PutUint32(out[4:8], uint32(raw))
	return append(out, payload...)
}

func (f frame) stored() ([]byte, bool) {
	if f.compressed != f.raw {
		return nil, false
	}
	return append([]byte{}, f.payload...), true
}

type Zstd struct{}

func (Zstd) Decode(src []byte) ([]byte, int, error) {
	f, err := readFrame(src)
	if err != nil {
		return nil, 0, err
	}
	if plain, ok := f.stored(); ok {
		return plain, f.consumed(), nil
	}
	plain, err := zstdDecoder.DecodeAll(f.payload, make([]byte, 0, f.raw))
	if err != nil {
		return nil, 0, errors.Wrap(err, "zstd decompress")
	}
	if len(plain) != f.raw {
		return nil, 0, errors.Errorf("zstd decompress: got %d bytes, expected %d", len(plain), f.raw)
	}
	return plain, f.consumed(), nil
}

func (Zstd) Encode(plain []byte) ([]byte, error) {
	compressed := zstdEncoder.EncodeAll(plain, nil)
	if len(compressed) >= len(plain) {
		return writeFrame(len(plain), plain), nil
	}
	return writeFrame(len(plain), compressed), nil
}

// LZ4 uses the block format.
type LZ4 struct{}

func (LZ4) Decode(src []byte) ([]byte, int, error) {
	f, err := readFrame(src)
	if err != nil {
		return nil, 0, err
	}
	if plain, ok := f.stored(); ok {
		return plain, f.consumed(), nil
	}
	plain := make([]byte, f.raw)
	n, err := lz4.UncompressBlock(f.payload, plain)
	if err != nil {
		return nil, 0, errors.Wrap(err, "lz4 decompress")
	}
	if n != f.raw {
		return nil, 0, errors.Errorf("lz4 decompress: got %d bytes, expected %d", n, f.raw)
	}
	return plain, f.consumed(), nil
}

func (LZ4) Encode(plain []byte) ([]byte, error) {
	dst := make([]byte, lz4.CompressBlockBound(len(plain)))
	n, err := lz4.CompressBlock(plain, dst, nil)
	if err != nil {
		return nil, errors.Wrap(err, "lz4 compress")
	}
	// 0 means the block is incompressible
	if n == 0 || n >= len(plain) {
		return writeFrame(len(plain), plain), nil
	}
	return writeFrame(len(plain), dst[:n]), nil
}

// Hex reads the rest of the stream as hexadecimal text.
type Hex struct{}

func (Hex) Decode(src []byte) ([]byte, int, error) {
	plain := make([]byte, hex.DecodedLen(len(src)))
	if _, err := hex.Decode(plain, src); err != nil {
		return nil, 0, errors.Wrap(err, "hex decode")
	}
	return plain, len(src), nil
}

func (Hex) Encode(plain []byte) ([]byte, error) {
	return []byte(hex.EncodeToString(plain)), nil
}
