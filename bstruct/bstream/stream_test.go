package bstream

import (
	"bytes"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodecs_RoundTrip(t *testing.T) {
	compressible := bytes.Repeat([]byte("darkest dungeon "), 64)
	tiny := []byte{1, 2, 3}
	for _, name := range Names() {
		codec, ok := Lookup(name)
		require.True(t, ok, name)
		for _, plain := range [][]byte{compressible, tiny, {}} {
			encoded, err := codec.Encode(plain)
			require.NoError(t, err, name)

			// trailing bytes belong to whatever follows the stream
			decoded, consumed, err := codec.Decode(append(encoded, 0xFF))
			if name == "hex" {
				assert.Error(t, err)
				decoded, consumed, err = codec.Decode(encoded)
			}
			require.NoError(t, err, name)
			assert.Equal(t, len(encoded), consumed, name)
			assert.Equal(t, plain, append([]byte{}, decoded...), name)
		}
	}
}

func TestCodecs_Compress(t *testing.T) {
	plain := bytes.Repeat([]byte{0xAB}, 4096)
	for _, codec := range []interface {
		Encode([]byte) ([]byte, error)
	}{Zstd{}, LZ4{}} {
		encoded, err := codec.Encode(plain)
		require.NoError(t, err)
		assert.Less(t, len(encoded), len(plain))
	}
}

func TestFrame_Stored(t *testing.T) {
	encoded, err := LZ4{}.Encode([]byte{9, 8, 7})
	require.NoError(t, err)
	assert.Equal(t, []byte{3, 0, 0, 0, 3, 0, 0, 0, 9, 8, 7}, encoded)
}

func TestFrame_Short(t *testing.T) {
	_, _, err := Zstd{}.Decode([]byte{4, 0, 0})
	assert.True(t, errors.Is(err, ErrShortFrame))

	_, _, err = LZ4{}.Decode([]byte{9, 0, 0, 0, 9, 0, 0, 0, 1})
	assert.True(t, errors.Is(err, ErrShortFrame))

	_, ok := Lookup("gzip")
	assert.False(t, ok)
	assert.Equal(t, []string{"hex", "lz4", "zstd"}, Names())
}
