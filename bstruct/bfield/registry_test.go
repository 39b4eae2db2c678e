package bfield

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_EndianDuality(t *testing.T) {
	registry := Default()
	for _, typ := range registry.Types() {
		assert.Same(t, typ, typ.WithEndian(Big).WithEndian(Little).WithEndian(typ.Endian()), typ.Name())
		assert.Same(t, typ.Little(), typ.Big().Little(), typ.Name())
		assert.Same(t, typ.Big(), typ.Little().Big(), typ.Name())
		assert.Same(t, typ, typ.WithEndian(Neutral), typ.Name())
	}
}

func TestDefault_Aliases(t *testing.T) {
	registry := Default()
	uint16Type := registry.MustLookup("UInt16")
	assert.Same(t, uint16Type.Little(), registry.MustLookup("LUInt16"))
	assert.Same(t, uint16Type.Big(), registry.MustLookup("BUInt16"))
	assert.Equal(t, ">H", registry.MustLookup("BUInt16").Enc())

	neutral := registry.MustLookup("UInt8")
	assert.Same(t, neutral, neutral.Big())
	_, ok := registry.Lookup("BUInt8")
	assert.False(t, ok)
}

func TestDefault_Flags(t *testing.T) {
	registry := Default()
	assert.True(t, registry.MustLookup("Array").IsContainer())
	assert.True(t, registry.MustLookup("Array").IsArray())
	assert.True(t, registry.MustLookup("WhileArray").IsOpenEnded())
	assert.True(t, registry.MustLookup("BitStruct").IsStruct())
	assert.True(t, registry.MustLookup("BitStruct").IsBitBased())
	assert.False(t, registry.MustLookup("Struct").IsContainer())
	assert.True(t, registry.MustLookup("CStrAscii").IsOpenEnded())
	assert.True(t, registry.MustLookup("BytesRaw").IsVarSize())
	assert.False(t, registry.MustLookup("UInt32").IsVarSize())
	assert.True(t, registry.MustLookup("Switch").IsBlock())
	assert.True(t, registry.MustLookup("UEnum8").IsEnum())
	assert.True(t, registry.MustLookup("Bool32").IsBool())
}

func TestNewRegistry_ConfigErrors(t *testing.T) {
	_, err := NewRegistry(
		Spec{Name: "Broken", Kind: KindData, VarSize: true, Value: ValueBytes, Raw: true},
		Spec{Name: "NoCodec", Kind: KindData, Size: 4, Value: ValueInt},
		Spec{Name: "UInt8", Kind: KindData, Size: 1, Raw: true, Value: ValueBytes},
		Spec{Name: "Codec", Kind: KindStruct, Decode: decodeNumber},
	)
	var configErr *ConfigError
	require.True(t, errors.As(err, &configErr))
	assert.Len(t, configErr.Messages, 4)
	assert.Contains(t, configErr.Messages[0], "no size calculator")
	assert.Contains(t, configErr.Messages[1], "encoder and a decoder")
	assert.Contains(t, configErr.Messages[2], "more than once")
	assert.Contains(t, configErr.Messages[3], "value codec")
}

func TestNewRegistry_NoSizeIsAllowed(t *testing.T) {
	registry, err := NewRegistry(
		Spec{Name: "Blob", Kind: KindData, VarSize: true, NoSize: true, Raw: true, Value: ValueBytes},
	)
	require.NoError(t, err)
	blob := registry.MustLookup("Blob")
	decoded, err := blob.Decode([]byte{1, 2})
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, decoded)
}
