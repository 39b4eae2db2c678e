package bfield

import (
	"encoding/binary"
	"fmt"
)

type (
	DecodeFunc     func(t *Type, raw []byte) (any, error)
	EncodeFunc     func(t *Type, value any, size int) ([]byte, error)
	SizeCalcFunc   func(t *Type, value any) (int, error)
	DecodeBitsFunc func(t *Type, raw uint64, offset int, bits int) (any, error)
	EncodeBitsFunc func(t *Type, value any, bits int) (uint64, error)
	// ScanFunc measures an open-ended value at the start of rest. It returns
	// the length of the value bytes and the number of bytes the field spans.
	ScanFunc func(t *Type, rest []byte) (valueLen int, span int, err error)

	// Spec describes a field type to register. Endian-aware specs produce a
	// little-endian and a big-endian Type that reference each other.
	Spec struct {
		Name        string
		Kind        Kind
		Size        int
		VarSize     bool
		OpenEnded   bool
		NoSize      bool
		Str         bool
		Raw         bool
		Delimited   bool
		Enum        bool
		Bool        bool
		EndianAware bool
		Enc         string
		Value       ValueKind
		Min         any
		Max         any
		Default     func() any
		Decode      DecodeFunc
		Encode      EncodeFunc
		SizeCalc    SizeCalcFunc
		DecodeBits  DecodeBitsFunc
		EncodeBits  EncodeBitsFunc
		Scan        ScanFunc
		Delimiter   []byte
	}

	// Type is an immutable field type. Types are shared by every descriptor
	// that uses them and compared by identity.
	Type struct {
		name       string
		kind       Kind
		size       int
		varSize    bool
		openEnded  bool
		str        bool
		raw        bool
		delimited  bool
		enum       bool
		boolean    bool
		endian     Endian
		enc        string
		value      ValueKind
		min        any
		max        any
		dflt       func() any
		decode     DecodeFunc
		encode     EncodeFunc
		sizeCalc   SizeCalcFunc
		decodeBits DecodeBitsFunc
		encodeBits EncodeBitsFunc
		scan       ScanFunc
		delimiter  []byte
		little     *Type
		big        *Type
	}
)

func (s Spec) isHierarchy() bool {
	return s.Kind != KindData && s.Kind != KindBit
}

func (s Spec) validate() []string {
	var messages []string
	add := func(format string, args ...any) {
		messages = append(messages, fmt.Sprintf("%q: ", s.Name)+fmt.Sprintf(format, args...))
	}
	if s.Name == "" {
		messages = append(messages, "field type name is required")
		return messages
	}
	if s.Enum && s.Bool {
		add("cannot be both an enum and a bool")
	}
	if s.isHierarchy() {
		if s.Decode != nil || s.Encode != nil || s.DecodeBits != nil || s.EncodeBits != nil {
			add("hierarchy types cannot carry a value codec")
		}
		if s.Str || s.Raw || s.Enum || s.Bool || s.Delimited {
			add("hierarchy types cannot be strings, raw data, enums or bools")
		}
		return messages
	}

	if !s.VarSize && !s.OpenEnded && s.Size <= 0 {
		add("data types need a fixed size or must be variable-size")
	}
	if s.VarSize && s.SizeCalc == nil && !s.NoSize && !s.OpenEnded {
		add("variable-size type has no size calculator and is not marked NoSize")
	}
	if s.OpenEnded && s.Kind == KindData && s.Scan == nil {
		add("open-ended data types need a scanner")
	}
	if s.Delimited && len(s.Delimiter) == 0 {
		add("delimited types need a delimiter")
	}
	switch s.Kind {
	case KindData:
		if !s.Raw && (s.Decode == nil || s.Encode == nil) {
			add("data types need an encoder and a decoder unless they are raw")
		}
	case KindBit:
		if s.DecodeBits == nil || s.EncodeBits == nil {
			add("bit types need a bit encoder and a bit decoder")
		}
		if s.OpenEnded {
			add("bit types cannot be open-ended")
		}
	}
	if s.Value == ValueNone {
		add("data types need a value kind")
	}
	return messages
}

func (s Spec) build(endian Endian) *Type {
	t := &Type{
		name:       s.Name,
		kind:       s.Kind,
		size:       s.Size,
		varSize:    s.VarSize,
		openEnded:  s.OpenEnded,
		str:        s.Str,
		raw:        s.Raw,
		delimited:  s.Delimited,
		enum:       s.Enum,
		boolean:    s.Bool,
		endian:     endian,
		enc:        endian.String() + s.Enc,
		value:      s.Value,
		min:        s.Min,
		max:        s.Max,
		dflt:       s.Default,
		decode:     s.Decode,
		encode:     s.Encode,
		sizeCalc:   s.SizeCalc,
		decodeBits: s.DecodeBits,
		encodeBits: s.EncodeBits,
		scan:       s.Scan,
		delimiter:  s.Delimiter,
	}
	if t.isHierarchyKind() {
		t.varSize = t.kind != KindVoid
	}
	if t.raw && t.decode == nil {
		t.decode = decodeRawBytes
	}
	if t.raw && t.encode == nil {
		t.encode = encodeRawBytes
	}
	return t
}

// incarnations returns the little and big variants of a spec.
func (s Spec) incarnations() (*Type, *Type) {
	if !s.EndianAware {
		t := s.build(Neutral)
		t.little, t.big = t, t
		return t, t
	}
	little, big := s.build(Little), s.build(Big)
	little.little, little.big = little, big
	big.little, big.big = little, big
	return little, big
}

func (t *Type) isHierarchyKind() bool {
	return t.kind != KindData && t.kind != KindBit
}

func (t *Type) Name() string      { return t.name }
func (t *Type) Kind() Kind        { return t.kind }
func (t *Type) Size() int         { return t.size }
func (t *Type) Enc() string       { return t.enc }
func (t *Type) Endian() Endian    { return t.endian }
func (t *Type) Value() ValueKind  { return t.value }
func (t *Type) Min() any          { return t.min }
func (t *Type) Max() any          { return t.max }
func (t *Type) Little() *Type     { return t.little }
func (t *Type) Big() *Type        { return t.big }
func (t *Type) Delimiter() []byte { return t.delimiter }

// WithEndian returns the incarnation for e. Neutral returns t itself.
func (t *Type) WithEndian(e Endian) *Type {
	switch e {
	case Little:
		return t.little
	case Big:
		return t.big
	}
	return t
}

func (t *Type) String() string {
	return t.enc + t.name
}

// Order is the byte order used by multi-byte encodings.
func (t *Type) Order() binary.ByteOrder {
	if t.endian == Big {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

func (t *Type) IsData() bool      { return !t.isHierarchyKind() }
func (t *Type) IsBlock() bool     { return t.isHierarchyKind() }
func (t *Type) IsBitBased() bool  { return t.kind == KindBit || t.kind == KindBitStruct }
func (t *Type) IsVarSize() bool   { return t.varSize }
func (t *Type) IsOpenEnded() bool { return t.openEnded }
func (t *Type) IsStr() bool       { return t.str }
func (t *Type) IsRaw() bool       { return t.raw }
func (t *Type) IsDelimited() bool { return t.delimited }
func (t *Type) IsEnum() bool      { return t.enum }
func (t *Type) IsBool() bool      { return t.boolean }

func (t *Type) IsStruct() bool {
	return t.kind == KindStruct || t.kind == KindBitStruct || t.kind == KindUnion
}

func (t *Type) IsContainer() bool {
	return t.kind == KindContainer || t.kind == KindArray || t.kind == KindWhileArray
}

func (t *Type) IsArray() bool {
	return t.kind == KindArray || t.kind == KindWhileArray
}

// Default returns a fresh default value for a data type, or nil for blocks.
func (t *Type) Default() any {
	if t.dflt != nil {
		return t.dflt()
	}
	return zeroValue(t.value)
}

func (t *Type) Decode(raw []byte) (any, error) {
	if t.decode == nil {
		return nil, decodeErr(t, "type has no decoder")
	}
	return t.decode(t, raw)
}

// Encode normalizes value and encodes it. size is the declared byte size,
// used by types whose width comes from the descriptor.
func (t *Type) Encode(value any, size int) ([]byte, error) {
	if t.encode == nil {
		return nil, encodeErr(t, value, "type has no encoder")
	}
	native, err := t.Normalize(value)
	if err != nil {
		return nil, err
	}
	return t.encode(t, native, size)
}

// SizeCalc computes the byte size of value, or the bit size for bit types.
// Types without a size calculator report their fixed size.
func (t *Type) SizeCalc(value any) (int, error) {
	if t.sizeCalc == nil {
		return t.size, nil
	}
	native, err := t.Normalize(value)
	if err != nil {
		return 0, err
	}
	return t.sizeCalc(t, native)
}

func (t *Type) HasSizeCalc() bool {
	return t.sizeCalc != nil
}

func (t *Type) DecodeBits(raw uint64, offset int, bits int) (any, error) {
	if t.decodeBits == nil {
		return nil, decodeErr(t, "type is not bit-based")
	}
	return t.decodeBits(t, raw, offset, bits)
}

// EncodeBits returns value packed into the low bits of the result.
func (t *Type) EncodeBits(value any, bits int) (uint64, error) {
	if t.encodeBits == nil {
		return 0, encodeErr(t, value, "type is not bit-based")
	}
	native, err := t.Normalize(value)
	if err != nil {
		return 0, err
	}
	return t.encodeBits(t, native, bits)
}

func (t *Type) Scan(rest []byte) (int, int, error) {
	if t.scan == nil {
		return 0, 0, decodeErr(t, "type is not open-ended")
	}
	return t.scan(t, rest)
}
