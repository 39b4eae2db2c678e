package bfield

import (
	"time"
)

func hierarchySpecs() []Spec {
	return []Spec{
		{Name: "Void", Kind: KindVoid},
		{Name: "Pad", Kind: KindPad},
		{Name: "Container", Kind: KindContainer},
		{Name: "Struct", Kind: KindStruct},
		{Name: "Union", Kind: KindUnion},
		{Name: "Array", Kind: KindArray},
		{Name: "WhileArray", Kind: KindWhileArray, OpenEnded: true},
		{Name: "Switch", Kind: KindSwitch},
		{Name: "StreamAdapter", Kind: KindStreamAdapter, OpenEnded: true},
		{Name: "BitStruct", Kind: KindBitStruct, EndianAware: true},
	}
}

func bitSpecs() []Spec {
	bit := func(name string, enc string, size int, enum bool, boolean bool) Spec {
		return Spec{
			Name: name, Kind: KindBit, Size: size, VarSize: size == 0,
			Enc: enc, Enum: enum, Bool: boolean, Value: ValueInt,
			DecodeBits: decodeBitInt, EncodeBits: encodeBitInt, SizeCalc: sizeCalcBitInt,
		}
	}
	return []Spec{
		bit("Bit", "U", 1, false, false),
		bit("BitUInt", "U", 0, false, false),
		bit("BitSInt", "S", 0, false, false),
		bit("Bit1SInt", "s", 0, false, false),
		bit("BitUEnum", "U", 0, true, false),
		bit("BitSEnum", "S", 0, true, false),
		bit("BitBool", "U", 0, false, true),
	}
}

func bigIntSpecs() []Spec {
	bigInt := func(name string, enc string) Spec {
		return Spec{
			Name: name, Kind: KindData, VarSize: true, EndianAware: true,
			Enc: enc, Value: ValueBigInt,
			Decode: decodeBigInt, Encode: encodeBigInt, SizeCalc: sizeCalcBigInt,
		}
	}
	return []Spec{
		bigInt("BigUInt", "U"),
		bigInt("BigSInt", "S"),
		bigInt("Big1SInt", "s"),
	}
}

func numberSpecs() []Spec {
	number := func(name string, enc byte, enum bool, boolean bool) Spec {
		value := ValueInt
		switch enc {
		case 'Q':
			value = ValueUint
		case 'f', 'd':
			value = ValueFloat
		}
		lower, upper := any(nil), any(nil)
		if value != ValueFloat {
			lower, upper = intBounds(enc)
		}
		return Spec{
			Name: name, Kind: KindData, Size: numberWidth[enc],
			EndianAware: numberWidth[enc] > 1, Enc: string(enc),
			Enum: enum, Bool: boolean, Value: value, Min: lower, Max: upper,
			Decode: decodeNumber, Encode: encodeNumber,
		}
	}
	widths := []struct {
		suffix   string
		unsigned byte
		signed   byte
	}{
		{"8", 'B', 'b'},
		{"16", 'H', 'h'},
		{"24", 'T', 't'},
		{"32", 'I', 'i'},
		{"64", 'Q', 'q'},
	}
	specs := make([]Spec, 0, len(widths)*5+6)
	for _, w := range widths {
		specs = append(specs,
			number("UInt"+w.suffix, w.unsigned, false, false),
			number("SInt"+w.suffix, w.signed, false, false),
			number("UEnum"+w.suffix, w.unsigned, true, false),
			number("SEnum"+w.suffix, w.signed, true, false),
			number("Bool"+w.suffix, w.unsigned, false, true),
		)
	}
	specs = append(specs,
		number("Pointer32", 'I', false, false),
		number("Pointer64", 'Q', false, false),
		number("Float", 'f', false, false),
		number("Double", 'd', false, false),
	)

	timestamp := number("Timestamp", 'I', false, false)
	timestamp.Value, timestamp.Min, timestamp.Max = ValueTime, nil, nil
	timestamp.Decode, timestamp.Encode = decodeTimestamp, encodeTimestamp
	timestamp.Default = func() any { return time.Unix(0, 0).UTC() }
	timestampFloat := timestamp
	timestampFloat.Name, timestampFloat.Enc = "TimestampFloat", "f"

	return append(specs, timestamp, timestampFloat)
}

func arraySpecs() []Spec {
	array := func(name string, enc byte) Spec {
		value := ValueIntSlice
		switch enc {
		case 'Q':
			value = ValueUintSlice
		case 'f', 'd':
			value = ValueFloatSlice
		}
		return Spec{
			Name: name, Kind: KindData, Size: numberWidth[enc], VarSize: true,
			EndianAware: numberWidth[enc] > 1, Enc: string(enc), Value: value,
			Decode: decodeNumberArray, Encode: encodeNumberArray, SizeCalc: sizeCalcArray,
		}
	}
	return []Spec{
		array("UInt8Array", 'B'),
		array("SInt8Array", 'b'),
		array("UInt16Array", 'H'),
		array("SInt16Array", 'h'),
		array("UInt32Array", 'I'),
		array("SInt32Array", 'i'),
		array("UInt64Array", 'Q'),
		array("SInt64Array", 'q'),
		array("FloatArray", 'f'),
		array("DoubleArray", 'd'),
	}
}

func rawSpecs() []Spec {
	return []Spec{
		{Name: "BytesRaw", Kind: KindData, Size: 1, VarSize: true, Raw: true, Enc: "raw", Value: ValueBytes, SizeCalc: sizeCalcBytes},
		{Name: "BytearrayRaw", Kind: KindData, Size: 1, VarSize: true, Raw: true, Enc: "raw", Value: ValueBytes, SizeCalc: sizeCalcBytes},
		{
			Name: "SubBlocks", Kind: KindData, Size: 1, VarSize: true, OpenEnded: true, Raw: true,
			Enc: "sub_blocks", Value: ValueBytes,
			Decode: decodeSubBlocks, Encode: encodeSubBlocks, SizeCalc: sizeCalcSubBlocks, Scan: scanSubBlocks,
		},
	}
}

func builtinSpecs() []Spec {
	var specs []Spec
	for _, group := range [][]Spec{
		hierarchySpecs(),
		bitSpecs(),
		bigIntSpecs(),
		numberSpecs(),
		arraySpecs(),
		rawSpecs(),
		stringSpecs(),
	} {
		specs = append(specs, group...)
	}
	return specs
}
