package bfield

import "fmt"

// Kind is the behavior variant of a field type. The sanitizer and the codec
// switch on it instead of combining capability flags.
type Kind int

const (
	KindData Kind = iota
	KindBit
	KindVoid
	KindPad
	KindStruct
	KindBitStruct
	KindUnion
	KindContainer
	KindArray
	KindWhileArray
	KindSwitch
	KindStreamAdapter
)

func (k Kind) String() string {
	switch k {
	case KindData:
		return "data"
	case KindBit:
		return "bit"
	case KindVoid:
		return "void"
	case KindPad:
		return "pad"
	case KindStruct:
		return "struct"
	case KindBitStruct:
		return "bit_struct"
	case KindUnion:
		return "union"
	case KindContainer:
		return "container"
	case KindArray:
		return "array"
	case KindWhileArray:
		return "while_array"
	case KindSwitch:
		return "switch"
	case KindStreamAdapter:
		return "stream_adapter"
	}
	return "unknown"
}

// ValueKind is the Go representation of a data field's value.
type ValueKind int

const (
	ValueNone   ValueKind = iota
	ValueInt              // int64
	ValueUint             // uint64
	ValueFloat            // float64
	ValueString           // string
	ValueBytes            // []byte
	ValueBigInt           // *big.Int
	ValueTime             // time.Time
	ValueIntSlice         // []int64
	ValueUintSlice        // []uint64
	ValueFloatSlice       // []float64
)

type Endian byte

const (
	Neutral Endian = '='
	Little  Endian = '<'
	Big     Endian = '>'
)

// ParseEndian maps "<", ">" and "" (or "=") to an Endian.
func ParseEndian(s string) (Endian, bool) {
	switch s {
	case "<":
		return Little, true
	case ">":
		return Big, true
	case "", "=":
		return Neutral, true
	}
	return Neutral, false
}

func (e Endian) String() string {
	if e == Neutral {
		return ""
	}
	return string(rune(e))
}

func (e Endian) MarshalText() ([]byte, error) {
	switch e {
	case Little:
		return []byte("little"), nil
	case Big:
		return []byte("big"), nil
	}
	return []byte{}, nil
}

// UnmarshalText accepts "little", "big", the "<" and ">" characters, and
// "" for neutral.
func (e *Endian) UnmarshalText(text []byte) error {
	switch s := string(text); s {
	case "little", "Little", "LITTLE":
		*e = Little
	case "big", "Big", "BIG":
		*e = Big
	default:
		parsed, ok := ParseEndian(s)
		if !ok {
			return fmt.Errorf("unknown endianness %q", s)
		}
		*e = parsed
	}
	return nil
}
