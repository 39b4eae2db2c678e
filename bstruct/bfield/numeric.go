package bfield

import (
	"encoding/binary"
	"math"
	"time"
)

// numberWidth maps a base encoding letter to its byte width.
var numberWidth = map[byte]int{
	'B': 1, 'b': 1,
	'H': 2, 'h': 2,
	'T': 3, 't': 3,
	'I': 4, 'i': 4,
	'Q': 8, 'q': 8,
	'f': 4, 'd': 8,
}

func baseEnc(t *Type) byte {
	return t.enc[len(t.enc)-1]
}

func readUint24(order binary.ByteOrder, raw []byte) uint64 {
	if order == binary.BigEndian {
		return uint64(raw[0])<<16 | uint64(raw[1])<<8 | uint64(raw[2])
	}
	return uint64(raw[2])<<16 | uint64(raw[1])<<8 | uint64(raw[0])
}

func putUint24(order binary.ByteOrder, bs []byte, v uint64) {
	if order == binary.BigEndian {
		bs[0], bs[1], bs[2] = byte(v>>16), byte(v>>8), byte(v)
		return
	}
	bs[0], bs[1], bs[2] = byte(v), byte(v>>8), byte(v>>16)
}

// decodeNumberAt decodes one number of the given encoding from the start of raw.
func decodeNumberAt(enc byte, order binary.ByteOrder, raw []byte) any {
	switch enc {
	case 'B':
		return int64(raw[0])
	case 'b':
		return int64(int8(raw[0]))
	case 'H':
		return int64(order.Uint16(raw))
	case 'h':
		return int64(int16(order.Uint16(raw)))
	case 'T':
		return int64(readUint24(order, raw))
	case 't':
		v := int64(readUint24(order, raw))
		if v&0x800000 != 0 {
			v -= 1 << 24
		}
		return v
	case 'I':
		return int64(order.Uint32(raw))
	case 'i':
		return int64(int32(order.Uint32(raw)))
	case 'Q':
		return order.Uint64(raw)
	case 'q':
		return int64(order.Uint64(raw))
	case 'f':
		return float64(math.Float32frombits(order.Uint32(raw)))
	case 'd':
		return math.Float64frombits(order.Uint64(raw))
	}
	return nil
}

func encodeNumberAt(enc byte, order binary.ByteOrder, bs []byte, native any) {
	switch enc {
	case 'B', 'b':
		bs[0] = byte(native.(int64))
	case 'H', 'h':
		order.PutUint16(bs, uint16(native.(int64)))
	case 'T', 't':
		putUint24(order, bs, uint64(native.(int64)))
	case 'I', 'i':
		order.PutUint32(bs, uint32(native.(int64)))
	case 'Q':
		order.PutUint64(bs, native.(uint64))
	case 'q':
		order.PutUint64(bs, uint64(native.(int64)))
	case 'f':
		order.PutUint32(bs, math.Float32bits(float32(native.(float64))))
	case 'd':
		order.PutUint64(bs, math.Float64bits(native.(float64)))
	}
}

func decodeNumber(t *Type, raw []byte) (any, error) {
	if len(raw) != t.size {
		return nil, decodeErr(t, "expected %d bytes, got %d", t.size, len(raw))
	}
	return decodeNumberAt(baseEnc(t), t.Order(), raw), nil
}

func encodeNumber(t *Type, native any, _ int) ([]byte, error) {
	bs := make([]byte, t.size)
	encodeNumberAt(baseEnc(t), t.Order(), bs, native)
	return bs, nil
}

func decodeTimestamp(t *Type, raw []byte) (any, error) {
	v, err := decodeNumber(t, raw)
	if err != nil {
		return nil, err
	}
	switch n := v.(type) {
	case float64:
		sec, frac := math.Modf(n)
		return time.Unix(int64(sec), int64(frac*1e9)).UTC(), nil
	case int64:
		return time.Unix(n, 0).UTC(), nil
	}
	return nil, decodeErr(t, "unexpected timestamp encoding %q", t.enc)
}

func encodeTimestamp(t *Type, native any, size int) ([]byte, error) {
	ts := native.(time.Time)
	if baseEnc(t) == 'f' {
		seconds := float64(ts.UnixNano()) / 1e9
		return encodeNumber(t, seconds, size)
	}
	seconds := ts.Unix()
	if seconds < 0 || seconds > math.MaxUint32 {
		return nil, encodeErr(t, native, "outside of the 32-bit timestamp range")
	}
	return encodeNumber(t, seconds, size)
}

func decodeNumberArray(t *Type, raw []byte) (any, error) {
	if len(raw)%t.size != 0 {
		return nil, decodeErr(t, "%d bytes is not a multiple of the item size %d", len(raw), t.size)
	}
	count := len(raw) / t.size
	enc, order := baseEnc(t), t.Order()
	switch t.value {
	case ValueUintSlice:
		out := make([]uint64, 0, count)
		for i := 0; i < len(raw); i += t.size {
			out = append(out, decodeNumberAt(enc, order, raw[i:]).(uint64))
		}
		return out, nil
	case ValueFloatSlice:
		out := make([]float64, 0, count)
		for i := 0; i < len(raw); i += t.size {
			out = append(out, decodeNumberAt(enc, order, raw[i:]).(float64))
		}
		return out, nil
	}
	out := make([]int64, 0, count)
	for i := 0; i < len(raw); i += t.size {
		out = append(out, decodeNumberAt(enc, order, raw[i:]).(int64))
	}
	return out, nil
}

func encodeNumberArray(t *Type, native any, _ int) ([]byte, error) {
	enc, order := baseEnc(t), t.Order()
	var items []any
	switch values := native.(type) {
	case []int64:
		for _, v := range values {
			if err := t.checkItemBounds(v); err != nil {
				return nil, err
			}
			items = append(items, v)
		}
	case []uint64:
		for _, v := range values {
			items = append(items, v)
		}
	case []float64:
		for _, v := range values {
			items = append(items, v)
		}
	}
	bs := make([]byte, len(items)*t.size)
	for i, item := range items {
		encodeNumberAt(enc, order, bs[i*t.size:], item)
	}
	return bs, nil
}

func (t *Type) checkItemBounds(v int64) error {
	width := t.size * 8
	if width >= 64 {
		return nil
	}
	signed := baseEnc(t) >= 'a'
	if signed {
		if v < -(1<<(width-1)) || v >= 1<<(width-1) {
			return encodeErr(t, v, "does not fit in %d signed bits", width)
		}
		return nil
	}
	if v < 0 || v >= 1<<width {
		return encodeErr(t, v, "does not fit in %d unsigned bits", width)
	}
	return nil
}

func sizeCalcArray(t *Type, native any) (int, error) {
	switch values := native.(type) {
	case []int64:
		return len(values) * t.size, nil
	case []uint64:
		return len(values) * t.size, nil
	case []float64:
		return len(values) * t.size, nil
	}
	return 0, encodeErr(t, native, "not a numeric array")
}

func intBounds(enc byte) (any, any) {
	width := numberWidth[enc] * 8
	switch enc {
	case 'Q':
		return uint64(0), uint64(math.MaxUint64)
	case 'q':
		return int64(math.MinInt64), int64(math.MaxInt64)
	case 'b', 'h', 't', 'i':
		return -int64(1) << (width - 1), int64(1)<<(width-1) - 1
	}
	return int64(0), int64(1)<<width - 1
}
