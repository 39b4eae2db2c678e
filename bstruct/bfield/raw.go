package bfield

import (
	"github.com/thanhnguyen2187/bindef/ds"
)

func decodeRawBytes(_ *Type, raw []byte) (any, error) {
	bs := make([]byte, len(raw))
	copy(bs, raw)
	return bs, nil
}

func encodeRawBytes(_ *Type, native any, _ int) ([]byte, error) {
	return native.([]byte), nil
}

func sizeCalcBytes(_ *Type, native any) (int, error) {
	return len(native.([]byte)), nil
}

// Sub-block chains store data as runs of at most 255 bytes, each prefixed
// with its length, and end with a zero-length run.
const subBlockMax = 255

func scanSubBlocks(t *Type, rest []byte) (int, int, error) {
	i := 0
	for {
		if i >= len(rest) {
			return 0, 0, decodeErr(t, "sub-block chain has no terminator")
		}
		n := int(rest[i])
		i += 1 + n
		if n == 0 {
			return i, i, nil
		}
	}
}

func decodeSubBlocks(t *Type, raw []byte) (any, error) {
	out := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); {
		n := int(raw[i])
		if n == 0 {
			break
		}
		if i+1+n > len(raw) {
			return nil, decodeErr(t, "sub-block at %d runs past the end", i)
		}
		out = append(out, raw[i+1:i+1+n]...)
		i += 1 + n
	}
	return out, nil
}

func encodeSubBlocks(_ *Type, native any, _ int) ([]byte, error) {
	data := native.([]byte)
	out := make([]byte, 0, len(data)+len(data)/subBlockMax+2)
	for _, chunk := range ds.MakeChunks(data, subBlockMax) {
		if len(chunk) == 0 {
			continue
		}
		out = append(out, byte(len(chunk)))
		out = append(out, chunk...)
	}
	return append(out, 0), nil
}

func sizeCalcSubBlocks(t *Type, native any) (int, error) {
	encoded, err := encodeSubBlocks(t, native, 0)
	if err != nil {
		return 0, err
	}
	return len(encoded), nil
}
