package bfield

import (
	"math/big"
)

func reversed(bs []byte) []byte {
	out := make([]byte, len(bs))
	for i, b := range bs {
		out[len(bs)-1-i] = b
	}
	return out
}

func pow2(bits int) *big.Int {
	return new(big.Int).Lsh(big.NewInt(1), uint(bits))
}

// Big integer encodings: 'U' unsigned, 'S' two's complement, 's' ones' complement.
func decodeBigInt(t *Type, raw []byte) (any, error) {
	if len(raw) == 0 {
		return new(big.Int), nil
	}
	bs := raw
	if t.endian != Big {
		bs = reversed(raw)
	}
	v := new(big.Int).SetBytes(bs)
	negative := bs[0]&0x80 != 0
	switch baseEnc(t) {
	case 'S':
		if negative {
			v.Sub(v, pow2(8*len(raw)))
		}
	case 's':
		if negative {
			v.Sub(v, pow2(8*len(raw)))
			v.Add(v, big.NewInt(1))
		}
	}
	return v, nil
}

func encodeBigInt(t *Type, native any, size int) ([]byte, error) {
	n := native.(*big.Int)
	if size <= 0 {
		calculated, err := sizeCalcBigInt(t, n)
		if err != nil {
			return nil, err
		}
		size = calculated
	}
	bits := 8 * size
	v := new(big.Int).Set(n)
	switch baseEnc(t) {
	case 'U':
		if v.Sign() < 0 || v.BitLen() > bits {
			return nil, encodeErr(t, native, "does not fit in %d unsigned bytes", size)
		}
	case 'S':
		limit := pow2(bits - 1)
		if v.Cmp(limit) >= 0 || v.Cmp(new(big.Int).Neg(limit)) < 0 {
			return nil, encodeErr(t, native, "does not fit in %d signed bytes", size)
		}
		if v.Sign() < 0 {
			v.Add(v, pow2(bits))
		}
	case 's':
		limit := pow2(bits - 1)
		if v.Cmp(limit) >= 0 || v.Cmp(new(big.Int).Neg(limit)) <= 0 {
			return nil, encodeErr(t, native, "does not fit in %d ones' complement bytes", size)
		}
		if v.Sign() < 0 {
			v.Add(v, pow2(bits))
			v.Sub(v, big.NewInt(1))
		}
	}
	bs := v.FillBytes(make([]byte, size))
	if t.endian != Big {
		bs = reversed(bs)
	}
	return bs, nil
}

func sizeCalcBigInt(t *Type, native any) (int, error) {
	n := native.(*big.Int)
	bitLen := n.BitLen()
	if baseEnc(t) != 'U' && n.Sign() != 0 {
		bitLen++
	}
	return (bitLen + 7) / 8, nil
}
