package bfield

func bitMask(bits int) uint64 {
	if bits >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << bits) - 1
}

// Bit encodings: 'U' unsigned, 'S' two's complement, 's' ones' complement.
func decodeBitInt(t *Type, raw uint64, offset int, bits int) (any, error) {
	if bits <= 0 || bits > 64 {
		return nil, decodeErr(t, "invalid bit width %d", bits)
	}
	mask := bitMask(bits)
	v := (raw >> offset) & mask
	sign := uint64(1) << (bits - 1)
	switch baseEnc(t) {
	case 'S':
		if v&sign != 0 {
			return int64(v | ^mask), nil
		}
	case 's':
		if v&sign != 0 {
			return -int64(^v & mask), nil
		}
	}
	return int64(v), nil
}

func encodeBitInt(t *Type, native any, bits int) (uint64, error) {
	if bits <= 0 || bits > 64 {
		return 0, encodeErr(t, native, "invalid bit width %d", bits)
	}
	n := native.(int64)
	mask := bitMask(bits)
	switch baseEnc(t) {
	case 'S':
		if bits < 64 && (n < -(int64(1)<<(bits-1)) || n >= int64(1)<<(bits-1)) {
			return 0, encodeErr(t, native, "does not fit in %d signed bits", bits)
		}
		return uint64(n) & mask, nil
	case 's':
		if bits < 64 && (n <= -(int64(1)<<(bits-1)) || n >= int64(1)<<(bits-1)) {
			return 0, encodeErr(t, native, "does not fit in %d ones' complement bits", bits)
		}
		if n < 0 {
			return uint64(n-1) & mask, nil
		}
		return uint64(n) & mask, nil
	}
	if n < 0 || (bits < 64 && uint64(n) > mask) {
		return 0, encodeErr(t, native, "does not fit in %d unsigned bits", bits)
	}
	return uint64(n), nil
}

func sizeCalcBitInt(t *Type, native any) (int, error) {
	n := native.(int64)
	magnitude := n
	if n < 0 {
		magnitude = -n
	}
	bits := 0
	for magnitude > 0 {
		bits++
		magnitude >>= 1
	}
	if baseEnc(t) != 'U' && n != 0 {
		bits++
	}
	if bits == 0 {
		bits = 1
	}
	return bits, nil
}
