package bfield

import (
	"encoding/json"
	"math"
	"math/big"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

var errNotNumber = errors.New("not a number")

func zeroValue(kind ValueKind) any {
	switch kind {
	case ValueInt:
		return int64(0)
	case ValueUint:
		return uint64(0)
	case ValueFloat:
		return float64(0)
	case ValueString:
		return ""
	case ValueBytes:
		return []byte{}
	case ValueBigInt:
		return new(big.Int)
	case ValueTime:
		return time.Unix(0, 0).UTC()
	case ValueIntSlice:
		return []int64{}
	case ValueUintSlice:
		return []uint64{}
	case ValueFloatSlice:
		return []float64{}
	}
	return nil
}

// ToInt64 converts any Go number that holds an integral value.
func ToInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint:
		if uint64(n) > math.MaxInt64 {
			return 0, errors.Errorf("%d overflows int64", n)
		}
		return int64(n), nil
	case uint8:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint64:
		if n > math.MaxInt64 {
			return 0, errors.Errorf("%d overflows int64", n)
		}
		return int64(n), nil
	case float32:
		return ToInt64(float64(n))
	case float64:
		if n != math.Trunc(n) || n > math.MaxInt64 || n < math.MinInt64 {
			return 0, errors.Errorf("%v is not an integer", n)
		}
		return int64(n), nil
	case *big.Int:
		if n == nil || !n.IsInt64() {
			return 0, errors.Errorf("%v overflows int64", n)
		}
		return n.Int64(), nil
	case json.Number:
		return n.Int64()
	case bool:
		if n {
			return 1, nil
		}
		return 0, nil
	}
	return 0, errors.Wrapf(errNotNumber, "%T", v)
}

func ToUint64(v any) (uint64, error) {
	switch n := v.(type) {
	case uint:
		return uint64(n), nil
	case uint64:
		return n, nil
	case float64:
		if n < 0 || n != math.Trunc(n) || n >= math.MaxUint64 {
			return 0, errors.Errorf("%v is not an unsigned integer", n)
		}
		return uint64(n), nil
	case *big.Int:
		if n == nil || !n.IsUint64() {
			return 0, errors.Errorf("%v overflows uint64", n)
		}
		return n.Uint64(), nil
	case json.Number:
		return strconv.ParseUint(string(n), 10, 64)
	}
	i, err := ToInt64(v)
	if err != nil {
		return 0, err
	}
	if i < 0 {
		return 0, errors.Errorf("%d is negative", i)
	}
	return uint64(i), nil
}

func ToFloat64(v any) (float64, error) {
	switch n := v.(type) {
	case float32:
		return float64(n), nil
	case float64:
		return n, nil
	case json.Number:
		return n.Float64()
	case uint64:
		return float64(n), nil
	case *big.Int:
		f, _ := new(big.Float).SetInt(n).Float64()
		return f, nil
	}
	i, err := ToInt64(v)
	if err != nil {
		return 0, err
	}
	return float64(i), nil
}

func ToBigInt(v any) (*big.Int, error) {
	switch n := v.(type) {
	case *big.Int:
		if n == nil {
			return new(big.Int), nil
		}
		return new(big.Int).Set(n), nil
	case uint64:
		return new(big.Int).SetUint64(n), nil
	case string:
		b, ok := new(big.Int).SetString(n, 0)
		if !ok {
			return nil, errors.Errorf("%q is not an integer", n)
		}
		return b, nil
	case json.Number:
		return ToBigInt(string(n))
	}
	i, err := ToInt64(v)
	if err != nil {
		return nil, err
	}
	return big.NewInt(i), nil
}

func toTime(v any) (time.Time, error) {
	switch n := v.(type) {
	case time.Time:
		return n.UTC(), nil
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, n)
		if err != nil {
			return time.Time{}, errors.Wrapf(err, "parsing timestamp %q", n)
		}
		return parsed.UTC(), nil
	}
	f, err := ToFloat64(v)
	if err != nil {
		return time.Time{}, err
	}
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC(), nil
}

func toSlice[T any](v any, convert func(any) (T, error)) ([]T, error) {
	switch items := v.(type) {
	case []T:
		copied := make([]T, len(items))
		copy(copied, items)
		return copied, nil
	case []any:
		out := make([]T, 0, len(items))
		for i, item := range items {
			converted, err := convert(item)
			if err != nil {
				return nil, errors.Wrapf(err, "item %d", i)
			}
			out = append(out, converted)
		}
		return out, nil
	case []int:
		out := make([]T, 0, len(items))
		for _, item := range items {
			converted, err := convert(item)
			if err != nil {
				return nil, err
			}
			out = append(out, converted)
		}
		return out, nil
	case []byte:
		out := make([]T, 0, len(items))
		for _, item := range items {
			converted, err := convert(item)
			if err != nil {
				return nil, err
			}
			out = append(out, converted)
		}
		return out, nil
	}
	return nil, errors.Errorf("%T is not a list", v)
}

// Normalize converts value into the Go representation of t and checks the
// numeric bounds of t.
func (t *Type) Normalize(value any) (any, error) {
	var (
		native any
		err    error
	)
	switch t.value {
	case ValueNone:
		return value, nil
	case ValueInt:
		native, err = ToInt64(value)
	case ValueUint:
		native, err = ToUint64(value)
	case ValueFloat:
		native, err = ToFloat64(value)
	case ValueString:
		switch s := value.(type) {
		case string:
			native = s
		case []byte:
			native = string(s)
		default:
			err = errors.Errorf("%T is not a string", value)
		}
	case ValueBytes:
		switch bs := value.(type) {
		case []byte:
			native = bs
		case string:
			native = []byte(bs)
		case []any:
			var ints []int64
			ints, err = toSlice(bs, ToInt64)
			if err == nil {
				out := make([]byte, len(ints))
				for i, n := range ints {
					if n < 0 || n > math.MaxUint8 {
						return nil, encodeErr(t, value, "item %d is not a byte", i)
					}
					out[i] = byte(n)
				}
				native = out
			}
		default:
			err = errors.Errorf("%T is not a byte string", value)
		}
	case ValueBigInt:
		native, err = ToBigInt(value)
	case ValueTime:
		native, err = toTime(value)
	case ValueIntSlice:
		native, err = toSlice(value, ToInt64)
	case ValueUintSlice:
		native, err = toSlice(value, ToUint64)
	case ValueFloatSlice:
		native, err = toSlice(value, ToFloat64)
	}
	if err != nil {
		return nil, encodeErr(t, value, "%v", err)
	}
	if err := t.checkBounds(native); err != nil {
		return nil, err
	}
	return native, nil
}

func (t *Type) checkBounds(native any) error {
	switch n := native.(type) {
	case int64:
		if lo, ok := t.min.(int64); ok && n < lo {
			return encodeErr(t, native, "below the minimum %d", lo)
		}
		if hi, ok := t.max.(int64); ok && n > hi {
			return encodeErr(t, native, "above the maximum %d", hi)
		}
	case uint64:
		if hi, ok := t.max.(uint64); ok && n > hi {
			return encodeErr(t, native, "above the maximum %d", hi)
		}
	case []int64:
		for _, item := range n {
			if err := t.checkBounds(item); err != nil {
				return err
			}
		}
	case []uint64:
		for _, item := range n {
			if err := t.checkBounds(item); err != nil {
				return err
			}
		}
	}
	return nil
}

// NormalizeKey maps integral case keys to int64 so that values read from a
// buffer and keys written in a schema compare equal.
func NormalizeKey(key any) any {
	switch k := key.(type) {
	case string, bool:
		return k
	case uint64:
		if k <= math.MaxInt64 {
			return int64(k)
		}
		return k
	}
	if i, err := ToInt64(key); err == nil {
		return i
	}
	return key
}
