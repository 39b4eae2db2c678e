package bfrozen

import (
	"fmt"
	"reflect"

	"github.com/pkg/errors"
)

// ErrCycle reports a nested value that contains itself.
var ErrCycle = errors.New("value contains a reference cycle")

type freezer struct {
	done     map[uintptr]any
	visiting map[uintptr]struct{}
}

// Freeze converts nested maps, slices and sets produced by a decoder into
// Map[string, any], List[any] and Set[any]. Aliased values are converted
// once and shared; cycles fail with ErrCycle.
//
// map[K]bool values whose entries are all true are treated as sets.
func Freeze(v any) (any, error) {
	return newFreezer().freeze(reflect.ValueOf(v), "")
}

func newFreezer() *freezer {
	return &freezer{
		done:     map[uintptr]any{},
		visiting: map[uintptr]struct{}{},
	}
}

// freezeAs freezes v and checks the result still fits V, which fails for
// a V that is itself a mutable map or slice type.
func freezeAs[V any](f *freezer, v V, path string) (V, error) {
	var zero V
	frozen, err := f.freeze(reflect.ValueOf(v), path)
	if err != nil {
		return zero, err
	}
	if frozen == nil {
		return zero, nil
	}
	out, ok := frozen.(V)
	if !ok {
		return zero, errors.Errorf("at %q: a frozen %T cannot be held as %s", path, frozen, reflect.TypeOf((*V)(nil)).Elem())
	}
	return out, nil
}

// detach copies byte slices so callers cannot write into frozen storage.
func detach[V any](v V) V {
	if bs, ok := any(v).([]byte); ok && bs != nil {
		return any(append([]byte{}, bs...)).(V)
	}
	return v
}

func identity(rv reflect.Value) (uintptr, bool) {
	switch rv.Kind() {
	case reflect.Map, reflect.Pointer:
		if rv.IsNil() {
			return 0, false
		}
		return rv.Pointer(), true
	case reflect.Slice:
		if rv.IsNil() || rv.Len() == 0 {
			return 0, false
		}
		return rv.Pointer(), true
	}
	return 0, false
}

func (f *freezer) freeze(rv reflect.Value, path string) (any, error) {
	if !rv.IsValid() {
		return nil, nil
	}
	for rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
		bs := make([]byte, rv.Len())
		reflect.Copy(reflect.ValueOf(bs), rv)
		return bs, nil
	}

	id, tracked := identity(rv)
	if tracked {
		if frozen, ok := f.done[id]; ok {
			return frozen, nil
		}
		if _, ok := f.visiting[id]; ok {
			return nil, errors.Wrapf(ErrCycle, "at %q", path)
		}
		f.visiting[id] = struct{}{}
		defer delete(f.visiting, id)
	}

	var (
		frozen any
		err    error
	)
	switch rv.Kind() {
	case reflect.Map:
		frozen, err = f.freezeMap(rv, path)
	case reflect.Slice, reflect.Array:
		items := make([]any, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			item, err := f.freeze(rv.Index(i), fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		frozen = NewList(items...)
	case reflect.Pointer:
		frozen, err = f.freeze(rv.Elem(), path)
	default:
		frozen = rv.Interface()
	}
	if err != nil {
		return nil, err
	}
	if tracked {
		f.done[id] = frozen
	}
	return frozen, nil
}

func (f *freezer) freezeMap(rv reflect.Value, path string) (any, error) {
	if isSet(rv) {
		keys := make([]any, 0, rv.Len())
		for _, k := range rv.MapKeys() {
			keys = append(keys, k.Interface())
		}
		return NewSet(keys...), nil
	}
	pairs := make([]Pair[string, any], 0, rv.Len())
	for _, k := range sortedKeys(rv) {
		key := fmt.Sprint(k.Interface())
		value, err := f.freeze(rv.MapIndex(k), path+"."+key)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, P(key, value))
	}
	return NewMap(pairs...), nil
}

func isSet(rv reflect.Value) bool {
	if rv.Type().Elem().Kind() == reflect.Struct && rv.Type().Elem().NumField() == 0 {
		return true
	}
	if rv.Type().Elem().Kind() != reflect.Bool || rv.Len() == 0 {
		return false
	}
	iter := rv.MapRange()
	for iter.Next() {
		if !iter.Value().Bool() {
			return false
		}
	}
	return true
}
