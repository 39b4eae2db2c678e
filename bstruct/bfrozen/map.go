// Package bfrozen provides read-only containers for sanitized descriptors.
// None of the types expose a mutating method; derivations return copies.
package bfrozen

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type (
	Pair[K comparable, V any] struct {
		Key   K
		Value V
	}
	// Map is an insertion-ordered read-only mapping.
	Map[K comparable, V any] struct {
		keys   []K
		values map[K]V
	}
)

func P[K comparable, V any](k K, v V) Pair[K, V] {
	return Pair[K, V]{Key: k, Value: v}
}

// NewMap builds a Map. A later pair with an existing key replaces the value
// but keeps the original position. Values are stored as given; use
// FreezeMap when they may hold mutable maps or slices.
func NewMap[K comparable, V any](pairs ...Pair[K, V]) Map[K, V] {
	m := Map[K, V]{
		keys:   make([]K, 0, len(pairs)),
		values: make(map[K]V, len(pairs)),
	}
	for _, pair := range pairs {
		if _, ok := m.values[pair.Key]; !ok {
			m.keys = append(m.keys, pair.Key)
		}
		m.values[pair.Key] = pair.Value
	}
	return m
}

// FreezeMap builds a Map like NewMap after freezing every value. Values
// aliased between pairs are frozen once.
func FreezeMap[K comparable, V any](pairs ...Pair[K, V]) (Map[K, V], error) {
	f := newFreezer()
	frozen := make([]Pair[K, V], 0, len(pairs))
	for _, pair := range pairs {
		v, err := freezeAs[V](f, pair.Value, fmt.Sprint(pair.Key))
		if err != nil {
			return Map[K, V]{}, err
		}
		frozen = append(frozen, P(pair.Key, v))
	}
	return NewMap(frozen...), nil
}

func (m Map[K, V]) Get(k K) (V, bool) {
	v, ok := m.values[k]
	return detach(v), ok
}

func (m Map[K, V]) Has(k K) bool {
	_, ok := m.values[k]
	return ok
}

func (m Map[K, V]) Len() int {
	return len(m.keys)
}

func (m Map[K, V]) Keys() []K {
	keys := make([]K, len(m.keys))
	copy(keys, m.keys)
	return keys
}

// Range calls fn in insertion order until it returns false.
func (m Map[K, V]) Range(fn func(k K, v V) bool) {
	for _, k := range m.keys {
		if !fn(k, detach(m.values[k])) {
			return
		}
	}
}

func (m Map[K, V]) Pairs() []Pair[K, V] {
	pairs := make([]Pair[K, V], 0, len(m.keys))
	for _, k := range m.keys {
		pairs = append(pairs, P(k, detach(m.values[k])))
	}
	return pairs
}

func (m Map[K, V]) CopyWithout(keys ...K) Map[K, V] {
	drop := make(map[K]struct{}, len(keys))
	for _, k := range keys {
		drop[k] = struct{}{}
	}
	pairs := make([]Pair[K, V], 0, len(m.keys))
	for _, k := range m.keys {
		if _, ok := drop[k]; ok {
			continue
		}
		pairs = append(pairs, P(k, m.values[k]))
	}
	return NewMap(pairs...)
}

// CopyWith derives a Map holding extra on top of m. The extra values are
// frozen, so later changes to what the caller passed do not show through.
func (m Map[K, V]) CopyWith(extra ...Pair[K, V]) (Map[K, V], error) {
	return FreezeMap(append(m.Pairs(), extra...)...)
}

// ToMap returns a mutable copy.
func (m Map[K, V]) ToMap() map[K]V {
	out := make(map[K]V, len(m.keys))
	for k, v := range m.values {
		out[k] = detach(v)
	}
	return out
}

func (m Map[K, V]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyBytes, err := json.Marshal(fmt.Sprint(k))
		if err != nil {
			return nil, err
		}
		valueBytes, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')
		buf.Write(valueBytes)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
