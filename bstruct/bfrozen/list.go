package bfrozen

import (
	"encoding/json"
)

type (
	List[V any] struct {
		items []V
	}
	Set[K comparable] struct {
		items map[K]struct{}
	}
)

func NewList[V any](items ...V) List[V] {
	copied := make([]V, len(items))
	copy(copied, items)
	return List[V]{items: copied}
}

func (l List[V]) Len() int {
	return len(l.items)
}

func (l List[V]) At(i int) V {
	return detach(l.items[i])
}

func (l List[V]) Slice() []V {
	copied := make([]V, len(l.items))
	for i, item := range l.items {
		copied[i] = detach(item)
	}
	return copied
}

func (l List[V]) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.items)
}

func NewSet[K comparable](items ...K) Set[K] {
	s := Set[K]{items: make(map[K]struct{}, len(items))}
	for _, item := range items {
		s.items[item] = struct{}{}
	}
	return s
}

func (s Set[K]) Has(k K) bool {
	_, ok := s.items[k]
	return ok
}

func (s Set[K]) Len() int {
	return len(s.items)
}
