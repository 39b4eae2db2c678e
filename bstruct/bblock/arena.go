package bblock

import (
	"github.com/thanhnguyen2187/bindef/bstruct/bdesc"
)

type overrideKey struct {
	block int
	index int
}

// arena holds the descriptor overrides of one tree. A block keeps its
// schema descriptor; a derived descriptor for one of its children lives
// here, keyed by the block id and the child index.
type arena struct {
	next      int
	overrides map[overrideKey]*bdesc.Descriptor
	touched   map[int]int
}

func newArena() *arena {
	return &arena{
		overrides: map[overrideKey]*bdesc.Descriptor{},
		touched:   map[int]int{},
	}
}

func (a *arena) id() int {
	a.next++
	return a.next
}

func (a *arena) get(block int, index int) (*bdesc.Descriptor, bool) {
	d, ok := a.overrides[overrideKey{block, index}]
	return d, ok
}

func (a *arena) set(block int, index int, d *bdesc.Descriptor) {
	key := overrideKey{block, index}
	_, existed := a.overrides[key]
	if d == nil {
		if existed {
			delete(a.overrides, key)
			a.touched[block]--
		}
		return
	}
	if !existed {
		a.touched[block]++
	}
	a.overrides[key] = d
}

func (a *arena) has(block int) bool {
	return a.touched[block] > 0
}
