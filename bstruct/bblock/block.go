package bblock

import (
	"github.com/pkg/errors"
	"github.com/thanhnguyen2187/bindef/bstruct/bdesc"
	"github.com/thanhnguyen2187/bindef/bstruct/bfield"
)

// SteptreeIndex addresses the trailing child of a block.
const SteptreeIndex = -1

// Block is one node of a data tree. Data children are stored as plain Go
// values, block children as *Block. A data descriptor at the root gets a
// Block holding only Value.
type Block struct {
	id       int
	arena    *arena
	desc     *bdesc.Descriptor
	parent   *Block
	children []any
	steptree any
	value    any

	// union state
	activeKey any
	active    bool
}

// New returns an empty root block for desc. Struct and container blocks
// get one unset slot per entry.
func New(desc *bdesc.Descriptor) *Block {
	return newBlock(desc, nil, newArena())
}

func newBlock(desc *bdesc.Descriptor, parent *Block, a *arena) *Block {
	b := &Block{
		id:     a.id(),
		arena:  a,
		desc:   desc,
		parent: parent,
	}
	switch desc.Type().Kind() {
	case bfield.KindStruct, bfield.KindBitStruct, bfield.KindContainer:
		b.children = make([]any, desc.Len())
	case bfield.KindStreamAdapter:
		b.children = make([]any, 1)
	}
	return b
}

// NewChild returns an empty block for desc in the tree of b. It is not
// installed; pass it to SetAt, Append or SetSteptree.
func (b *Block) NewChild(desc *bdesc.Descriptor) *Block {
	return newBlock(desc, b, b.arena)
}

func (b *Block) Descriptor() *bdesc.Descriptor { return b.desc }
func (b *Block) Parent() *Block                { return b.parent }
func (b *Block) Len() int                      { return len(b.children) }
func (b *Block) Name() string                  { return b.desc.Name() }

func (b *Block) Root() *Block {
	root := b
	for root.parent != nil {
		root = root.parent
	}
	return root
}

// Index is the position of b in its parent, SteptreeIndex for the trailing
// child, or -2 when b is detached.
func (b *Block) Index() int {
	if b.parent == nil {
		return -2
	}
	if b.parent.steptree == b {
		return SteptreeIndex
	}
	for i, c := range b.parent.children {
		if c == any(b) {
			return i
		}
	}
	return -2
}

// ChildDescriptor is the descriptor governing child i: an override if one
// was set, else the entry, array element or steptree of the block's own
// descriptor.
func (b *Block) ChildDescriptor(i int) *bdesc.Descriptor {
	if d, ok := b.arena.get(b.id, i); ok {
		return d
	}
	if i == SteptreeIndex {
		return b.desc.Steptree()
	}
	switch b.desc.Type().Kind() {
	case bfield.KindArray, bfield.KindWhileArray, bfield.KindStreamAdapter:
		return b.desc.SubStruct()
	case bfield.KindUnion:
		if key, ok := b.ActiveKey(); ok {
			c, _ := b.desc.CaseFor(key)
			return c
		}
		return nil
	}
	if i < 0 || i >= b.desc.Len() {
		return nil
	}
	return b.desc.Entry(i)
}

// Override replaces the descriptor of child i in this tree only. A nil
// descriptor restores the schema's.
func (b *Block) Override(i int, d *bdesc.Descriptor) {
	b.arena.set(b.id, i, d)
}

func (b *Block) Overridden(i int) bool {
	_, ok := b.arena.get(b.id, i)
	return ok
}

func (b *Block) checkIndex(i int) error {
	if i == SteptreeIndex && b.desc.Steptree() != nil {
		return nil
	}
	if i < 0 || i >= len(b.children) {
		return &IndexError{Block: b.desc.Name(), Index: i, Len: len(b.children)}
	}
	return nil
}

// At returns child i, nil when it is unset or out of range.
func (b *Block) At(i int) any {
	if b.checkIndex(i) != nil {
		return nil
	}
	if i == SteptreeIndex {
		return b.steptree
	}
	return b.children[i]
}

// Block returns child i when it is a block.
func (b *Block) Block(i int) (*Block, bool) {
	child, ok := b.At(i).(*Block)
	return child, ok
}

func (b *Block) indexOf(name string) (int, bool) {
	if st := b.desc.Steptree(); st != nil && b.ChildDescriptor(SteptreeIndex).Name() == name {
		return SteptreeIndex, true
	}
	if b.arena.has(b.id) || !b.desc.Type().IsStruct() && b.desc.Type().Kind() != bfield.KindContainer {
		for i := range b.children {
			if d := b.ChildDescriptor(i); d != nil && d.Name() == name {
				return i, true
			}
		}
		return 0, false
	}
	return b.desc.Index(name)
}

func (b *Block) Get(name string) (any, error) {
	i, ok := b.indexOf(name)
	if !ok {
		return nil, &KeyError{Block: b.desc.Name(), Key: name}
	}
	return b.At(i), nil
}

// SetAt stores value as child i. Data values are normalized to the child
// type; blocks are moved into this tree.
func (b *Block) SetAt(i int, value any) error {
	if err := b.checkIndex(i); err != nil {
		return err
	}
	native, err := b.native(i, value)
	if err != nil {
		return err
	}
	if i == SteptreeIndex {
		b.steptree = native
	} else {
		b.children[i] = native
	}
	return nil
}

func (b *Block) Set(name string, value any) error {
	i, ok := b.indexOf(name)
	if !ok {
		return &KeyError{Block: b.desc.Name(), Key: name}
	}
	return b.SetAt(i, value)
}

func (b *Block) SetSteptree(value any) error {
	return b.SetAt(SteptreeIndex, value)
}

func (b *Block) Steptree() any {
	return b.steptree
}

// Append adds an element to an array block.
func (b *Block) Append(value any) error {
	if !b.desc.Type().IsArray() {
		return errors.Errorf("%q is a %s, only arrays can grow", b.desc.Name(), b.desc.Type().Name())
	}
	b.children = append(b.children, nil)
	if err := b.SetAt(len(b.children)-1, value); err != nil {
		b.children = b.children[:len(b.children)-1]
		return err
	}
	return nil
}

// Truncate drops array elements past n.
func (b *Block) Truncate(n int) {
	if n < len(b.children) {
		for _, child := range b.children[n:] {
			if c, ok := child.(*Block); ok {
				c.parent = nil
			}
		}
		b.children = b.children[:n]
	}
}

// Names lists child names in order.
func (b *Block) Names() []string {
	names := make([]string, 0, len(b.children))
	for i := range b.children {
		if d := b.ChildDescriptor(i); d != nil {
			names = append(names, d.Name())
		}
	}
	return names
}

// Value is the scalar of a data root, or the raw bytes of a union.
func (b *Block) Value() any {
	return b.value
}

func (b *Block) SetValue(value any) error {
	switch {
	case b.desc.Type().IsData():
		native, err := b.desc.Type().Normalize(value)
		if err != nil {
			return err
		}
		b.value = native
	case b.desc.Type().Kind() == bfield.KindUnion:
		raw, ok := value.([]byte)
		if !ok {
			return errors.Errorf("union %q holds bytes, not %T", b.desc.Name(), value)
		}
		b.value = raw
	default:
		return errors.Errorf("%q is a %s and has no scalar value", b.desc.Name(), b.desc.Type().Name())
	}
	return nil
}

// ActiveKey is the case a union block was last activated as.
func (b *Block) ActiveKey() (any, bool) {
	return b.activeKey, b.active
}

// SetActive installs c as the active case of a union block. A nil c
// deactivates it.
func (b *Block) SetActive(key any, c *Block) error {
	if b.desc.Type().Kind() != bfield.KindUnion {
		return errors.Errorf("%q is not a union", b.desc.Name())
	}
	if c == nil {
		b.children, b.activeKey, b.active = nil, nil, false
		return nil
	}
	c.adopt(b)
	b.children = []any{c}
	b.activeKey, b.active = bfield.NormalizeKey(key), true
	return nil
}

func (b *Block) native(i int, value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	if child, ok := value.(*Block); ok {
		if child == b || child.isAncestorOf(b) {
			return nil, errors.Errorf("cannot store %q inside itself", child.desc.Name())
		}
		child.adopt(b)
		return child, nil
	}
	desc := b.ChildDescriptor(i)
	if desc == nil || !desc.Type().IsData() {
		return nil, errors.Errorf("child %d of %q is a block, not %T", i, b.desc.Name(), value)
	}
	return desc.Type().Normalize(value)
}

func (b *Block) isAncestorOf(other *Block) bool {
	for p := other.parent; p != nil; p = p.parent {
		if p == b {
			return true
		}
	}
	return false
}

// adopt moves b, its subtree and their overrides into the tree of parent.
func (b *Block) adopt(parent *Block) {
	if b.parent != nil && b.parent != parent {
		b.parent.release(b)
	}
	b.parent = parent
	if b.arena == parent.arena {
		return
	}
	b.Walk(func(n *Block) {
		old, oldID := n.arena, n.id
		n.arena, n.id = parent.arena, parent.arena.id()
		for key, d := range old.overrides {
			if key.block == oldID {
				n.arena.set(n.id, key.index, d)
				old.set(oldID, key.index, nil)
			}
		}
	})
}

// release clears the slot that held child.
func (b *Block) release(child *Block) {
	if b.steptree == child {
		b.steptree = nil
		return
	}
	for i, c := range b.children {
		if c == any(child) {
			b.children[i] = nil
		}
	}
}

// Walk calls fn on b and every block below it, parents first.
func (b *Block) Walk(fn func(n *Block)) {
	fn(b)
	for _, child := range append(append([]any{}, b.children...), b.steptree) {
		if c, ok := child.(*Block); ok {
			c.Walk(fn)
		}
	}
}
