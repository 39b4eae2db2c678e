package bcodec

import (
	"github.com/pkg/errors"
	"github.com/thanhnguyen2187/bindef/bstruct/bblock"
	"github.com/thanhnguyen2187/bindef/bstruct/bdesc"
	"github.com/thanhnguyen2187/bindef/bstruct/bfield"
)

// New builds a tree for desc holding default values. Switches take the
// case their literal or path selects, else their default. Arrays get as
// many elements as their SIZE resolves to.
func New(desc *bdesc.Descriptor) (*bblock.Block, error) {
	for desc.Type().Kind() == bfield.KindSwitch {
		c := pickCase(desc, nil)
		if c == nil {
			return nil, errors.Errorf("switch %q has no usable case", desc.Name())
		}
		desc = c
	}
	root := bblock.New(desc)
	if err := fill(root, nil, 0); err != nil {
		return nil, err
	}
	return root, nil
}

// AppendDefault grows an array block by one default element.
func AppendDefault(array *bblock.Block) error {
	if err := array.Append(nil); err != nil {
		return err
	}
	return Reset(array, array.Len()-1)
}

// Reset replaces child j of b with a default value, picking switch cases
// from the current values of b.
func Reset(b *bblock.Block, j int) error {
	d := b.ChildDescriptor(j)
	for d != nil && d.Type().Kind() == bfield.KindSwitch {
		d = pickCase(d, b)
	}
	if d == nil {
		return nil
	}
	if d.Type().IsData() {
		return b.SetAt(j, defaultOf(d))
	}
	child := b.NewChild(d)
	if err := b.SetAt(j, child); err != nil {
		return err
	}
	return fill(child, b, j)
}

// CaseOf is the case a switch takes given the current values of host,
// without reading any bytes.
func CaseOf(sw *bdesc.Descriptor, host *bblock.Block) *bdesc.Descriptor {
	for sw != nil && sw.Type().Kind() == bfield.KindSwitch {
		sw = pickCase(sw, host)
	}
	return sw
}

// pickCase selects a case without reading any bytes. Function selectors
// cannot be evaluated here and fall back to the default.
func pickCase(sw *bdesc.Descriptor, host *bblock.Block) *bdesc.Descriptor {
	var key any
	switch sel := sw.Case(); sel.Kind() {
	case bdesc.SelectLiteral:
		key = sel.Literal()
	case bdesc.SelectPath:
		if host != nil {
			if v, err := host.Neighbor(sel.Path()); err == nil {
				key = v
			}
		}
	}
	c, _ := sw.CaseFor(key)
	return c
}

func fill(b *bblock.Block, host *bblock.Block, i int) error {
	desc := b.Descriptor()
	switch desc.Type().Kind() {
	case bfield.KindData:
		if err := b.SetValue(defaultOf(desc)); err != nil {
			return err
		}
	case bfield.KindStruct, bfield.KindBitStruct, bfield.KindContainer, bfield.KindStreamAdapter:
		for j := 0; j < b.Len(); j++ {
			if err := Reset(b, j); err != nil {
				return err
			}
		}
	case bfield.KindArray:
		self := b
		if host != nil {
			self = host
		}
		n, err := self.Resolve(desc.Size(), bdesc.Call{Index: i})
		if err != nil {
			n = 0
		}
		for j := 0; j < n; j++ {
			if err := AppendDefault(b); err != nil {
				return err
			}
		}
	case bfield.KindUnion:
		size, _ := desc.StaticSize()
		if err := b.SetValue(make([]byte, size)); err != nil {
			return err
		}
	}
	if desc.Steptree() != nil {
		return Reset(b, bblock.SteptreeIndex)
	}
	return nil
}
