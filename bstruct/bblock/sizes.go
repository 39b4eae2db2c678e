package bblock

import (
	"github.com/pkg/errors"
	"github.com/thanhnguyen2187/bindef/bstruct/bdesc"
	"github.com/thanhnguyen2187/bindef/bstruct/bfield"
)

// Resolve evaluates a SIZE or POINTER reference for a child of b. The
// caller fills the parts of c it knows; Parent is always b.
func (b *Block) Resolve(ref bdesc.Ref, c bdesc.Call) (int, error) {
	c.Parent = b
	switch ref.Kind() {
	case bdesc.RefInt:
		return ref.Int(), nil
	case bdesc.RefPath:
		value, err := b.Neighbor(ref.Path())
		if err != nil {
			return 0, err
		}
		n, err := bfield.ToInt64(value)
		if err != nil {
			return 0, errors.Wrapf(err, "%q does not lead to an integer", ref.Path())
		}
		return int(n), nil
	case bdesc.RefAccessor:
		return ref.Accessor().Get(c)
	}
	return 0, errors.New("reference is not set")
}

// Store writes n through a SIZE or POINTER reference. Fixed references
// are stored by overriding the child's descriptor with derive.
func (b *Block) Store(
	i int,
	ref bdesc.Ref,
	n int,
	derive func(d *bdesc.Descriptor) (*bdesc.Descriptor, error),
) error {
	switch ref.Kind() {
	case bdesc.RefPath:
		return b.SetNeighbor(ref.Path(), n)
	case bdesc.RefAccessor:
		if ref.Accessor().Set == nil {
			return errors.Errorf("child %d of %q has a read-only accessor", i, b.desc.Name())
		}
		return ref.Accessor().Set(bdesc.Call{Parent: b, Index: i, Value: b.At(i)}, n)
	}
	derived, err := derive(b.ChildDescriptor(i))
	if err != nil {
		return err
	}
	b.Override(i, derived)
	return nil
}

func (b *Block) childDesc(i int) (*bdesc.Descriptor, error) {
	d := b.ChildDescriptor(i)
	if d == nil {
		return nil, &IndexError{Block: b.desc.Name(), Index: i, Len: len(b.children)}
	}
	return d, nil
}

// SizeOf is the SIZE of child i: bytes for data and structs, elements for
// arrays. Without a declared SIZE it is computed from the value.
func (b *Block) SizeOf(i int) (int, error) {
	d, err := b.childDesc(i)
	if err != nil {
		return 0, err
	}
	if d.Size().IsSet() {
		return b.Resolve(d.Size(), bdesc.Call{Index: i, Value: b.At(i)})
	}
	return actualSize(d, b.At(i))
}

func actualSize(d *bdesc.Descriptor, value any) (int, error) {
	if d.Type().IsData() {
		if value == nil {
			value = d.Type().Default()
		}
		return d.Type().SizeCalc(value)
	}
	if n, ok := d.StaticSize(); ok {
		return n, nil
	}
	if child, ok := value.(*Block); ok && (d.Type().IsArray() || d.Type().Kind() == bfield.KindContainer) {
		return child.Len(), nil
	}
	return 0, errors.Errorf("%q has no size", d.Name())
}

// SetSize stores n as the SIZE of child i.
func (b *Block) SetSize(i int, n int) error {
	d, err := b.childDesc(i)
	if err != nil {
		return err
	}
	return b.Store(i, d.Size(), n, func(d *bdesc.Descriptor) (*bdesc.Descriptor, error) {
		return d.WithSize(n)
	})
}

// RefreshSize recomputes the SIZE of child i from its value. Static and
// undeclared sizes are left alone.
func (b *Block) RefreshSize(i int) error {
	d, err := b.childDesc(i)
	if err != nil {
		return err
	}
	if !d.Size().IsSet() || d.Type().IsStruct() {
		return nil
	}
	actual, err := actualSize(d, b.At(i))
	if err != nil {
		return err
	}
	current, err := b.SizeOf(i)
	if err == nil && current == actual {
		return nil
	}
	return b.SetSize(i, actual)
}

// Pointer is the location of child i relative to the root offset. The
// boolean is false when the child is not pointer-based.
func (b *Block) Pointer(i int) (int, bool, error) {
	d, err := b.childDesc(i)
	if err != nil {
		return 0, false, err
	}
	if !d.Pointer().IsSet() {
		return 0, false, nil
	}
	n, err := b.Resolve(d.Pointer(), bdesc.Call{Index: i, Value: b.At(i)})
	return n, true, err
}

func (b *Block) SetPointer(i int, n int) error {
	d, err := b.childDesc(i)
	if err != nil {
		return err
	}
	if !d.Pointer().IsSet() {
		return errors.Errorf("%q is not pointer-based", d.Name())
	}
	return b.Store(i, d.Pointer(), n, func(d *bdesc.Descriptor) (*bdesc.Descriptor, error) {
		return d.WithPointer(n), nil
	})
}
