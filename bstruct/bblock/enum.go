package bblock

import (
	"github.com/pkg/errors"
	"github.com/thanhnguyen2187/bindef/bstruct/bdesc"
	"github.com/thanhnguyen2187/bindef/bstruct/bfield"
)

func (b *Block) optionDesc(i int, wantBool bool) (*bdesc.Descriptor, error) {
	d, err := b.childDesc(i)
	if err != nil {
		return nil, err
	}
	if wantBool && !d.Type().IsBool() || !wantBool && !d.Type().IsEnum() {
		return nil, errors.Errorf("%q is a %s", d.Name(), d.Type().Name())
	}
	return d, nil
}

// EnumName is the option name of enum child i, or "" when its value has
// no option.
func (b *Block) EnumName(i int) (string, error) {
	d, err := b.optionDesc(i, false)
	if err != nil {
		return "", err
	}
	value := b.At(i)
	if value == nil {
		value = d.Type().Default()
	}
	j, ok := d.ValueIndex(value)
	if !ok {
		return "", nil
	}
	return d.Entry(j).Name(), nil
}

func (b *Block) SetEnum(i int, name string) error {
	d, err := b.optionDesc(i, false)
	if err != nil {
		return err
	}
	j, ok := d.OptionIndex(name)
	if !ok {
		return &KeyError{Block: d.Name(), Key: name}
	}
	return b.SetAt(i, d.Entry(j).Value())
}

// Flag tests one option of bool child i.
func (b *Block) Flag(i int, name string) (bool, error) {
	d, mask, err := b.flagMask(i, name)
	if err != nil {
		return false, err
	}
	value := b.At(i)
	if value == nil {
		value = d.Type().Default()
	}
	n, err := bfield.ToInt64(value)
	if err != nil {
		return false, err
	}
	return n&mask != 0, nil
}

func (b *Block) SetFlag(i int, name string, on bool) error {
	_, mask, err := b.flagMask(i, name)
	if err != nil {
		return err
	}
	var n int64
	if value := b.At(i); value != nil {
		if n, err = bfield.ToInt64(value); err != nil {
			return err
		}
	}
	if on {
		n |= mask
	} else {
		n &^= mask
	}
	return b.SetAt(i, n)
}

func (b *Block) flagMask(i int, name string) (*bdesc.Descriptor, int64, error) {
	d, err := b.optionDesc(i, true)
	if err != nil {
		return nil, 0, err
	}
	j, ok := d.OptionIndex(name)
	if !ok {
		return nil, 0, &KeyError{Block: d.Name(), Key: name}
	}
	mask, err := bfield.ToInt64(d.Entry(j).Value())
	return d, mask, err
}
