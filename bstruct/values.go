package bstruct

import (
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/iancoleman/orderedmap"
	"github.com/pkg/errors"
	"github.com/thanhnguyen2187/bindef/bstruct/bblock"
	"github.com/thanhnguyen2187/bindef/bstruct/bcodec"
	"github.com/thanhnguyen2187/bindef/bstruct/bdesc"
	"github.com/thanhnguyen2187/bindef/bstruct/bfield"
)

// ToOrderedMap converts the tree below node into plain values keyed in
// field order. Enums become their option names, bools a map of flags and
// raw bytes a hex string. A node that is not keyed by field names is put
// under its own name.
func ToOrderedMap(node *bblock.Block) (*orderedmap.OrderedMap, error) {
	v, err := blockValues(node)
	if err != nil {
		return nil, err
	}
	if om, ok := v.(*orderedmap.OrderedMap); ok && keyed(node.Descriptor()) {
		return om, nil
	}
	om := orderedmap.New()
	om.Set(node.Name(), v)
	return om, nil
}

func (t *Tag) Values() (*orderedmap.OrderedMap, error) {
	return ToOrderedMap(t.Root)
}

func keyed(d *bdesc.Descriptor) bool {
	switch d.Type().Kind() {
	case bfield.KindStruct, bfield.KindBitStruct, bfield.KindContainer, bfield.KindStreamAdapter:
		return true
	}
	return false
}

func skipped(d *bdesc.Descriptor) bool {
	if d == nil {
		return true
	}
	k := d.Type().Kind()
	return k == bfield.KindVoid || k == bfield.KindPad
}

func blockValues(b *bblock.Block) (any, error) {
	desc := b.Descriptor()
	switch desc.Type().Kind() {
	case bfield.KindData:
		return b.Value(), nil
	case bfield.KindVoid, bfield.KindPad:
		return nil, nil
	case bfield.KindArray, bfield.KindWhileArray:
		items := make([]any, 0, b.Len())
		for j := 0; j < b.Len(); j++ {
			v, err := childValue(b, j)
			if err != nil {
				return nil, err
			}
			items = append(items, v)
		}
		return items, nil
	case bfield.KindUnion:
		key, active := b.ActiveKey()
		if !active {
			raw, _ := b.Value().([]byte)
			return hex.EncodeToString(raw), nil
		}
		child, ok := b.Block(0)
		if !ok {
			return nil, errors.Errorf("union %q is active but holds no case", b.Name())
		}
		v, err := blockValues(child)
		if err != nil {
			return nil, err
		}
		om := orderedmap.New()
		om.Set(fmt.Sprint(key), v)
		return om, nil
	}

	om := orderedmap.New()
	for j := 0; j < b.Len(); j++ {
		d := b.ChildDescriptor(j)
		if skipped(d) {
			continue
		}
		v, err := childValue(b, j)
		if err != nil {
			return nil, err
		}
		om.Set(d.Name(), v)
	}
	if desc.Steptree() != nil {
		v, err := childValue(b, bblock.SteptreeIndex)
		if err != nil {
			return nil, err
		}
		om.Set(b.ChildDescriptor(bblock.SteptreeIndex).Name(), v)
	}
	return om, nil
}

func childValue(host *bblock.Block, i int) (any, error) {
	value := host.At(i)
	if child, ok := value.(*bblock.Block); ok {
		return blockValues(child)
	}
	d := host.ChildDescriptor(i)
	if value == nil || d == nil || !d.Type().IsData() {
		return value, nil
	}
	typ := d.Type()
	switch {
	case typ.IsEnum():
		name, err := host.EnumName(i)
		if err != nil {
			return nil, err
		}
		if name != "" {
			return name, nil
		}
	case typ.IsBool():
		flags := orderedmap.New()
		for _, opt := range d.Entries() {
			on, err := host.Flag(i, opt.Name())
			if err != nil {
				return nil, err
			}
			flags.Set(opt.Name(), on)
		}
		return flags, nil
	case typ.Value() == bfield.ValueBytes:
		if raw, ok := value.([]byte); ok {
			return hex.EncodeToString(raw), nil
		}
	}
	return value, nil
}

// ApplyValues stores values into node, the inverse of ToOrderedMap. Keys
// are applied in order so a switch sees the values it depends on first.
// Arrays are resized to the number of items given and SIZE fields that
// refer to other fields are updated.
func ApplyValues(node *bblock.Block, values *orderedmap.OrderedMap) error {
	if !keyed(node.Descriptor()) {
		v, ok := values.Get(node.Name())
		if !ok || len(values.Keys()) != 1 {
			return errors.Errorf("%q expects a single key %q", node.Name(), node.Name())
		}
		return applyBlock(node, v)
	}
	for _, key := range values.Keys() {
		i, ok := childIndex(node, key)
		if !ok {
			return &bblock.KeyError{Block: node.Name(), Key: key}
		}
		v, _ := values.Get(key)
		if err := applyChild(node, i, v); err != nil {
			return errors.Wrapf(err, "applying %s.%s", node.Name(), key)
		}
	}
	return nil
}

func (t *Tag) Apply(values *orderedmap.OrderedMap) error {
	return ApplyValues(t.Root, values)
}

func childIndex(b *bblock.Block, name string) (int, bool) {
	if b.Descriptor().Steptree() != nil && b.ChildDescriptor(bblock.SteptreeIndex).Name() == name {
		return bblock.SteptreeIndex, true
	}
	for j := 0; j < b.Len(); j++ {
		if d := b.ChildDescriptor(j); d != nil && d.Name() == name {
			return j, true
		}
	}
	return 0, false
}

func applyChild(host *bblock.Block, i int, value any) error {
	d := host.ChildDescriptor(i)
	if d.Type().Kind() == bfield.KindSwitch {
		c := bcodec.CaseOf(d, host)
		if c == nil {
			return errors.Errorf("switch %q has no usable case", d.Name())
		}
		if !holds(host, i, c) {
			if err := bcodec.Reset(host, i); err != nil {
				return err
			}
		}
		d = c
	}
	if err := applyTo(host, i, d, value); err != nil {
		return err
	}
	switch d.Size().Kind() {
	case bdesc.RefPath, bdesc.RefAccessor:
		return refreshSize(host, i, d)
	}
	return nil
}

// refreshSize keeps the SIZE of a delimited string that still fits, so
// values read from a file write back unchanged.
func refreshSize(host *bblock.Block, i int, d *bdesc.Descriptor) error {
	typ := d.Type()
	if typ.IsDelimited() {
		value := host.At(i)
		if value == nil {
			value = typ.Default()
		}
		current, err := host.SizeOf(i)
		if err != nil {
			return host.RefreshSize(i)
		}
		actual, err := typ.SizeCalc(value)
		if err == nil && actual-len(typ.Delimiter()) <= current {
			return nil
		}
	}
	return host.RefreshSize(i)
}

// holds reports whether child i already has the shape of case c.
func holds(host *bblock.Block, i int, c *bdesc.Descriptor) bool {
	value := host.At(i)
	if value == nil {
		return false
	}
	child, ok := value.(*bblock.Block)
	if !ok {
		return c.Type().IsData()
	}
	return child.Descriptor().Orig() == c.Orig()
}

func applyTo(host *bblock.Block, i int, d *bdesc.Descriptor, value any) error {
	if d.Type().IsData() {
		return applyData(host, i, d, value)
	}
	if skipped(d) {
		return nil
	}
	child, ok := host.Block(i)
	if !ok {
		if err := bcodec.Reset(host, i); err != nil {
			return err
		}
		if child, ok = host.Block(i); !ok {
			return errors.Errorf("%q did not produce a block", d.Name())
		}
	}
	return applyBlock(child, value)
}

func applyData(host *bblock.Block, i int, d *bdesc.Descriptor, value any) error {
	typ := d.Type()
	switch v := value.(type) {
	case string:
		if typ.IsEnum() {
			if _, ok := d.OptionIndex(v); ok {
				return host.SetEnum(i, v)
			}
		}
		if typ.Value() == bfield.ValueBytes {
			raw, err := hex.DecodeString(v)
			if err != nil {
				return errors.Wrapf(err, "%q holds hex digits", d.Name())
			}
			return host.SetAt(i, raw)
		}
	default:
		if flags, ok := asOrderedMap(value, nil); ok && typ.IsBool() {
			for _, name := range flags.Keys() {
				on, _ := flags.Get(name)
				b, ok := on.(bool)
				if !ok {
					return errors.Errorf("flag %q of %q is a %T", name, d.Name(), on)
				}
				if err := host.SetFlag(i, name, b); err != nil {
					return err
				}
			}
			return nil
		}
	}
	return host.SetAt(i, value)
}

func applyBlock(b *bblock.Block, value any) error {
	desc := b.Descriptor()
	switch desc.Type().Kind() {
	case bfield.KindData:
		return b.SetValue(value)
	case bfield.KindVoid, bfield.KindPad:
		return nil
	case bfield.KindArray, bfield.KindWhileArray:
		items, ok := value.([]any)
		if !ok {
			return errors.Errorf("%q expects a list, got %T", desc.Name(), value)
		}
		b.Truncate(len(items))
		for b.Len() < len(items) {
			if err := bcodec.AppendDefault(b); err != nil {
				return err
			}
		}
		for j, item := range items {
			if err := applyChild(b, j, item); err != nil {
				return errors.Wrapf(err, "item %d", j)
			}
		}
		return nil
	case bfield.KindUnion:
		return applyUnion(b, value)
	}
	om, ok := asOrderedMap(value, b)
	if !ok {
		return errors.Errorf("%q expects a mapping, got %T", desc.Name(), value)
	}
	return ApplyValues(b, om)
}

func applyUnion(b *bblock.Block, value any) error {
	desc := b.Descriptor()
	if s, ok := value.(string); ok {
		raw, err := hex.DecodeString(s)
		if err != nil {
			return errors.Wrapf(err, "union %q holds hex digits", desc.Name())
		}
		if err := b.SetActive(nil, nil); err != nil {
			return err
		}
		return b.SetValue(raw)
	}
	om, ok := asOrderedMap(value, nil)
	if !ok || len(om.Keys()) != 1 {
		return errors.Errorf("union %q expects hex bytes or a single case", desc.Name())
	}
	name := om.Keys()[0]
	var key any
	found := false
	for _, k := range desc.CaseKeys() {
		if fmt.Sprint(k) == name {
			key, found = k, true
			break
		}
	}
	if !found {
		return &bblock.KeyError{Block: desc.Name(), Key: name}
	}
	if err := bcodec.Activate(b, key); err != nil {
		return err
	}
	child, _ := b.Block(0)
	v, _ := om.Get(name)
	return applyBlock(child, v)
}

// asOrderedMap accepts what JSON, YAML and CBOR decoders produce for a
// mapping. Plain maps are ordered by the fields of b, when given.
func asOrderedMap(value any, b *bblock.Block) (*orderedmap.OrderedMap, bool) {
	switch m := value.(type) {
	case *orderedmap.OrderedMap:
		return m, true
	case orderedmap.OrderedMap:
		return &m, true
	case map[string]any:
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		rank := func(k string) int {
			if b == nil {
				return 0
			}
			i, ok := childIndex(b, k)
			switch {
			case !ok:
				return b.Len() + 1
			case i == bblock.SteptreeIndex:
				return b.Len()
			}
			return i
		}
		sort.SliceStable(keys, func(x, y int) bool {
			rx, ry := rank(keys[x]), rank(keys[y])
			if rx != ry {
				return rx < ry
			}
			return keys[x] < keys[y]
		})
		om := orderedmap.New()
		for _, k := range keys {
			om.Set(k, m[k])
		}
		return om, true
	}
	return nil, false
}
