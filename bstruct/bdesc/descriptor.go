package bdesc

import (
	"math/big"

	"github.com/samber/lo"
	"github.com/thanhnguyen2187/bindef/bstruct/bfield"
	"github.com/thanhnguyen2187/bindef/bstruct/bfrozen"
)

// Descriptor is a sanitized schema node. It is never modified after
// Sanitize returns; the With* methods derive copies that remember their
// origin.
type Descriptor struct {
	name        string
	guiName     string
	typ         *bfield.Type
	entries     []*Descriptor
	names       bfrozen.Map[string, int]
	values      bfrozen.Map[any, int]
	offsets     []int
	size        Ref
	align       int
	layout      int
	dflt        any
	hasDefault  bool
	pointer     Ref
	carryOff    bool
	selector    Selector
	cases       []*Descriptor
	caseKeys    []any
	caseMap     bfrozen.Map[any, int]
	defaultCase *Descriptor
	subStruct   *Descriptor
	steptree    *Descriptor
	value       any
	min         any
	max         any
	decoder     StreamDecodeFunc
	encoder     StreamEncodeFunc
	meta        bfrozen.Map[string, any]
	orig        *Descriptor
}

func (d *Descriptor) Name() string                   { return d.name }
func (d *Descriptor) GUIName() string                { return d.guiName }
func (d *Descriptor) Type() *bfield.Type             { return d.typ }
func (d *Descriptor) Len() int                       { return len(d.entries) }
func (d *Descriptor) Entry(i int) *Descriptor        { return d.entries[i] }
func (d *Descriptor) Names() bfrozen.Map[string, int] { return d.names }
func (d *Descriptor) Size() Ref                      { return d.size }
func (d *Descriptor) Align() int                     { return d.align }
func (d *Descriptor) Pointer() Ref                   { return d.pointer }
func (d *Descriptor) CarryOff() bool                 { return d.carryOff }
func (d *Descriptor) Case() Selector                 { return d.selector }
func (d *Descriptor) DefaultCase() *Descriptor       { return d.defaultCase }
func (d *Descriptor) SubStruct() *Descriptor         { return d.subStruct }
func (d *Descriptor) Steptree() *Descriptor          { return d.steptree }
func (d *Descriptor) Value() any                     { return d.value }
func (d *Descriptor) Min() any                       { return d.min }
func (d *Descriptor) Max() any                       { return d.max }
func (d *Descriptor) Decoder() StreamDecodeFunc      { return d.decoder }
func (d *Descriptor) Encoder() StreamEncodeFunc      { return d.encoder }
func (d *Descriptor) Meta() bfrozen.Map[string, any] { return d.meta }

// LayoutAlign is the alignment used when d is placed inside a struct. It
// covers automatic alignment, where Align only reports an explicit ALIGN.
func (d *Descriptor) LayoutAlign() int {
	return d.layout
}

// StaticSize is the byte size known without any data. Switches are static
// when all of their cases are, and take the largest.
func (d *Descriptor) StaticSize() (int, bool) {
	if n, ok := d.size.IntValue(); ok {
		return n, true
	}
	if d.typ == nil || d.typ.Kind() != bfield.KindSwitch {
		return 0, false
	}
	size := 0
	for _, c := range append(d.Cases(), d.defaultCase) {
		if c == nil {
			continue
		}
		n, ok := c.StaticSize()
		if !ok {
			return 0, false
		}
		size = lo.Max([]int{size, n})
	}
	return size, true
}

// Orig returns the descriptor this one was derived from, or itself.
func (d *Descriptor) Orig() *Descriptor {
	if d.orig != nil {
		return d.orig
	}
	return d
}

func (d *Descriptor) Entries() []*Descriptor {
	return lo.Map(d.entries, func(e *Descriptor, _ int) *Descriptor { return e })
}

func (d *Descriptor) Index(name string) (int, bool) {
	return d.names.Get(name)
}

// Offset is the byte (or, in a bit struct, bit) offset of struct entry i.
func (d *Descriptor) Offset(i int) int {
	return d.offsets[i]
}

func (d *Descriptor) Offsets() []int {
	offsets := make([]int, len(d.offsets))
	copy(offsets, d.offsets)
	return offsets
}

// Default returns a copy of the default value.
func (d *Descriptor) Default() (any, bool) {
	return cloneValue(d.dflt), d.hasDefault
}

func (d *Descriptor) Cases() []*Descriptor {
	return lo.Map(d.cases, func(c *Descriptor, _ int) *Descriptor { return c })
}

func (d *Descriptor) CaseKeys() []any {
	keys := make([]any, len(d.caseKeys))
	copy(keys, d.caseKeys)
	return keys
}

// CaseFor resolves a selector value to a case, falling back to the default.
// The second return value is false when the default was used.
func (d *Descriptor) CaseFor(key any) (*Descriptor, bool) {
	if i, ok := d.caseMap.Get(bfield.NormalizeKey(key)); ok {
		return d.cases[i], true
	}
	return d.defaultCase, false
}

// OptionIndex finds an enum or bool option by name.
func (d *Descriptor) OptionIndex(name string) (int, bool) {
	if !d.isOptionSet() {
		return 0, false
	}
	return d.names.Get(name)
}

// ValueIndex finds the enum option holding value.
func (d *Descriptor) ValueIndex(value any) (int, bool) {
	return d.values.Get(bfield.NormalizeKey(value))
}

func (d *Descriptor) isOptionSet() bool {
	return d.typ != nil && (d.typ.IsEnum() || d.typ.IsBool())
}

// HasPointer reports whether d or any descendant reads from a pointer.
func (d *Descriptor) HasPointer() bool {
	return d.contains(func(n *Descriptor) bool { return n.pointer.IsSet() })
}

func (d *Descriptor) HasSteptree() bool {
	return d.contains(func(n *Descriptor) bool { return n.steptree != nil })
}

func (d *Descriptor) contains(match func(n *Descriptor) bool) bool {
	if match(d) {
		return true
	}
	children := append([]*Descriptor{}, d.cases...)
	if !d.isOptionSet() {
		children = append(children, d.entries...)
	}
	children = append(children, d.defaultCase, d.subStruct, d.steptree)
	for _, child := range children {
		if child != nil && child.contains(match) {
			return true
		}
	}
	return false
}

func (d *Descriptor) derive() *Descriptor {
	copied := *d
	copied.orig = d.Orig()
	return &copied
}

// WithSize derives a descriptor with a fixed size. Struct sizes are static
// and cannot be changed.
func (d *Descriptor) WithSize(n int) (*Descriptor, error) {
	if d.typ != nil && d.typ.IsStruct() {
		return nil, &DescEditError{Name: d.name, Reason: "struct sizes are static"}
	}
	if n < 0 {
		return nil, &DescEditError{Name: d.name, Reason: "size cannot be negative"}
	}
	derived := d.derive()
	derived.size = IntRef(n)
	return derived, nil
}

// WithPointer derives a descriptor that reads and writes at a fixed location.
func (d *Descriptor) WithPointer(n int) *Descriptor {
	derived := d.derive()
	derived.pointer = IntRef(n)
	return derived
}

func (d *Descriptor) WithDefault(value any) (*Descriptor, error) {
	if d.typ == nil || !d.typ.IsData() {
		return nil, &DescEditError{Name: d.name, Reason: "only data fields carry a default"}
	}
	native, err := d.typ.Normalize(value)
	if err != nil {
		return nil, &DescEditError{Name: d.name, Reason: err.Error()}
	}
	derived := d.derive()
	derived.dflt, derived.hasDefault = native, true
	return derived, nil
}

func (d *Descriptor) WithName(name string) (*Descriptor, error) {
	sanitized := strToName(name)
	if sanitized == "" || keywords.Has(sanitized) {
		return nil, &DescEditError{Name: d.name, Reason: "cannot use " + name + " as a name"}
	}
	derived := d.derive()
	derived.name = sanitized
	return derived, nil
}

// WithMeta derives a descriptor carrying an extra metadata key. The value
// is frozen on the way in.
func (d *Descriptor) WithMeta(key string, value any) (*Descriptor, error) {
	meta, err := d.meta.CopyWith(bfrozen.P(key, value))
	if err != nil {
		return nil, &DescEditError{Name: d.name, Reason: err.Error()}
	}
	derived := d.derive()
	derived.meta = meta
	return derived, nil
}

func (d *Descriptor) WithoutMeta(keys ...string) *Descriptor {
	derived := d.derive()
	derived.meta = d.meta.CopyWithout(keys...)
	return derived
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case []byte:
		return append([]byte{}, x...)
	case []int64:
		return append([]int64{}, x...)
	case []uint64:
		return append([]uint64{}, x...)
	case []float64:
		return append([]float64{}, x...)
	case *big.Int:
		return new(big.Int).Set(x)
	}
	return v
}
