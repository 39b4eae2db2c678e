package bdesc

import (
	"fmt"
	"log/slog"
	"math"
	"math/bits"
	"sort"
	"strconv"

	"github.com/samber/lo"
	"github.com/thanhnguyen2187/bindef/bstruct/bfield"
	"github.com/thanhnguyen2187/bindef/bstruct/bfrozen"
	"github.com/thanhnguyen2187/bindef/ds"
)

type (
	sanitizer struct {
		opts      Options
		registry  *bfield.Registry
		logger    *slog.Logger
		messages  []string
		including *ds.Stack[*Raw]
	}

	// scope is what a node inherits from the block that holds it.
	scope struct {
		parent      *bfield.Type
		endian      bfield.Endian
		substruct   bool
		defaultName string
	}
)

// Sanitize validates raw and compiles it into a Descriptor. Every problem
// found anywhere in the tree is reported in a single SanitizationError;
// nothing is returned unless the whole tree is valid.
func Sanitize(raw *Raw, opts Options) (*Descriptor, error) {
	s := &sanitizer{
		opts:      opts,
		registry:  opts.registry(),
		logger:    opts.logger(),
		including: ds.NewStack[*Raw](),
	}
	if raw == nil {
		return nil, &SanitizationError{Messages: []string{"descriptor is nil"}}
	}
	desc := s.node(raw, scope{endian: opts.endian(), defaultName: "root"})
	if len(s.messages) > 0 || desc == nil {
		name := raw.Name
		if desc != nil {
			name = desc.name
		}
		return nil, &SanitizationError{Name: name, Messages: s.messages}
	}
	return desc, nil
}

// MustSanitize is for descriptors defined in code.
func MustSanitize(raw *Raw, opts Options) *Descriptor {
	desc, err := Sanitize(raw, opts)
	if err != nil {
		panic(err)
	}
	return desc
}

func (s *sanitizer) errorf(format string, args ...any) {
	s.messages = append(s.messages, fmt.Sprintf(format, args...))
}

func (s *sanitizer) node(raw *Raw, sc scope) *Descriptor {
	raw = s.merge(raw)
	if raw.Type == "" {
		s.errorf("descriptor %q has no TYPE", lo.Ternary(raw.Name != "", raw.Name, sc.defaultName))
		return nil
	}
	typ, ok := s.registry.Lookup(raw.Type)
	if !ok {
		s.errorf("descriptor %q has unknown TYPE %q", lo.Ternary(raw.Name != "", raw.Name, sc.defaultName), raw.Type)
		return nil
	}

	name := s.name(raw, sc, typ)
	endian := sc.endian
	if raw.Endian != "" {
		if e, ok := bfield.ParseEndian(raw.Endian); ok && e != bfield.Neutral {
			endian = e
		}
	}
	typ = typ.WithEndian(endian)

	s.findErrors(raw, name, typ, sc)

	d := &Descriptor{
		name:     name,
		guiName:  raw.GUIName,
		typ:      typ,
		value:    raw.Value,
		decoder:  raw.Decoder,
		encoder:  raw.Encoder,
		carryOff: raw.CarryOff != nil && *raw.CarryOff,
		meta:     s.freezeMeta(raw.Meta, name),
	}
	if d.guiName == "" {
		d.guiName = name
	}
	s.common(raw, d)

	child := scope{parent: typ, endian: endian}
	switch typ.Kind() {
	case bfield.KindData, bfield.KindBit:
		if typ.IsEnum() || typ.IsBool() {
			s.options(raw, d)
		}
		s.bounds(raw, d)
	case bfield.KindStruct, bfield.KindBitStruct:
		child.substruct = true
		s.structure(raw, d, child)
	case bfield.KindUnion:
		s.union(raw, d, child)
	case bfield.KindContainer:
		s.container(raw, d, child)
	case bfield.KindArray, bfield.KindWhileArray:
		s.array(raw, d, child)
	case bfield.KindSwitch:
		// cases stand where the switch stands
		child.parent, child.substruct = sc.parent, sc.substruct
		s.cases(raw, d, child)
	case bfield.KindStreamAdapter:
		s.streamAdapter(raw, d, child)
	case bfield.KindPad:
		if _, ok := d.size.IntValue(); !ok {
			s.errorf("Pad %q needs an integer SIZE", name)
		}
	}
	s.defaultValue(raw, d)
	s.align(raw, d)

	if raw.Steptree != nil {
		if typ.IsData() {
			s.errorf("data field %q cannot have a STEPTREE", name)
		} else {
			d.steptree = s.node(raw.Steptree, scope{parent: typ, endian: endian, defaultName: "steptree"})
		}
	}
	return d
}

func (s *sanitizer) name(raw *Raw, sc scope, typ *bfield.Type) string {
	src := raw.Name
	if src == "" {
		src = raw.GUIName
	}
	if src == "" {
		if sc.defaultName == "" {
			s.errorf("a %s entry has no NAME", typ.Name())
			return ""
		}
		return sc.defaultName
	}
	name := strToName(src)
	if name == "" {
		s.errorf("cannot derive a name from %q", src)
		return ""
	}
	if keywords.Has(name) {
		s.errorf("%q is a reserved descriptor key and cannot be used as a name", name)
		return name
	}
	if name != src && s.opts.Warn {
		s.logger.Warn("renamed field", "from", src, "to", name)
	}
	return name
}

// merge applies INCLUDE. Keys already set on raw win.
func (s *sanitizer) merge(raw *Raw) *Raw {
	if raw.Include == nil {
		return raw
	}
	if s.including.Contains(func(r *Raw) bool { return r == raw }) {
		s.errorf("descriptor %q includes itself", raw.Name)
		withoutInclude := *raw
		withoutInclude.Include = nil
		return &withoutInclude
	}
	s.including.Push(raw)
	defer s.including.Pop()

	included := s.merge(raw.Include)
	merged := *raw
	merged.Include = nil
	fillMissing(&merged, included)
	return &merged
}

func fillMissing(dst *Raw, src *Raw) {
	if dst.Type == "" {
		dst.Type = src.Type
	}
	if dst.Name == "" {
		dst.Name = src.Name
	}
	if dst.GUIName == "" {
		dst.GUIName = src.GUIName
	}
	if len(dst.Entries) == 0 {
		dst.Entries = src.Entries
	}
	if len(dst.Cases) == 0 {
		dst.Cases = src.Cases
	}
	dst.Size = lo.Ternary(dst.Size == nil, src.Size, dst.Size)
	dst.Default = lo.Ternary(dst.Default == nil, src.Default, dst.Default)
	dst.Pointer = lo.Ternary(dst.Pointer == nil, src.Pointer, dst.Pointer)
	dst.Case = lo.Ternary(dst.Case == nil, src.Case, dst.Case)
	dst.Value = lo.Ternary(dst.Value == nil, src.Value, dst.Value)
	dst.Min = lo.Ternary(dst.Min == nil, src.Min, dst.Min)
	dst.Max = lo.Ternary(dst.Max == nil, src.Max, dst.Max)
	if dst.Align == 0 {
		dst.Align = src.Align
	}
	if dst.Endian == "" {
		dst.Endian = src.Endian
	}
	if dst.Offset == nil {
		dst.Offset = src.Offset
	}
	if dst.CarryOff == nil {
		dst.CarryOff = src.CarryOff
	}
	if dst.Decoder == nil {
		dst.Decoder = src.Decoder
	}
	if dst.Encoder == nil {
		dst.Encoder = src.Encoder
	}
	dst.DefaultCase = fillNested(dst.DefaultCase, src.DefaultCase)
	dst.SubStruct = fillNested(dst.SubStruct, src.SubStruct)
	dst.Steptree = fillNested(dst.Steptree, src.Steptree)
	for k, v := range src.Meta {
		if _, ok := dst.Meta[k]; ok {
			continue
		}
		if dst.Meta == nil {
			dst.Meta = map[string]any{}
		}
		dst.Meta[k] = v
	}
}

func fillNested(dst *Raw, src *Raw) *Raw {
	if dst == nil || src == nil || dst == src {
		return lo.Ternary(dst == nil, src, dst)
	}
	merged := *dst
	merged.Meta = make(map[string]any, len(dst.Meta))
	for k, v := range dst.Meta {
		merged.Meta[k] = v
	}
	fillMissing(&merged, src)
	return &merged
}

func (s *sanitizer) findErrors(raw *Raw, name string, typ *bfield.Type, sc scope) {
	var found []string
	add := func(format string, args ...any) {
		found = append(found, fmt.Sprintf(format, args...))
	}
	if raw.Endian != "" {
		if _, ok := bfield.ParseEndian(raw.Endian); !ok {
			add("invalid ENDIAN %q", raw.Endian)
		}
	}
	if sc.parent != nil && sc.parent.Kind() == bfield.KindBitStruct {
		switch {
		case typ.IsStruct():
			add("bit_structs cannot contain structs")
		case !typ.IsBitBased():
			add("bit_structs may only contain bit_based data fields")
		}
	} else if typ.Kind() == bfield.KindBit {
		add("bit_based fields must reside in a bit_based struct")
	}
	if sc.substruct {
		switch {
		case typ.IsContainer():
			add("containers cannot be inside a struct")
		case typ.IsOpenEnded():
			add("open-ended fields cannot be inside a struct")
		}
	}
	if typ.IsData() && typ.IsVarSize() && !typ.IsEnum() && !typ.IsBool() {
		_, isInt := intOf(raw.Size)
		switch {
		case sc.substruct && !isInt:
			add("variable size data inside a struct needs a static integer SIZE")
		case !sc.substruct && raw.Size == nil && !typ.IsOpenEnded():
			add("variable size data needs a SIZE")
		}
	}
	if typ.IsArray() {
		if raw.Size == nil && !typ.IsOpenEnded() {
			add("arrays need a SIZE")
		}
		if raw.SubStruct == nil {
			add("arrays need a SUB_STRUCT")
		}
	}
	for _, message := range found {
		s.errorf("%s; offending element is '%s' of type '%s'", message, name, typ.Name())
	}
}

// common fills the keys every kind shares and checks SIZE, POINTER and
// ALIGN.
func (s *sanitizer) common(raw *Raw, d *Descriptor) {
	size, err := refOf(raw.Size)
	if err != nil {
		s.errorf("SIZE of %q: %v", d.name, err)
	}
	d.size = size
	if n, ok := d.size.IntValue(); ok && n < 0 {
		s.errorf("SIZE of %q cannot be negative", d.name)
	}
	if !d.typ.IsVarSize() {
		if n, ok := d.size.IntValue(); raw.Size != nil && (!ok || n != d.typ.Size()) {
			s.errorf("SIZE of %q must be the integer %d for a %s", d.name, d.typ.Size(), d.typ.Name())
		}
		d.size = IntRef(d.typ.Size())
	}
	pointer, err := refOf(raw.Pointer)
	if err != nil {
		s.errorf("POINTER of %q: %v", d.name, err)
	}
	d.pointer = pointer
	if raw.Align != 0 && (raw.Align < 0 || raw.Align&(raw.Align-1) != 0) {
		s.errorf("ALIGN of %q must be a power of two, got %d", d.name, raw.Align)
	}
}

func (s *sanitizer) align(raw *Raw, d *Descriptor) {
	if raw.Align > 0 {
		d.align = lo.Min([]int{raw.Align, AlignMax})
		d.layout = d.align
		return
	}
	d.align = 1
	d.layout = 1
	if s.opts.AlignMode != AlignAuto {
		if d.typ.IsStruct() {
			d.layout = maxLayout(d.entries)
		}
		return
	}
	switch d.typ.Kind() {
	case bfield.KindData:
		if d.typ.IsVarSize() {
			d.layout = lo.Max([]int{d.typ.Size(), 1})
		} else if n, ok := d.size.IntValue(); ok && n > 0 {
			d.layout = lo.Min([]int{ds.NextPow2(n), AlignMax})
		}
	case bfield.KindBitStruct:
		if n, ok := d.size.IntValue(); ok && n > 0 {
			d.layout = lo.Min([]int{ds.NextPow2(n), AlignMax})
		}
	case bfield.KindStruct, bfield.KindUnion:
		d.layout = maxLayout(append(d.entries, d.cases...))
	case bfield.KindArray, bfield.KindWhileArray:
		if d.subStruct != nil {
			d.layout = d.subStruct.layout
		}
	case bfield.KindSwitch:
		d.layout = maxLayout(append(d.Cases(), d.defaultCase))
	}
}

func maxLayout(descs []*Descriptor) int {
	align := 1
	for _, d := range descs {
		if d != nil && d.layout > align {
			align = d.layout
		}
	}
	return align
}

func (s *sanitizer) structure(raw *Raw, d *Descriptor, child scope) {
	bitStruct := d.typ.Kind() == bfield.KindBitStruct
	// In AlignNone mode only explicit aligns count, which the children
	// already reduced to their layout alignment.
	var (
		entries   []*Descriptor
		offsets   []int
		defOffset = 0
		lAlign    = 1
		names     []bfrozen.Pair[string, int]
		seen      = map[string]bool{}
	)
	for i, e := range raw.Entries {
		if e == nil {
			s.errorf("entry %d of %q is nil", i, d.name)
			continue
		}
		if e.Type == "Pad" && e.Include == nil {
			n, ok := intOf(e.Size)
			if !ok {
				s.errorf("Pad entry %d of %q needs an integer SIZE", i, d.name)
				continue
			}
			defOffset += n
			continue
		}
		entry := s.node(e, child)
		if entry == nil {
			continue
		}
		if seen[entry.name] {
			s.errorf("duplicate name %q in %q", entry.name, d.name)
		}
		seen[entry.name] = true
		names = append(names, bfrozen.P(entry.name, len(entries)))
		entries = append(entries, entry)
		if entry.Pointer().IsSet() {
			// stored outside the fixed region, so it takes no room in it
			offsets = append(offsets, defOffset)
			continue
		}
		size, ok := entry.StaticSize()
		if !ok {
			s.errorf("entry %q of struct %q has no static size", entry.name, d.name)
		}
		offset := defOffset
		if e.Offset != nil {
			offset = *e.Offset
		}
		if !bitStruct {
			a := lo.Min([]int{entry.layout, AlignMax})
			offset = ds.AlignUp(offset, a)
			lAlign = lo.Max([]int{lAlign, a})
		}
		defOffset = offset + size
		offsets = append(offsets, offset)
	}
	d.entries, d.offsets = entries, offsets
	d.names = bfrozen.NewMap(names...)

	total := defOffset
	if bitStruct {
		total = (defOffset + 7) / 8
	} else {
		total = ds.AlignUp(total, lo.Ternary(raw.Align > 0, lo.Max([]int{lAlign, raw.Align}), lAlign))
	}
	if raw.Size == nil {
		d.size = IntRef(total)
	} else if n, ok := d.size.IntValue(); !ok {
		s.errorf("SIZE of struct %q must be an integer", d.name)
	} else if n < lo.Ternary(bitStruct, (defOffset+7)/8, defOffset) {
		s.errorf("SIZE of struct %q is %d, but its entries need %d", d.name, n, defOffset)
	}
	if n, ok := d.size.IntValue(); ok && bitStruct && n > 8 {
		s.errorf("bit_struct %q is %d bytes, at most 8 are supported", d.name, n)
	}
}

func (s *sanitizer) container(raw *Raw, d *Descriptor, child scope) {
	var (
		names []bfrozen.Pair[string, int]
		seen  = map[string]bool{}
		pads  = 0
	)
	for i, e := range raw.Entries {
		if e == nil {
			s.errorf("entry %d of %q is nil", i, d.name)
			continue
		}
		entryScope := child
		if e.Type == "Pad" {
			entryScope.defaultName = fmt.Sprintf("pad_entry_%d", pads)
			pads++
		}
		entry := s.node(e, entryScope)
		if entry == nil {
			continue
		}
		if seen[entry.name] {
			s.errorf("duplicate name %q in %q", entry.name, d.name)
		}
		seen[entry.name] = true
		names = append(names, bfrozen.P(entry.name, len(d.entries)))
		d.entries = append(d.entries, entry)
	}
	d.names = bfrozen.NewMap(names...)
}

func (s *sanitizer) array(raw *Raw, d *Descriptor, child scope) {
	if raw.SubStruct != nil {
		child.defaultName = "sub_struct"
		d.subStruct = s.node(raw.SubStruct, child)
	}
	if d.typ.Kind() != bfield.KindWhileArray {
		return
	}
	d.selector = selectorOf(raw.Case)
	if d.selector.Kind() != SelectWhile {
		s.errorf("WhileArray %q needs a CASE that is a WhileFunc", d.name)
	}
}

func (s *sanitizer) streamAdapter(raw *Raw, d *Descriptor, child scope) {
	if raw.SubStruct == nil {
		s.errorf("StreamAdapter %q needs a SUB_STRUCT", d.name)
	} else {
		child.defaultName = "sub_struct"
		d.subStruct = s.node(raw.SubStruct, child)
	}
	if raw.Decoder == nil {
		s.errorf("StreamAdapter %q needs a DECODER", d.name)
	}
	if d.encoder == nil {
		d.encoder = func(plain []byte) ([]byte, error) { return plain, nil }
	}
}

// caseScope names a case after its key when it has no name of its own.
func caseScope(child scope, key any) scope {
	child.defaultName = strToName(fmt.Sprintf("case_%v", key))
	return child
}

func (s *sanitizer) cases(raw *Raw, d *Descriptor, child scope) {
	if raw.Case == nil {
		s.errorf("Switch %q needs a CASE", d.name)
	}
	d.selector = selectorOf(raw.Case)
	if d.selector.Kind() == SelectWhile {
		s.errorf("CASE of Switch %q cannot be a WhileFunc", d.name)
	}
	if raw.DefaultCase == nil {
		s.errorf("Switch %q needs a DEFAULT case", d.name)
	}

	inherit := func(c *Raw) *Raw {
		inherited := *c
		if inherited.Pointer == nil {
			inherited.Pointer = raw.Pointer
		}
		if inherited.Size == nil {
			inherited.Size = raw.Size
		}
		return &inherited
	}
	var keys []bfrozen.Pair[any, int]
	seen := map[any]bool{}
	for _, c := range raw.Cases {
		key := bfield.NormalizeKey(c.Key)
		if seen[key] {
			s.errorf("duplicate case %v in %q", key, d.name)
			continue
		}
		seen[key] = true
		if c.Desc == nil {
			s.errorf("case %v of %q has no descriptor", key, d.name)
			continue
		}
		desc := s.node(inherit(c.Desc), caseScope(child, key))
		if desc == nil {
			continue
		}
		if !desc.typ.IsBlock() {
			s.errorf("case %v of %q must be a block, not %s", key, d.name, desc.typ.Name())
		}
		keys = append(keys, bfrozen.P(key, len(d.cases)))
		d.cases = append(d.cases, desc)
		d.caseKeys = append(d.caseKeys, key)
	}
	d.caseMap = bfrozen.NewMap(keys...)

	if raw.DefaultCase != nil {
		child.defaultName = "default"
		d.defaultCase = s.node(inherit(raw.DefaultCase), child)
		if d.defaultCase != nil && !d.defaultCase.typ.IsBlock() {
			s.errorf("default case of %q must be a block, not %s", d.name, d.defaultCase.typ.Name())
		}
	}
}

func (s *sanitizer) union(raw *Raw, d *Descriptor, child scope) {
	if raw.Case != nil {
		d.selector = selectorOf(raw.Case)
		if d.selector.Kind() == SelectWhile {
			s.errorf("CASE of Union %q cannot be a WhileFunc", d.name)
		}
	}
	ordered := append([]CaseEntry{}, raw.Cases...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return lessKey(bfield.NormalizeKey(ordered[i].Key), bfield.NormalizeKey(ordered[j].Key))
	})

	var keys []bfrozen.Pair[any, int]
	seen := map[any]bool{}
	largest := 0
	for _, c := range ordered {
		key := bfield.NormalizeKey(c.Key)
		if seen[key] {
			s.errorf("duplicate case %v in %q", key, d.name)
			continue
		}
		seen[key] = true
		if c.Desc == nil {
			s.errorf("case %v of %q has no descriptor", key, d.name)
			continue
		}
		desc := s.node(c.Desc, caseScope(child, key))
		if desc == nil {
			continue
		}
		switch {
		case !desc.typ.IsBlock():
			s.errorf("case %v of Union %q must be a block, not %s", key, d.name, desc.typ.Name())
		case desc.HasPointer():
			s.errorf("case %v of Union %q cannot use pointers", key, d.name)
		case desc.HasSteptree():
			s.errorf("case %v of Union %q cannot have a STEPTREE", key, d.name)
		}
		if n, ok := desc.StaticSize(); ok {
			largest = lo.Max([]int{largest, n})
		} else {
			s.errorf("case %v of Union %q has no static size", key, d.name)
		}
		keys = append(keys, bfrozen.P(key, len(d.cases)))
		d.cases = append(d.cases, desc)
		d.caseKeys = append(d.caseKeys, key)
	}
	d.caseMap = bfrozen.NewMap(keys...)

	if raw.Size == nil {
		d.size = IntRef(largest)
	} else if n, ok := d.size.IntValue(); !ok {
		s.errorf("SIZE of Union %q must be an integer", d.name)
	} else if n < largest {
		s.errorf("SIZE of Union %q is %d, but its largest case needs %d", d.name, n, largest)
	}
}

func lessKey(a any, b any) bool {
	ai, aInt := a.(int64)
	bi, bInt := b.(int64)
	switch {
	case aInt && bInt:
		return ai < bi
	case aInt != bInt:
		return aInt
	}
	return fmt.Sprint(a) < fmt.Sprint(b)
}

// options assigns values to enum and bool options. A Pad entry of width w
// skips w values.
func (s *sanitizer) options(raw *Raw, d *Descriptor) {
	var (
		defVal  = 0
		padSize = 0
		names   []bfrozen.Pair[string, int]
		values  []bfrozen.Pair[any, int]
		seenN   = map[string]bool{}
		seenV   = map[any]bool{}
	)
	isStr := d.typ.Value() == bfield.ValueString
	for i, e := range raw.Entries {
		if e == nil {
			s.errorf("option %d of %q is nil", i, d.name)
			continue
		}
		if e.Type == "Pad" {
			n, ok := intOf(e.Size)
			if !ok || n < 1 {
				s.errorf("Pad option %d of %q needs a positive integer SIZE", i, d.name)
				continue
			}
			padSize += n - 1
			defVal++
			continue
		}
		name := strToName(lo.Ternary(e.Name != "", e.Name, e.GUIName))
		if name == "" {
			s.errorf("option %d of %q has no usable NAME", i, d.name)
			continue
		}

		var value any
		switch {
		case isStr:
			str, ok := e.Value.(string)
			if e.Value != nil && !ok {
				s.errorf("option %q of %q must have a string VALUE", name, d.name)
				continue
			}
			value = lo.Ternary(ok, str, name)
		case e.Value != nil:
			v, ok := intOf(e.Value)
			if !ok {
				s.errorf("option %q of %q has a non-integer VALUE %v", name, d.name, e.Value)
				continue
			}
			if d.typ.IsBool() {
				if v <= 0 {
					s.errorf("option %q of %q must have a positive VALUE, got %d", name, d.name, v)
					continue
				}
				defVal = bits.Len(uint(v)) - 1
			} else {
				defVal = v
			}
			padSize = 0
			value = int64(v)
		case d.typ.IsBool():
			value = int64(1) << (defVal + padSize)
		default:
			value = int64(defVal + padSize)
		}
		defVal++

		if seenN[name] {
			s.errorf("duplicate option name %q in %q", name, d.name)
			continue
		}
		if seenV[value] {
			s.errorf("duplicate option value %v in %q", value, d.name)
			continue
		}
		seenN[name], seenV[value] = true, true
		names = append(names, bfrozen.P(name, len(d.entries)))
		values = append(values, bfrozen.P(value, len(d.entries)))
		d.entries = append(d.entries, &Descriptor{
			name:    name,
			guiName: lo.Ternary(e.GUIName != "", e.GUIName, name),
			value:   value,
			meta:    s.freezeMeta(e.Meta, name),
		})
	}
	d.names = bfrozen.NewMap(names...)
	d.values = bfrozen.NewMap(values...)
}

func (s *sanitizer) bounds(raw *Raw, d *Descriptor) {
	for _, bound := range []struct {
		key string
		src any
		dst *any
	}{
		{"MIN", raw.Min, &d.min},
		{"MAX", raw.Max, &d.max},
	} {
		if bound.src == nil {
			continue
		}
		native, err := d.typ.Normalize(bound.src)
		if err != nil {
			s.errorf("%s of %q: %v", bound.key, d.name, err)
			continue
		}
		*bound.dst = native
	}
}

func (s *sanitizer) defaultValue(raw *Raw, d *Descriptor) {
	if raw.Default == nil {
		return
	}
	if !d.typ.IsData() {
		s.errorf("block %q cannot have a DEFAULT", d.name)
		return
	}
	value, err := s.decodeDefault(d, raw.Default)
	if err != nil {
		s.errorf("DEFAULT of %q: %v", d.name, err)
		return
	}
	d.dflt, d.hasDefault = value, true
}

func (s *sanitizer) decodeDefault(d *Descriptor, value any) (any, error) {
	if name, ok := value.(string); ok && d.isOptionSet() {
		if i, ok := d.names.Get(name); ok {
			return d.entries[i].value, nil
		}
	}
	switch v := value.(type) {
	case []byte:
		return d.typ.Decode(v)
	case string:
		switch d.typ.Value() {
		case bfield.ValueInt, bfield.ValueUint:
			if n, err := strconv.ParseInt(v, 0, 64); err == nil {
				return d.typ.Normalize(n)
			}
			return d.typ.Normalize(latin1Int(v, d.typ.Endian() == bfield.Big))
		case bfield.ValueFloat:
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				return f, nil
			}
		}
	}
	return d.typ.Normalize(value)
}

// latin1Int reads the characters of s as the bytes of an integer, the way
// four-character codes are written.
func latin1Int(s string, bigEndian bool) int64 {
	var n int64
	runes := []rune(s)
	for i := range runes {
		r := runes[i]
		if !bigEndian {
			r = runes[len(runes)-1-i]
		}
		n = n<<8 | int64(r&0xFF)
	}
	return n
}

// intOf accepts the integer kinds a schema may carry. Interchange formats
// decode numbers as floats, which count when they are whole.
func intOf(v any) (int, bool) {
	switch x := v.(type) {
	case Ref:
		return x.IntValue()
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		n, err := bfield.ToInt64(x)
		return int(n), err == nil
	case float64:
		if x == math.Trunc(x) {
			return int(x), true
		}
	}
	return 0, false
}

func (s *sanitizer) freezeMeta(meta map[string]any, owner string) bfrozen.Map[string, any] {
	keys := lo.Keys(meta)
	sort.Strings(keys)
	pairs := make([]bfrozen.Pair[string, any], 0, len(keys))
	for _, k := range keys {
		frozen, err := bfrozen.Freeze(meta[k])
		if err != nil {
			s.errorf("META %q of %q: %v", k, owner, err)
			continue
		}
		pairs = append(pairs, bfrozen.P(k, frozen))
	}
	return bfrozen.NewMap(pairs...)
}
