// Package bcodec reads and writes data trees described by sanitized
// descriptors.
package bcodec

import (
	"io"
	"log/slog"

	"github.com/pkg/errors"
	"github.com/thanhnguyen2187/bindef/bstruct/bbuf"
	"github.com/thanhnguyen2187/bindef/bstruct/bblock"
	"github.com/thanhnguyen2187/bindef/bstruct/bdesc"
	"github.com/thanhnguyen2187/bindef/bstruct/bfield"
	"github.com/thanhnguyen2187/bindef/ds"
)

type reader struct {
	src        bbuf.Buffer
	rootOffset int
	cases      []any
	logger     *slog.Logger
	// steptrees collects the blocks whose trailing child waits for the
	// outermost steptree block to finish. nil when no such block is open.
	steptrees *[]*bblock.Block
}

// Read parses src into a new tree for desc.
func Read(desc *bdesc.Descriptor, src bbuf.Buffer, opts ReadOptions) (*bblock.Block, error) {
	root, _, err := ReadAt(desc, src, opts)
	return root, err
}

// ReadAt is Read that also returns the offset after the root field.
func ReadAt(desc *bdesc.Descriptor, src bbuf.Buffer, opts ReadOptions) (*bblock.Block, int, error) {
	r := &reader{
		src:        src,
		rootOffset: opts.RootOffset,
		cases:      append([]any{}, opts.Cases...),
		logger:     discardLogger(opts.Logger),
	}
	start := opts.RootOffset + opts.Offset
	root, end, err := r.root(desc, start)
	if err != nil {
		if opts.AllowCorrupt && root != nil {
			r.logger.Warn("returning a partially read tree", "root", desc.Name(), "error", err)
			return root, end, nil
		}
		return nil, end, err
	}
	return root, end, nil
}

func (r *reader) root(desc *bdesc.Descriptor, start int) (*bblock.Block, int, error) {
	level := Level{Name: desc.Name(), Index: 0, Offset: start, Type: desc.Type().Name()}
	for desc.Type().Kind() == bfield.KindSwitch {
		c, err := r.selectCase(desc, nil, 0, start)
		if err != nil {
			return nil, start, wrapField(opParse, err, level)
		}
		desc = c
	}
	root := bblock.New(desc)
	if desc.Pointer().IsSet() {
		p, err := r.resolve(nil, root, 0, desc.Pointer(), start)
		if err != nil {
			return root, start, wrapField(opParse, err, level)
		}
		start = r.rootOffset + p
	}
	end, err := r.block(root, nil, 0, start)
	if err != nil {
		return root, end, wrapField(opParse, err, level)
	}
	return root, end, nil
}

func nodeOf(b *bblock.Block) bdesc.Node {
	if b == nil {
		return nil
	}
	return b
}

// resolve evaluates a reference for child i of host, or for self when it
// is a root.
func (r *reader) resolve(host *bblock.Block, self *bblock.Block, i int, ref bdesc.Ref, offset int) (int, error) {
	if !ref.IsSet() {
		return 0, errors.New("SIZE is not set")
	}
	c := bdesc.Call{Index: i, Source: r.src, RootOffset: r.rootOffset, Offset: offset}
	if host == nil {
		return self.Resolve(ref, c)
	}
	return host.Resolve(ref, c)
}

func (r *reader) align(offset int, align int) int {
	if align <= 1 {
		return offset
	}
	return r.rootOffset + ds.AlignUp(offset-r.rootOffset, align)
}

// field reads child i of host at offset. Struct entries are never aligned
// here; their offsets are precomputed.
func (r *reader) field(host *bblock.Block, i int, offset int, inStruct bool) (int, error) {
	desc := host.ChildDescriptor(i)
	if desc == nil {
		return offset, errors.Errorf("%q has no child %d", host.Name(), i)
	}
	start := offset
	pointed := desc.Pointer().IsSet()
	if pointed {
		p, err := r.resolve(host, nil, i, desc.Pointer(), offset)
		if err != nil {
			return offset, wrapField(opParse, err, Level{desc.Name(), i, offset, desc.Type().Name()})
		}
		start = r.rootOffset + p
	} else if !inStruct {
		start = r.align(start, desc.Align())
	}
	end, err := r.place(host, i, desc, start)
	if err != nil {
		return end, wrapField(opParse, err, Level{desc.Name(), i, start, desc.Type().Name()})
	}
	if pointed && !desc.CarryOff() {
		return offset, nil
	}
	return end, nil
}

func (r *reader) place(host *bblock.Block, i int, desc *bdesc.Descriptor, start int) (int, error) {
	switch desc.Type().Kind() {
	case bfield.KindSwitch:
		c, err := r.selectCase(desc, host, i, start)
		if err != nil {
			return start, err
		}
		return r.place(host, i, c, start)
	case bfield.KindData:
		value, end, err := r.data(host, nil, i, desc, start)
		if err != nil {
			return end, err
		}
		return end, host.SetAt(i, value)
	case bfield.KindBit:
		return start, errors.Errorf("bit field %q outside of a bit struct", desc.Name())
	}
	child := host.NewChild(desc)
	if err := host.SetAt(i, child); err != nil {
		return start, err
	}
	return r.block(child, host, i, start)
}

// selectCase picks the case of a switch or union.
func (r *reader) selectCase(sw *bdesc.Descriptor, host *bblock.Block, i int, offset int) (*bdesc.Descriptor, error) {
	key, err := r.caseKey(sw, host, i, offset)
	if err != nil {
		return nil, err
	}
	c, _ := sw.CaseFor(key)
	if c == nil {
		return nil, errors.Errorf("%q has no case %v", sw.Name(), key)
	}
	return c, nil
}

func (r *reader) caseKey(sw *bdesc.Descriptor, host *bblock.Block, i int, offset int) (any, error) {
	if len(r.cases) > 0 {
		key := r.cases[0]
		r.cases = r.cases[1:]
		return key, nil
	}
	sel := sw.Case()
	switch sel.Kind() {
	case bdesc.SelectLiteral:
		return sel.Literal(), nil
	case bdesc.SelectPath:
		if host == nil {
			return nil, errors.Errorf("%q selects its case by path but has no parent", sw.Name())
		}
		return host.Neighbor(sel.Path())
	case bdesc.SelectFunc:
		if _, err := r.src.Seek(int64(offset), io.SeekStart); err != nil {
			return nil, err
		}
		return sel.Func()(bdesc.Call{
			Parent:     nodeOf(host),
			Index:      i,
			Source:     r.src,
			RootOffset: r.rootOffset,
			Offset:     offset,
		})
	}
	return nil, errors.Errorf("%q has no CASE", sw.Name())
}

// block reads the contents of b, then any deferred steptrees when b is the
// outermost block that has one.
func (r *reader) block(b *bblock.Block, host *bblock.Block, i int, offset int) (int, error) {
	steptreeRoot := false
	if b.Descriptor().Steptree() != nil {
		if r.steptrees == nil {
			steptreeRoot = true
			r.steptrees = &[]*bblock.Block{}
		} else {
			*r.steptrees = append(*r.steptrees, b)
		}
	}
	end, err := r.content(b, host, i, offset)
	if !steptreeRoot {
		return end, err
	}
	parents := *r.steptrees
	r.steptrees = nil
	if err != nil {
		return end, err
	}
	if end, err = r.field(b, bblock.SteptreeIndex, end, false); err != nil {
		return end, err
	}
	for _, p := range parents {
		if end, err = r.field(p, bblock.SteptreeIndex, end, false); err != nil {
			return end, err
		}
	}
	return end, nil
}

func (r *reader) content(b *bblock.Block, host *bblock.Block, i int, offset int) (int, error) {
	desc := b.Descriptor()
	var err error
	switch desc.Type().Kind() {
	case bfield.KindData:
		value, end, err := r.data(host, b, i, desc, offset)
		if err != nil {
			return end, err
		}
		return end, b.SetValue(value)
	case bfield.KindVoid:
		return offset, nil
	case bfield.KindPad:
		n, err := r.resolve(host, b, i, desc.Size(), offset)
		return offset + n, err
	case bfield.KindStruct:
		return r.structure(b, offset)
	case bfield.KindBitStruct:
		return r.bitStruct(b, offset)
	case bfield.KindUnion:
		return r.union(b, host, i, offset)
	case bfield.KindContainer:
		for j := 0; j < b.Len() && err == nil; j++ {
			offset, err = r.field(b, j, offset, false)
		}
		return offset, err
	case bfield.KindArray:
		n, err := r.resolve(host, b, i, desc.Size(), offset)
		if err != nil {
			return offset, err
		}
		b.Truncate(0)
		for j := 0; j < n && err == nil; j++ {
			if err = b.Append(nil); err == nil {
				offset, err = r.field(b, j, offset, false)
			}
		}
		return offset, err
	case bfield.KindWhileArray:
		return r.whileArray(b, offset)
	case bfield.KindStreamAdapter:
		return r.streamAdapter(b, offset)
	}
	return offset, ds.ErrUnreachableCode{Caller: "bcodec.reader.content"}
}

func (r *reader) structure(b *bblock.Block, offset int) (int, error) {
	desc := b.Descriptor()
	for j := 0; j < b.Len(); j++ {
		if _, err := r.field(b, j, offset+desc.Offset(j), true); err != nil {
			return offset, err
		}
	}
	size, _ := desc.StaticSize()
	return offset + size, nil
}

func (r *reader) bitStruct(b *bblock.Block, offset int) (int, error) {
	desc := b.Descriptor()
	size, _ := desc.StaticSize()
	if _, err := r.src.Seek(int64(offset), io.SeekStart); err != nil {
		return offset, err
	}
	raw, err := r.src.ReadN(size)
	if err != nil {
		return offset, err
	}
	packed := unpackBits(raw, desc.Type().Endian() == bfield.Big)
	for j := 0; j < b.Len(); j++ {
		d := b.ChildDescriptor(j)
		bits, _ := d.StaticSize()
		value, err := d.Type().DecodeBits(packed, desc.Offset(j), bits)
		if err != nil {
			return offset, wrapField(opParse, err, Level{d.Name(), j, offset, d.Type().Name()})
		}
		if err := b.SetAt(j, value); err != nil {
			return offset, err
		}
	}
	return offset + size, nil
}

func (r *reader) union(b *bblock.Block, host *bblock.Block, i int, offset int) (int, error) {
	desc := b.Descriptor()
	size, _ := desc.StaticSize()
	if _, err := r.src.Seek(int64(offset), io.SeekStart); err != nil {
		return offset, err
	}
	raw, err := r.src.ReadN(size)
	if err != nil {
		return offset, err
	}
	if err := b.SetValue(raw); err != nil {
		return offset, err
	}
	if desc.Case().Kind() == bdesc.SelectNone && len(r.cases) == 0 {
		return offset + size, nil
	}
	key, err := r.caseKey(desc, host, i, offset)
	if err != nil {
		return offset, err
	}
	if _, ok := desc.CaseFor(key); !ok {
		return offset + size, nil
	}
	return offset + size, r.activate(b, key)
}

func (r *reader) whileArray(b *bblock.Block, offset int) (int, error) {
	desc := b.Descriptor()
	b.Truncate(0)
	for j := 0; ; j++ {
		if _, err := r.src.Seek(int64(offset), io.SeekStart); err != nil {
			return offset, err
		}
		more, err := desc.Case().While()(bdesc.Call{
			Parent:     b,
			Index:      j,
			Source:     r.src,
			RootOffset: r.rootOffset,
			Offset:     offset,
		})
		if err != nil || !more {
			return offset, err
		}
		if err := b.Append(nil); err != nil {
			return offset, err
		}
		next, err := r.field(b, j, offset, false)
		if err != nil {
			return next, err
		}
		if next == offset {
			return offset, errors.Errorf("%q stopped advancing at offset %d", desc.Name(), offset)
		}
		offset = next
	}
}

func (r *reader) streamAdapter(b *bblock.Block, offset int) (int, error) {
	desc := b.Descriptor()
	if _, err := r.src.Seek(int64(offset), io.SeekStart); err != nil {
		return offset, err
	}
	rest, _ := r.src.Peek(-1)
	decoded, consumed, err := desc.Decoder()(rest)
	if err != nil {
		return offset, errors.Wrapf(err, "decoding stream of %q", desc.Name())
	}
	sub := &reader{src: bbuf.NewBytes(decoded), cases: r.cases, logger: r.logger}
	_, err = sub.field(b, 0, 0, false)
	r.cases = sub.cases
	return offset + consumed, err
}

func (r *reader) data(host *bblock.Block, self *bblock.Block, i int, desc *bdesc.Descriptor, offset int) (any, int, error) {
	typ := desc.Type()
	if _, err := r.src.Seek(int64(offset), io.SeekStart); err != nil {
		return nil, offset, err
	}
	if typ.IsOpenEnded() {
		rest, _ := r.src.Peek(-1)
		valueLen, span, err := typ.Scan(rest)
		if err != nil {
			return nil, offset, err
		}
		value, err := typ.Decode(rest[:valueLen])
		return value, offset + span, err
	}
	size, err := r.resolve(host, self, i, desc.Size(), offset)
	if err != nil {
		return nil, offset, err
	}
	if size < 0 {
		return nil, offset, errors.Errorf("negative SIZE %d", size)
	}
	raw, err := r.src.ReadN(size)
	if err != nil {
		return nil, offset, err
	}
	value, err := typ.Decode(raw)
	return value, offset + size, err
}

func unpackBits(raw []byte, bigEndian bool) uint64 {
	var n uint64
	for i := range raw {
		b := raw[len(raw)-1-i]
		if bigEndian {
			b = raw[i]
		}
		n = n<<8 | uint64(b)
	}
	return n
}

func packBits(n uint64, size int, bigEndian bool) []byte {
	out := make([]byte, size)
	for i := 0; i < size; i++ {
		b := byte(n >> (8 * i))
		if bigEndian {
			out[size-1-i] = b
		} else {
			out[i] = b
		}
	}
	return out
}
