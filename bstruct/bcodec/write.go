package bcodec

import (
	"bytes"
	"io"
	"log/slog"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/thanhnguyen2187/bindef/bstruct/bbuf"
	"github.com/thanhnguyen2187/bindef/bstruct/bblock"
	"github.com/thanhnguyen2187/bindef/bstruct/bdesc"
	"github.com/thanhnguyen2187/bindef/bstruct/bfield"
	"github.com/thanhnguyen2187/bindef/ds"
)

// slot addresses a pointer-based child waiting to be placed.
type slot struct {
	host  *bblock.Block
	index int
}

func newSlotQueue() *ds.Queue[slot] {
	return ds.NewQueue[slot]()
}

// writer mirrors reader. A nil dst measures without writing; a non-nil
// queue defers pointer-based fields instead of writing them.
type writer struct {
	dst        bbuf.Buffer
	rootOffset int
	logger     *slog.Logger
	steptrees  *[]*bblock.Block
	queue      *ds.Queue[slot]
	extent     int
}

// Write serializes the tree of root into dst and returns the number of
// bytes spanned from the root offset. Active unions are flushed and
// pointers are placed first unless opts.KeepPointers is set.
func Write(root *bblock.Block, dst bbuf.Buffer, opts WriteOptions) (int, error) {
	logger := discardLogger(opts.Logger)
	if err := flushAll(root, logger); err != nil {
		return 0, err
	}
	if !opts.KeepPointers && root.Descriptor().HasPointer() {
		if err := SetPointers(root, opts); err != nil {
			return 0, err
		}
	}
	w := &writer{dst: dst, rootOffset: opts.RootOffset, logger: logger}
	start := opts.RootOffset + opts.Offset
	end, err := w.root(root, start)
	if err != nil {
		if !opts.AllowCorrupt {
			return 0, err
		}
		logger.Warn("tree was written partially", "root", root.Name(), "error", err)
	}
	return lo.Max([]int{end, w.extent}) - start, nil
}

// ByteSize is the number of bytes b spans when written, not counting
// pointer-based fields below it.
func ByteSize(b *bblock.Block) (int, error) {
	w := &writer{logger: discardLogger(nil), queue: newSlotQueue()}
	end, err := w.block(b, b.Parent(), b.Index(), 0)
	if err != nil {
		return 0, err
	}
	return end, nil
}

// flushAll serializes every active union back into its bytes, innermost
// first.
func flushAll(root *bblock.Block, logger *slog.Logger) error {
	var unions []*bblock.Block
	root.Walk(func(n *bblock.Block) {
		if _, active := n.ActiveKey(); active {
			unions = append(unions, n)
		}
	})
	for _, u := range lo.Reverse(unions) {
		if err := flush(u, logger); err != nil {
			return err
		}
	}
	return nil
}

func (w *writer) root(root *bblock.Block, start int) (int, error) {
	desc := root.Descriptor()
	level := Level{Name: desc.Name(), Index: 0, Offset: start, Type: desc.Type().Name()}
	if desc.Pointer().IsSet() {
		p, err := root.Resolve(desc.Pointer(), bdesc.Call{RootOffset: w.rootOffset, Offset: start})
		if err != nil {
			return start, wrapField(opSerialize, err, level)
		}
		start = w.rootOffset + p
	}
	end, err := w.block(root, nil, 0, start)
	if err != nil {
		return end, wrapField(opSerialize, err, level)
	}
	return end, nil
}

func (w *writer) write(offset int, bs []byte) error {
	w.extent = lo.Max([]int{w.extent, offset + len(bs)})
	if w.dst == nil {
		return nil
	}
	if _, err := w.dst.Seek(int64(offset), io.SeekStart); err != nil {
		return err
	}
	_, err := w.dst.Write(bs)
	return err
}

func (w *writer) align(offset int, align int) int {
	if align <= 1 {
		return offset
	}
	return w.rootOffset + ds.AlignUp(offset-w.rootOffset, align)
}

func (w *writer) field(host *bblock.Block, i int, offset int, inStruct bool) (int, error) {
	desc := host.ChildDescriptor(i)
	if desc == nil {
		return offset, errors.Errorf("%q has no child %d", host.Name(), i)
	}
	value := host.At(i)
	start := offset
	pointed := desc.Pointer().IsSet()
	if pointed {
		if w.queue != nil {
			w.queue.Push(slot{host: host, index: i})
			return offset, nil
		}
		p, err := host.Resolve(desc.Pointer(), bdesc.Call{Index: i, Value: value, RootOffset: w.rootOffset, Offset: offset})
		if err != nil {
			return offset, wrapField(opSerialize, err, Level{desc.Name(), i, offset, desc.Type().Name()})
		}
		start = w.rootOffset + p
	} else if !inStruct {
		start = w.align(start, desc.Align())
	}
	end, err := w.place(host, i, desc, value, start)
	if err != nil {
		return end, wrapField(opSerialize, err, Level{desc.Name(), i, start, desc.Type().Name()})
	}
	if pointed && !desc.CarryOff() {
		return offset, nil
	}
	return end, nil
}

func (w *writer) place(host *bblock.Block, i int, desc *bdesc.Descriptor, value any, start int) (int, error) {
	kind := desc.Type().Kind()
	switch kind {
	case bfield.KindData:
		return w.data(host, nil, i, desc, value, start)
	case bfield.KindBit:
		return start, errors.Errorf("bit field %q outside of a bit struct", desc.Name())
	}
	child, ok := value.(*bblock.Block)
	if ok {
		return w.block(child, host, i, start)
	}
	if value != nil {
		return start, errors.Errorf("%q holds a %T, not a block", desc.Name(), value)
	}
	if kind == bfield.KindSwitch {
		if c := pickCase(desc, host); c != nil && c.Type().Kind() != bfield.KindSwitch {
			kind = c.Type().Kind()
			desc = c
		}
	}
	switch kind {
	case bfield.KindVoid:
		return start, nil
	case bfield.KindPad:
		n, _ := desc.Size().IntValue()
		return start + n, w.write(start, make([]byte, n))
	}
	return start, errors.Errorf("%q is unset", desc.Name())
}

func (w *writer) block(b *bblock.Block, host *bblock.Block, i int, offset int) (int, error) {
	steptreeRoot := false
	if b.Descriptor().Steptree() != nil {
		if w.steptrees == nil {
			steptreeRoot = true
			w.steptrees = &[]*bblock.Block{}
		} else {
			*w.steptrees = append(*w.steptrees, b)
		}
	}
	end, err := w.content(b, host, i, offset)
	if !steptreeRoot {
		return end, err
	}
	parents := *w.steptrees
	w.steptrees = nil
	if err != nil {
		return end, err
	}
	if end, err = w.field(b, bblock.SteptreeIndex, end, false); err != nil {
		return end, err
	}
	for _, p := range parents {
		if end, err = w.field(p, bblock.SteptreeIndex, end, false); err != nil {
			return end, err
		}
	}
	return end, nil
}

func (w *writer) content(b *bblock.Block, host *bblock.Block, i int, offset int) (int, error) {
	desc := b.Descriptor()
	var err error
	switch desc.Type().Kind() {
	case bfield.KindData:
		return w.data(host, b, i, desc, b.Value(), offset)
	case bfield.KindVoid:
		return offset, nil
	case bfield.KindPad:
		n, _ := desc.Size().IntValue()
		return offset + n, w.write(offset, make([]byte, n))
	case bfield.KindStruct:
		size, _ := desc.StaticSize()
		if err := w.write(offset, make([]byte, size)); err != nil {
			return offset, err
		}
		for j := 0; j < b.Len(); j++ {
			if _, err := w.field(b, j, offset+desc.Offset(j), true); err != nil {
				return offset, err
			}
		}
		return offset + size, nil
	case bfield.KindBitStruct:
		return w.bitStruct(b, offset)
	case bfield.KindUnion:
		size, _ := desc.StaticSize()
		raw, _ := b.Value().([]byte)
		padded := make([]byte, size)
		copy(padded, raw)
		return offset + size, w.write(offset, padded)
	case bfield.KindContainer, bfield.KindArray, bfield.KindWhileArray:
		for j := 0; j < b.Len() && err == nil; j++ {
			offset, err = w.field(b, j, offset, false)
		}
		return offset, err
	case bfield.KindStreamAdapter:
		return w.streamAdapter(b, offset)
	}
	return offset, ds.ErrUnreachableCode{Caller: "bcodec.writer.content"}
}

func (w *writer) bitStruct(b *bblock.Block, offset int) (int, error) {
	desc := b.Descriptor()
	size, _ := desc.StaticSize()
	var packed uint64
	for j := 0; j < b.Len(); j++ {
		d := b.ChildDescriptor(j)
		value := b.At(j)
		if value == nil {
			value = defaultOf(d)
		}
		bits, _ := d.StaticSize()
		encoded, err := d.Type().EncodeBits(value, bits)
		if err != nil {
			return offset, wrapField(opSerialize, err, Level{d.Name(), j, offset, d.Type().Name()})
		}
		packed |= encoded << uint(desc.Offset(j))
	}
	return offset + size, w.write(offset, packBits(packed, size, desc.Type().Endian() == bfield.Big))
}

func (w *writer) streamAdapter(b *bblock.Block, offset int) (int, error) {
	desc := b.Descriptor()
	buf := bbuf.NewBytearray()
	sub := &writer{dst: buf, logger: w.logger}
	end, err := sub.field(b, 0, 0, false)
	if err != nil {
		return offset, err
	}
	body := buf.Bytes()
	body = body[:lo.Min([]int{len(body), lo.Max([]int{end, sub.extent})})]
	encoded, err := desc.Encoder()(body)
	if err != nil {
		return offset, errors.Wrapf(err, "encoding stream of %q", desc.Name())
	}
	return offset + len(encoded), w.write(offset, encoded)
}

func defaultOf(d *bdesc.Descriptor) any {
	if v, ok := d.Default(); ok {
		return v
	}
	return d.Type().Default()
}

func (w *writer) data(host *bblock.Block, self *bblock.Block, i int, desc *bdesc.Descriptor, value any, offset int) (int, error) {
	typ := desc.Type()
	if value == nil {
		value = defaultOf(desc)
	}
	if typ.IsOpenEnded() || !desc.Size().IsSet() {
		encoded, err := typ.Encode(value, 0)
		if err != nil {
			return offset, err
		}
		return offset + len(encoded), w.write(offset, encoded)
	}
	c := bdesc.Call{Index: i, Value: value, RootOffset: w.rootOffset, Offset: offset}
	var (
		size int
		err  error
	)
	if host != nil {
		size, err = host.Resolve(desc.Size(), c)
	} else {
		size, err = self.Resolve(desc.Size(), c)
	}
	if err != nil {
		return offset, err
	}
	encoded, err := typ.Encode(value, size)
	if err != nil {
		return offset, err
	}
	if typ.IsDelimited() && len(encoded) > size && bytes.HasSuffix(encoded, typ.Delimiter()) {
		// a string that fills its field exactly is stored without a delimiter
		encoded = encoded[:len(encoded)-len(typ.Delimiter())]
	}
	if len(encoded) > size {
		return offset, errors.Errorf("%q encodes to %d bytes, but its SIZE is %d", desc.Name(), len(encoded), size)
	}
	padded := make([]byte, size)
	copy(padded, encoded)
	return offset + size, w.write(offset, padded)
}
