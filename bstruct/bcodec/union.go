package bcodec

import (
	"log/slog"

	"github.com/pkg/errors"
	"github.com/thanhnguyen2187/bindef/bstruct/bbuf"
	"github.com/thanhnguyen2187/bindef/bstruct/bblock"
	"github.com/thanhnguyen2187/bindef/bstruct/bfield"
)

// Activate reinterprets the bytes of a union as the case for key.
func Activate(union *bblock.Block, key any) error {
	return activate(union, key, discardLogger(nil))
}

func (r *reader) activate(union *bblock.Block, key any) error {
	return activate(union, key, r.logger)
}

func activate(union *bblock.Block, key any, logger *slog.Logger) error {
	desc := union.Descriptor()
	if desc.Type().Kind() != bfield.KindUnion {
		return errors.Errorf("%q is not a union", desc.Name())
	}
	c, _ := desc.CaseFor(key)
	if c == nil {
		return errors.Errorf("union %q has no case %v", desc.Name(), key)
	}
	size, _ := desc.StaticSize()
	raw, _ := union.Value().([]byte)
	padded := make([]byte, size)
	copy(padded, raw)

	sub := &reader{src: bbuf.NewBytes(padded), logger: logger}
	child := union.NewChild(c)
	if _, err := sub.block(child, union, 0, 0); err != nil {
		return wrapField(opParse, err, Level{c.Name(), 0, 0, c.Type().Name()})
	}
	logger.Debug("activated union case", "union", desc.Name(), "case", key)
	return union.SetActive(key, child)
}

// Flush writes the active case of a union back into its bytes. The case
// stays active.
func Flush(union *bblock.Block) error {
	return flush(union, discardLogger(nil))
}

func flush(union *bblock.Block, logger *slog.Logger) error {
	if _, active := union.ActiveKey(); !active {
		return nil
	}
	child, ok := union.Block(0)
	if !ok {
		return errors.Errorf("union %q is active but holds no case", union.Name())
	}
	size, _ := union.Descriptor().StaticSize()
	current, _ := union.Value().([]byte)
	padded := make([]byte, size)
	copy(padded, current)
	// bytes the case does not cover keep their previous content
	buf := bbuf.NewBytearray(padded...)
	w := &writer{dst: buf, logger: logger}
	if _, err := w.block(child, union, 0, 0); err != nil {
		return wrapField(opSerialize, err, Level{child.Name(), 0, 0, child.Descriptor().Type().Name()})
	}
	raw := buf.Bytes()
	if len(raw) > size {
		return errors.Errorf("case %q of union %q needs %d bytes, it has %d", child.Name(), union.Name(), len(raw), size)
	}
	return union.SetValue(raw)
}

// Deactivate flushes a union and drops its active case.
func Deactivate(union *bblock.Block) error {
	if err := Flush(union); err != nil {
		return err
	}
	return union.SetActive(nil, nil)
}
