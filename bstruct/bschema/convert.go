package bschema

import (
	"log/slog"
	"sort"
	"strconv"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/thanhnguyen2187/bindef/bstruct/bdesc"
	"github.com/thanhnguyen2187/bindef/bstruct/bstream"
)

var knownKeys = lo.SliceToMap([]string{
	"type", "name", "gui_name", "entries", "size", "default", "align",
	"endian", "offset", "pointer", "carry_off", "case", "cases",
	"default_case", "sub_struct", "steptree", "include", "value", "min",
	"max", "stream", "decoder", "encoder", "meta",
}, func(k string) (string, bool) { return k, true })

// converter turns decoded trees into Raw descriptors. Fragment names
// resolve to shared Raw values, so fragments may refer to each other in
// any order.
type converter struct {
	fragments map[string]*bdesc.Raw
	logger    *slog.Logger
	errs      []string
}

func (c *converter) errorf(format string, args ...any) {
	c.errs = append(c.errs, errors.Errorf(format, args...).Error())
}

// ref converts a node given either inline or by fragment name.
func (c *converter) ref(v any, where string) *bdesc.Raw {
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		raw, ok := c.fragments[x]
		if !ok {
			c.errorf("%s: unknown fragment %q", where, x)
			return nil
		}
		return raw
	case map[string]any:
		return c.node(x, where)
	}
	c.errorf("%s: expected a descriptor or a fragment name, got %T", where, v)
	return nil
}

func (c *converter) node(m map[string]any, where string) *bdesc.Raw {
	raw := &bdesc.Raw{
		Type:    stringOf(m["type"]),
		Name:    stringOf(m["name"]),
		GUIName: stringOf(m["gui_name"]),
		Size:    m["size"],
		Default: m["default"],
		Endian:  stringOf(m["endian"]),
		Pointer: m["pointer"],
		Value:   m["value"],
		Min:     m["min"],
		Max:     m["max"],
	}
	if raw.Name != "" {
		where = where + "." + raw.Name
	}
	if v, ok := m["align"]; ok {
		n, ok := v.(int64)
		if !ok {
			c.errorf("%s: align must be an integer", where)
		}
		raw.Align = int(n)
	}
	if v, ok := m["offset"]; ok {
		n, ok := v.(int64)
		if !ok {
			c.errorf("%s: offset must be an integer", where)
		}
		offset := int(n)
		raw.Offset = &offset
	}
	if v, ok := m["carry_off"]; ok {
		b, ok := v.(bool)
		if !ok {
			c.errorf("%s: carry_off must be a boolean", where)
		}
		raw.CarryOff = &b
	}
	if v, ok := m["entries"]; ok {
		entries, ok := v.([]any)
		if !ok {
			c.errorf("%s: entries must be a list", where)
		}
		for i, e := range entries {
			raw.Entries = append(raw.Entries, c.entry(e, where+"["+strconv.Itoa(i)+"]"))
		}
	}
	if v, ok := m["case"]; ok {
		raw.Case = c.selector(v, where)
	}
	if v, ok := m["cases"]; ok {
		raw.Cases = c.cases(v, where)
	}
	raw.DefaultCase = c.ref(m["default_case"], where+".default_case")
	raw.SubStruct = c.ref(m["sub_struct"], where+".sub_struct")
	raw.Steptree = c.ref(m["steptree"], where+".steptree")
	raw.Include = c.ref(m["include"], where+".include")
	c.streams(m, raw, where)

	if meta, ok := m["meta"].(map[string]any); ok {
		raw.Meta = meta
	}
	for k, v := range m {
		if knownKeys[k] {
			continue
		}
		c.logger.Warn("unknown schema key kept as metadata", "at", where, "key", k)
		if raw.Meta == nil {
			raw.Meta = map[string]any{}
		}
		raw.Meta[k] = v
	}
	return raw
}

// entry converts a child. A bare string is an enum or bool option name.
func (c *converter) entry(v any, where string) *bdesc.Raw {
	switch x := v.(type) {
	case string:
		return bdesc.Opt(x)
	case map[string]any:
		return c.node(x, where)
	}
	c.errorf("%s: expected an entry, got %T", where, v)
	return nil
}

func (c *converter) cases(v any, where string) []bdesc.CaseEntry {
	m, ok := v.(map[string]any)
	if !ok {
		c.errorf("%s: cases must be a map", where)
		return nil
	}
	keys := lo.Keys(m)
	sort.Strings(keys)
	var cases []bdesc.CaseEntry
	for _, k := range keys {
		cases = append(cases, bdesc.CaseEntry{
			Key:  caseKey(k),
			Desc: c.ref(m[k], where+".cases."+k),
		})
	}
	return cases
}

// caseKey reads integer-looking map keys as integers, since selectors
// usually come from integer fields.
func caseKey(k string) any {
	if n, err := strconv.ParseInt(k, 0, 64); err == nil {
		return n
	}
	return k
}

// selector converts a CASE. Strings are paths, other scalars literals,
// and maps name a built-in loop condition for WhileArrays.
func (c *converter) selector(v any, where string) any {
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}
	if b, ok := m["until_byte"]; ok {
		n, ok := b.(int64)
		if !ok || n < 0 || n > 0xFF {
			c.errorf("%s: until_byte must be a byte value", where)
			return nil
		}
		return UntilByte(byte(n))
	}
	if end, ok := m["until_end"].(bool); ok && end {
		return UntilEnd()
	}
	c.errorf("%s: unknown case condition", where)
	return nil
}

func (c *converter) streams(m map[string]any, raw *bdesc.Raw, where string) {
	lookup := func(key string) bdesc.StreamCodec {
		name, ok := m[key].(string)
		if !ok {
			return nil
		}
		codec, ok := bstream.Lookup(name)
		if !ok {
			c.errorf("%s: unknown stream codec %q, expected one of %v", where, name, bstream.Names())
			return nil
		}
		return codec
	}
	if codec := lookup("stream"); codec != nil {
		raw.Decoder, raw.Encoder = codec.Decode, codec.Encode
	}
	if codec := lookup("decoder"); codec != nil {
		raw.Decoder = codec.Decode
	}
	if codec := lookup("encoder"); codec != nil {
		raw.Encoder = codec.Encode
	}
}

func stringOf(v any) string {
	s, _ := v.(string)
	return s
}

// UntilByte continues a WhileArray until the next byte is stop or the
// data ends.
func UntilByte(stop byte) bdesc.WhileFunc {
	return func(c bdesc.Call) (bool, error) {
		b, err := c.Source.Peek(1)
		if err != nil || len(b) == 0 {
			return false, nil
		}
		return b[0] != stop, nil
	}
}

// UntilEnd continues a WhileArray while any data remains.
func UntilEnd() bdesc.WhileFunc {
	return func(c bdesc.Call) (bool, error) {
		b, _ := c.Source.Peek(1)
		return len(b) > 0, nil
	}
}
