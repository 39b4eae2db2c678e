package bschema

import (
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/thanhnguyen2187/bindef/bstruct/bdesc"
	"github.com/zeebo/blake3"
)

type Hash [32]byte

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// summary is the part of a descriptor that decides the binary layout.
// Callbacks have no stable encoding and are recorded by kind only.
type summary struct {
	Name        string         `cbor:"name"`
	Type        string         `cbor:"type"`
	Size        string         `cbor:"size,omitempty"`
	Pointer     string         `cbor:"pointer,omitempty"`
	Align       int            `cbor:"align,omitempty"`
	Offsets     []int          `cbor:"offsets,omitempty"`
	Default     any            `cbor:"default,omitempty"`
	Value       any            `cbor:"value,omitempty"`
	Case        string         `cbor:"case,omitempty"`
	Entries     []summary      `cbor:"entries,omitempty"`
	Cases       []caseSummary  `cbor:"cases,omitempty"`
	DefaultCase *summary       `cbor:"default_case,omitempty"`
	SubStruct   *summary       `cbor:"sub_struct,omitempty"`
	Steptree    *summary       `cbor:"steptree,omitempty"`
	Stream      bool           `cbor:"stream,omitempty"`
	Meta        map[string]any `cbor:"meta,omitempty"`
}

type caseSummary struct {
	Key  any     `cbor:"key"`
	Desc summary `cbor:"desc"`
}

func summarize(d *bdesc.Descriptor) *summary {
	if d == nil {
		return nil
	}
	s := &summary{
		Name:        d.Name(),
		Align:       d.Align(),
		DefaultCase: summarize(d.DefaultCase()),
		SubStruct:   summarize(d.SubStruct()),
		Steptree:    summarize(d.Steptree()),
		Value:       d.Value(),
		Stream:      d.Decoder() != nil,
	}
	if d.Type() != nil {
		s.Type = d.Type().String()
		s.Size = d.Size().String()
		s.Pointer = d.Pointer().String()
		if d.Type().IsStruct() {
			s.Offsets = d.Offsets()
		}
	}
	if v, ok := d.Default(); ok {
		s.Default = v
	}
	switch sel := d.Case(); sel.Kind() {
	case bdesc.SelectPath:
		s.Case = "path:" + sel.Path()
	case bdesc.SelectLiteral:
		s.Case = fmt.Sprintf("literal:%v", sel.Literal())
	case bdesc.SelectFunc, bdesc.SelectWhile:
		s.Case = "func"
	}
	s.Entries = lo.Map(d.Entries(), func(e *bdesc.Descriptor, _ int) summary { return *summarize(e) })
	keys := d.CaseKeys()
	s.Cases = lo.Map(d.Cases(), func(c *bdesc.Descriptor, i int) caseSummary {
		return caseSummary{Key: keys[i], Desc: *summarize(c)}
	})
	if d.Meta().Len() > 0 {
		s.Meta = d.Meta().ToMap()
	}
	return s
}

// Fingerprint hashes the canonical CBOR encoding of the layout of d. Two
// descriptors with equal fingerprints read and write the same bytes,
// callbacks aside.
func Fingerprint(d *bdesc.Descriptor) (Hash, error) {
	encoded, err := canonical.Marshal(summarize(d))
	if err != nil {
		return Hash{}, errors.Wrap(err, "encoding descriptor summary")
	}
	return blake3.Sum256(encoded), nil
}

// Cache keeps sanitized descriptors keyed by the hash of their source
// document, so reloading an unchanged schema skips sanitizing it.
type Cache struct {
	mu      sync.Mutex
	opts    bdesc.Options
	entries map[Hash]*bdesc.Descriptor
}

func NewCache(opts bdesc.Options) *Cache {
	return &Cache{opts: opts, entries: map[Hash]*bdesc.Descriptor{}}
}

// Load decodes and sanitizes data unless the same bytes were loaded
// before. The boolean reports a cache hit.
func (c *Cache) Load(data []byte, format Format) (*bdesc.Descriptor, bool, error) {
	key := blake3.Sum256(append([]byte(format+"\x00"), data...))

	c.mu.Lock()
	desc, ok := c.entries[key]
	c.mu.Unlock()
	if ok {
		return desc, true, nil
	}

	doc, err := Decode(data, format, c.opts.Logger)
	if err != nil {
		return nil, false, err
	}
	desc, err = doc.Sanitize(c.opts)
	if err != nil {
		return nil, false, err
	}
	c.mu.Lock()
	c.entries[key] = desc
	c.mu.Unlock()
	return desc, false, nil
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
