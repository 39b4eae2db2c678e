package bschema

import (
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/thanhnguyen2187/bindef/bstruct/bdesc"
	"github.com/thanhnguyen2187/bindef/bstruct/bfield"
)

// Document is a loaded schema: the root descriptor, the named fragments
// it may include, and the document-wide sanitizer settings.
type Document struct {
	Endian    bfield.Endian
	AlignMode bdesc.AlignMode
	Root      *bdesc.Raw
	Fragments map[string]*bdesc.Raw
}

// ConversionError lists every problem found while converting a
// document.
type ConversionError struct {
	Messages []string
}

func (e *ConversionError) Error() string {
	return "invalid schema document:\n    " + strings.Join(e.Messages, "\n    ")
}

func Decode(data []byte, format Format, logger *slog.Logger) (*Document, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	tree, err := decodeTree(data, format)
	if err != nil {
		return nil, err
	}
	m, ok := tree.(map[string]any)
	if !ok {
		return nil, errors.Errorf("a schema document is a map, not %T", tree)
	}

	doc := &Document{Fragments: map[string]*bdesc.Raw{}}
	if s, ok := m["endian"].(string); ok {
		if err := doc.Endian.UnmarshalText([]byte(s)); err != nil {
			return nil, err
		}
	}
	if s, ok := m["align_mode"].(string); ok {
		if err := doc.AlignMode.UnmarshalText([]byte(s)); err != nil {
			return nil, err
		}
	}

	c := &converter{fragments: doc.Fragments, logger: logger}
	fragments, _ := m["fragments"].(map[string]any)
	// shells first so fragments can refer to each other
	for name := range fragments {
		doc.Fragments[name] = &bdesc.Raw{}
	}
	names := lo.Keys(fragments)
	sort.Strings(names)
	for _, name := range names {
		node, ok := fragments[name].(map[string]any)
		if !ok {
			c.errorf("fragments.%s: expected a descriptor", name)
			continue
		}
		*doc.Fragments[name] = *c.node(node, "fragments."+name)
	}

	root, ok := m["root"]
	if !ok {
		c.errorf("document has no root")
	} else {
		doc.Root = c.ref(root, "root")
	}
	if len(c.errs) > 0 {
		return nil, &ConversionError{Messages: c.errs}
	}
	return doc, nil
}

// ReadFile loads a document, choosing the format by extension.
func ReadFile(path string, logger *slog.Logger) (*Document, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	doc, err := Decode(data, format, logger)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	return doc, nil
}

// Options merges the document settings over base. Settings the document
// leaves out keep the value from base.
func (d *Document) Options(base bdesc.Options) bdesc.Options {
	if d.Endian == bfield.Little || d.Endian == bfield.Big {
		base.Endian = d.Endian
	}
	if d.AlignMode != bdesc.AlignNone {
		base.AlignMode = d.AlignMode
	}
	return base
}

// Sanitize sanitizes the root of the document.
func (d *Document) Sanitize(base bdesc.Options) (*bdesc.Descriptor, error) {
	return bdesc.Sanitize(d.Root, d.Options(base))
}
