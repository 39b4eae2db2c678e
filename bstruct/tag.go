// Package bstruct ties descriptors, byte sources and data trees together.
// A Tag is the root of a parsed or newly built tree.
package bstruct

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/thanhnguyen2187/bindef/bstruct/bbuf"
	"github.com/thanhnguyen2187/bindef/bstruct/bblock"
	"github.com/thanhnguyen2187/bindef/bstruct/bcodec"
	"github.com/thanhnguyen2187/bindef/bstruct/bdesc"
)

var ErrFileExists = errors.New("destination file exists")

// Tag is a data tree together with the descriptor it was built from and
// the place it was read from.
type Tag struct {
	Desc       *bdesc.Descriptor
	Root       *bblock.Block
	Path       string
	RootOffset int
	logger     *slog.Logger
}

// Build sanitizes raw into a reusable descriptor.
func Build(raw *bdesc.Raw, opts bdesc.Options) (*bdesc.Descriptor, error) {
	return bdesc.Sanitize(raw, opts)
}

// Parse reads a tree for desc from src.
func Parse(desc *bdesc.Descriptor, src bbuf.Buffer, opts ...Option) (*Tag, error) {
	o := newOptions(opts)
	root, err := bcodec.Read(desc, src, o.read())
	if err != nil {
		return nil, err
	}
	return &Tag{
		Desc:       desc,
		Root:       root,
		Path:       o.path,
		RootOffset: o.rootOffset,
		logger:     o.logger,
	}, nil
}

func ParseBytes(desc *bdesc.Descriptor, data []byte, opts ...Option) (*Tag, error) {
	return Parse(desc, bbuf.NewBytes(data), opts...)
}

// ParseFile reads path whole and parses it. The tag remembers path for
// WriteFile.
func ParseFile(desc *bdesc.Descriptor, path string, opts ...Option) (*Tag, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	return ParseBytes(desc, data, append([]Option{Path(path)}, opts...)...)
}

// New returns a tag holding the default tree of desc.
func New(desc *bdesc.Descriptor, opts ...Option) (*Tag, error) {
	o := newOptions(opts)
	root, err := bcodec.New(desc)
	if err != nil {
		return nil, err
	}
	return &Tag{Desc: desc, Root: root, Path: o.path, RootOffset: o.rootOffset, logger: o.logger}, nil
}

func (t *Tag) options(opts []Option) options {
	base := []Option{RootOffset(t.RootOffset), Logger(t.logger), Path(t.Path)}
	return newOptions(append(base, opts...))
}

// Serialize writes the tree into a fresh buffer and returns the bytes
// from the root offset on.
func (t *Tag) Serialize(opts ...Option) ([]byte, error) {
	o := t.options(opts)
	buf := bbuf.NewBytearray()
	n, err := bcodec.Write(t.Root, buf, o.write())
	if err != nil {
		return nil, err
	}
	data := buf.Bytes()
	end := o.rootOffset + o.offset + n
	if end > len(data) {
		grown := make([]byte, end)
		copy(grown, data)
		data = grown
	}
	return data[o.rootOffset:end], nil
}

// WriteTo writes the tree into dst at the tag's root offset.
func (t *Tag) WriteTo(dst bbuf.Buffer, opts ...Option) (int, error) {
	return bcodec.Write(t.Root, dst, t.options(opts).write())
}

// WriteFile serializes the tree to path, or to the path it was read from
// when path is empty. An existing file is only replaced when force is
// set. The data goes to a temporary file first so a failed write leaves
// the destination untouched.
func (t *Tag) WriteFile(path string, force bool) error {
	if path == "" {
		path = t.Path
	}
	if path == "" {
		return errors.New("tag has no path to write to")
	}
	if CheckExistence(path) && !force {
		return errors.Wrap(ErrFileExists, path)
	}
	data, err := t.Serialize()
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "creating temporary file")
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "writing %s", tmp.Name())
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrapf(err, "replacing %s", path)
	}
	t.logger.Debug("wrote tag", "path", path, "bytes", len(data))
	t.Path = path
	return nil
}

// ByteSize is the number of bytes the root spans, pointer-based fields
// excluded.
func (t *Tag) ByteSize() (int, error) {
	return bcodec.ByteSize(t.Root)
}

// Get resolves an absolute path such as "header.count" from the root.
func (t *Tag) Get(path string) (any, error) {
	return t.Root.Neighbor(path)
}

func (t *Tag) Set(path string, value any) error {
	return t.Root.SetNeighbor(path, value)
}

func CheckExistence(path string) bool {
	_, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return false
	}
	return err == nil
}
