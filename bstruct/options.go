package bstruct

import (
	"io"
	"log/slog"

	"github.com/thanhnguyen2187/bindef/bstruct/bcodec"
)

type (
	Option func(o *options)

	options struct {
		rootOffset   int
		offset       int
		allowCorrupt bool
		keepPointers bool
		cases        []any
		logger       *slog.Logger
		path         string
	}
)

// RootOffset is where the data starts inside the buffer. Pointers are
// relative to it.
func RootOffset(n int) Option { return func(o *options) { o.rootOffset = n } }
func Offset(n int) Option     { return func(o *options) { o.offset = n } }

// AllowCorrupt keeps whatever could be read or written instead of failing.
func AllowCorrupt(b bool) Option   { return func(o *options) { o.allowCorrupt = b } }
func KeepPointers(b bool) Option   { return func(o *options) { o.keepPointers = b } }
func Cases(keys ...any) Option     { return func(o *options) { o.cases = keys } }
func Logger(l *slog.Logger) Option { return func(o *options) { o.logger = l } }
func Path(path string) Option      { return func(o *options) { o.path = path } }

func newOptions(opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o
}

func (o options) read() bcodec.ReadOptions {
	return bcodec.ReadOptions{
		RootOffset:   o.rootOffset,
		Offset:       o.offset,
		AllowCorrupt: o.allowCorrupt,
		Cases:        o.cases,
		Logger:       o.logger,
	}
}

func (o options) write() bcodec.WriteOptions {
	return bcodec.WriteOptions{
		RootOffset:   o.rootOffset,
		Offset:       o.offset,
		KeepPointers: o.keepPointers,
		AllowCorrupt: o.allowCorrupt,
		Logger:       o.logger,
	}
}
