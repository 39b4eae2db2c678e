package bcodec

import (
	"io"
	"log/slog"
)

type (
	ReadOptions struct {
		// RootOffset is where the data starts inside a larger buffer.
		// Pointers are relative to it.
		RootOffset int
		// Offset is where the root field starts, relative to RootOffset.
		Offset int
		// AllowCorrupt returns the partially read tree instead of failing.
		AllowCorrupt bool
		// Cases are switch keys used, one per switch in read order, before
		// each switch's own CASE.
		Cases  []any
		Logger *slog.Logger
	}

	WriteOptions struct {
		RootOffset int
		Offset     int
		// KeepPointers writes pointer-based fields where their pointers
		// already say instead of placing them first.
		KeepPointers bool
		AllowCorrupt bool
		Logger       *slog.Logger
	}
)

func discardLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
