package bdesc

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/thanhnguyen2187/bindef/bstruct/bfield"
)

type AlignMode int

const (
	// AlignNone places entries back to back unless they declare ALIGN.
	AlignNone AlignMode = iota
	// AlignAuto aligns each struct entry to the power of two covering its
	// size, the way a C compiler would.
	AlignAuto
)

// AlignMax caps every alignment.
const AlignMax = 8

func (m AlignMode) String() string {
	if m == AlignAuto {
		return "auto"
	}
	return "none"
}

func (m AlignMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *AlignMode) UnmarshalText(text []byte) error {
	switch string(text) {
	case "auto", "AUTO", "c":
		*m = AlignAuto
	case "none", "NONE", "":
		*m = AlignNone
	default:
		return fmt.Errorf("unknown align mode %q", text)
	}
	return nil
}

// Options controls Sanitize. The zero value is usable: little endian, no
// automatic alignment, built-in field types.
type Options struct {
	Endian    bfield.Endian    `yaml:"endian"`
	AlignMode AlignMode        `yaml:"align_mode"`
	Warn      bool             `yaml:"warn"`
	Registry  *bfield.Registry `yaml:"-"`
	Logger    *slog.Logger     `yaml:"-"`
}

func (o Options) registry() *bfield.Registry {
	if o.Registry != nil {
		return o.Registry
	}
	return bfield.Default()
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (o Options) endian() bfield.Endian {
	if o.Endian == bfield.Big {
		return bfield.Big
	}
	return bfield.Little
}
