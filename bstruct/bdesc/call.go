package bdesc

import (
	"fmt"

	"github.com/thanhnguyen2187/bindef/bstruct/bbuf"
	"github.com/thanhnguyen2187/bindef/bstruct/bfield"
)

type (
	// Node is the view of a data block handed to callbacks.
	Node interface {
		Descriptor() *Descriptor
		Len() int
		At(i int) any
		Neighbor(path string) (any, error)
		SetNeighbor(path string, value any) error
	}

	// Call is the context of a SIZE, POINTER or CASE callback. Parent is the
	// block that owns the field and Index is the field's position in it.
	Call struct {
		Parent     Node
		Index      int
		Value      any
		Source     bbuf.Buffer
		RootOffset int
		Offset     int
	}

	// Accessor computes an integer (a size or a pointer) at runtime. Set may
	// be nil, in which case the value cannot be updated.
	Accessor struct {
		Get func(c Call) (int, error)
		Set func(c Call, n int) error
	}

	CaseFunc  func(c Call) (any, error)
	WhileFunc func(c Call) (bool, error)

	StreamDecodeFunc func(src []byte) (decoded []byte, consumed int, err error)
	StreamEncodeFunc func(plain []byte) ([]byte, error)

	StreamCodec interface {
		Decode(src []byte) ([]byte, int, error)
		Encode(plain []byte) ([]byte, error)
	}
)

type RefKind int

const (
	RefNone RefKind = iota
	RefInt
	RefPath
	RefAccessor
)

// Ref is a SIZE or POINTER: a fixed int, a path to an integer field, or an
// Accessor.
type Ref struct {
	kind     RefKind
	n        int
	path     string
	accessor Accessor
}

func IntRef(n int) Ref {
	return Ref{kind: RefInt, n: n}
}

func PathRef(path string) Ref {
	return Ref{kind: RefPath, path: path}
}

func AccessorRef(a Accessor) Ref {
	return Ref{kind: RefAccessor, accessor: a}
}

func refOf(v any) (Ref, error) {
	switch x := v.(type) {
	case nil:
		return Ref{}, nil
	case Ref:
		return x, nil
	case string:
		return PathRef(x), nil
	case Accessor:
		if x.Get == nil {
			return Ref{}, fmt.Errorf(`accessor has no getter`)
		}
		return AccessorRef(x), nil
	case func(c Call) (int, error):
		return AccessorRef(Accessor{Get: x}), nil
	}
	n, err := bfield.ToInt64(v)
	if err != nil {
		return Ref{}, fmt.Errorf(`%T cannot be used as a size or pointer`, v)
	}
	return IntRef(int(n)), nil
}

func (r Ref) Kind() RefKind        { return r.kind }
func (r Ref) IsSet() bool          { return r.kind != RefNone }
func (r Ref) Int() int             { return r.n }
func (r Ref) Path() string         { return r.path }
func (r Ref) Accessor() Accessor   { return r.accessor }
func (r Ref) IsInt() bool          { return r.kind == RefInt }
func (r Ref) IntValue() (int, bool) { return r.n, r.kind == RefInt }

func (r Ref) String() string {
	switch r.kind {
	case RefInt:
		return fmt.Sprint(r.n)
	case RefPath:
		return r.path
	case RefAccessor:
		return "<func>"
	}
	return ""
}

type SelectorKind int

const (
	SelectNone SelectorKind = iota
	SelectLiteral
	SelectPath
	SelectFunc
	SelectWhile
)

// Selector is the CASE of a Switch, Union or WhileArray.
type Selector struct {
	kind    SelectorKind
	literal any
	path    string
	fn      CaseFunc
	while   WhileFunc
}

func selectorOf(v any) Selector {
	switch x := v.(type) {
	case nil:
		return Selector{}
	case string:
		return Selector{kind: SelectPath, path: x}
	case CaseFunc:
		return Selector{kind: SelectFunc, fn: x}
	case func(c Call) (any, error):
		return Selector{kind: SelectFunc, fn: x}
	case WhileFunc:
		return Selector{kind: SelectWhile, while: x}
	case func(c Call) (bool, error):
		return Selector{kind: SelectWhile, while: x}
	}
	return Selector{kind: SelectLiteral, literal: bfield.NormalizeKey(v)}
}

func (s Selector) Kind() SelectorKind  { return s.kind }
func (s Selector) Literal() any        { return s.literal }
func (s Selector) Path() string        { return s.path }
func (s Selector) Func() CaseFunc      { return s.fn }
func (s Selector) While() WhileFunc    { return s.while }
