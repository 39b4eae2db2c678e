package bdesc

// Raw is a descriptor as authored. Build one with New and the option
// functions, or load one with package bschema; then Sanitize it.
type Raw struct {
	Type        string
	Name        string
	GUIName     string
	Entries     []*Raw
	Size        any
	Default     any
	Align       int
	Endian      string
	Offset      *int
	Pointer     any
	CarryOff    *bool
	Case        any
	Cases       []CaseEntry
	DefaultCase *Raw
	SubStruct   *Raw
	Steptree    *Raw
	Include     *Raw
	Value       any
	Min         any
	Max         any
	Decoder     StreamDecodeFunc
	Encoder     StreamEncodeFunc
	Meta        map[string]any
}

type CaseEntry struct {
	Key  any
	Desc *Raw
}

// Part is either a child *Raw, appended to Entries, or an Option.
type Part interface {
	apply(r *Raw)
}

type Option func(r *Raw)

func (o Option) apply(r *Raw) {
	o(r)
}

func (r *Raw) apply(parent *Raw) {
	parent.Entries = append(parent.Entries, r)
}

func New(typeName string, name string, parts ...Part) *Raw {
	r := &Raw{Type: typeName, Name: name}
	for _, part := range parts {
		if part != nil {
			part.apply(r)
		}
	}
	return r
}

// With returns a shallow copy of r with parts applied.
func (r *Raw) With(parts ...Part) *Raw {
	copied := *r
	copied.Entries = append([]*Raw{}, r.Entries...)
	copied.Cases = append([]CaseEntry{}, r.Cases...)
	for _, part := range parts {
		if part != nil {
			part.apply(&copied)
		}
	}
	return &copied
}

func Size(v any) Option       { return func(r *Raw) { r.Size = v } }
func Default(v any) Option    { return func(r *Raw) { r.Default = v } }
func Align(n int) Option      { return func(r *Raw) { r.Align = n } }
func Endian(e string) Option  { return func(r *Raw) { r.Endian = e } }
func Pointer(v any) Option    { return func(r *Raw) { r.Pointer = v } }
func Case(v any) Option       { return func(r *Raw) { r.Case = v } }
func Value(v any) Option      { return func(r *Raw) { r.Value = v } }
func Min(v any) Option        { return func(r *Raw) { r.Min = v } }
func Max(v any) Option        { return func(r *Raw) { r.Max = v } }
func GUIName(s string) Option { return func(r *Raw) { r.GUIName = s } }
func SubStruct(d *Raw) Option { return func(r *Raw) { r.SubStruct = d } }
func Steptree(d *Raw) Option  { return func(r *Raw) { r.Steptree = d } }
func Include(d *Raw) Option   { return func(r *Raw) { r.Include = d } }
func Else(d *Raw) Option      { return func(r *Raw) { r.DefaultCase = d } }

func Offset(n int) Option {
	return func(r *Raw) { r.Offset = &n }
}

func CarryOff(b bool) Option {
	return func(r *Raw) { r.CarryOff = &b }
}

// On adds a switch or union case.
func On(key any, d *Raw) Option {
	return func(r *Raw) { r.Cases = append(r.Cases, CaseEntry{Key: key, Desc: d}) }
}

func Decoder(fn StreamDecodeFunc) Option {
	return func(r *Raw) { r.Decoder = fn }
}

func Encoder(fn StreamEncodeFunc) Option {
	return func(r *Raw) { r.Encoder = fn }
}

// Stream sets both directions of a StreamAdapter from one codec.
func Stream(c StreamCodec) Option {
	return func(r *Raw) {
		r.Decoder = c.Decode
		r.Encoder = c.Encode
	}
}

func Meta(key string, v any) Option {
	return func(r *Raw) {
		if r.Meta == nil {
			r.Meta = map[string]any{}
		}
		r.Meta[key] = v
	}
}

func Container(name string, parts ...Part) *Raw { return New("Container", name, parts...) }
func Struct(name string, parts ...Part) *Raw    { return New("Struct", name, parts...) }
func BitStruct(name string, parts ...Part) *Raw { return New("BitStruct", name, parts...) }
func Union(name string, parts ...Part) *Raw     { return New("Union", name, parts...) }
func Switch(name string, parts ...Part) *Raw    { return New("Switch", name, parts...) }

func Array(name string, sub *Raw, parts ...Part) *Raw {
	return New("Array", name, append([]Part{SubStruct(sub)}, parts...)...)
}

func WhileArray(name string, sub *Raw, parts ...Part) *Raw {
	return New("WhileArray", name, append([]Part{SubStruct(sub)}, parts...)...)
}

func StreamAdapter(name string, sub *Raw, codec StreamCodec, parts ...Part) *Raw {
	return New("StreamAdapter", name, append([]Part{SubStruct(sub), Stream(codec)}, parts...)...)
}

func Void(name string) *Raw {
	return New("Void", name)
}

// VoidCase is the placeholder default for switches that may not match.
func VoidCase() *Raw {
	return Void("voided")
}

func Pad(n int) *Raw {
	return New("Pad", "", Size(n))
}

// Opt declares an enum or bool option, with an optional explicit value.
func Opt(name string, value ...any) *Raw {
	r := &Raw{Name: name}
	if len(value) > 0 {
		r.Value = value[0]
	}
	return r
}

func UInt8(name string, parts ...Part) *Raw     { return New("UInt8", name, parts...) }
func UInt16(name string, parts ...Part) *Raw    { return New("UInt16", name, parts...) }
func UInt32(name string, parts ...Part) *Raw    { return New("UInt32", name, parts...) }
func UInt64(name string, parts ...Part) *Raw    { return New("UInt64", name, parts...) }
func SInt8(name string, parts ...Part) *Raw     { return New("SInt8", name, parts...) }
func SInt16(name string, parts ...Part) *Raw    { return New("SInt16", name, parts...) }
func SInt32(name string, parts ...Part) *Raw    { return New("SInt32", name, parts...) }
func SInt64(name string, parts ...Part) *Raw    { return New("SInt64", name, parts...) }
func Float(name string, parts ...Part) *Raw     { return New("Float", name, parts...) }
func Double(name string, parts ...Part) *Raw    { return New("Double", name, parts...) }
func Pointer32(name string, parts ...Part) *Raw { return New("Pointer32", name, parts...) }
func Bit(name string, parts ...Part) *Raw       { return New("Bit", name, parts...) }
func BitUInt(name string, parts ...Part) *Raw   { return New("BitUInt", name, parts...) }
func BitSInt(name string, parts ...Part) *Raw   { return New("BitSInt", name, parts...) }
func BytesRaw(name string, parts ...Part) *Raw  { return New("BytesRaw", name, parts...) }
func StrAscii(name string, parts ...Part) *Raw  { return New("StrAscii", name, parts...) }
func CStrAscii(name string, parts ...Part) *Raw { return New("CStrAscii", name, parts...) }
func UEnum8(name string, parts ...Part) *Raw    { return New("UEnum8", name, parts...) }
func UEnum16(name string, parts ...Part) *Raw   { return New("UEnum16", name, parts...) }
func UEnum32(name string, parts ...Part) *Raw   { return New("UEnum32", name, parts...) }
func Bool8(name string, parts ...Part) *Raw     { return New("Bool8", name, parts...) }
func Bool16(name string, parts ...Part) *Raw    { return New("Bool16", name, parts...) }
func Bool32(name string, parts ...Part) *Raw    { return New("Bool32", name, parts...) }
