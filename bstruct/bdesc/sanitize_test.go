package bdesc

import (
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thanhnguyen2187/bindef/bstruct/bfield"
	"github.com/thanhnguyen2187/bindef/bstruct/bfrozen"
)

func sanitizationMessages(t *testing.T, raw *Raw, opts Options) []string {
	_, err := Sanitize(raw, opts)
	require.Error(t, err)
	var sanitizationErr *SanitizationError
	require.True(t, errors.As(err, &sanitizationErr))
	return sanitizationErr.Messages
}

func containsMessage(messages []string, substr string) bool {
	for _, message := range messages {
		if strings.Contains(message, substr) {
			return true
		}
	}
	return false
}

func TestSanitize_PaddedStruct(t *testing.T) {
	raw := Struct("header",
		UInt8("a"),
		Pad(1),
		UInt32("b"),
	)

	auto, err := Sanitize(raw, Options{AlignMode: AlignAuto})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 4}, auto.Offsets())
	assert.Equal(t, IntRef(8), auto.Size())
	assert.Equal(t, 2, auto.Len())

	packed, err := Sanitize(raw, Options{})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2}, packed.Offsets())
	assert.Equal(t, IntRef(6), packed.Size())
}

func TestSanitize_Alignment(t *testing.T) {
	raw := Struct("aligned",
		UInt16("a"),
		StrAscii("b", Size(5)),
		Double("c"),
		UInt8("d"),
		UInt32("e"),
		UInt64("f"),
		New("UInt16Array", "g", Size(6)),
		UInt8("h"),
	)

	auto, err := Sanitize(raw, Options{AlignMode: AlignAuto})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 8, 16, 20, 24, 32, 38}, auto.Offsets())
	assert.Equal(t, IntRef(40), auto.Size())
	assert.Equal(t, 8, auto.LayoutAlign())

	packed, err := Sanitize(raw, Options{AlignMode: AlignNone})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 7, 15, 16, 20, 28, 34}, packed.Offsets())
	assert.Equal(t, IntRef(35), packed.Size())

	explicit, err := Sanitize(Struct("explicit", UInt8("a"), UInt8("b", Align(4))), Options{})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 4}, explicit.Offsets())
	assert.Equal(t, IntRef(8), explicit.Size())

	// offsets never undercut the previous entry
	for i := 1; i < auto.Len(); i++ {
		previous, _ := auto.Entry(i - 1).StaticSize()
		assert.GreaterOrEqual(t, auto.Offset(i), auto.Offset(i-1)+previous)
	}
}

func TestSanitize_BitStruct(t *testing.T) {
	desc, err := Sanitize(BitStruct("flags",
		Bit("a"),
		BitUInt("b", Size(3)),
		BitSInt("c", Size(4)),
	), Options{})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 4}, desc.Offsets())
	assert.Equal(t, IntRef(1), desc.Size())

	_, err = Sanitize(BitStruct("wide", BitUInt("a", Size(60)), BitUInt("b", Size(10))), Options{})
	assert.Error(t, err)
}

func TestSanitize_CollectsEveryError(t *testing.T) {
	raw := Container("broken",
		BitStruct("bits", UInt8("not_a_bit")),
		Bit("loose"),
		BitStruct("outer", BitStruct("inner", Bit("x"))),
		Struct("fixed",
			Container("inner"),
			Array("items", UInt8("item"), Size(2)),
			WhileArray("rest", UInt8("b"), Case(WhileFunc(func(c Call) (bool, error) { return false, nil }))),
			CStrAscii("name"),
			StrAscii("sized_by_path", Size(".length")),
		),
		New("Array", "no_sub", Size(2)),
		StrAscii("no_size"),
		New("NoSuchType", "unknown"),
	)
	messages := sanitizationMessages(t, raw, Options{})

	for _, expected := range []string{
		"bit_structs may only contain bit_based data fields; offending element is 'not_a_bit' of type 'UInt8'",
		"bit_based fields must reside in a bit_based struct; offending element is 'loose' of type 'Bit'",
		"bit_structs cannot contain structs; offending element is 'inner' of type 'BitStruct'",
		"containers cannot be inside a struct; offending element is 'inner' of type 'Container'",
		"containers cannot be inside a struct; offending element is 'items' of type 'Array'",
		"containers cannot be inside a struct; offending element is 'rest' of type 'WhileArray'",
		"open-ended fields cannot be inside a struct; offending element is 'name' of type 'CStrAscii'",
		"needs a static integer SIZE; offending element is 'sized_by_path'",
		"arrays need a SUB_STRUCT; offending element is 'no_sub'",
		"variable size data needs a SIZE; offending element is 'no_size'",
		`unknown TYPE "NoSuchType"`,
	} {
		assert.True(t, containsMessage(messages, expected), "missing %q in %v", expected, messages)
	}
}

func TestSanitize_Names(t *testing.T) {
	desc, err := Sanitize(Container("  3d model!", UInt8("a b")), Options{})
	require.NoError(t, err)
	assert.Equal(t, "d_model_", desc.Name())
	assert.Equal(t, "a_b", desc.Entry(0).Name())
	i, ok := desc.Index("a_b")
	assert.True(t, ok)
	assert.Equal(t, 0, i)

	messages := sanitizationMessages(t, Container("root",
		UInt8("SIZE"),
		UInt8("dup"),
		UInt8("dup"),
		UInt8("!!!"),
		UInt8(""),
	), Options{})
	assert.True(t, containsMessage(messages, `"SIZE" is a reserved descriptor key`))
	assert.True(t, containsMessage(messages, `duplicate name "dup"`))
	assert.True(t, containsMessage(messages, `cannot derive a name from "!!!"`))
	assert.True(t, containsMessage(messages, "entry has no NAME"))
}

func TestSanitize_Endian(t *testing.T) {
	desc, err := Sanitize(Container("root",
		UInt32("little"),
		Struct("big", Endian(">"),
			UInt32("inherited"),
			UInt32("overridden", Endian("<")),
		),
	), Options{})
	require.NoError(t, err)
	assert.Equal(t, bfield.Little, desc.Entry(0).Type().Endian())
	big := desc.Entry(1)
	assert.Equal(t, bfield.Big, big.Entry(0).Type().Endian())
	assert.Equal(t, bfield.Little, big.Entry(1).Type().Endian())

	desc, err = Sanitize(UInt16("n"), Options{Endian: bfield.Big})
	require.NoError(t, err)
	assert.Equal(t, bfield.Big, desc.Type().Endian())

	messages := sanitizationMessages(t, UInt16("n", Endian("?")), Options{})
	assert.True(t, containsMessage(messages, `invalid ENDIAN "?"`))
}

func optionValues(d *Descriptor) []any {
	values := make([]any, 0, d.Len())
	for _, e := range d.Entries() {
		values = append(values, e.Value())
	}
	return values
}

func TestSanitize_Options(t *testing.T) {
	enum := MustSanitize(UEnum8("kind", Opt("a"), Opt("b"), Opt("c")), Options{})
	assert.Equal(t, []any{int64(0), int64(1), int64(2)}, optionValues(enum))

	flags := MustSanitize(Bool8("flags", Opt("a"), Opt("b"), Opt("c")), Options{})
	assert.Equal(t, []any{int64(1), int64(2), int64(4)}, optionValues(flags))

	padded := MustSanitize(UEnum8("kind", Opt("a"), Pad(2), Opt("b"), Opt("c")), Options{})
	assert.Equal(t, []any{int64(0), int64(3), int64(4)}, optionValues(padded))

	paddedFlags := MustSanitize(Bool8("flags", Opt("a"), Pad(2), Opt("b"), Opt("c")), Options{})
	assert.Equal(t, []any{int64(1), int64(8), int64(16)}, optionValues(paddedFlags))

	explicit := MustSanitize(UEnum16("kind", Opt("x", 5), Opt("y")), Options{})
	assert.Equal(t, []any{int64(5), int64(6)}, optionValues(explicit))
	i, ok := explicit.ValueIndex(uint8(6))
	assert.True(t, ok)
	assert.Equal(t, 1, i)

	explicitFlags := MustSanitize(Bool16("flags", Opt("x", 8), Opt("y")), Options{})
	assert.Equal(t, []any{int64(8), int64(16)}, optionValues(explicitFlags))

	withDefault := MustSanitize(UEnum8("kind", Opt("a"), Opt("b"), Default("b")), Options{})
	value, ok := withDefault.Default()
	assert.True(t, ok)
	assert.Equal(t, int64(1), value)

	messages := sanitizationMessages(t, Container("root",
		UEnum8("dup_value", Opt("a", 1), Opt("b", 1)),
		UEnum8("dup_name", Opt("a"), Opt("a")),
		Bool8("zero", Opt("a", 0)),
	), Options{})
	assert.True(t, containsMessage(messages, "duplicate option value 1"))
	assert.True(t, containsMessage(messages, `duplicate option name "a"`))
	assert.True(t, containsMessage(messages, "must have a positive VALUE"))
}

func TestSanitize_Defaults(t *testing.T) {
	desc := MustSanitize(Container("root",
		UInt32("code", Default("0x10")),
		UInt32("magic", Default("ABCD")),
		UInt16("raw", Default([]byte{0x01, 0x02})),
		StrAscii("name", Size(4), Default("abc")),
	), Options{})
	value, _ := desc.Entry(0).Default()
	assert.Equal(t, int64(16), value)
	value, _ = desc.Entry(1).Default()
	assert.Equal(t, int64(0x44434241), value)
	value, _ = desc.Entry(2).Default()
	assert.Equal(t, int64(0x0201), value)
	value, _ = desc.Entry(3).Default()
	assert.Equal(t, "abc", value)

	messages := sanitizationMessages(t, Container("root",
		UInt8("too_big", Default(300)),
		UInt32("short_bytes", Default([]byte{})),
		Struct("block", Default(1)),
	), Options{})
	assert.True(t, containsMessage(messages, `DEFAULT of "too_big"`))
	assert.True(t, containsMessage(messages, `DEFAULT of "short_bytes"`))
	assert.True(t, containsMessage(messages, `block "block" cannot have a DEFAULT`))
}

func TestSanitize_Switch(t *testing.T) {
	raw := Container("root",
		UInt8("kind"),
		Switch("body",
			Case(".kind"),
			On(1, Struct("x", UInt32("x"))),
			On(2, Struct("yz", UInt16("y"), UInt16("z"))),
			Else(VoidCase()),
		),
	)
	desc, err := Sanitize(raw, Options{})
	require.NoError(t, err)
	body := desc.Entry(1)
	assert.Equal(t, SelectPath, body.Case().Kind())
	assert.Equal(t, ".kind", body.Case().Path())
	assert.Equal(t, []any{int64(1), int64(2)}, body.CaseKeys())

	c, matched := body.CaseFor(uint8(2))
	assert.True(t, matched)
	assert.Equal(t, "yz", c.Name())
	c, matched = body.CaseFor(99)
	assert.False(t, matched)
	assert.Equal(t, "Void", c.Type().Name())

	messages := sanitizationMessages(t, Switch("body",
		Case(".kind"),
		On(1, Struct("x", UInt32("x"))),
		On(1, Struct("again")),
		On(3, UInt8("scalar")),
	), Options{})
	assert.True(t, containsMessage(messages, `Switch "body" needs a DEFAULT case`))
	assert.True(t, containsMessage(messages, "duplicate case 1"))
	assert.True(t, containsMessage(messages, "must be a block, not UInt8"))

	messages = sanitizationMessages(t, Switch("body", Else(VoidCase())), Options{})
	assert.True(t, containsMessage(messages, `Switch "body" needs a CASE`))
}

func TestSanitize_SwitchPropagatesPointer(t *testing.T) {
	desc := MustSanitize(Switch("body",
		Case(1),
		Pointer(32),
		On(1, Container("one", UInt8("a"))),
		Else(Container("other")),
	), Options{})
	assert.Equal(t, IntRef(32), desc.Cases()[0].Pointer())
	assert.Equal(t, IntRef(32), desc.DefaultCase().Pointer())
	assert.Equal(t, int64(1), desc.Case().Literal())
	assert.True(t, desc.HasPointer())
}

func TestSanitize_Union(t *testing.T) {
	desc := MustSanitize(Union("u",
		On(2, Struct("wide", UInt32("a"), UInt32("b"))),
		On(1, Struct("narrow", UInt16("a"))),
	), Options{})
	assert.Equal(t, IntRef(8), desc.Size())
	assert.Equal(t, []any{int64(1), int64(2)}, desc.CaseKeys())

	messages := sanitizationMessages(t, Union("u",
		Size(2),
		On(1, Struct("wide", UInt32("a"))),
		On(2, Container("ptr", UInt8("a", Pointer(4)))),
	), Options{})
	assert.True(t, containsMessage(messages, "largest case needs 4"))
	assert.True(t, containsMessage(messages, "cannot use pointers"))
}

func TestSanitize_Arrays(t *testing.T) {
	desc := MustSanitize(Container("root",
		UInt8("count"),
		Array("items", Struct("item", UInt16("v")), Size(".count")),
		WhileArray("rest", UInt8("b"), Case(WhileFunc(func(c Call) (bool, error) { return false, nil }))),
	), Options{})
	items := desc.Entry(1)
	assert.Equal(t, PathRef(".count"), items.Size())
	assert.Equal(t, "item", items.SubStruct().Name())
	assert.Equal(t, SelectWhile, desc.Entry(2).Case().Kind())

	unnamed := MustSanitize(Array("items", Struct("", UInt8("v")), Size(2)), Options{})
	assert.Equal(t, "sub_struct", unnamed.SubStruct().Name())

	messages := sanitizationMessages(t, Container("root",
		WhileArray("rest", UInt8("b")),
		New("Array", "unsized", SubStruct(UInt8("b"))),
	), Options{})
	assert.True(t, containsMessage(messages, "needs a CASE that is a WhileFunc"))
	assert.True(t, containsMessage(messages, "arrays need a SIZE"))
}

func TestSanitize_Include(t *testing.T) {
	fragment := UInt32("", Default(7), Meta("comment", "shared"))
	desc := MustSanitize(Container("root",
		New("", "first", Include(fragment)),
		New("UInt16", "second", Include(fragment)),
	), Options{})
	assert.Equal(t, "UInt32", desc.Entry(0).Type().Name())
	value, _ := desc.Entry(0).Default()
	assert.Equal(t, int64(7), value)
	assert.Equal(t, "UInt16", desc.Entry(1).Type().Name())
	comment, ok := desc.Entry(1).Meta().Get("comment")
	assert.True(t, ok)
	assert.Equal(t, "shared", comment)

	cyclic := &Raw{Name: "cyclic"}
	cyclic.Include = cyclic
	messages := sanitizationMessages(t, cyclic, Options{})
	assert.True(t, containsMessage(messages, "includes itself"))
}

func TestSanitize_ContainerPads(t *testing.T) {
	desc := MustSanitize(Container("root", UInt8("a"), Pad(3), UInt8("b")), Options{})
	assert.Equal(t, 3, desc.Len())
	assert.Equal(t, "pad_entry_0", desc.Entry(1).Name())
	assert.Equal(t, IntRef(3), desc.Entry(1).Size())

	messages := sanitizationMessages(t, Container("root", New("Pad", "")), Options{})
	assert.True(t, containsMessage(messages, "needs an integer SIZE"))
}

func TestSanitize_Steptree(t *testing.T) {
	desc := MustSanitize(Struct("header",
		UInt8("length"),
		Steptree(StrAscii("", Size(".length"))),
	), Options{})
	require.NotNil(t, desc.Steptree())
	assert.Equal(t, "steptree", desc.Steptree().Name())
	assert.True(t, desc.HasSteptree())
}

func TestDescriptor_Derivations(t *testing.T) {
	desc := MustSanitize(Container("root", StrAscii("name", Size(4)), Struct("s", UInt8("a"))), Options{})
	name := desc.Entry(0)

	resized, err := name.WithSize(8)
	require.NoError(t, err)
	assert.Equal(t, IntRef(8), resized.Size())
	assert.Equal(t, IntRef(4), name.Size())
	assert.Same(t, name, resized.Orig())

	again, err := resized.WithDefault("abcd")
	require.NoError(t, err)
	assert.Same(t, name, again.Orig())

	_, err = desc.Entry(1).WithSize(2)
	var editErr *DescEditError
	assert.True(t, errors.As(err, &editErr))

	_, err = name.WithName("TYPE")
	assert.Error(t, err)
	renamed, err := name.WithName("new name")
	require.NoError(t, err)
	assert.Equal(t, "new_name", renamed.Name())

	note := map[string]any{"text": "kept"}
	commented, err := name.WithMeta("COMMENT", note)
	require.NoError(t, err)
	assert.Same(t, name, commented.Orig())
	assert.False(t, name.Meta().Has("COMMENT"))
	note["text"] = "changed"
	frozen, ok := commented.Meta().Get("COMMENT")
	require.True(t, ok)
	text, _ := frozen.(bfrozen.Map[string, any]).Get("text")
	assert.Equal(t, "kept", text)
	assert.False(t, commented.WithoutMeta("COMMENT").Meta().Has("COMMENT"))
}

func TestSanitize_PointedStructEntry(t *testing.T) {
	desc, err := Sanitize(Struct("root",
		UInt32("child_at"),
		Pad(12),
		Struct("child", UInt32("a"), UInt32("b"), Pointer(".child_at")),
		UInt8("tail"),
	), Options{})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 16, 16}, desc.Offsets())
	assert.Equal(t, IntRef(17), desc.Size())
	assert.True(t, desc.HasPointer())
}

func TestSanitize_CyclicMeta(t *testing.T) {
	cyclic := map[string]any{}
	cyclic["self"] = cyclic

	messages := sanitizationMessages(t, Container("root",
		UInt8("a", Meta("COMMENT", cyclic)),
		UInt8("b", Meta("COMMENT", "fine")),
	), Options{})
	assert.True(t, containsMessage(messages, `META "COMMENT" of "a"`), "%v", messages)
	assert.Len(t, messages, 1)
}

func TestAlignMode_Text(t *testing.T) {
	var mode AlignMode
	require.NoError(t, mode.UnmarshalText([]byte("auto")))
	assert.Equal(t, AlignAuto, mode)
	text, err := AlignNone.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "none", string(text))
	assert.Error(t, mode.UnmarshalText([]byte("sideways")))
}
